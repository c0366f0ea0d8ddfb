package analytics

import (
	"context"
	"time"

	"github.com/Christian-Regnante/SmartQ/internal/store"
)

// Aggregator projects ticket history into dashboard figures. It only
// reads; window boundaries are computed here so the store queries stay
// plain range scans.
type Aggregator struct {
	store store.AnalyticsStore
	now   func() time.Time
}

func New(st store.AnalyticsStore) *Aggregator {
	return &Aggregator{store: st, now: func() time.Time { return time.Now().UTC() }}
}

// dayWindow spans the current UTC calendar day up to now.
func (a *Aggregator) dayWindow() (time.Time, time.Time) {
	now := a.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return start, now
}

// daysWindow spans the last N calendar days including today.
func (a *Aggregator) daysWindow(days int) (time.Time, time.Time) {
	if days <= 1 {
		return a.dayWindow()
	}
	start, now := a.dayWindow()
	return start.AddDate(0, 0, -(days - 1)), now
}

func (a *Aggregator) Overview(ctx context.Context) (store.Overview, error) {
	from, to := a.dayWindow()
	return a.store.Overview(ctx, from, to)
}

func (a *Aggregator) PerService(ctx context.Context, days int) ([]store.ServiceTotals, error) {
	from, to := a.daysWindow(days)
	return a.store.PerService(ctx, from, to)
}

func (a *Aggregator) StaffStats(ctx context.Context, serviceID string) (store.StaffStats, error) {
	from, to := a.dayWindow()
	return a.store.StaffStats(ctx, serviceID, from, to)
}
