package postgres

import (
	"context"
	"time"

	"github.com/Christian-Regnante/SmartQ/internal/store"
)

func (s *Store) Overview(ctx context.Context, from, to time.Time) (store.Overview, error) {
	var overview store.Overview
	err := retry(ctx, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `
			SELECT
				COUNT(*) FILTER (WHERE t.created_at >= $1 AND t.created_at <= $2),
				COUNT(*) FILTER (WHERE t.status = 'completed' AND t.created_at >= $1 AND t.created_at <= $2),
				COUNT(*) FILTER (WHERE t.status IN ('waiting','serving')),
				COALESCE(AVG(EXTRACT(EPOCH FROM t.serving_since - t.created_at) / 60)
					FILTER (WHERE t.serving_since IS NOT NULL AND t.created_at >= $1 AND t.created_at <= $2), 0)
			FROM tickets t
		`, from, to)
		if err := row.Scan(&overview.TotalTickets, &overview.Completed, &overview.ActiveNow, &overview.AverageWaitMinutes); err != nil {
			return err
		}

		row = s.pool.QueryRow(ctx, `
			SELECT
				(SELECT COUNT(*) FROM organizations WHERE active),
				(SELECT COUNT(*) FROM services WHERE active)
		`)
		return row.Scan(&overview.TotalOrganizations, &overview.TotalServices)
	})
	if err != nil {
		return store.Overview{}, err
	}
	return overview, nil
}

func (s *Store) PerService(ctx context.Context, from, to time.Time) ([]store.ServiceTotals, error) {
	var totals []store.ServiceTotals
	err := retry(ctx, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
			SELECT
				sv.service_id,
				sv.name,
				o.name,
				COUNT(t.ticket_id) FILTER (WHERE t.created_at >= $1 AND t.created_at <= $2),
				COUNT(t.ticket_id) FILTER (WHERE t.status = 'completed' AND t.created_at >= $1 AND t.created_at <= $2),
				COUNT(t.ticket_id) FILTER (WHERE t.status = 'skipped' AND t.created_at >= $1 AND t.created_at <= $2),
				COUNT(t.ticket_id) FILTER (WHERE t.status = 'waiting'),
				COALESCE(AVG(EXTRACT(EPOCH FROM t.serving_since - t.created_at) / 60)
					FILTER (WHERE t.serving_since IS NOT NULL AND t.created_at >= $1 AND t.created_at <= $2), 0),
				COALESCE(AVG(EXTRACT(EPOCH FROM t.completed_at - t.serving_since) / 60)
					FILTER (WHERE t.completed_at IS NOT NULL AND t.serving_since IS NOT NULL AND t.created_at >= $1 AND t.created_at <= $2), 0)
			FROM services sv
			JOIN organizations o ON o.organization_id = sv.organization_id
			LEFT JOIN tickets t ON t.service_id = sv.service_id
			GROUP BY sv.service_id, sv.name, o.name
			ORDER BY sv.name ASC
		`, from, to)
		if err != nil {
			return err
		}
		defer rows.Close()

		totals = totals[:0]
		for rows.Next() {
			var st store.ServiceTotals
			if err := rows.Scan(&st.ServiceID, &st.ServiceName, &st.OrganizationName, &st.Total, &st.Completed, &st.Skipped, &st.WaitingNow, &st.AverageWaitMin, &st.AverageServiceMin); err != nil {
				return err
			}
			totals = append(totals, st)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return totals, nil
}

func (s *Store) StaffStats(ctx context.Context, serviceID string, from, to time.Time) (store.StaffStats, error) {
	var stats store.StaffStats
	err := retry(ctx, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `
			SELECT
				COUNT(*) FILTER (WHERE status = 'completed' AND completed_at >= $2 AND completed_at <= $3),
				COUNT(*) FILTER (WHERE status = 'waiting'),
				COALESCE(AVG(EXTRACT(EPOCH FROM completed_at - serving_since) / 60)
					FILTER (WHERE completed_at IS NOT NULL AND serving_since IS NOT NULL AND completed_at >= $2 AND completed_at <= $3),
					(SELECT avg_service_time FROM services WHERE service_id = $1), 0)
			FROM tickets
			WHERE service_id = $1
		`, serviceID, from, to)
		return row.Scan(&stats.ServedToday, &stats.WaitingCount, &stats.AverageServiceMin)
	})
	if err != nil {
		return store.StaffStats{}, err
	}
	return stats, nil
}
