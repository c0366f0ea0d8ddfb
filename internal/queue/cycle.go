package queue

import (
	"context"
	"time"

	"github.com/Christian-Regnante/SmartQ/internal/store"
)

// Cycle runs the staff-facing service loop: call the next waiting
// ticket, then complete or skip it. All operations are scoped to the
// staff member's assigned service.
type Cycle struct {
	store store.TicketStore
}

func NewCycle(st store.TicketStore) *Cycle {
	return &Cycle{store: st}
}

type CalledTicket struct {
	TicketID    string `json:"ticket_id"`
	QueueNumber int64  `json:"queue_number"`
	Phone       string `json:"phone"`
}

// CallNext promotes the earliest waiting ticket to serving. It fails
// when a ticket is already being served or the queue is empty; skipping
// a ticket never advances the queue on its own.
func (c *Cycle) CallNext(ctx context.Context, serviceID string) (CalledTicket, error) {
	ticket, err := c.store.CallNext(ctx, serviceID, time.Now().UTC())
	if err != nil {
		return CalledTicket{}, err
	}
	return CalledTicket{
		TicketID:    ticket.TicketID,
		QueueNumber: ticket.QueueNumber,
		Phone:       maskPhone(ticket.Phone),
	}, nil
}

// Complete finishes the ticket currently being served. Only a serving
// ticket can be completed.
func (c *Cycle) Complete(ctx context.Context, serviceID, ticketID string) error {
	if err := c.ensureOwnTicket(ctx, serviceID, ticketID); err != nil {
		return err
	}
	_, err := c.store.CompleteTicket(ctx, ticketID, time.Now().UTC())
	return err
}

// Skip marks a waiting or serving ticket as a no-show.
func (c *Cycle) Skip(ctx context.Context, serviceID, ticketID string) error {
	if err := c.ensureOwnTicket(ctx, serviceID, ticketID); err != nil {
		return err
	}
	_, err := c.store.SkipTicket(ctx, ticketID, time.Now().UTC())
	return err
}

func (c *Cycle) ensureOwnTicket(ctx context.Context, serviceID, ticketID string) error {
	ticket, err := c.store.GetTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.ServiceID != serviceID {
		return store.ErrWrongService
	}
	return nil
}

type WaitingEntry struct {
	TicketID    string `json:"id"`
	QueueNumber int64  `json:"queue_number"`
	Phone       string `json:"phone"`
	Position    int    `json:"position"`
	CreatedAt   string `json:"created_at"`
}

type ServingEntry struct {
	TicketID     string `json:"id"`
	QueueNumber  int64  `json:"queue_number"`
	Phone        string `json:"phone"`
	ServingSince string `json:"serving_since"`
}

type QueueView struct {
	Serving *ServingEntry  `json:"serving"`
	Waiting []WaitingEntry `json:"waiting"`
}

// View returns the serving ticket and the FIFO waiting list with
// 1-based positions. Phone numbers are masked to their last four
// digits.
func (c *Cycle) View(ctx context.Context, serviceID string) (QueueView, error) {
	view := QueueView{Waiting: []WaitingEntry{}}

	serving, found, err := c.store.GetServing(ctx, serviceID)
	if err != nil {
		return QueueView{}, err
	}
	if found {
		entry := ServingEntry{
			TicketID:    serving.TicketID,
			QueueNumber: serving.QueueNumber,
			Phone:       maskPhone(serving.Phone),
		}
		if serving.ServingSince != nil {
			entry.ServingSince = serving.ServingSince.Format("15:04")
		}
		view.Serving = &entry
	}

	waiting, err := c.store.ListWaiting(ctx, serviceID)
	if err != nil {
		return QueueView{}, err
	}
	for i, ticket := range waiting {
		view.Waiting = append(view.Waiting, WaitingEntry{
			TicketID:    ticket.TicketID,
			QueueNumber: ticket.QueueNumber,
			Phone:       maskPhone(ticket.Phone),
			Position:    i + 1,
			CreatedAt:   ticket.CreatedAt.Format("15:04"),
		})
	}
	return view, nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return phone[len(phone)-4:]
}
