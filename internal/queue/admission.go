package queue

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Christian-Regnante/SmartQ/internal/models"
	"github.com/Christian-Regnante/SmartQ/internal/store"
)

var ErrMissingFields = errors.New("service_id and phone are required")

// Admission validates join requests and appends tickets to a service's
// queue. Every accepted call creates a new ticket; duplicate submissions
// are the caller's problem since no idempotency key is exchanged.
type Admission struct {
	store store.TicketStore
	phone PhonePolicy
}

func NewAdmission(st store.TicketStore, policy PhonePolicy) *Admission {
	if policy == nil {
		policy = LenientPhonePolicy
	}
	return &Admission{store: st, phone: policy}
}

type JoinResult struct {
	TicketID      string `json:"ticket_id"`
	QueueNumber   int64  `json:"queue_number"`
	Position      int    `json:"position"`
	EstimatedWait int    `json:"estimated_wait"`
	ServiceName   string `json:"service_name"`
	Counter       string `json:"counter"`
}

// JoinQueue enqueues a waiting ticket and reports its position. The wait
// estimate is position times the service's average handling time, a
// deliberate linear approximation.
func (a *Admission) JoinQueue(ctx context.Context, serviceID, phone string) (JoinResult, error) {
	serviceID = strings.TrimSpace(serviceID)
	phone = strings.TrimSpace(phone)
	if serviceID == "" || phone == "" {
		return JoinResult{}, ErrMissingFields
	}
	if err := a.phone(phone); err != nil {
		return JoinResult{}, err
	}

	service, err := a.store.GetService(ctx, serviceID)
	if err != nil {
		return JoinResult{}, err
	}
	if !service.Active {
		return JoinResult{}, store.ErrServiceInactive
	}

	ticket, position, err := a.store.Enqueue(ctx, store.EnqueueInput{
		ServiceID: serviceID,
		Phone:     phone,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return JoinResult{}, err
	}

	return JoinResult{
		TicketID:      ticket.TicketID,
		QueueNumber:   ticket.QueueNumber,
		Position:      position,
		EstimatedWait: position * service.AvgServiceTime,
		ServiceName:   service.Name,
		Counter:       service.CounterNumber,
	}, nil
}

// TicketStatus reports a ticket's live position for client status polls.
type TicketStatus struct {
	TicketID    string    `json:"ticket_id"`
	QueueNumber int64     `json:"queue_number"`
	Status      string    `json:"status"`
	Position    int       `json:"position"`
	ServiceName string    `json:"service_name"`
	Counter     string    `json:"counter"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *Admission) Status(ctx context.Context, ticketID string) (TicketStatus, error) {
	ticket, err := a.store.GetTicket(ctx, ticketID)
	if err != nil {
		return TicketStatus{}, err
	}
	service, err := a.store.GetService(ctx, ticket.ServiceID)
	if err != nil {
		return TicketStatus{}, err
	}

	position := 0
	if ticket.Status == models.StatusWaiting {
		waiting, err := a.store.ListWaiting(ctx, ticket.ServiceID)
		if err != nil {
			return TicketStatus{}, err
		}
		for i, item := range waiting {
			if item.TicketID == ticket.TicketID {
				position = i + 1
				break
			}
		}
	}

	return TicketStatus{
		TicketID:    ticket.TicketID,
		QueueNumber: ticket.QueueNumber,
		Status:      ticket.Status,
		Position:    position,
		ServiceName: service.Name,
		Counter:     service.CounterNumber,
		CreatedAt:   ticket.CreatedAt,
	}, nil
}

// NowServing is the public display projection for one service.
type NowServing struct {
	ServiceName  string `json:"service_name"`
	Counter      string `json:"counter"`
	NowServing   *int64 `json:"now_serving"`
	WaitingCount int    `json:"waiting_count"`
}

func (a *Admission) NowServing(ctx context.Context, serviceID string) (NowServing, error) {
	service, err := a.store.GetService(ctx, serviceID)
	if err != nil {
		return NowServing{}, err
	}
	result := NowServing{ServiceName: service.Name, Counter: service.CounterNumber}

	serving, found, err := a.store.GetServing(ctx, serviceID)
	if err != nil {
		return NowServing{}, err
	}
	if found {
		number := serving.QueueNumber
		result.NowServing = &number
	}

	waiting, err := a.store.ListWaiting(ctx, serviceID)
	if err != nil {
		return NowServing{}, err
	}
	result.WaitingCount = len(waiting)
	return result, nil
}
