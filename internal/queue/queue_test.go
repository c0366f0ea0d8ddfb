package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Christian-Regnante/SmartQ/internal/models"
	"github.com/Christian-Regnante/SmartQ/internal/store"

	"github.com/google/uuid"
)

// memStore is an in-memory TicketStore with the same transition rules
// as the real one, used by the admission and cycle tests.
type memStore struct {
	mu       sync.Mutex
	services map[string]models.Service
	tickets  map[string]*models.Ticket
	next     map[string]int64
}

func newMemStore() *memStore {
	return &memStore{
		services: make(map[string]models.Service),
		tickets:  make(map[string]*models.Ticket),
		next:     make(map[string]int64),
	}
}

func (m *memStore) addService(service models.Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[service.ServiceID] = service
}

func (m *memStore) GetService(ctx context.Context, serviceID string) (models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	service, ok := m.services[serviceID]
	if !ok {
		return models.Service{}, store.ErrServiceNotFound
	}
	return service, nil
}

func (m *memStore) Enqueue(ctx context.Context, input store.EnqueueInput) (models.Ticket, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	service, ok := m.services[input.ServiceID]
	if !ok {
		return models.Ticket{}, 0, store.ErrServiceNotFound
	}
	if !service.Active {
		return models.Ticket{}, 0, store.ErrServiceInactive
	}

	m.next[input.ServiceID]++
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	ticket := models.Ticket{
		TicketID:    uuid.NewString(),
		ServiceID:   input.ServiceID,
		QueueNumber: m.next[input.ServiceID],
		Phone:       input.Phone,
		Status:      models.StatusWaiting,
		CreatedAt:   createdAt,
	}
	m.tickets[ticket.TicketID] = &ticket

	position := 0
	for _, t := range m.tickets {
		if t.ServiceID == input.ServiceID && t.Status == models.StatusWaiting && t.QueueNumber <= ticket.QueueNumber {
			position++
		}
	}
	return ticket, position, nil
}

func (m *memStore) waitingLocked(serviceID string) []models.Ticket {
	var waiting []models.Ticket
	for _, t := range m.tickets {
		if t.ServiceID == serviceID && t.Status == models.StatusWaiting {
			waiting = append(waiting, *t)
		}
	}
	sort.Slice(waiting, func(i, j int) bool {
		return waiting[i].QueueNumber < waiting[j].QueueNumber
	})
	return waiting
}

func (m *memStore) ListWaiting(ctx context.Context, serviceID string) ([]models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waitingLocked(serviceID), nil
}

func (m *memStore) GetServing(ctx context.Context, serviceID string) (models.Ticket, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if t.ServiceID == serviceID && t.Status == models.StatusServing {
			return *t, true, nil
		}
	}
	return models.Ticket{}, false, nil
}

func (m *memStore) CallNext(ctx context.Context, serviceID string, calledAt time.Time) (models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	service, ok := m.services[serviceID]
	if !ok {
		return models.Ticket{}, store.ErrServiceNotFound
	}
	if !service.Active {
		return models.Ticket{}, store.ErrServiceInactive
	}
	for _, t := range m.tickets {
		if t.ServiceID == serviceID && t.Status == models.StatusServing {
			return models.Ticket{}, store.ErrAlreadyServing
		}
	}
	waiting := m.waitingLocked(serviceID)
	if len(waiting) == 0 {
		return models.Ticket{}, store.ErrQueueEmpty
	}
	ticket := m.tickets[waiting[0].TicketID]
	ticket.Status = models.StatusServing
	at := calledAt
	ticket.ServingSince = &at
	return *ticket, nil
}

func (m *memStore) CompleteTicket(ctx context.Context, ticketID string, completedAt time.Time) (models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[ticketID]
	if !ok {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	if ticket.Status != models.StatusServing {
		return models.Ticket{}, store.ErrInvalidState
	}
	ticket.Status = models.StatusCompleted
	at := completedAt
	ticket.CompletedAt = &at
	return *ticket, nil
}

func (m *memStore) SkipTicket(ctx context.Context, ticketID string, skippedAt time.Time) (models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[ticketID]
	if !ok {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	if ticket.Status != models.StatusWaiting && ticket.Status != models.StatusServing {
		return models.Ticket{}, store.ErrInvalidState
	}
	ticket.Status = models.StatusSkipped
	at := skippedAt
	ticket.SkippedAt = &at
	return *ticket, nil
}

func (m *memStore) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[ticketID]
	if !ok {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	return *ticket, nil
}

func (m *memStore) ListHistory(ctx context.Context, serviceID string, from, to time.Time) ([]models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var history []models.Ticket
	for _, t := range m.tickets {
		if t.ServiceID == serviceID && !t.CreatedAt.Before(from) && !t.CreatedAt.After(to) {
			history = append(history, *t)
		}
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].CreatedAt.Before(history[j].CreatedAt)
	})
	return history, nil
}
