package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Christian-Regnante/SmartQ/internal/models"
	"github.com/Christian-Regnante/SmartQ/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var sentinels = []error{
	store.ErrServiceNotFound,
	store.ErrServiceInactive,
	store.ErrOrganizationNotFound,
	store.ErrTicketNotFound,
	store.ErrUserNotFound,
	store.ErrInvalidState,
	store.ErrAlreadyServing,
	store.ErrQueueEmpty,
	store.ErrWrongService,
	store.ErrUsernameTaken,
	store.ErrSessionNotFound,
	store.ErrInvalidCredentials,
}

// wrapStorage converts unexpected driver failures into ErrStorage while
// letting business sentinels pass through untouched.
func wrapStorage(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return errors.Join(store.ErrStorage, err)
}

// retry runs op, repeating once when the driver reports the failure as
// safe to retry (e.g. a connection dropped before the statement ran).
func retry(ctx context.Context, op func(context.Context) error) error {
	err := op(ctx)
	if err != nil && pgconn.SafeToRetry(err) {
		err = op(ctx)
	}
	return wrapStorage(err)
}

func (s *Store) GetService(ctx context.Context, serviceID string) (models.Service, error) {
	var service models.Service
	err := retry(ctx, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `
			SELECT service_id, organization_id, name, counter_number, avg_service_time, active
			FROM services
			WHERE service_id = $1
		`, serviceID)
		if err := row.Scan(&service.ServiceID, &service.OrganizationID, &service.Name, &service.CounterNumber, &service.AvgServiceTime, &service.Active); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrServiceNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.Service{}, err
	}
	return service, nil
}

func (s *Store) Enqueue(ctx context.Context, input store.EnqueueInput) (models.Ticket, int, error) {
	var ticket models.Ticket
	var position int
	err := retry(ctx, func(ctx context.Context) error {
		return s.enqueueTx(ctx, input, &ticket, &position)
	})
	if err != nil {
		return models.Ticket{}, 0, err
	}
	return ticket, position, nil
}

func (s *Store) enqueueTx(ctx context.Context, input store.EnqueueInput, ticket *models.Ticket, position *int) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var service models.Service
	row := tx.QueryRow(ctx, `
		SELECT service_id, name, counter_number, avg_service_time, active
		FROM services
		WHERE service_id = $1
	`, input.ServiceID)
	if err = row.Scan(&service.ServiceID, &service.Name, &service.CounterNumber, &service.AvgServiceTime, &service.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrServiceNotFound
		}
		return err
	}
	if !service.Active {
		err = store.ErrServiceInactive
		return err
	}

	// The upsert takes a row lock on the sequence, which serializes
	// concurrent enqueues for the same service and keeps queue_number
	// order in agreement with created_at order.
	var number int64
	row = tx.QueryRow(ctx, `
		INSERT INTO queue_sequences (service_id, next_number)
		VALUES ($1, 1)
		ON CONFLICT (service_id)
		DO UPDATE SET next_number = queue_sequences.next_number + 1
		RETURNING next_number
	`, input.ServiceID)
	if err = row.Scan(&number); err != nil {
		return err
	}

	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	ticketID := uuid.NewString()

	if _, err = tx.Exec(ctx, `
		INSERT INTO tickets (ticket_id, service_id, queue_number, phone, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ticketID, input.ServiceID, number, input.Phone, models.StatusWaiting, createdAt); err != nil {
		return err
	}

	row = tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM tickets
		WHERE service_id = $1 AND status = 'waiting' AND queue_number <= $2
	`, input.ServiceID, number)
	if err = row.Scan(position); err != nil {
		return err
	}

	*ticket = models.Ticket{
		TicketID:    ticketID,
		ServiceID:   input.ServiceID,
		QueueNumber: number,
		Phone:       input.Phone,
		Status:      models.StatusWaiting,
		CreatedAt:   createdAt,
	}

	if err = insertOutboxEvent(ctx, tx, store.EventTicketCreated, outboxPayload{
		TicketID:      ticketID,
		ServiceID:     input.ServiceID,
		ServiceName:   service.Name,
		Counter:       service.CounterNumber,
		QueueNumber:   number,
		Phone:         input.Phone,
		Position:      *position,
		EstimatedWait: *position * service.AvgServiceTime,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) ListWaiting(ctx context.Context, serviceID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := retry(ctx, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
			SELECT ticket_id, service_id, queue_number, phone, status, created_at, serving_since, completed_at, skipped_at
			FROM tickets
			WHERE service_id = $1 AND status = 'waiting'
			ORDER BY created_at ASC, queue_number ASC
		`, serviceID)
		if err != nil {
			return err
		}
		defer rows.Close()

		tickets = tickets[:0]
		for rows.Next() {
			ticket, err := scanTicket(rows)
			if err != nil {
				return err
			}
			tickets = append(tickets, ticket)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) GetServing(ctx context.Context, serviceID string) (models.Ticket, bool, error) {
	var ticket models.Ticket
	found := false
	err := retry(ctx, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `
			SELECT ticket_id, service_id, queue_number, phone, status, created_at, serving_since, completed_at, skipped_at
			FROM tickets
			WHERE service_id = $1 AND status = 'serving'
			ORDER BY serving_since DESC
			LIMIT 1
		`, serviceID)
		t, err := scanTicketRow(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		ticket = t
		found = true
		return nil
	})
	if err != nil {
		return models.Ticket{}, false, err
	}
	return ticket, found, nil
}

func (s *Store) CallNext(ctx context.Context, serviceID string, calledAt time.Time) (models.Ticket, error) {
	var ticket models.Ticket
	err := retry(ctx, func(ctx context.Context) error {
		return s.callNextTx(ctx, serviceID, calledAt, &ticket)
	})
	if err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) callNextTx(ctx context.Context, serviceID string, calledAt time.Time, ticket *models.Ticket) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Locking the service row makes concurrent call-next attempts on the
	// same service take turns, so the serving-exclusivity check below
	// cannot race. Other services are untouched.
	var service models.Service
	row := tx.QueryRow(ctx, `
		SELECT service_id, name, counter_number, active
		FROM services
		WHERE service_id = $1
		FOR UPDATE
	`, serviceID)
	if err = row.Scan(&service.ServiceID, &service.Name, &service.CounterNumber, &service.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrServiceNotFound
		}
		return err
	}
	if !service.Active {
		err = store.ErrServiceInactive
		return err
	}

	var serving bool
	row = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM tickets WHERE service_id = $1 AND status = 'serving'
		)
	`, serviceID)
	if err = row.Scan(&serving); err != nil {
		return err
	}
	if serving {
		err = store.ErrAlreadyServing
		return err
	}

	if calledAt.IsZero() {
		calledAt = time.Now().UTC()
	}

	// SKIP LOCKED keeps the CTE's snapshot honest: a ticket a concurrent
	// skip has locked is passed over instead of being promoted from a
	// stale waiting row.
	row = tx.QueryRow(ctx, `
		WITH next_ticket AS (
			SELECT ticket_id
			FROM tickets
			WHERE service_id = $1 AND status = 'waiting'
			ORDER BY created_at ASC, queue_number ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE tickets
		SET status = 'serving',
			serving_since = $2
		FROM next_ticket
		WHERE tickets.ticket_id = next_ticket.ticket_id
		RETURNING tickets.ticket_id, tickets.service_id, tickets.queue_number, tickets.phone, tickets.status, tickets.created_at, tickets.serving_since, tickets.completed_at, tickets.skipped_at
	`, serviceID, calledAt)
	t, err := scanTicketRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrQueueEmpty
		}
		return err
	}
	*ticket = t

	if err = insertOutboxEvent(ctx, tx, store.EventTicketCalled, outboxPayload{
		TicketID:    t.TicketID,
		ServiceID:   t.ServiceID,
		ServiceName: service.Name,
		Counter:     service.CounterNumber,
		QueueNumber: t.QueueNumber,
		Phone:       t.Phone,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) CompleteTicket(ctx context.Context, ticketID string, completedAt time.Time) (models.Ticket, error) {
	return s.updateTicketStatus(ctx, ticketID, "complete", models.StatusCompleted, "completed_at", completedAt, store.EventTicketDone)
}

func (s *Store) SkipTicket(ctx context.Context, ticketID string, skippedAt time.Time) (models.Ticket, error) {
	return s.updateTicketStatus(ctx, ticketID, "skip", models.StatusSkipped, "skipped_at", skippedAt, store.EventTicketSkipped)
}

// updateTicketStatus commits one conditional transition; the legal
// source statuses for the action come from the transition table.
func (s *Store) updateTicketStatus(ctx context.Context, ticketID, action, toStatus, stampColumn string, at time.Time, eventType string) (models.Ticket, error) {
	var ticket models.Ticket
	err := retry(ctx, func(ctx context.Context) error {
		return s.updateTicketStatusTx(ctx, ticketID, action, toStatus, stampColumn, at, eventType, &ticket)
	})
	if err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) updateTicketStatusTx(ctx context.Context, ticketID, action, toStatus, stampColumn string, at time.Time, eventType string, ticket *models.Ticket) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if at.IsZero() {
		at = time.Now().UTC()
	}

	// The row lock serializes against call-next's promotion and against
	// other complete/skip attempts, so the transition check below reads
	// the latest committed status.
	var status string
	row := tx.QueryRow(ctx, `
		SELECT status FROM tickets WHERE ticket_id = $1 FOR UPDATE
	`, ticketID)
	if err = row.Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrTicketNotFound
		}
		return err
	}
	if !store.ValidTransition(action, status) {
		err = store.ErrInvalidState
		return err
	}

	row = tx.QueryRow(ctx, `
		UPDATE tickets
		SET status = $2,
			`+stampColumn+` = $3
		WHERE ticket_id = $1
		RETURNING ticket_id, service_id, queue_number, phone, status, created_at, serving_since, completed_at, skipped_at
	`, ticketID, toStatus, at)
	t, err := scanTicketRow(row)
	if err != nil {
		return err
	}
	*ticket = t

	if err = insertOutboxEvent(ctx, tx, eventType, outboxPayload{
		TicketID:    t.TicketID,
		ServiceID:   t.ServiceID,
		QueueNumber: t.QueueNumber,
		Phone:       t.Phone,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	var ticket models.Ticket
	err := retry(ctx, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `
			SELECT ticket_id, service_id, queue_number, phone, status, created_at, serving_since, completed_at, skipped_at
			FROM tickets
			WHERE ticket_id = $1
		`, ticketID)
		t, err := scanTicketRow(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrTicketNotFound
			}
			return err
		}
		ticket = t
		return nil
	})
	if err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) ListHistory(ctx context.Context, serviceID string, from, to time.Time) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := retry(ctx, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
			SELECT ticket_id, service_id, queue_number, phone, status, created_at, serving_since, completed_at, skipped_at
			FROM tickets
			WHERE service_id = $1 AND created_at >= $2 AND created_at <= $3
			ORDER BY created_at ASC
		`, serviceID, from, to)
		if err != nil {
			return err
		}
		defer rows.Close()

		tickets = tickets[:0]
		for rows.Next() {
			ticket, err := scanTicket(rows)
			if err != nil {
				return err
			}
			tickets = append(tickets, ticket)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicketRow(row pgx.Row) (models.Ticket, error) {
	return scanTicket(row)
}

func scanTicket(row rowScanner) (models.Ticket, error) {
	var ticket models.Ticket
	var phoneNull sql.NullString
	var servingNull sql.NullTime
	var completedNull sql.NullTime
	var skippedNull sql.NullTime
	if err := row.Scan(&ticket.TicketID, &ticket.ServiceID, &ticket.QueueNumber, &phoneNull, &ticket.Status, &ticket.CreatedAt, &servingNull, &completedNull, &skippedNull); err != nil {
		return models.Ticket{}, err
	}
	if phoneNull.Valid {
		ticket.Phone = phoneNull.String
	}
	ticket.ServingSince = nullTimePtr(servingNull)
	ticket.CompletedAt = nullTimePtr(completedNull)
	ticket.SkippedAt = nullTimePtr(skippedNull)
	return ticket, nil
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}
