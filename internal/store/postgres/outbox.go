package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Christian-Regnante/SmartQ/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// outboxPayload is the event body written alongside ticket transitions.
// Fields not relevant to a given event type stay at their zero value
// and are omitted from the JSON.
type outboxPayload struct {
	TicketID      string `json:"ticket_id"`
	ServiceID     string `json:"service_id"`
	ServiceName   string `json:"service_name,omitempty"`
	Counter       string `json:"counter,omitempty"`
	QueueNumber   int64  `json:"queue_number"`
	Phone         string `json:"phone,omitempty"`
	Position      int    `json:"position,omitempty"`
	EstimatedWait int    `json:"estimated_wait,omitempty"`
}

func insertOutboxEvent(ctx context.Context, tx pgx.Tx, eventType string, payload outboxPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.NewString(), eventType, body, time.Now().UTC())
	return err
}

func (s *Store) ListOutboxEvents(ctx context.Context, afterSeq int64, limit int) ([]store.OutboxEvent, error) {
	var events []store.OutboxEvent
	err := retry(ctx, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
			SELECT seq, event_id, event_type, payload, created_at
			FROM outbox_events
			WHERE seq > $1
			ORDER BY seq ASC
			LIMIT $2
		`, afterSeq, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		events = events[:0]
		for rows.Next() {
			var event store.OutboxEvent
			if err := rows.Scan(&event.Seq, &event.EventID, &event.Type, &event.Payload, &event.CreatedAt); err != nil {
				return err
			}
			events = append(events, event)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) GetConsumerOffset(ctx context.Context, consumer string) (int64, error) {
	var offset int64
	err := retry(ctx, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `
			SELECT last_seq FROM consumer_offsets WHERE consumer = $1
		`, consumer)
		if err := row.Scan(&offset); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				offset = 0
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return offset, nil
}

func (s *Store) UpdateConsumerOffset(ctx context.Context, consumer string, seq int64) error {
	return retry(ctx, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO consumer_offsets (consumer, last_seq, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (consumer)
			DO UPDATE SET last_seq = GREATEST(consumer_offsets.last_seq, EXCLUDED.last_seq),
				updated_at = EXCLUDED.updated_at
		`, consumer, seq, time.Now().UTC())
		return err
	})
}

func (s *Store) InsertNotification(ctx context.Context, notification store.Notification) error {
	return retry(ctx, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO notifications (notification_id, event_id, phone, message, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, notification.NotificationID, notification.EventID, notification.Phone, notification.Message, notification.Status, notification.CreatedAt)
		return err
	})
}

func (s *Store) MarkNotificationSent(ctx context.Context, notificationID string) error {
	return s.markNotification(ctx, notificationID, "sent")
}

func (s *Store) MarkNotificationFailed(ctx context.Context, notificationID string) error {
	return s.markNotification(ctx, notificationID, "failed")
}

func (s *Store) markNotification(ctx context.Context, notificationID, status string) error {
	return retry(ctx, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			UPDATE notifications SET status = $2, updated_at = $3 WHERE notification_id = $1
		`, notificationID, status, time.Now().UTC())
		return err
	})
}
