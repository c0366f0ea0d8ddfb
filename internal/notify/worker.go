package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/Christian-Regnante/SmartQ/internal/store"

	"github.com/google/uuid"
)

const consumerName = "sms"

// Worker tails the outbox and sends SMS updates to customers: a
// confirmation when the ticket is created and a call-up when it is the
// customer's turn.
type Worker struct {
	store     store.OutboxStore
	provider  Provider
	batchSize int
}

type Config struct {
	BatchSize int
	Provider  Provider
}

func New(st store.OutboxStore, cfg Config) *Worker {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 50
	}
	provider := cfg.Provider
	if provider == nil {
		provider = logProvider{}
	}
	return &Worker{store: st, provider: provider, batchSize: batch}
}

func (w *Worker) Run(ctx context.Context) error {
	offset, err := w.store.GetConsumerOffset(ctx, consumerName)
	if err != nil {
		return err
	}

	events, err := w.store.ListOutboxEvents(ctx, offset, w.batchSize)
	if err != nil {
		return err
	}

	for _, event := range events {
		if err := w.processEvent(ctx, event); err != nil {
			log.Printf("notify process error: %v", err)
		}
		offset = event.Seq
	}

	if len(events) > 0 {
		return w.store.UpdateConsumerOffset(ctx, consumerName, offset)
	}
	return nil
}

type ticketPayload struct {
	TicketID      string `json:"ticket_id"`
	ServiceID     string `json:"service_id"`
	ServiceName   string `json:"service_name"`
	Counter       string `json:"counter"`
	QueueNumber   int64  `json:"queue_number"`
	Phone         string `json:"phone"`
	Position      int    `json:"position"`
	EstimatedWait int    `json:"estimated_wait"`
}

func (w *Worker) processEvent(ctx context.Context, event store.OutboxEvent) error {
	var payload ticketPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}
	if payload.Phone == "" {
		return nil
	}

	message := composeMessage(event.Type, payload)
	if message == "" {
		return nil
	}

	notification := store.Notification{
		NotificationID: uuid.NewString(),
		EventID:        event.EventID,
		Phone:          payload.Phone,
		Message:        message,
		Status:         "pending",
		CreatedAt:      time.Now().UTC(),
	}
	if err := w.store.InsertNotification(ctx, notification); err != nil {
		return err
	}

	if err := w.provider.Send(ctx, message, payload.Phone); err != nil {
		return w.store.MarkNotificationFailed(ctx, notification.NotificationID)
	}
	return w.store.MarkNotificationSent(ctx, notification.NotificationID)
}

func composeMessage(eventType string, payload ticketPayload) string {
	switch eventType {
	case store.EventTicketCreated:
		return fmt.Sprintf("You joined the %s queue as number %d. Position %d, about %d min wait.",
			payload.ServiceName, payload.QueueNumber, payload.Position, payload.EstimatedWait)
	case store.EventTicketCalled:
		if payload.Counter != "" {
			return fmt.Sprintf("It's your turn! Number %d, please go to counter %s.", payload.QueueNumber, payload.Counter)
		}
		return fmt.Sprintf("It's your turn! Number %d, please come forward.", payload.QueueNumber)
	default:
		return ""
	}
}

func Start(ctx context.Context, interval time.Duration, w *Worker) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Run(ctx); err != nil {
				log.Printf("notify worker error: %v", err)
			}
		}
	}
}
