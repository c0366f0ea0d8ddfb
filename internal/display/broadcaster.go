package display

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/Christian-Regnante/SmartQ/internal/store"
)

const consumerName = "display"

type eventEnvelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Broadcaster tails the outbox and pushes ticket events to connected
// displays. The durable offset makes restarts resume where the feed
// left off instead of replaying history.
type Broadcaster struct {
	hub      *Hub
	store    store.OutboxStore
	interval time.Duration
	batch    int
}

func NewBroadcaster(hub *Hub, st store.OutboxStore, interval time.Duration, batch int) *Broadcaster {
	if interval <= 0 {
		interval = time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	return &Broadcaster{hub: hub, store: st, interval: interval, batch: batch}
}

func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.tick(ctx); err != nil && ctx.Err() == nil {
				log.Printf("display broadcast error: %v", err)
			}
		}
	}
}

func (b *Broadcaster) tick(ctx context.Context) error {
	offset, err := b.store.GetConsumerOffset(ctx, consumerName)
	if err != nil {
		return err
	}
	events, err := b.store.ListOutboxEvents(ctx, offset, b.batch)
	if err != nil {
		return err
	}
	for _, event := range events {
		if payload := b.render(event); payload != nil {
			b.hub.Broadcast(payload, serviceIDFromPayload(event.Payload))
		}
		offset = event.Seq
	}
	if len(events) > 0 {
		return b.store.UpdateConsumerOffset(ctx, consumerName, offset)
	}
	return nil
}

func (b *Broadcaster) render(event store.OutboxEvent) []byte {
	switch event.Type {
	case store.EventTicketCreated, store.EventTicketCalled, store.EventTicketDone, store.EventTicketSkipped:
	default:
		return nil
	}
	payload, err := json.Marshal(eventEnvelope{
		Type:      event.Type,
		Payload:   event.Payload,
		CreatedAt: event.CreatedAt,
	})
	if err != nil {
		return nil
	}
	return payload
}

func serviceIDFromPayload(payload []byte) string {
	var data struct {
		ServiceID string `json:"service_id"`
	}
	if err := json.Unmarshal(payload, &data); err != nil {
		return ""
	}
	return data.ServiceID
}
