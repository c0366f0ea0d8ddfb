package models

import "time"

type Ticket struct {
	TicketID     string     `json:"id"`
	ServiceID    string     `json:"service_id"`
	QueueNumber  int64      `json:"queue_number"`
	Phone        string     `json:"phone,omitempty"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	ServingSince *time.Time `json:"serving_since,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	SkippedAt    *time.Time `json:"skipped_at,omitempty"`
}

const (
	StatusWaiting   = "waiting"
	StatusServing   = "serving"
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
)
