package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Christian-Regnante/SmartQ/internal/models"
)

type EnqueueInput struct {
	ServiceID string
	Phone     string
	CreatedAt time.Time
}

// TicketStore owns ticket records and their status transitions. All
// mutations on the same service are serialized against each other;
// different services never contend.
type TicketStore interface {
	GetService(ctx context.Context, serviceID string) (models.Service, error)
	Enqueue(ctx context.Context, input EnqueueInput) (models.Ticket, int, error)
	ListWaiting(ctx context.Context, serviceID string) ([]models.Ticket, error)
	GetServing(ctx context.Context, serviceID string) (models.Ticket, bool, error)
	CallNext(ctx context.Context, serviceID string, calledAt time.Time) (models.Ticket, error)
	CompleteTicket(ctx context.Context, ticketID string, completedAt time.Time) (models.Ticket, error)
	SkipTicket(ctx context.Context, ticketID string, skippedAt time.Time) (models.Ticket, error)
	GetTicket(ctx context.Context, ticketID string) (models.Ticket, error)
	ListHistory(ctx context.Context, serviceID string, from, to time.Time) ([]models.Ticket, error)
}

type CreateUserInput struct {
	Username       string
	Password       string
	Role           string
	FullName       string
	Phone          string
	OrganizationID string
	ServiceID      string
}

type UpdateUserInput struct {
	UserID    string
	FullName  *string
	Phone     *string
	ServiceID *string
	Password  *string
	Active    *bool
}

// AdminStore backs the organization/service/staff CRUD surface.
type AdminStore interface {
	CreateOrganization(ctx context.Context, org models.Organization) (models.Organization, error)
	UpdateOrganization(ctx context.Context, org models.Organization) (models.Organization, error)
	DeleteOrganization(ctx context.Context, orgID string) error
	ListOrganizations(ctx context.Context, activeOnly bool) ([]models.Organization, error)

	CreateService(ctx context.Context, service models.Service) (models.Service, error)
	UpdateService(ctx context.Context, service models.Service) (models.Service, error)
	DeleteService(ctx context.Context, serviceID string) error
	ListServices(ctx context.Context, orgID string, activeOnly bool) ([]models.Service, error)

	CreateUser(ctx context.Context, input CreateUserInput) (models.User, error)
	UpdateUser(ctx context.Context, input UpdateUserInput) (models.User, error)
	DeleteUser(ctx context.Context, userID string) error
	ListUsers(ctx context.Context, role string) ([]models.User, error)
}

type Session struct {
	SessionID string
	UserID    string
	ExpiresAt time.Time
	User      models.User
}

// AuthStore verifies credentials and owns session lifecycle.
type AuthStore interface {
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	CreateSession(ctx context.Context, userID string, ttl time.Duration) (Session, error)
	GetSession(ctx context.Context, sessionID string) (Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

type Overview struct {
	TotalTickets       int     `json:"total_tickets_today"`
	Completed          int     `json:"completed_today"`
	ActiveNow          int     `json:"active_now"`
	AverageWaitMinutes float64 `json:"average_wait_time"`
	TotalOrganizations int     `json:"total_organizations"`
	TotalServices      int     `json:"total_services"`
}

type ServiceTotals struct {
	ServiceID         string  `json:"service_id"`
	ServiceName       string  `json:"service_name"`
	OrganizationName  string  `json:"organization"`
	Total             int     `json:"total_today"`
	Completed         int     `json:"completed"`
	Skipped           int     `json:"skipped"`
	WaitingNow        int     `json:"waiting_now"`
	AverageWaitMin    float64 `json:"average_wait_time"`
	AverageServiceMin float64 `json:"average_service_time"`
}

type StaffStats struct {
	ServedToday       int     `json:"served_today"`
	WaitingCount      int     `json:"waiting_count"`
	AverageServiceMin float64 `json:"average_service_time"`
}

// AnalyticsStore derives aggregates from ticket history. Read-only;
// empty windows yield zero-valued results, never errors.
type AnalyticsStore interface {
	Overview(ctx context.Context, from, to time.Time) (Overview, error)
	PerService(ctx context.Context, from, to time.Time) ([]ServiceTotals, error)
	StaffStats(ctx context.Context, serviceID string, from, to time.Time) (StaffStats, error)
}

type OutboxEvent struct {
	Seq       int64           `json:"seq"`
	EventID   string          `json:"event_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type Notification struct {
	NotificationID string
	EventID        string
	Phone          string
	Message        string
	Status         string
	CreatedAt      time.Time
}

// OutboxStore feeds the notification worker and the display feed.
// Consumers track their progress as a durable sequence watermark.
type OutboxStore interface {
	ListOutboxEvents(ctx context.Context, afterSeq int64, limit int) ([]OutboxEvent, error)
	GetConsumerOffset(ctx context.Context, consumer string) (int64, error)
	UpdateConsumerOffset(ctx context.Context, consumer string, seq int64) error
	InsertNotification(ctx context.Context, notification Notification) error
	MarkNotificationSent(ctx context.Context, notificationID string) error
	MarkNotificationFailed(ctx context.Context, notificationID string) error
}

const (
	EventTicketCreated = "ticket.created"
	EventTicketCalled  = "ticket.called"
	EventTicketDone    = "ticket.done"
	EventTicketSkipped = "ticket.skipped"
)
