package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Christian-Regnante/SmartQ/internal/analytics"
	"github.com/Christian-Regnante/SmartQ/internal/models"
	"github.com/Christian-Regnante/SmartQ/internal/queue"
	"github.com/Christian-Regnante/SmartQ/internal/store"

	"github.com/google/uuid"
)

type Handler struct {
	tickets   store.TicketStore
	admission *queue.Admission
	cycle     *queue.Cycle
	admin     store.AdminStore
	auth      *Sessions
	analytics *analytics.Aggregator
	display   http.Handler
}

type Options struct {
	Tickets   store.TicketStore
	Admission *queue.Admission
	Cycle     *queue.Cycle
	Admin     store.AdminStore
	Sessions  *Sessions
	Analytics *analytics.Aggregator
	Display   http.Handler
}

func NewHandler(options Options) *Handler {
	return &Handler{
		tickets:   options.Tickets,
		admission: options.Admission,
		cycle:     options.Cycle,
		admin:     options.Admin,
		auth:      options.Sessions,
		analytics: options.Analytics,
		display:   options.Display,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)

	mux.HandleFunc("/client/api/organizations", h.handleClientOrganizations)
	mux.HandleFunc("/client/api/services", h.handleClientServices)
	mux.HandleFunc("/client/api/services/", h.handleClientServices)
	mux.HandleFunc("/client/api/join-queue", h.handleJoinQueue)
	mux.HandleFunc("/client/api/queue-status/", h.handleQueueStatus)
	mux.HandleFunc("/client/api/now-serving/", h.handleNowServing)

	mux.HandleFunc("/staff/api/login", h.handleLogin)
	mux.HandleFunc("/staff/api/logout", h.handleLogout)
	mux.HandleFunc("/staff/api/my-service", h.handleMyService)
	mux.HandleFunc("/staff/api/queue", h.handleStaffQueue)
	mux.HandleFunc("/staff/api/call-next", h.handleCallNext)
	mux.HandleFunc("/staff/api/complete/", h.handleComplete)
	mux.HandleFunc("/staff/api/skip/", h.handleSkip)
	mux.HandleFunc("/staff/api/stats", h.handleStaffStats)

	mux.HandleFunc("/admin/api/login", h.handleLogin)
	mux.HandleFunc("/admin/api/logout", h.handleLogout)
	mux.HandleFunc("/admin/api/organizations", h.handleOrganizations)
	mux.HandleFunc("/admin/api/organizations/", h.handleOrganizationByID)
	mux.HandleFunc("/admin/api/services", h.handleServices)
	mux.HandleFunc("/admin/api/services/", h.handleServiceByID)
	mux.HandleFunc("/admin/api/staff", h.handleStaff)
	mux.HandleFunc("/admin/api/staff/", h.handleStaffByID)
	mux.HandleFunc("/admin/api/analytics", h.handleAnalytics)
	mux.HandleFunc("/admin/api/analytics/overview", h.handleAnalyticsOverview)
	mux.HandleFunc("/admin/api/analytics/services", h.handleAnalyticsServices)

	if h.display != nil {
		mux.Handle("/display/ws", h.display)
	}
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleClientOrganizations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	orgs, err := h.admin.ListOrganizations(r.Context(), true)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"organizations": orgs})
}

func (h *Handler) handleClientServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	orgID := strings.TrimSpace(r.URL.Query().Get("org_id"))
	if orgID == "" {
		orgID = pathSuffix(r.URL.Path, "/client/api/services/")
	}
	if orgID == "" || !isValidUUID(orgID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "org_id must be a UUID")
		return
	}
	services, err := h.admin.ListServices(r.Context(), orgID, true)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	entries := make([]clientService, 0, len(services))
	for _, service := range services {
		waiting, err := h.tickets.ListWaiting(r.Context(), service.ServiceID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		entries = append(entries, clientService{
			ServiceID:     service.ServiceID,
			Name:          service.Name,
			CounterNumber: service.CounterNumber,
			QueueLength:   len(waiting),
			EstimatedWait: len(waiting) * service.AvgServiceTime,
		})
	}
	writeSuccess(w, http.StatusOK, envelope{"services": entries})
}

type clientService struct {
	ServiceID     string `json:"id"`
	Name          string `json:"name"`
	CounterNumber string `json:"counter_number"`
	QueueLength   int    `json:"queue_length"`
	EstimatedWait int    `json:"estimated_wait"`
}

// Client builds disagree on the field name for the phone; accept both.
type joinQueueRequest struct {
	ServiceID   string `json:"service_id"`
	Phone       string `json:"phone"`
	PhoneNumber string `json:"phone_number"`
}

func (h *Handler) handleJoinQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req joinQueueRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	if req.Phone == "" {
		req.Phone = req.PhoneNumber
	}
	if req.ServiceID != "" && !isValidUUID(req.ServiceID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "service_id must be a UUID")
		return
	}

	result, err := h.admission.JoinQueue(r.Context(), req.ServiceID, req.Phone)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{
		"ticket_id":      result.TicketID,
		"queue_number":   result.QueueNumber,
		"position":       result.Position,
		"estimated_wait": result.EstimatedWait,
		"service_name":   result.ServiceName,
		"counter":        result.Counter,
	})
}

func (h *Handler) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ticketID := pathSuffix(r.URL.Path, "/client/api/queue-status/")
	if !isValidUUID(ticketID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "ticket id must be a UUID")
		return
	}
	status, err := h.admission.Status(r.Context(), ticketID)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"ticket": status})
}

func (h *Handler) handleNowServing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	serviceID := pathSuffix(r.URL.Path, "/client/api/now-serving/")
	if !isValidUUID(serviceID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "service id must be a UUID")
		return
	}
	serving, err := h.admission.NowServing(r.Context(), serviceID)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{
		"service_name":  serving.ServiceName,
		"counter":       serving.Counter,
		"now_serving":   serving.NowServing,
		"waiting_count": serving.WaitingCount,
	})
}

func (h *Handler) handleMyService(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user, ok := requireRole(w, r, models.RoleStaff)
	if !ok {
		return
	}
	if user.ServiceID == "" {
		writeError(w, http.StatusNotFound, "service_not_found", "no service assigned")
		return
	}
	service, err := h.tickets.GetService(r.Context(), user.ServiceID)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"service": service})
}

func (h *Handler) handleStaffQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user, ok := requireStaffService(w, r)
	if !ok {
		return
	}
	view, err := h.cycle.View(r.Context(), user.ServiceID)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"serving": view.Serving, "waiting": view.Waiting})
}

func (h *Handler) handleCallNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user, ok := requireStaffService(w, r)
	if !ok {
		return
	}
	called, err := h.cycle.CallNext(r.Context(), user.ServiceID)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"ticket": called})
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	h.handleTicketAction(w, r, "/staff/api/complete/", h.cycle.Complete)
}

func (h *Handler) handleSkip(w http.ResponseWriter, r *http.Request) {
	h.handleTicketAction(w, r, "/staff/api/skip/", h.cycle.Skip)
}

func (h *Handler) handleTicketAction(w http.ResponseWriter, r *http.Request, prefix string, action func(ctx context.Context, serviceID, ticketID string) error) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user, ok := requireStaffService(w, r)
	if !ok {
		return
	}
	ticketID := pathSuffix(r.URL.Path, prefix)
	if !isValidUUID(ticketID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "ticket id must be a UUID")
		return
	}
	if err := action(r.Context(), user.ServiceID, ticketID); err != nil {
		writeMappedError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

func (h *Handler) handleStaffStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user, ok := requireStaffService(w, r)
	if !ok {
		return
	}
	stats, err := h.analytics.StaffStats(r.Context(), user.ServiceID)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"stats": stats})
}

func (h *Handler) handleAnalyticsOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin); !ok {
		return
	}
	overview, err := h.analytics.Overview(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"overview": overview})
}

func (h *Handler) handleAnalyticsServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin); !ok {
		return
	}
	totals, err := h.analytics.PerService(r.Context(), 1)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"services": totals})
}

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin); !ok {
		return
	}
	days := 7
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "days must be a positive integer")
			return
		}
		days = parsed
	}
	totals, err := h.analytics.PerService(r.Context(), days)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{"services": totals, "days": days})
}

type envelope map[string]any

func writeSuccess(w http.ResponseWriter, status int, fields envelope) {
	body := envelope{"success": true}
	for key, value := range fields {
		body[key] = value
	}
	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, envelope{"success": false, "error": message, "code": code})
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code, message := mapError(err)
	writeError(w, status, code, message)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func mapError(err error) (int, string, string) {
	switch {
	case errors.Is(err, queue.ErrMissingFields):
		return http.StatusBadRequest, "invalid_request", "service_id and phone are required"
	case errors.Is(err, queue.ErrInvalidPhone):
		return http.StatusBadRequest, "invalid_phone", "phone number is not valid"
	case errors.Is(err, store.ErrServiceNotFound):
		return http.StatusNotFound, "service_not_found", "service not found"
	case errors.Is(err, store.ErrServiceInactive):
		return http.StatusConflict, "service_inactive", "service is not accepting tickets"
	case errors.Is(err, store.ErrOrganizationNotFound):
		return http.StatusNotFound, "organization_not_found", "organization not found"
	case errors.Is(err, store.ErrTicketNotFound):
		return http.StatusNotFound, "ticket_not_found", "ticket not found"
	case errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found", "user not found"
	case errors.Is(err, store.ErrQueueEmpty):
		return http.StatusConflict, "queue_empty", "no customers waiting"
	case errors.Is(err, store.ErrAlreadyServing):
		return http.StatusConflict, "already_serving", "a ticket is already being served"
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict, "invalid_state", "ticket state does not allow this action"
	case errors.Is(err, store.ErrWrongService):
		return http.StatusForbidden, "wrong_service", "ticket belongs to a different service"
	case errors.Is(err, store.ErrUsernameTaken):
		return http.StatusConflict, "username_taken", "username is already in use"
	case errors.Is(err, store.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid username or password"
	case errors.Is(err, store.ErrSessionNotFound):
		return http.StatusUnauthorized, "unauthorized", "invalid session"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func pathSuffix(path, prefix string) string {
	suffix := strings.TrimPrefix(path, prefix)
	suffix = strings.Trim(suffix, "/")
	if strings.Contains(suffix, "/") {
		return ""
	}
	return suffix
}

func isValidUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}
