package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Christian-Regnante/SmartQ/internal/analytics"
	"github.com/Christian-Regnante/SmartQ/internal/models"
	"github.com/Christian-Regnante/SmartQ/internal/queue"
	"github.com/Christian-Regnante/SmartQ/internal/store"
)

type fakeTicketStore struct {
	getServiceFn  func(ctx context.Context, serviceID string) (models.Service, error)
	enqueueFn     func(ctx context.Context, input store.EnqueueInput) (models.Ticket, int, error)
	listWaitingFn func(ctx context.Context, serviceID string) ([]models.Ticket, error)
	getServingFn  func(ctx context.Context, serviceID string) (models.Ticket, bool, error)
	callNextFn    func(ctx context.Context, serviceID string, calledAt time.Time) (models.Ticket, error)
	completeFn    func(ctx context.Context, ticketID string, completedAt time.Time) (models.Ticket, error)
	skipFn        func(ctx context.Context, ticketID string, skippedAt time.Time) (models.Ticket, error)
	getTicketFn   func(ctx context.Context, ticketID string) (models.Ticket, error)
	historyFn     func(ctx context.Context, serviceID string, from, to time.Time) ([]models.Ticket, error)
}

func (f fakeTicketStore) GetService(ctx context.Context, serviceID string) (models.Service, error) {
	if f.getServiceFn == nil {
		return models.Service{}, store.ErrServiceNotFound
	}
	return f.getServiceFn(ctx, serviceID)
}

func (f fakeTicketStore) Enqueue(ctx context.Context, input store.EnqueueInput) (models.Ticket, int, error) {
	if f.enqueueFn == nil {
		return models.Ticket{}, 0, nil
	}
	return f.enqueueFn(ctx, input)
}

func (f fakeTicketStore) ListWaiting(ctx context.Context, serviceID string) ([]models.Ticket, error) {
	if f.listWaitingFn == nil {
		return nil, nil
	}
	return f.listWaitingFn(ctx, serviceID)
}

func (f fakeTicketStore) GetServing(ctx context.Context, serviceID string) (models.Ticket, bool, error) {
	if f.getServingFn == nil {
		return models.Ticket{}, false, nil
	}
	return f.getServingFn(ctx, serviceID)
}

func (f fakeTicketStore) CallNext(ctx context.Context, serviceID string, calledAt time.Time) (models.Ticket, error) {
	if f.callNextFn == nil {
		return models.Ticket{}, store.ErrQueueEmpty
	}
	return f.callNextFn(ctx, serviceID, calledAt)
}

func (f fakeTicketStore) CompleteTicket(ctx context.Context, ticketID string, completedAt time.Time) (models.Ticket, error) {
	if f.completeFn == nil {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	return f.completeFn(ctx, ticketID, completedAt)
}

func (f fakeTicketStore) SkipTicket(ctx context.Context, ticketID string, skippedAt time.Time) (models.Ticket, error) {
	if f.skipFn == nil {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	return f.skipFn(ctx, ticketID, skippedAt)
}

func (f fakeTicketStore) GetTicket(ctx context.Context, ticketID string) (models.Ticket, error) {
	if f.getTicketFn == nil {
		return models.Ticket{}, store.ErrTicketNotFound
	}
	return f.getTicketFn(ctx, ticketID)
}

func (f fakeTicketStore) ListHistory(ctx context.Context, serviceID string, from, to time.Time) ([]models.Ticket, error) {
	if f.historyFn == nil {
		return nil, nil
	}
	return f.historyFn(ctx, serviceID, from, to)
}

type fakeAuthStore struct {
	authenticateFn func(ctx context.Context, username, password string) (models.User, error)
	getSessionFn   func(ctx context.Context, sessionID string) (store.Session, error)
}

func (f fakeAuthStore) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	if f.authenticateFn == nil {
		return models.User{}, store.ErrInvalidCredentials
	}
	return f.authenticateFn(ctx, username, password)
}

func (f fakeAuthStore) CreateSession(ctx context.Context, userID string, ttl time.Duration) (store.Session, error) {
	return store.Session{SessionID: testSessionID, UserID: userID, ExpiresAt: time.Now().Add(ttl)}, nil
}

func (f fakeAuthStore) GetSession(ctx context.Context, sessionID string) (store.Session, error) {
	if f.getSessionFn == nil {
		return store.Session{}, store.ErrSessionNotFound
	}
	return f.getSessionFn(ctx, sessionID)
}

func (f fakeAuthStore) DeleteSession(ctx context.Context, sessionID string) error {
	return nil
}

type fakeAdminStore struct {
	listOrgsFn     func(ctx context.Context, activeOnly bool) ([]models.Organization, error)
	createOrgFn    func(ctx context.Context, org models.Organization) (models.Organization, error)
	listServicesFn func(ctx context.Context, orgID string, activeOnly bool) ([]models.Service, error)
	createUserFn   func(ctx context.Context, input store.CreateUserInput) (models.User, error)
}

func (f fakeAdminStore) CreateOrganization(ctx context.Context, org models.Organization) (models.Organization, error) {
	if f.createOrgFn == nil {
		return org, nil
	}
	return f.createOrgFn(ctx, org)
}

func (f fakeAdminStore) UpdateOrganization(ctx context.Context, org models.Organization) (models.Organization, error) {
	return org, nil
}

func (f fakeAdminStore) DeleteOrganization(ctx context.Context, orgID string) error {
	return nil
}

func (f fakeAdminStore) ListOrganizations(ctx context.Context, activeOnly bool) ([]models.Organization, error) {
	if f.listOrgsFn == nil {
		return nil, nil
	}
	return f.listOrgsFn(ctx, activeOnly)
}

func (f fakeAdminStore) CreateService(ctx context.Context, service models.Service) (models.Service, error) {
	return service, nil
}

func (f fakeAdminStore) UpdateService(ctx context.Context, service models.Service) (models.Service, error) {
	return service, nil
}

func (f fakeAdminStore) DeleteService(ctx context.Context, serviceID string) error {
	return nil
}

func (f fakeAdminStore) ListServices(ctx context.Context, orgID string, activeOnly bool) ([]models.Service, error) {
	if f.listServicesFn == nil {
		return nil, nil
	}
	return f.listServicesFn(ctx, orgID, activeOnly)
}

func (f fakeAdminStore) CreateUser(ctx context.Context, input store.CreateUserInput) (models.User, error) {
	if f.createUserFn == nil {
		return models.User{}, nil
	}
	return f.createUserFn(ctx, input)
}

func (f fakeAdminStore) UpdateUser(ctx context.Context, input store.UpdateUserInput) (models.User, error) {
	return models.User{UserID: input.UserID}, nil
}

func (f fakeAdminStore) DeleteUser(ctx context.Context, userID string) error {
	return nil
}

func (f fakeAdminStore) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	return nil, nil
}

type fakeAnalyticsStore struct {
	overviewFn func(ctx context.Context, from, to time.Time) (store.Overview, error)
}

func (f fakeAnalyticsStore) Overview(ctx context.Context, from, to time.Time) (store.Overview, error) {
	if f.overviewFn == nil {
		return store.Overview{}, nil
	}
	return f.overviewFn(ctx, from, to)
}

func (f fakeAnalyticsStore) PerService(ctx context.Context, from, to time.Time) ([]store.ServiceTotals, error) {
	return []store.ServiceTotals{}, nil
}

func (f fakeAnalyticsStore) StaffStats(ctx context.Context, serviceID string, from, to time.Time) (store.StaffStats, error) {
	return store.StaffStats{ServedToday: 3, WaitingCount: 2, AverageServiceMin: 7.5}, nil
}

const (
	testServiceID = "44444444-4444-4444-4444-444444444444"
	testTicketID  = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	testSessionID = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
)

func newTestHandler(tickets store.TicketStore, admin store.AdminStore, auth store.AuthStore, an store.AnalyticsStore) http.Handler {
	sessions := NewSessions(auth, time.Hour)
	handler := NewHandler(Options{
		Tickets:   tickets,
		Admission: queue.NewAdmission(tickets, queue.LenientPhonePolicy),
		Cycle:     queue.NewCycle(tickets),
		Admin:     admin,
		Sessions:  sessions,
		Analytics: analytics.New(an),
	})
	return AuthMiddleware(sessions, handler.Routes())
}

func staffSession() store.Session {
	return store.Session{
		SessionID: testSessionID,
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(time.Hour),
		User: models.User{
			UserID:    "user-1",
			Username:  "alice",
			Role:      models.RoleStaff,
			ServiceID: testServiceID,
			Active:    true,
		},
	}
}

func adminSession(role string) store.Session {
	session := staffSession()
	session.User.Role = role
	session.User.ServiceID = ""
	return session
}

func decodeEnvelope(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestJoinQueueSuccess(t *testing.T) {
	tickets := fakeTicketStore{
		getServiceFn: func(ctx context.Context, serviceID string) (models.Service, error) {
			return models.Service{ServiceID: serviceID, Name: "Consultation", CounterNumber: "2", AvgServiceTime: 10, Active: true}, nil
		},
		enqueueFn: func(ctx context.Context, input store.EnqueueInput) (models.Ticket, int, error) {
			return models.Ticket{
				TicketID:    testTicketID,
				ServiceID:   input.ServiceID,
				QueueNumber: 4,
				Phone:       input.Phone,
				Status:      models.StatusWaiting,
				CreatedAt:   input.CreatedAt,
			}, 3, nil
		},
	}
	h := newTestHandler(tickets, fakeAdminStore{}, fakeAuthStore{}, fakeAnalyticsStore{})

	body, _ := json.Marshal(map[string]string{"service_id": testServiceID, "phone": "+250788123456"})
	req := httptest.NewRequest(http.MethodPost, "/client/api/join-queue", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	envelope := decodeEnvelope(t, resp)
	if envelope["success"] != true {
		t.Fatalf("expected success envelope, got %v", envelope)
	}
	if envelope["position"].(float64) != 3 {
		t.Fatalf("expected position 3, got %v", envelope["position"])
	}
	if envelope["estimated_wait"].(float64) != 30 {
		t.Fatalf("expected estimated wait 30, got %v", envelope["estimated_wait"])
	}
	if envelope["ticket_id"] != testTicketID {
		t.Fatalf("expected ticket id in response, got %v", envelope["ticket_id"])
	}
}

func TestJoinQueueAcceptsPhoneNumberField(t *testing.T) {
	tickets := fakeTicketStore{
		getServiceFn: func(ctx context.Context, serviceID string) (models.Service, error) {
			return models.Service{ServiceID: serviceID, Name: "Consultation", CounterNumber: "2", AvgServiceTime: 10, Active: true}, nil
		},
		enqueueFn: func(ctx context.Context, input store.EnqueueInput) (models.Ticket, int, error) {
			if input.Phone != "+250788123456" {
				t.Fatalf("expected phone_number to reach the store, got %q", input.Phone)
			}
			return models.Ticket{TicketID: testTicketID, ServiceID: input.ServiceID, QueueNumber: 1, Phone: input.Phone, Status: models.StatusWaiting}, 1, nil
		},
	}
	h := newTestHandler(tickets, fakeAdminStore{}, fakeAuthStore{}, fakeAnalyticsStore{})

	body, _ := json.Marshal(map[string]string{"service_id": testServiceID, "phone_number": "+250788123456"})
	req := httptest.NewRequest(http.MethodPost, "/client/api/join-queue", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	envelope := decodeEnvelope(t, resp)
	if envelope["success"] != true {
		t.Fatalf("expected success envelope, got %v", envelope)
	}
}

func TestJoinQueueInvalidPhone(t *testing.T) {
	h := newTestHandler(fakeTicketStore{}, fakeAdminStore{}, fakeAuthStore{}, fakeAnalyticsStore{})

	body, _ := json.Marshal(map[string]string{"service_id": testServiceID, "phone": "123"})
	req := httptest.NewRequest(http.MethodPost, "/client/api/join-queue", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	envelope := decodeEnvelope(t, resp)
	if envelope["success"] != false || envelope["code"] != "invalid_phone" {
		t.Fatalf("unexpected error envelope: %v", envelope)
	}
}

func TestJoinQueueInactiveService(t *testing.T) {
	tickets := fakeTicketStore{
		getServiceFn: func(ctx context.Context, serviceID string) (models.Service, error) {
			return models.Service{ServiceID: serviceID, Active: false}, nil
		},
	}
	h := newTestHandler(tickets, fakeAdminStore{}, fakeAuthStore{}, fakeAnalyticsStore{})

	body, _ := json.Marshal(map[string]string{"service_id": testServiceID, "phone": "+250788123456"})
	req := httptest.NewRequest(http.MethodPost, "/client/api/join-queue", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	envelope := decodeEnvelope(t, resp)
	if envelope["code"] != "service_inactive" {
		t.Fatalf("expected service_inactive, got %v", envelope["code"])
	}
}

func TestClientServicesReportQueueLength(t *testing.T) {
	tickets := fakeTicketStore{
		listWaitingFn: func(ctx context.Context, serviceID string) ([]models.Ticket, error) {
			return []models.Ticket{{QueueNumber: 1}, {QueueNumber: 2}}, nil
		},
	}
	admin := fakeAdminStore{
		listServicesFn: func(ctx context.Context, orgID string, activeOnly bool) ([]models.Service, error) {
			if !activeOnly {
				t.Fatal("client listing must only include active services")
			}
			return []models.Service{{ServiceID: testServiceID, Name: "Consultation", CounterNumber: "1", AvgServiceTime: 10, Active: true}}, nil
		},
	}
	h := newTestHandler(tickets, admin, fakeAuthStore{}, fakeAnalyticsStore{})

	req := httptest.NewRequest(http.MethodGet, "/client/api/services/11111111-1111-1111-1111-111111111111", nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	envelope := decodeEnvelope(t, resp)
	services := envelope["services"].([]any)
	if len(services) != 1 {
		t.Fatalf("expected 1 service, got %d", len(services))
	}
	entry := services[0].(map[string]any)
	if entry["queue_length"].(float64) != 2 {
		t.Errorf("expected queue_length 2, got %v", entry["queue_length"])
	}
	if entry["estimated_wait"].(float64) != 20 {
		t.Errorf("expected estimated_wait 20, got %v", entry["estimated_wait"])
	}
}

func TestQueueStatusNotFound(t *testing.T) {
	h := newTestHandler(fakeTicketStore{}, fakeAdminStore{}, fakeAuthStore{}, fakeAnalyticsStore{})

	req := httptest.NewRequest(http.MethodGet, "/client/api/queue-status/"+testTicketID, nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestStaffRoutesRequireSession(t *testing.T) {
	h := newTestHandler(fakeTicketStore{}, fakeAdminStore{}, fakeAuthStore{}, fakeAnalyticsStore{})

	req := httptest.NewRequest(http.MethodPost, "/staff/api/call-next", nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestMalformedSessionTokenRejected(t *testing.T) {
	auth := fakeAuthStore{
		getSessionFn: func(ctx context.Context, sessionID string) (store.Session, error) {
			t.Fatal("malformed token must not reach the store")
			return store.Session{}, nil
		},
	}
	h := newTestHandler(fakeTicketStore{}, fakeAdminStore{}, auth, fakeAnalyticsStore{})

	req := httptest.NewRequest(http.MethodPost, "/staff/api/call-next", nil)
	req.Header.Set("Authorization", "Bearer not-a-session-token")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
	envelope := decodeEnvelope(t, resp)
	if envelope["code"] != "unauthorized" {
		t.Fatalf("expected unauthorized, got %v", envelope["code"])
	}
}

func TestStaffCallNext(t *testing.T) {
	tickets := fakeTicketStore{
		callNextFn: func(ctx context.Context, serviceID string, calledAt time.Time) (models.Ticket, error) {
			if serviceID != testServiceID {
				t.Fatalf("expected call scoped to staff service, got %s", serviceID)
			}
			return models.Ticket{TicketID: testTicketID, ServiceID: serviceID, QueueNumber: 7, Phone: "+250788123456", Status: models.StatusServing}, nil
		},
	}
	auth := fakeAuthStore{
		getSessionFn: func(ctx context.Context, sessionID string) (store.Session, error) {
			return staffSession(), nil
		},
	}
	h := newTestHandler(tickets, fakeAdminStore{}, auth, fakeAnalyticsStore{})

	req := httptest.NewRequest(http.MethodPost, "/staff/api/call-next", nil)
	req.Header.Set("Authorization", "Bearer "+testSessionID)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	envelope := decodeEnvelope(t, resp)
	ticket := envelope["ticket"].(map[string]any)
	if ticket["queue_number"].(float64) != 7 {
		t.Fatalf("expected queue number 7, got %v", ticket["queue_number"])
	}
	if ticket["phone"] != "3456" {
		t.Fatalf("expected masked phone, got %v", ticket["phone"])
	}
}

func TestStaffCallNextQueueEmpty(t *testing.T) {
	auth := fakeAuthStore{
		getSessionFn: func(ctx context.Context, sessionID string) (store.Session, error) {
			return staffSession(), nil
		},
	}
	h := newTestHandler(fakeTicketStore{}, fakeAdminStore{}, auth, fakeAnalyticsStore{})

	req := httptest.NewRequest(http.MethodPost, "/staff/api/call-next", nil)
	req.Header.Set("Authorization", "Bearer "+testSessionID)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
	envelope := decodeEnvelope(t, resp)
	if envelope["code"] != "queue_empty" {
		t.Fatalf("expected queue_empty, got %v", envelope["code"])
	}
}

func TestStaffLoginWrongPortal(t *testing.T) {
	auth := fakeAuthStore{
		authenticateFn: func(ctx context.Context, username, password string) (models.User, error) {
			return models.User{UserID: "user-1", Username: username, Role: models.RoleAdmin, Active: true}, nil
		},
	}
	h := newTestHandler(fakeTicketStore{}, fakeAdminStore{}, auth, fakeAnalyticsStore{})

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "secret"})
	req := httptest.NewRequest(http.MethodPost, "/staff/api/login", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
}

func TestStaffLoginSuccess(t *testing.T) {
	auth := fakeAuthStore{
		authenticateFn: func(ctx context.Context, username, password string) (models.User, error) {
			return models.User{UserID: "user-1", Username: username, Role: models.RoleStaff, ServiceID: testServiceID, Active: true}, nil
		},
	}
	h := newTestHandler(fakeTicketStore{}, fakeAdminStore{}, auth, fakeAnalyticsStore{})

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "secret"})
	req := httptest.NewRequest(http.MethodPost, "/staff/api/login", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	envelope := decodeEnvelope(t, resp)
	if envelope["token"] != testSessionID {
		t.Fatalf("expected session token, got %v", envelope["token"])
	}
}

func TestAdminAnalyticsOverview(t *testing.T) {
	auth := fakeAuthStore{
		getSessionFn: func(ctx context.Context, sessionID string) (store.Session, error) {
			return adminSession(models.RoleAdmin), nil
		},
	}
	an := fakeAnalyticsStore{
		overviewFn: func(ctx context.Context, from, to time.Time) (store.Overview, error) {
			return store.Overview{TotalTickets: 12, Completed: 9, ActiveNow: 3, AverageWaitMinutes: 6.5}, nil
		},
	}
	h := newTestHandler(fakeTicketStore{}, fakeAdminStore{}, auth, an)

	req := httptest.NewRequest(http.MethodGet, "/admin/api/analytics/overview", nil)
	req.Header.Set("Authorization", "Bearer "+testSessionID)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	envelope := decodeEnvelope(t, resp)
	overview := envelope["overview"].(map[string]any)
	if overview["total_tickets_today"].(float64) != 12 {
		t.Fatalf("unexpected overview: %v", overview)
	}
}

func TestAdminAnalyticsForbiddenForStaff(t *testing.T) {
	auth := fakeAuthStore{
		getSessionFn: func(ctx context.Context, sessionID string) (store.Session, error) {
			return staffSession(), nil
		},
	}
	h := newTestHandler(fakeTicketStore{}, fakeAdminStore{}, auth, fakeAnalyticsStore{})

	req := httptest.NewRequest(http.MethodGet, "/admin/api/analytics/overview", nil)
	req.Header.Set("Authorization", "Bearer "+testSessionID)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
}

func TestCreateOrganizationRequiresSuperAdmin(t *testing.T) {
	auth := fakeAuthStore{
		getSessionFn: func(ctx context.Context, sessionID string) (store.Session, error) {
			return adminSession(models.RoleAdmin), nil
		},
	}
	h := newTestHandler(fakeTicketStore{}, fakeAdminStore{}, auth, fakeAnalyticsStore{})

	body, _ := json.Marshal(map[string]string{"name": "City Clinic"})
	req := httptest.NewRequest(http.MethodPost, "/admin/api/organizations", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testSessionID)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
}

func TestCompleteWrongService(t *testing.T) {
	tickets := fakeTicketStore{
		getTicketFn: func(ctx context.Context, ticketID string) (models.Ticket, error) {
			return models.Ticket{TicketID: ticketID, ServiceID: "55555555-5555-5555-5555-555555555555"}, nil
		},
	}
	auth := fakeAuthStore{
		getSessionFn: func(ctx context.Context, sessionID string) (store.Session, error) {
			return staffSession(), nil
		},
	}
	h := newTestHandler(tickets, fakeAdminStore{}, auth, fakeAnalyticsStore{})

	req := httptest.NewRequest(http.MethodPost, "/staff/api/complete/"+testTicketID, nil)
	req.Header.Set("Authorization", "Bearer "+testSessionID)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
	envelope := decodeEnvelope(t, resp)
	if envelope["code"] != "wrong_service" {
		t.Fatalf("expected wrong_service, got %v", envelope["code"])
	}
}
