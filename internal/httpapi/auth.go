package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Christian-Regnante/SmartQ/internal/models"
	"github.com/Christian-Regnante/SmartQ/internal/store"
)

type authContextKey struct{}

// Sessions wraps the auth store with the configured session lifetime.
type Sessions struct {
	store store.AuthStore
	ttl   time.Duration
}

func NewSessions(st store.AuthStore, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Sessions{store: st, ttl: ttl}
}

// AuthMiddleware resolves the session for staff and admin routes and
// rejects requests without a valid one. Client and display routes stay
// public.
func AuthMiddleware(sessions *Sessions, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		sessionID := sessionIDFromRequest(r)
		if sessionID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
			return
		}
		// Session tokens are uuids; reject anything else before it
		// reaches the store.
		if !isValidUUID(sessionID) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid session")
			return
		}
		session, err := sessions.store.GetSession(r.Context(), sessionID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), authContextKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) (store.Session, bool) {
	session, ok := ctx.Value(authContextKey{}).(store.Session)
	return session, ok
}

func requireRole(w http.ResponseWriter, r *http.Request, roles ...string) (models.User, bool) {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return models.User{}, false
	}
	for _, role := range roles {
		if session.User.Role == role {
			return session.User, true
		}
	}
	writeError(w, http.StatusForbidden, "access_denied", "insufficient role")
	return models.User{}, false
}

func requireStaffService(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, ok := requireRole(w, r, models.RoleStaff)
	if !ok {
		return models.User{}, false
	}
	if user.ServiceID == "" {
		writeError(w, http.StatusConflict, "no_service_assigned", "staff member has no assigned service")
		return models.User{}, false
	}
	return user, true
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	user, err := h.auth.store.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	if !loginAllowed(r.URL.Path, user.Role) {
		writeError(w, http.StatusForbidden, "access_denied", "wrong login portal for this account")
		return
	}

	session, err := h.auth.store.CreateSession(r.Context(), user.UserID, h.auth.ttl)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{
		"token":      session.SessionID,
		"expires_at": session.ExpiresAt,
		"user": envelope{
			"id":              user.UserID,
			"username":        user.Username,
			"role":            user.Role,
			"full_name":       user.FullName,
			"organization_id": user.OrganizationID,
			"service_id":      user.ServiceID,
		},
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sessionID := sessionIDFromRequest(r)
	if sessionID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	if err := h.auth.store.DeleteSession(r.Context(), sessionID); err != nil {
		writeMappedError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

func loginAllowed(path, role string) bool {
	if strings.HasPrefix(path, "/staff/") {
		return role == models.RoleStaff
	}
	return role == models.RoleAdmin || role == models.RoleSuperAdmin
}

func sessionIDFromRequest(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(r.Header.Get("X-Session-ID"))
}

func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func isPublicEndpoint(r *http.Request) bool {
	switch {
	case r.URL.Path == "/healthz" || r.URL.Path == "/metrics":
		return true
	case strings.HasPrefix(r.URL.Path, "/client/api/"):
		return true
	case strings.HasPrefix(r.URL.Path, "/display/"):
		return true
	case r.URL.Path == "/staff/api/login" || r.URL.Path == "/admin/api/login":
		return true
	default:
		return r.Method == http.MethodOptions
	}
}
