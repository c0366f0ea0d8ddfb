package httpapi

import (
	"net/http"
	"strings"

	"github.com/Christian-Regnante/SmartQ/internal/models"
	"github.com/Christian-Regnante/SmartQ/internal/store"
)

type organizationRequest struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Location     string `json:"location"`
	ContactPhone string `json:"contact_phone"`
	Active       *bool  `json:"is_active"`
}

func (h *Handler) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin); !ok {
			return
		}
		orgs, err := h.admin.ListOrganizations(r.Context(), false)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, envelope{"organizations": orgs})
	case http.MethodPost:
		if _, ok := requireRole(w, r, models.RoleSuperAdmin); !ok {
			return
		}
		var req organizationRequest
		if !decodeBody(w, r, &req) {
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
			return
		}
		if req.Type == "" {
			req.Type = "other"
		}
		org, err := h.admin.CreateOrganization(r.Context(), models.Organization{
			Name:         req.Name,
			Type:         req.Type,
			Location:     req.Location,
			ContactPhone: req.ContactPhone,
			Active:       true,
		})
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeSuccess(w, http.StatusCreated, envelope{"organization": org})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleOrganizationByID(w http.ResponseWriter, r *http.Request) {
	orgID := pathSuffix(r.URL.Path, "/admin/api/organizations/")
	if !isValidUUID(orgID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "organization id must be a UUID")
		return
	}
	switch r.Method {
	case http.MethodPut:
		if _, ok := requireRole(w, r, models.RoleSuperAdmin); !ok {
			return
		}
		var req organizationRequest
		if !decodeBody(w, r, &req) {
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
			return
		}
		active := true
		if req.Active != nil {
			active = *req.Active
		}
		if req.Type == "" {
			req.Type = "other"
		}
		org, err := h.admin.UpdateOrganization(r.Context(), models.Organization{
			OrganizationID: orgID,
			Name:           req.Name,
			Type:           req.Type,
			Location:       req.Location,
			ContactPhone:   req.ContactPhone,
			Active:         active,
		})
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, envelope{"organization": org})
	case http.MethodDelete:
		if _, ok := requireRole(w, r, models.RoleSuperAdmin); !ok {
			return
		}
		if err := h.admin.DeleteOrganization(r.Context(), orgID); err != nil {
			writeMappedError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, nil)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type serviceRequest struct {
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	CounterNumber  string `json:"counter_number"`
	AvgServiceTime int    `json:"avg_service_time"`
	Active         *bool  `json:"is_active"`
}

func (h *Handler) handleServices(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin); !ok {
			return
		}
		orgID := strings.TrimSpace(r.URL.Query().Get("org_id"))
		if orgID != "" && !isValidUUID(orgID) {
			writeError(w, http.StatusBadRequest, "invalid_request", "org_id must be a UUID")
			return
		}
		services, err := h.admin.ListServices(r.Context(), orgID, false)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, envelope{"services": services})
	case http.MethodPost:
		if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin); !ok {
			return
		}
		var req serviceRequest
		if !decodeBody(w, r, &req) {
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.OrganizationID = strings.TrimSpace(req.OrganizationID)
		if req.Name == "" || req.OrganizationID == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "name and organization_id are required")
			return
		}
		if !isValidUUID(req.OrganizationID) {
			writeError(w, http.StatusBadRequest, "invalid_request", "organization_id must be a UUID")
			return
		}
		if req.AvgServiceTime <= 0 {
			req.AvgServiceTime = 10
		}
		if req.CounterNumber == "" {
			req.CounterNumber = "1"
		}
		service, err := h.admin.CreateService(r.Context(), models.Service{
			OrganizationID: req.OrganizationID,
			Name:           req.Name,
			CounterNumber:  req.CounterNumber,
			AvgServiceTime: req.AvgServiceTime,
			Active:         true,
		})
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeSuccess(w, http.StatusCreated, envelope{"service": service})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleServiceByID(w http.ResponseWriter, r *http.Request) {
	serviceID := pathSuffix(r.URL.Path, "/admin/api/services/")
	if !isValidUUID(serviceID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "service id must be a UUID")
		return
	}
	switch r.Method {
	case http.MethodPut:
		if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin); !ok {
			return
		}
		var req serviceRequest
		if !decodeBody(w, r, &req) {
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
			return
		}
		if req.AvgServiceTime <= 0 {
			req.AvgServiceTime = 10
		}
		if req.CounterNumber == "" {
			req.CounterNumber = "1"
		}
		active := true
		if req.Active != nil {
			active = *req.Active
		}
		service, err := h.admin.UpdateService(r.Context(), models.Service{
			ServiceID:      serviceID,
			Name:           req.Name,
			CounterNumber:  req.CounterNumber,
			AvgServiceTime: req.AvgServiceTime,
			Active:         active,
		})
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, envelope{"service": service})
	case http.MethodDelete:
		if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin); !ok {
			return
		}
		if err := h.admin.DeleteService(r.Context(), serviceID); err != nil {
			writeMappedError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, nil)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type createStaffRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	Role           string `json:"role"`
	FullName       string `json:"full_name"`
	Phone          string `json:"phone"`
	OrganizationID string `json:"organization_id"`
	ServiceID      string `json:"service_id"`
}

type updateStaffRequest struct {
	FullName  *string `json:"full_name"`
	Phone     *string `json:"phone"`
	ServiceID *string `json:"service_id"`
	Password  *string `json:"password"`
	Active    *bool   `json:"is_active"`
}

func (h *Handler) handleStaff(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin); !ok {
			return
		}
		role := strings.TrimSpace(r.URL.Query().Get("role"))
		users, err := h.admin.ListUsers(r.Context(), role)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, envelope{"staff": users})
	case http.MethodPost:
		caller, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin)
		if !ok {
			return
		}
		var req createStaffRequest
		if !decodeBody(w, r, &req) {
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
			return
		}
		if req.Role == "" {
			req.Role = models.RoleStaff
		}
		// Only a super admin may mint other admins.
		if req.Role != models.RoleStaff && caller.Role != models.RoleSuperAdmin {
			writeError(w, http.StatusForbidden, "access_denied", "insufficient role")
			return
		}
		if req.OrganizationID != "" && !isValidUUID(req.OrganizationID) {
			writeError(w, http.StatusBadRequest, "invalid_request", "organization_id must be a UUID")
			return
		}
		if req.ServiceID != "" && !isValidUUID(req.ServiceID) {
			writeError(w, http.StatusBadRequest, "invalid_request", "service_id must be a UUID")
			return
		}
		user, err := h.admin.CreateUser(r.Context(), store.CreateUserInput{
			Username:       req.Username,
			Password:       req.Password,
			Role:           req.Role,
			FullName:       req.FullName,
			Phone:          req.Phone,
			OrganizationID: req.OrganizationID,
			ServiceID:      req.ServiceID,
		})
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeSuccess(w, http.StatusCreated, envelope{"user": user})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleStaffByID(w http.ResponseWriter, r *http.Request) {
	userID := pathSuffix(r.URL.Path, "/admin/api/staff/")
	if !isValidUUID(userID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "user id must be a UUID")
		return
	}
	switch r.Method {
	case http.MethodPut:
		if _, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin); !ok {
			return
		}
		var req updateStaffRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.ServiceID != nil && *req.ServiceID != "" && !isValidUUID(*req.ServiceID) {
			writeError(w, http.StatusBadRequest, "invalid_request", "service_id must be a UUID")
			return
		}
		user, err := h.admin.UpdateUser(r.Context(), store.UpdateUserInput{
			UserID:    userID,
			FullName:  req.FullName,
			Phone:     req.Phone,
			ServiceID: req.ServiceID,
			Password:  req.Password,
			Active:    req.Active,
		})
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, envelope{"user": user})
	case http.MethodDelete:
		caller, ok := requireRole(w, r, models.RoleAdmin, models.RoleSuperAdmin)
		if !ok {
			return
		}
		if caller.UserID == userID {
			writeError(w, http.StatusConflict, "invalid_request", "cannot delete your own account")
			return
		}
		if err := h.admin.DeleteUser(r.Context(), userID); err != nil {
			writeMappedError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, nil)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
