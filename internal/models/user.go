package models

import "time"

// User covers all three account roles. Staff accounts carry the
// service they operate; admins carry their organization.
type User struct {
	UserID         string     `json:"id"`
	Username       string     `json:"username"`
	Role           string     `json:"role"`
	FullName       string     `json:"full_name,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	OrganizationID string     `json:"organization_id,omitempty"`
	ServiceID      string     `json:"service_id,omitempty"`
	Active         bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
}

const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleStaff      = "staff"
)
