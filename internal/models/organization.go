package models

import "time"

type Organization struct {
	OrganizationID string    `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type,omitempty"`
	Location       string    `json:"location,omitempty"`
	ContactPhone   string    `json:"contact_phone,omitempty"`
	Active         bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}
