package models

type Service struct {
	ServiceID      string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	CounterNumber  string `json:"counter_number"`
	AvgServiceTime int    `json:"avg_service_time"`
	Active         bool   `json:"is_active"`
}
