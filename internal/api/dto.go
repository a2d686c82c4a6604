package api

import (
	"github.com/starford/glamcal/internal/datekey"
	"github.com/starford/glamcal/internal/index"
	"github.com/starford/glamcal/internal/models"
)

// SelectionRequest is the request body of PUT /selection.
type SelectionRequest struct {
	Date datekey.Key `json:"date" example:"2024-06-10" validate:"required"`
}

// SelectionResponse describes the selected date.
type SelectionResponse struct {
	Date     datekey.Key `json:"date" example:"2024-06-10"`
	Closed   bool        `json:"closed"`
	NextOpen datekey.Key `json:"nextOpen,omitempty" example:"2024-06-11"`
}

// SundaysRequest toggles the weekly Sunday closure.
type SundaysRequest struct {
	Closed bool `json:"closed"`
}

// ServiceRequest is the request body for adding a catalog entry.
type ServiceRequest struct {
	Name     string `json:"name" example:"Gel Nails" validate:"required"`
	Duration int    `json:"duration" example:"90" validate:"required"`
}

// ServiceListResponse wraps the service catalog.
type ServiceListResponse struct {
	Services []models.Service `json:"services" validate:"required"`
}

// AppointmentListResponse wraps a list of appointments.
type AppointmentListResponse struct {
	Appointments []models.Appointment `json:"appointments" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// ImportResponse reports an ICS closure import.
type ImportResponse struct {
	Found int `json:"found" example:"12"`
	Added int `json:"added" example:"10"`
}
