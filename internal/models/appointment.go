// Package models defines the domain types for GlamCal.
//
// JSON field names follow the camelCase shape persisted by the browser
// version of GlamCal so existing exports load unchanged.
package models

import "github.com/starford/glamcal/internal/datekey"

// Appointment is a booked slot. Service and Duration are snapshots copied
// from the catalog at booking time, not references.
type Appointment struct {
	ID         string      `json:"id"`
	Date       datekey.Key `json:"date"`
	Time       string      `json:"time"` // HH:mm
	ClientName string      `json:"clientName"`
	Service    string      `json:"service"`
	Duration   int         `json:"duration"` // minutes
}

// Data returns every field except the id.
func (a Appointment) Data() AppointmentData {
	return AppointmentData{
		Date:       a.Date,
		Time:       a.Time,
		ClientName: a.ClientName,
		Service:    a.Service,
		Duration:   a.Duration,
	}
}

// AppointmentData is an appointment without its identity.
type AppointmentData struct {
	Date       datekey.Key `json:"date"`
	Time       string      `json:"time"`
	ClientName string      `json:"clientName"`
	Service    string      `json:"service"`
	Duration   int         `json:"duration"`
}

// WithID attaches an id.
func (d AppointmentData) WithID(id string) Appointment {
	return Appointment{
		ID:         id,
		Date:       d.Date,
		Time:       d.Time,
		ClientName: d.ClientName,
		Service:    d.Service,
		Duration:   d.Duration,
	}
}

// Service is an entry of the service catalog.
type Service struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Duration int    `json:"duration"` // minutes
}
