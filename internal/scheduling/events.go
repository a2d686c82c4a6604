package scheduling

import "github.com/starford/glamcal/internal/datekey"

// Event kinds.
const (
	EventAppointmentCreated   = "appointment.created"
	EventAppointmentUpdated   = "appointment.updated"
	EventAppointmentDeleted   = "appointment.deleted"
	EventAppointmentsReloaded = "appointments.reloaded"
	EventSettingsUpdated      = "settings.updated"
	EventServicesUpdated      = "services.updated"
	EventSelectionChanged     = "selection.changed"
)

// Event describes a committed state change.
type Event struct {
	Kind string      `json:"kind"`
	ID   string      `json:"id,omitempty"`
	Date datekey.Key `json:"date,omitempty"`
}

// Listener receives events after the change is persisted. It is called with
// the service lock held and must not call back into the Service.
type Listener func(Event)
