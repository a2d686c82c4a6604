package index

import "github.com/starford/glamcal/internal/models"

// AppointmentIndex defines the interface for appointment indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type AppointmentIndex interface {
	UpsertAppointment(a models.Appointment) error
	DeleteAppointment(id string) error
	Search(query string, limit int) ([]SearchResult, error)
	ClientHistory(name string) ([]models.Appointment, error)
	AllFingerprints() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies AppointmentIndex at compile time.
var _ AppointmentIndex = (*DB)(nil)
