package index

import (
	"log/slog"

	"github.com/starford/glamcal/internal/models"
)

// Sync brings the index up to date with the appointment collection:
//   - new/changed appointments are upserted
//   - appointments no longer in the collection are deleted from the index
func Sync(db AppointmentIndex, appts []models.Appointment, logger *slog.Logger) error {
	fingerprints, err := db.AllFingerprints()
	if err != nil {
		return err
	}

	current := make(map[string]struct{}, len(appts))
	for _, a := range appts {
		current[a.ID] = struct{}{}
		if fingerprints[a.ID] == Fingerprint(a) {
			continue
		}
		if err := db.UpsertAppointment(a); err != nil {
			logger.Warn("sync: index failed", slog.String("id", a.ID), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("id", a.ID))
		}
	}

	// Remove stale entries.
	for id := range fingerprints {
		if _, ok := current[id]; !ok {
			if err := db.DeleteAppointment(id); err != nil {
				logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("id", id))
			}
		}
	}
	return nil
}
