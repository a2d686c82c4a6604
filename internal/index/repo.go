package index

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/starford/glamcal/internal/checksum"
	"github.com/starford/glamcal/internal/datekey"
	"github.com/starford/glamcal/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	Appointment models.Appointment `json:"appointment"`
	Snippet     string             `json:"snippet"`
}

// Fingerprint identifies the indexed content of an appointment.
func Fingerprint(a models.Appointment) string {
	return checksum.Fields(a.ID, string(a.Date), a.Time, a.ClientName, a.Service, strconv.Itoa(a.Duration))
}

// UpsertAppointment inserts or replaces an appointment and its FTS entry
// within a transaction.
func (db *DB) UpsertAppointment(a models.Appointment) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO appointments (id, date, time, client_name, service, duration, fingerprint, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date        = excluded.date,
			time        = excluded.time,
			client_name = excluded.client_name,
			service     = excluded.service,
			duration    = excluded.duration,
			fingerprint = excluded.fingerprint,
			updated_at  = excluded.updated_at
	`, a.ID, string(a.Date), a.Time, a.ClientName, a.Service, a.Duration, Fingerprint(a), time.Now())
	if err != nil {
		return fmt.Errorf("index: upsert appointment: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, a.ID, a.ClientName, a.Service); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteAppointment removes an appointment and its FTS entry. Unknown ids
// are ignored.
func (db *DB) DeleteAppointment(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	if _, err := tx.Exec(`DELETE FROM appointments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete appointment: %w", err)
	}
	return tx.Commit()
}

// ClientHistory returns every appointment of the named client, newest first.
// Names are compared case-insensitively after trimming.
func (db *DB) ClientHistory(name string) ([]models.Appointment, error) {
	rows, err := db.conn.Query(`
		SELECT id, date, time, client_name, service, duration
		FROM appointments
		WHERE client_name = ? COLLATE NOCASE
		ORDER BY date DESC, time DESC
	`, strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("index: client history: %w", err)
	}
	return scanAppointments(rows)
}

// AllFingerprints returns the fingerprint of every indexed appointment by id.
func (db *DB) AllFingerprints() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, fingerprint FROM appointments`)
	if err != nil {
		return nil, fmt.Errorf("index: all fingerprints: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, fp string
		if err := rows.Scan(&id, &fp); err != nil {
			return nil, err
		}
		out[id] = fp
	}
	return out, rows.Err()
}

func scanAppointments(rows *sql.Rows) ([]models.Appointment, error) {
	defer rows.Close()
	var out []models.Appointment
	for rows.Next() {
		var a models.Appointment
		var date string
		if err := rows.Scan(&a.ID, &date, &a.Time, &a.ClientName, &a.Service, &a.Duration); err != nil {
			return nil, err
		}
		a.Date = datekey.Key(date)
		out = append(out, a)
	}
	return out, rows.Err()
}
