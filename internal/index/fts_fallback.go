//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

// likeEscaper makes LIKE treat the query literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on the appointments table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

// Search performs a LIKE-based search over client names and services
// (fallback when FTS5 is not compiled in). Newest appointments come first.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + likeEscaper.Replace(strings.TrimSpace(query)) + "%"
	rows, err := db.conn.Query(`
		SELECT id, date, time, client_name, service, duration
		FROM appointments
		WHERE client_name LIKE ? ESCAPE '\' OR service LIKE ? ESCAPE '\'
		ORDER BY date DESC, time DESC
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	appts, err := scanAppointments(rows)
	if err != nil {
		return nil, err
	}
	out := make([]SearchResult, 0, len(appts))
	for _, a := range appts {
		out = append(out, SearchResult{Appointment: a, Snippet: a.ClientName + " · " + a.Service})
	}
	return out, nil
}
