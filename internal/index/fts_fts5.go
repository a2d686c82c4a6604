//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/glamcal/internal/datekey"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS appointments_fts USING fts5(
			id UNINDEXED,
			client_name,
			service,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, clientName, service string) error {
	_, _ = tx.Exec(`DELETE FROM appointments_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO appointments_fts (id, client_name, service) VALUES (?, ?, ?)`,
		id, clientName, service)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) {
	_, _ = tx.Exec(`DELETE FROM appointments_fts WHERE id = ?`, id)
}

// matchQuery turns free text into an FTS5 query: every word becomes a quoted
// prefix term and all terms must match.
func matchQuery(q string) string {
	words := strings.Fields(q)
	for i, w := range words {
		words[i] = `"` + strings.ReplaceAll(w, `"`, `""`) + `"*`
	}
	return strings.Join(words, " ")
}

// Search performs an FTS5 full-text search over client names and services.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	match := matchQuery(query)
	if match == "" {
		return nil, nil
	}
	rows, err := db.conn.Query(`
		SELECT a.id, a.date, a.time, a.client_name, a.service, a.duration,
		       highlight(appointments_fts, 1, '<b>', '</b>') || ' · ' ||
		       highlight(appointments_fts, 2, '<b>', '</b>')
		FROM appointments_fts
		JOIN appointments a ON a.id = appointments_fts.id
		WHERE appointments_fts MATCH ?
		ORDER BY rank, a.date DESC
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var date string
		a := &r.Appointment
		if err := rows.Scan(&a.ID, &date, &a.Time, &a.ClientName, &a.Service, &a.Duration, &r.Snippet); err != nil {
			return nil, err
		}
		a.Date = datekey.Key(date)
		out = append(out, r)
	}
	return out, rows.Err()
}
