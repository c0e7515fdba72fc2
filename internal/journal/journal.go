// Package journal persists emitted watcher events to SQLite.
//
// Every event handed to the host callback can be recorded here for later
// review; proctorctl and the test suite query it back out.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"proctord/internal/event"
)

// Schema for the proctord event journal.
const schema = `
CREATE TABLE IF NOT EXISTS events (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    module       TEXT NOT NULL,
    event_type   TEXT NOT NULL,
    timestamp_ms INTEGER NOT NULL,
    seq          INTEGER NOT NULL,
    confidence   REAL NOT NULL,
    payload      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_module_time ON events(module, timestamp_ms);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
`

// Journal is the SQLite-backed event store.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal database at the given path and
// applies the schema.
func Open(path string) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// OpenMemory opens an in-memory journal, used in tests.
func OpenMemory() (*Journal, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Ping verifies the database connection, for health checks.
func (j *Journal) Ping() error {
	return j.db.Ping()
}

// Record inserts an emitted event.
func (j *Journal) Record(ev event.Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = j.db.Exec(`
		INSERT INTO events (module, event_type, timestamp_ms, seq, confidence, payload)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.Module, ev.Type, ev.Timestamp, ev.Sequence, ev.Confidence, string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Query filters recorded events.
type Query struct {
	// Module restricts to one watcher domain; empty matches all.
	Module string

	// Type restricts to one event type; empty matches all.
	Type string

	// Since restricts to events at or after this time; zero matches all.
	Since time.Time

	// Limit caps the number of returned events; zero means 100.
	Limit int
}

// Events returns recorded events matching the query, newest first.
func (j *Journal) Events(q Query) ([]event.Event, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	where := "WHERE 1=1"
	args := make([]any, 0, 4)
	if q.Module != "" {
		where += " AND module = ?"
		args = append(args, q.Module)
	}
	if q.Type != "" {
		where += " AND event_type = ?"
		args = append(args, q.Type)
	}
	if !q.Since.IsZero() {
		where += " AND timestamp_ms >= ?"
		args = append(args, q.Since.UnixMilli())
	}
	args = append(args, limit)

	rows, err := j.db.Query(`
		SELECT module, event_type, timestamp_ms, seq, confidence, payload
		FROM events `+where+`
		ORDER BY timestamp_ms DESC, id DESC
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var ev event.Event
		var payload string
		if err := rows.Scan(&ev.Module, &ev.Type, &ev.Timestamp, &ev.Sequence, &ev.Confidence, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if payload != "" && payload != "null" {
			if err := json.Unmarshal([]byte(payload), &ev.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal payload: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Count returns the number of recorded events for a module; an empty
// module counts everything.
func (j *Journal) Count(module string) (int64, error) {
	var n int64
	var err error
	if module == "" {
		err = j.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n)
	} else {
		err = j.db.QueryRow(`SELECT COUNT(*) FROM events WHERE module = ?`, module).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Prune deletes events older than the cutoff and returns how many were
// removed.
func (j *Journal) Prune(olderThan time.Time) (int64, error) {
	res, err := j.db.Exec(`DELETE FROM events WHERE timestamp_ms < ?`, olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}
