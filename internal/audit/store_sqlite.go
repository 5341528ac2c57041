package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// SQLiteRecorder writes audit events to a SQLite audit_log table. It shares
// the database handle with the lead store.
type SQLiteRecorder struct {
	db *sql.DB
}

// NewSQLiteRecorder creates a new SQLiteRecorder on an open handle.
func NewSQLiteRecorder(db *sql.DB) *SQLiteRecorder {
	return &SQLiteRecorder{db: db}
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS audit_log (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	actor_id   TEXT NOT NULL DEFAULT '',
	payload    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_audit_log_event_type ON audit_log(event_type, created_at DESC);
`

// Migrate creates the audit_log table.
func (r *SQLiteRecorder) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "audit: sqlite migrate")
}

// Record inserts one audit event.
func (r *SQLiteRecorder) Record(ctx context.Context, eventType, actorID string, payload map[string]any) error {
	var payloadJSON []byte
	if payload != nil {
		var err error
		payloadJSON, err = json.Marshal(payload)
		if err != nil {
			return eris.Wrap(err, "audit: marshal payload")
		}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (event_type, actor_id, payload) VALUES (?, ?, ?)`,
		eventType, actorID, string(payloadJSON),
	)
	if err != nil {
		return eris.Wrapf(err, "audit: record %s", eventType)
	}
	return nil
}

// ListRecent returns the most recent events of a type, newest first.
func (r *SQLiteRecorder) ListRecent(ctx context.Context, eventType string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_type, actor_id, payload, created_at
		 FROM audit_log WHERE event_type = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		eventType, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "audit: sqlite list recent")
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var payloadJSON sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &e.EventType, &e.ActorID, &payloadJSON, &createdAt); err != nil {
			return nil, eris.Wrap(err, "audit: sqlite scan event")
		}
		// datetime('now') stores "2006-01-02 15:04:05" in UTC.
		if t, err := time.Parse("2006-01-02 15:04:05", createdAt); err == nil {
			e.CreatedAt = t
		}
		if payloadJSON.Valid && payloadJSON.String != "" {
			_ = json.Unmarshal([]byte(payloadJSON.String), &e.Payload)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
