package audit

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/favalepink/traincrm/internal/db"
)

// PostgresRecorder writes audit events to the audit_log table via pgx.
type PostgresRecorder struct {
	pool db.Pool
}

// NewPostgresRecorder creates a new PostgresRecorder.
func NewPostgresRecorder(pool db.Pool) *PostgresRecorder {
	return &PostgresRecorder{pool: pool}
}

const pgMigration = `
CREATE TABLE IF NOT EXISTS audit_log (
	id         BIGSERIAL PRIMARY KEY,
	event_type TEXT NOT NULL,
	actor_id   TEXT NOT NULL DEFAULT '',
	payload    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_audit_log_event_type ON audit_log(event_type, created_at DESC);
`

// Migrate creates the audit_log table.
func (r *PostgresRecorder) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, pgMigration); err != nil {
		return eris.Wrap(err, "audit: migrate")
	}
	return nil
}

// Record inserts one audit event.
func (r *PostgresRecorder) Record(ctx context.Context, eventType, actorID string, payload map[string]any) error {
	var payloadJSON []byte
	if payload != nil {
		var err error
		payloadJSON, err = json.Marshal(payload)
		if err != nil {
			return eris.Wrap(err, "audit: marshal payload")
		}
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_log (event_type, actor_id, payload) VALUES ($1, $2, $3)`,
		eventType, actorID, payloadJSON,
	)
	if err != nil {
		return eris.Wrapf(err, "audit: record %s", eventType)
	}
	return nil
}

// ListRecent returns the most recent events of a type, newest first.
func (r *PostgresRecorder) ListRecent(ctx context.Context, eventType string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, event_type, actor_id, payload, created_at
		 FROM audit_log WHERE event_type = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2`,
		eventType, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "audit: list recent")
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var payloadJSON []byte
		if err := rows.Scan(&e.ID, &e.EventType, &e.ActorID, &payloadJSON, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "audit: scan event")
		}
		if payloadJSON != nil {
			_ = json.Unmarshal(payloadJSON, &e.Payload)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
