// Package audit records application events to the audit log. Recording is
// fire-and-forget from the caller's point of view: an audit failure must never
// fail the operation being audited.
package audit

import (
	"context"
	"time"
)

// Event types.
const (
	EventLeadBatchImport = "LEAD_BATCH_IMPORT"
)

// Event is one row in the audit log.
type Event struct {
	ID        int64          `json:"id"`
	EventType string         `json:"event_type"`
	ActorID   string         `json:"actor_id"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Recorder writes and reads audit events.
type Recorder interface {
	Record(ctx context.Context, eventType, actorID string, payload map[string]any) error
	ListRecent(ctx context.Context, eventType string, limit int) ([]Event, error)
	Migrate(ctx context.Context) error
}

// Nop discards events. Used in tests and when no audit backend is configured.
type Nop struct{}

func (Nop) Record(context.Context, string, string, map[string]any) error { return nil }
func (Nop) ListRecent(context.Context, string, int) ([]Event, error)    { return nil, nil }
func (Nop) Migrate(context.Context) error                               { return nil }
