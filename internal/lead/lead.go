// Package lead defines the lead record types and the validation, phone
// normalization, and merge logic used by the batch importer.
package lead

import (
	"context"
	"time"
)

// RawRecord is one untyped input row, e.g. a parsed spreadsheet row or a JSON
// object from an import request. It never crosses an internal boundary
// unvalidated.
type RawRecord map[string]any

// Lead is a fully validated lead record.
type Lead struct {
	ID        int64    `json:"id,omitempty" db:"id"`
	EntryDate string   `json:"entryDate" db:"entry_date"` // ISO-8601 (yyyy-mm-dd)
	Name      string   `json:"name" db:"name"`
	Email     string   `json:"email" db:"email"`
	Phone     string   `json:"phone" db:"phone"` // raw form retained
	State     string   `json:"state" db:"state"`
	Campaign  string   `json:"campaign" db:"campaign"`
	Tags      []string `json:"tags" db:"tags"`
	Source    string   `json:"source" db:"source"`
	Status    string   `json:"status" db:"status"`
	Notes     string   `json:"notes,omitempty" db:"notes"`
}

// Studio brands a lead can originate from.
const (
	SourceFavale = "Favale"
	SourcePink   = "Pink"
)

// Lifecycle states.
const (
	StatusLead  = "Lead"
	StatusAluno = "Aluno"
)

// Ref is the minimal projection of a persisted lead used to build the dedup
// index. It is a read-only snapshot valid for one import run.
type Ref struct {
	ID    int64    `json:"id" db:"id"`
	Phone string   `json:"phone" db:"phone"`
	Tags  []string `json:"tags" db:"tags"`
}

// Inserted is the per-row result of a bulk insert.
type Inserted struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// Record is a persisted lead row with its timestamps.
type Record struct {
	Lead
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Store defines persistence operations for leads. Infrastructure failures are
// returned as errors distinguishable from empty results.
type Store interface {
	// FetchRefs reads all persisted leads' id+phone+tags once per import run.
	FetchRefs(ctx context.Context) ([]Ref, error)
	// InsertMany bulk-inserts one partition and returns per-row results in
	// input order.
	InsertMany(ctx context.Context, leads []Lead) ([]Inserted, error)
	// UpdateOne overwrites one lead with the merged payload.
	UpdateOne(ctx context.Context, id int64, payload Lead) error

	Migrate(ctx context.Context) error
	Close() error
}
