package lead

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/favalepink/traincrm/internal/db"
)

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const pgMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id         BIGSERIAL PRIMARY KEY,
	entry_date DATE NOT NULL,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	phone      TEXT NOT NULL,
	state      TEXT NOT NULL,
	campaign   TEXT NOT NULL,
	tags       TEXT[] NOT NULL DEFAULT '{}',
	source     TEXT NOT NULL,
	status     TEXT NOT NULL,
	notes      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_phone ON leads(phone);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_entry_date ON leads(entry_date);
`

// Migrate creates the leads table and its indexes.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, pgMigration); err != nil {
		return eris.Wrap(err, "lead: migrate")
	}
	return nil
}

// FetchRefs reads the id+phone+tags projection of every persisted lead.
func (s *PostgresStore) FetchRefs(ctx context.Context) ([]Ref, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, phone, tags FROM leads ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "lead: fetch refs")
	}
	defer rows.Close()

	var refs []Ref
	for rows.Next() {
		var r Ref
		if err := rows.Scan(&r.ID, &r.Phone, &r.Tags); err != nil {
			return nil, eris.Wrap(err, "lead: scan ref")
		}
		refs = append(refs, r)
	}
	return refs, eris.Wrap(rows.Err(), "lead: iterate refs")
}

const leadColumns = "entry_date, name, email, phone, state, campaign, tags, source, status, notes"

// InsertMany bulk-inserts one partition with a single multi-row INSERT and
// returns ids+emails in input order.
func (s *PostgresStore) InsertMany(ctx context.Context, leads []Lead) ([]Inserted, error) {
	if len(leads) == 0 {
		return nil, nil
	}

	placeholders := make([]string, 0, len(leads))
	args := make([]any, 0, len(leads)*10)
	for i, l := range leads {
		base := i * 10
		placeholders = append(placeholders, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10,
		))
		args = append(args,
			l.EntryDate, l.Name, l.Email, l.Phone, l.State,
			l.Campaign, l.Tags, l.Source, l.Status, l.Notes,
		)
	}

	query := `INSERT INTO leads (` + leadColumns + `) VALUES ` +
		strings.Join(placeholders, ", ") + ` RETURNING id, email`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "lead: insert %d rows", len(leads))
	}
	defer rows.Close()

	inserted := make([]Inserted, 0, len(leads))
	for rows.Next() {
		var in Inserted
		if err := rows.Scan(&in.ID, &in.Email); err != nil {
			return nil, eris.Wrap(err, "lead: scan inserted row")
		}
		inserted = append(inserted, in)
	}
	return inserted, eris.Wrap(rows.Err(), "lead: iterate inserted rows")
}

// UpdateOne overwrites one lead with the merged payload.
func (s *PostgresStore) UpdateOne(ctx context.Context, id int64, payload Lead) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE leads SET
			entry_date=$2, name=$3, email=$4, phone=$5, state=$6,
			campaign=$7, tags=$8, source=$9, status=$10, notes=$11,
			updated_at=now()
		WHERE id=$1`,
		id,
		payload.EntryDate, payload.Name, payload.Email, payload.Phone, payload.State,
		payload.Campaign, payload.Tags, payload.Source, payload.Status, payload.Notes,
	)
	if err != nil {
		return eris.Wrapf(err, "lead: update %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("lead: update %d: no such lead", id)
	}
	return nil
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
