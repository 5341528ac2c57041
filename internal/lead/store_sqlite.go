package lead

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite. Tags are stored as a
// JSON array in a TEXT column.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sdb.Exec(pragma); err != nil {
			sdb.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sdb}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	entry_date TEXT NOT NULL,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	phone      TEXT NOT NULL,
	state      TEXT NOT NULL,
	campaign   TEXT NOT NULL,
	tags       TEXT NOT NULL DEFAULT '[]',
	source     TEXT NOT NULL,
	status     TEXT NOT NULL,
	notes      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_phone ON leads(phone);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
`

// Migrate creates the leads table and its indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// FetchRefs reads the id+phone+tags projection of every persisted lead.
func (s *SQLiteStore) FetchRefs(ctx context.Context) ([]Ref, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, phone, tags FROM leads ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: fetch refs")
	}
	defer rows.Close()

	var refs []Ref
	for rows.Next() {
		var r Ref
		var tagsJSON string
		if err := rows.Scan(&r.ID, &r.Phone, &tagsJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ref")
		}
		if err := json.Unmarshal([]byte(tagsJSON), &r.Tags); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal tags for lead %d", r.ID)
		}
		refs = append(refs, r)
	}
	return refs, eris.Wrap(rows.Err(), "sqlite: iterate refs")
}

// InsertMany inserts one partition inside a transaction, so a failed partition
// leaves no partial rows behind.
func (s *SQLiteStore) InsertMany(ctx context.Context, leads []Lead) ([]Inserted, error) {
	if len(leads) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin insert tx")
	}
	defer tx.Rollback()

	inserted := make([]Inserted, 0, len(leads))
	for _, l := range leads {
		tagsJSON, err := json.Marshal(l.Tags)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal tags")
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO leads (entry_date, name, email, phone, state, campaign, tags, source, status, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.EntryDate, l.Name, l.Email, l.Phone, l.State,
			l.Campaign, string(tagsJSON), l.Source, l.Status, l.Notes,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert lead %s", l.Email)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: last insert id")
		}
		inserted = append(inserted, Inserted{ID: id, Email: l.Email})
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit insert tx")
	}
	return inserted, nil
}

// UpdateOne overwrites one lead with the merged payload.
func (s *SQLiteStore) UpdateOne(ctx context.Context, id int64, payload Lead) error {
	tagsJSON, err := json.Marshal(payload.Tags)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal tags")
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads SET
			entry_date=?, name=?, email=?, phone=?, state=?,
			campaign=?, tags=?, source=?, status=?, notes=?,
			updated_at=datetime('now')
		WHERE id=?`,
		payload.EntryDate, payload.Name, payload.Email, payload.Phone, payload.State,
		payload.Campaign, string(tagsJSON), payload.Source, payload.Status, payload.Notes,
		id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: update lead %d: no such lead", id)
	}
	return nil
}

// DB exposes the underlying handle so the audit recorder can share it.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
