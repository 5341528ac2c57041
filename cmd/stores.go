package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/favalepink/traincrm/internal/audit"
	"github.com/favalepink/traincrm/internal/db"
	"github.com/favalepink/traincrm/internal/lead"
)

// env bundles the stores an import run needs plus their cleanup.
type env struct {
	Store    lead.Store
	Recorder audit.Recorder
	close    func()
}

func (e *env) Close() {
	if e.close != nil {
		e.close()
	}
}

// initStores opens the configured backend and returns the lead store and
// audit recorder wired to it.
func initStores(ctx context.Context) (*env, error) {
	switch cfg.Store.Driver {
	case "postgres":
		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &env{
			Store:    lead.NewPostgresStore(pool),
			Recorder: audit.NewPostgresRecorder(pool),
			close:    pool.Close,
		}, nil

	case "sqlite":
		store, err := lead.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &env{
			Store:    store,
			Recorder: audit.NewSQLiteRecorder(store.DB()),
			close: func() {
				if err := store.Close(); err != nil {
					zap.L().Warn("close sqlite store", zap.Error(err))
				}
			},
		}, nil

	default:
		return nil, eris.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
