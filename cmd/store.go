package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/reorder-cli/internal/predict"
	"github.com/sells-group/reorder-cli/internal/store"
)

// initStore opens the configured store backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxConns, cfg.Store.MinConns)
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// newEngine builds the prediction engine on top of the store with the
// configured trigger policy.
func newEngine(st store.Store) *predict.Engine {
	policy := predict.TriggerPolicy{
		WindowDays:    cfg.Predict.TriggerWindowDays,
		MinConfidence: cfg.Predict.ConfidenceThreshold,
	}
	return predict.NewEngine(st, st, st, policy)
}
