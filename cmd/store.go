package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/inmetrica/valuation-cli/internal/warehouse"
)

// openStore builds the configured warehouse backend and runs migrations.
// Callers own Close.
func openStore(ctx context.Context) (warehouse.Store, error) {
	var st warehouse.Store
	switch cfg.Store.Driver {
	case "", "sqlite":
		s, err := warehouse.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		st = s
	case "postgres":
		s, err := warehouse.NewPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st = s
	default:
		return nil, eris.Errorf("unknown store driver %q (valid: sqlite, postgres)", cfg.Store.Driver)
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
