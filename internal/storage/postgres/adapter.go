package postgres

import (
	"context"

	"retailetl/internal/storage"
)

// newDB is a test hook that points to NewDB by default.
// Tests may replace this variable to avoid real DB connections.
var newDB = NewDB

// init registers the "postgres" backend with the storage factory so callers
// can stay backend-agnostic:
//
//	db, err := storage.Open(ctx, storage.Config{Kind: "postgres", DSN: dsn})
func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.DB, error) {
		db, err := newDB(ctx, Config{DSN: cfg.DSN})
		if err != nil {
			return nil, err
		}
		return db, nil
	})
}
