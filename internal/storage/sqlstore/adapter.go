package sqlstore

import (
	"context"

	"retailetl/internal/storage"
)

// init registers every database/sql engine with the storage factory.
func init() {
	for kind := range engines {
		kind := kind
		storage.Register(kind, func(ctx context.Context, cfg storage.Config) (storage.DB, error) {
			db, err := Open(ctx, kind, cfg.DSN)
			if err != nil {
				return nil, err
			}
			return db, nil
		})
	}
}
