// Package storage contains the storage-agnostic contracts used by ingestion
// and the aggregation runner, the backend registry, and the chunk loader.
//
// Backends (Postgres via pgx, and SQLite/MySQL/SQL Server via database/sql)
// register a Factory for their kind at init time. Callers open a DB with
// storage.Open and never import a driver directly; importing
// retailetl/internal/storage/all links every built-in backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DB is a connection to the warehouse capable of auto-commit statements and
// explicit transactions.
type DB interface {
	// Exec runs one auto-commit statement and returns the rows affected.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	// QueryInt runs a query returning a single integer (e.g. COUNT(*)).
	QueryInt(ctx context.Context, sql string, args ...any) (int64, error)
	// BeginTx starts a transaction.
	BeginTx(ctx context.Context) (Tx, error)
	// Dialect describes the SQL flavor of this backend.
	Dialect() Dialect
	Close(ctx context.Context) error
}

// Tx is an open transaction supporting bulk inserts.
type Tx interface {
	// CopyInto bulk-inserts rows aligned to columns and returns the number of
	// rows written.
	CopyInto(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Config selects and configures a backend.
type Config struct {
	Kind string // "postgres", "sqlite", "mysql", "mssql"
	DSN  string // driver-specific connection string
}

// Factory opens a DB for a backend kind. Implementations must verify
// connectivity before returning so an unreachable store fails at startup.
type Factory func(ctx context.Context, cfg Config) (DB, error)

// ErrUnknownKind is returned by Open when no backend is registered for the
// requested kind.
var ErrUnknownKind = errors.New("storage: unknown kind")

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the Factory for kind. Backends call it from
// init.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// Kinds lists the registered backend kinds in sorted order.
func Kinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Open returns a connected DB for cfg.Kind.
func Open(ctx context.Context, cfg Config) (DB, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (registered: %v)", ErrUnknownKind, cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}

// CountRows returns the number of rows in table.
func CountRows(ctx context.Context, db DB, table string) (int64, error) {
	return db.QueryInt(ctx, "SELECT COUNT(*) FROM "+db.Dialect().Quote(table))
}
