// Package postgres implements storage.DB on Postgres using pgx v5. Bulk
// inserts use the COPY protocol inside the caller's transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"retailetl/internal/storage"
)

// poolLike is the subset of *pgxpool.Pool used by DB. Tests provide fakes.
type poolLike interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Config holds Postgres connection settings.
type Config struct {
	DSN string // connection string for pgxpool
}

// DB is a Postgres-backed storage.DB.
type DB struct {
	pool poolLike
}

var _ storage.DB = (*DB)(nil)

// NewDB opens a pool and pings the server so a bad DSN or unreachable host
// fails here rather than on the first chunk.
func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Exec implements storage.DB.
func (d *DB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := d.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, describe("exec", err)
	}
	return tag.RowsAffected(), nil
}

// QueryInt implements storage.DB.
func (d *DB) QueryInt(ctx context.Context, sql string, args ...any) (int64, error) {
	var n int64
	if err := d.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, describe("query", err)
	}
	return n, nil
}

// BeginTx implements storage.DB.
func (d *DB) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, describe("begin", err)
	}
	return &copyTx{tx: tx}, nil
}

// Dialect implements storage.DB.
func (d *DB) Dialect() storage.Dialect { return storage.Postgres }

// Close releases the pool.
func (d *DB) Close(context.Context) error {
	d.pool.Close()
	return nil
}

type copyTx struct {
	tx pgx.Tx
}

// CopyInto streams rows with COPY FROM STDIN (binary).
func (t *copyTx) CopyInto(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	converted := make([][]any, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("row %d has %d values for %d columns", i, len(row), len(columns))
		}
		out := make([]any, len(row))
		for j, v := range row {
			out[j] = toCopyVal(v)
		}
		converted[i] = out
	}
	n, err := t.tx.CopyFrom(ctx, pgFQN(table), columns, pgx.CopyFromRows(converted))
	if err != nil {
		return 0, describe("copy into "+table, err)
	}
	return n, nil
}

func (t *copyTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *copyTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// toCopyVal maps domain values onto types pgx encodes exactly. Decimals become
// pgtype.Numeric so no float rounding happens on the way to NUMERIC columns.
func toCopyVal(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return pgtype.Numeric{Int: x.Coefficient(), Exp: x.Exponent(), Valid: true}
	default:
		return v
	}
}

// pgFQN splits a possibly schema-qualified name into a pgx.Identifier.
func pgFQN(name string) pgx.Identifier {
	return pgx.Identifier(strings.Split(name, "."))
}

// describe wraps err with op and, when the server supplied one, the PgError
// detail, which usually names the offending value.
func describe(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%s: %w (%s)", op, err, pgErr.Detail)
	}
	return fmt.Errorf("%s: %w", op, err)
}
