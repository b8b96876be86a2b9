// Package sqlstore implements storage.DB over database/sql for SQLite, MySQL
// and SQL Server. SQLite and MySQL load pages with multi-row INSERTs sized to
// the engine's bind-parameter limit; SQL Server uses the TDS bulk-copy API.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"retailetl/internal/storage"
)

// sqliteTime is how timestamps are stored in SQLite TEXT columns; DATE() and
// lexical ordering both work on it.
const sqliteTime = "2006-01-02 15:04:05"

// engine binds a storage kind to its database/sql driver and dialect.
type engine struct {
	driver  string
	dialect storage.Dialect
	// checkDSN rejects obviously malformed DSNs before opening.
	checkDSN func(string) error
}

var engines = map[string]engine{
	"sqlite": {driver: "sqlite", dialect: storage.SQLite},
	"mysql":  {driver: "mysql", dialect: storage.MySQL},
	"mssql": {driver: "sqlserver", dialect: storage.SQLServer, checkDSN: func(dsn string) error {
		_, err := msdsn.Parse(dsn)
		return err
	}},
}

// DB is a database/sql-backed storage.DB.
type DB struct {
	db      *sql.DB
	dialect storage.Dialect
}

var _ storage.DB = (*DB)(nil)

// Open connects to kind at dsn and pings it.
func Open(ctx context.Context, kind, dsn string) (*DB, error) {
	eng, ok := engines[kind]
	if !ok {
		return nil, fmt.Errorf("%w %q", storage.ErrUnknownKind, kind)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s: DSN must not be empty", kind)
	}
	if eng.checkDSN != nil {
		if err := eng.checkDSN(dsn); err != nil {
			return nil, fmt.Errorf("%s dsn: %w", kind, err)
		}
	}

	db, err := sql.Open(eng.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", kind, err)
	}
	if kind == "sqlite" {
		// One writer; also keeps ":memory:" databases on a single connection.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", kind, err)
	}
	return &DB{db: db, dialect: eng.dialect}, nil
}

// Exec implements storage.DB.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := d.db.ExecContext(ctx, query, d.bindAll(args)...)
	if err != nil {
		return 0, fmt.Errorf("%s: exec: %w", d.dialect.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some drivers cannot report it for DDL; not an error for callers.
		return 0, nil
	}
	return n, nil
}

// QueryInt implements storage.DB.
func (d *DB) QueryInt(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := d.db.QueryRowContext(ctx, query, d.bindAll(args)...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: query: %w", d.dialect.Name, err)
	}
	return n, nil
}

// BeginTx implements storage.DB.
func (d *DB) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", d.dialect.Name, err)
	}
	return &sqlTx{tx: tx, d: d}, nil
}

// Dialect implements storage.DB.
func (d *DB) Dialect() storage.Dialect { return d.dialect }

// Close closes the underlying pool.
func (d *DB) Close(context.Context) error { return d.db.Close() }

// bind converts domain values to what the driver stores faithfully. Decimals
// go over the wire as exact text; SQLite keeps timestamps as text.
func (d *DB) bind(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.String()
	case time.Time:
		if d.dialect.Name == storage.SQLite.Name {
			return x.UTC().Format(sqliteTime)
		}
		return x
	default:
		return v
	}
}

func (d *DB) bindAll(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = d.bind(a)
	}
	return out
}

type sqlTx struct {
	tx *sql.Tx
	d  *DB
}

// CopyInto implements storage.Tx.
func (t *sqlTx) CopyInto(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("%s: CopyInto: columns must not be empty", t.d.dialect.Name)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("%s: CopyInto: row %d length %d != columns length %d", t.d.dialect.Name, i, len(row), len(columns))
		}
	}
	if t.d.dialect.Name == storage.SQLServer.Name {
		return t.bulkCopy(ctx, table, columns, rows)
	}
	return t.insertValues(ctx, table, columns, rows)
}

// insertValues issues multi-row INSERTs, reusing one prepared statement for
// every full-width group and a second one for the tail.
func (t *sqlTx) insertValues(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	d := t.d.dialect
	per := d.RowsPerStatement(len(columns), len(rows))

	var (
		inserted int64
		stmts    = map[int]*sql.Stmt{}
	)
	defer func() {
		for _, s := range stmts {
			_ = s.Close()
		}
	}()

	args := make([]any, 0, per*len(columns))
	for off := 0; off < len(rows); off += per {
		group := rows[off:min(off+per, len(rows))]

		stmt, ok := stmts[len(group)]
		if !ok {
			var err error
			stmt, err = t.tx.PrepareContext(ctx, d.InsertValues(table, columns, len(group)))
			if err != nil {
				return inserted, fmt.Errorf("%s: prepare insert: %w", d.Name, err)
			}
			stmts[len(group)] = stmt
		}

		args = args[:0]
		for _, row := range group {
			for _, v := range row {
				args = append(args, t.d.bind(v))
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return inserted, fmt.Errorf("%s: insert rows %d-%d: %w", d.Name, off, off+len(group)-1, err)
		}
		inserted += int64(len(group))
	}
	return inserted, nil
}

// bulkCopy streams rows through mssql.CopyIn inside the transaction.
func (t *sqlTx) bulkCopy(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	stmt, err := t.tx.PrepareContext(ctx, mssql.CopyIn(table, mssql.BulkOptions{}, columns...))
	if err != nil {
		return 0, fmt.Errorf("mssql: prepare bulk: %w", err)
	}
	defer stmt.Close()

	vals := make([]any, len(columns))
	for i, row := range rows {
		for j, v := range row {
			vals[j] = t.d.bind(v)
		}
		if _, err := stmt.ExecContext(ctx, vals...); err != nil {
			return 0, fmt.Errorf("mssql: bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("mssql: bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mssql: rows affected: %w", err)
	}
	return n, nil
}

func (t *sqlTx) Commit(context.Context) error   { return t.tx.Commit() }
func (t *sqlTx) Rollback(context.Context) error { return t.tx.Rollback() }
