package storage

import (
	"context"
	"fmt"
	"time"

	"retailetl/internal/logger"
)

// LoadChunk writes rows into table inside a single transaction, issuing one
// Tx.CopyInto per page of pageSize rows. Either the whole chunk commits or
// nothing from it persists. Empty input opens no transaction.
//
// Progress is logged per page through the logger carried by ctx.
func LoadChunk(
	ctx context.Context,
	db DB,
	table string,
	columns []string,
	rows [][]any,
	pageSize int,
) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if pageSize <= 0 {
		return 0, fmt.Errorf("pageSize must be > 0, got %d", pageSize)
	}

	log := logger.FromContext(ctx).With().Str("table", table).Logger()

	tx, err := db.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() {
		if rerr := tx.Rollback(ctx); rerr != nil {
			log.Warn().Err(rerr).Msg("rollback failed")
		}
	}

	var (
		total     int64
		start     = time.Now()
		lastFlush = start
	)
	for page, off := 0, 0; off < len(rows); page, off = page+1, off+pageSize {
		end := min(off+pageSize, len(rows))
		n, err := tx.CopyInto(ctx, table, columns, rows[off:end])
		if err != nil {
			log.Error().Err(err).Int("page", page).Int64("total_inserted", total).Msg("copy failed")
			rollback()
			return 0, fmt.Errorf("page %d (rows %d-%d): %w", page, off, end-1, err)
		}
		total += n

		now := time.Now()
		sinceLast := now.Sub(lastFlush)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(n) / sinceLast.Seconds()
		}
		log.Debug().
			Int("page", page).
			Float64("rps", rps).
			Int64("inserted", n).
			Int64("total_inserted", total).
			Dur("elapsed", now.Sub(start).Truncate(time.Millisecond)).
			Msg("page flushed")
		lastFlush = now
	}

	if err := tx.Commit(ctx); err != nil {
		rollback()
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}
