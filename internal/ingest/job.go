// Package ingest loads retail CSV exports into the raw store. Files are read
// in name order and processed in fixed-size chunks; every chunk is normalized
// and committed in its own transaction, so a failure keeps earlier chunks and
// stops the run. Loading is append-only: re-running the job inserts the same
// rows again.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"retailetl/internal/config"
	"retailetl/internal/datasource/file"
	"retailetl/internal/domain"
	"retailetl/internal/logger"
	"retailetl/internal/metrics"
	"retailetl/internal/parser/csv"
	"retailetl/internal/storage"
	"retailetl/internal/transformer"
)

// MetricsJob labels metrics emitted by the job.
const MetricsJob = "retail_ingest"

// ErrNoInputFiles is returned when the data directory has no matching file.
var ErrNoInputFiles = errors.New("ingest: no input files")

// Opener connects to the raw store. The job calls it only after input files
// have been found.
type Opener func(ctx context.Context) (storage.DB, error)

// Result summarizes one run.
type Result struct {
	Files        int
	Chunks       int
	RowsRead     int64
	RowsInserted int64
	RowsDropped  int64
	LinesSkipped int64 // structurally unreadable CSV lines
}

// Job ingests every matching file under cfg.DataDir.
type Job struct {
	cfg  config.Ingest
	open Opener
	log  zerolog.Logger
}

// NewJob returns a Job; open is called once per Run.
func NewJob(cfg config.Ingest, open Opener, log zerolog.Logger) *Job {
	return &Job{cfg: cfg, open: open, log: log}
}

// Run ingests all files. On failure the returned Result still reflects the
// chunks committed before the error.
func (j *Job) Run(ctx context.Context) (Result, error) {
	var res Result

	paths, err := file.List(j.cfg.DataDir, j.cfg.Pattern)
	if err != nil {
		return res, err
	}
	if len(paths) == 0 {
		return res, fmt.Errorf("%w matching %q in %s", ErrNoInputFiles, j.cfg.Pattern, j.cfg.DataDir)
	}
	j.log.Info().Int("files", len(paths)).Str("dir", j.cfg.DataDir).Msg("input files found")

	db, err := j.open(ctx)
	if err != nil {
		return res, fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := db.Close(ctx); cerr != nil {
			j.log.Warn().Err(cerr).Msg("close store")
		}
	}()

	for _, p := range paths {
		if err := j.ingestFile(ctx, db, p, &res); err != nil {
			return res, err
		}
		res.Files++
	}

	j.log.Info().
		Int("files", res.Files).
		Int("chunks", res.Chunks).
		Int64("read", res.RowsRead).
		Int64("inserted", res.RowsInserted).
		Int64("dropped", res.RowsDropped).
		Msg("ingestion complete")
	return res, nil
}

func (j *Job) ingestFile(ctx context.Context, db storage.DB, path string, res *Result) error {
	log := j.log.With().Str("file", path).Logger()

	rc, err := file.NewLocal(path).Open(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()

	cr, err := csv.NewChunkReader(rc, j.cfg.ChunkSize)
	if errors.Is(err, csv.ErrEmptyInput) {
		log.Warn().Msg("empty file skipped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	norm := transformer.NewNormalizer(cr.Header())
	for _, required := range []string{"invoice", "stockcode", "invoicedate"} {
		if !norm.Has(required) {
			log.Warn().Str("column", required).Msg("required column missing; every row will be dropped")
		}
	}

	loadCtx := logger.WithContext(ctx, log)
	skippedBefore := 0
	for chunk := 0; ; chunk++ {
		rows, err := cr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%s: read chunk %d: %w", path, chunk, err)
		}

		txs, stats := norm.Normalize(rows)
		start := time.Now()
		n, err := storage.LoadChunk(loadCtx, db, domain.RawTable, domain.RawColumns, domain.Rows(txs), j.cfg.PageSize)
		metrics.RecordStep(MetricsJob, "load_chunk", err, time.Since(start))
		if err != nil {
			return fmt.Errorf("%s: chunk %d: %w", path, chunk, err)
		}

		res.Chunks++
		res.RowsRead += int64(stats.Seen)
		res.RowsInserted += n
		res.RowsDropped += int64(stats.Dropped())
		if s := cr.Skipped(); s > skippedBefore {
			res.LinesSkipped += int64(s - skippedBefore)
			skippedBefore = s
		}
		recordChunk(stats, n, len(txs), j.cfg.PageSize)

		log.Info().
			Int("chunk", chunk).
			Int64("inserted", n).
			Int64("total", res.RowsInserted).
			Int("dropped", stats.Dropped()).
			Str("digest", strconv.FormatUint(transformer.Digest(txs), 16)).
			Msgf("inserted=%d total=%d", n, res.RowsInserted)
	}
	if cr.Skipped() > 0 {
		log.Warn().Int("lines", cr.Skipped()).Int("records", cr.Line()).Msg("unreadable CSV lines skipped")
	}
	return nil
}

func recordChunk(s transformer.Stats, inserted int64, rows, pageSize int) {
	metrics.RecordRows(MetricsJob, "read", int64(s.Seen))
	metrics.RecordRows(MetricsJob, "inserted", inserted)
	metrics.RecordRows(MetricsJob, "dropped_missing_invoice", int64(s.MissingInvoice))
	metrics.RecordRows(MetricsJob, "dropped_missing_stockcode", int64(s.MissingStockCode))
	metrics.RecordRows(MetricsJob, "dropped_bad_invoicedate", int64(s.BadInvoiceDate))
	metrics.RecordRows(MetricsJob, "quantity_defaulted", int64(s.QuantityDefaulted))
	metrics.RecordRows(MetricsJob, "price_defaulted", int64(s.PriceDefaulted))
	metrics.RecordPages(MetricsJob, int64((rows+pageSize-1)/pageSize))
}
