// Command ingest loads every CSV export under DATA_DIR into the raw store.
// All settings come from the environment; see internal/config.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"retailetl/internal/app"
	"retailetl/internal/config"
	"retailetl/internal/ingest"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Getenv, os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, getenv func(string) string, stdout io.Writer) int {
	a, err := app.Start(ingest.MetricsJob, getenv, config.Validate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingest: %v\n", err)
		return 1
	}
	defer a.Close()

	res, err := ingest.NewJob(a.Cfg.Ingest, a.OpenStore, a.Log).Run(ctx)
	if err != nil {
		a.Log.Error().Err(err).
			Int64("inserted", res.RowsInserted).
			Msg("ingestion failed")
		return 1
	}

	fmt.Fprintf(stdout, "DONE. Total rows inserted: %d\n", res.RowsInserted)
	return 0
}
