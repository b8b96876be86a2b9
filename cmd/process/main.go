// Command process rebuilds the daily, top-product and customer marts from the
// raw store and prints their row counts.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"retailetl/internal/aggregate"
	"retailetl/internal/app"
	"retailetl/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Getenv, os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, getenv func(string) string, stdout io.Writer) int {
	a, err := app.Start(aggregate.MetricsJob, getenv, config.ValidateStore)
	if err != nil {
		fmt.Fprintf(os.Stderr, "process: %v\n", err)
		return 1
	}
	defer a.Close()

	db, err := a.OpenStore(ctx)
	if err != nil {
		a.Log.Error().Err(err).Msg("connect failed")
		return 1
	}
	defer func() {
		if err := db.Close(ctx); err != nil {
			a.Log.Warn().Err(err).Msg("close store")
		}
	}()

	summary, err := aggregate.NewRunner(db, aggregate.Catalog(), a.Log).Run(ctx)
	if err != nil {
		a.Log.Error().Err(err).Msg("processing failed")
		return 1
	}

	fmt.Fprintf(stdout, "Processing DONE %s\n", summary)
	return 0
}
