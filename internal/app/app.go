// Package app holds the startup and shutdown shared by the ingest and process
// binaries: configuration, logging, the metrics backend and the store.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"retailetl/internal/config"
	"retailetl/internal/logger"
	"retailetl/internal/metrics"
	"retailetl/internal/metrics/datadog"
	"retailetl/internal/metrics/prompush"
	"retailetl/internal/schema"
	"retailetl/internal/storage"

	// every backend is compiled in; STORE_KIND picks one at runtime.
	_ "retailetl/internal/storage/all"
)

// Checker validates a loaded configuration, e.g. config.Validate.
type Checker func(config.Config) []config.Issue

// App is a started process.
type App struct {
	Cfg config.Config
	Log zerolog.Logger

	job     string
	metrics bool
}

// Start loads configuration through getenv, reports every validation issue and
// installs the configured metrics backend. It fails only when check returns
// errors; a metrics backend that cannot start leaves metrics disabled.
func Start(job string, getenv func(string) string, check Checker) (*App, error) {
	cfg := config.LoadFrom(getenv)
	log := logger.New(cfg.Log).With().Str("job", job).Logger()

	issues := check(cfg)
	for _, iss := range issues {
		ev := log.Warn()
		if iss.Severity == config.SeverityError {
			ev = log.Error()
		}
		ev.Str("path", iss.Path).Msg(iss.Message)
	}
	if config.HasErrors(issues) {
		return nil, fmt.Errorf("invalid configuration (%d issues)", len(issues))
	}

	a := &App{Cfg: cfg, Log: log, job: job}
	a.installMetrics()
	return a, nil
}

func (a *App) installMetrics() {
	m := a.Cfg.Metrics
	switch m.Backend {
	case config.MetricsPushgateway:
		b, err := prompush.NewBackend(a.job, m.PushgatewayURL)
		if err != nil {
			a.Log.Warn().Err(err).Msg("metrics: pushgateway backend unavailable; using nop")
			return
		}
		metrics.SetBackend(b)
		a.metrics = true
		a.Log.Debug().Str("url", m.PushgatewayURL).Msg("metrics: pushgateway")

	case config.MetricsDatadog:
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       m.DogStatsDAddr,
			GlobalTags: []string{"job:" + a.job},
		})
		if err != nil {
			a.Log.Warn().Err(err).Msg("metrics: datadog backend unavailable; using nop")
			return
		}
		metrics.SetBackend(b)
		a.metrics = true
		a.Log.Debug().Str("addr", m.DogStatsDAddr).Msg("metrics: datadog")

	case "", config.MetricsNone:
		// nop backend remains

	default:
		a.Log.Warn().Str("backend", m.Backend).Msg("metrics: unknown backend; metrics disabled")
	}
}

// OpenStore connects to the configured store and, with AUTO_CREATE_TABLES
// set, creates any missing table. It satisfies ingest.Opener.
func (a *App) OpenStore(ctx context.Context) (storage.DB, error) {
	s := a.Cfg.Store
	db, err := storage.Open(ctx, storage.Config{Kind: s.Kind, DSN: s.DSN()})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", s.Kind, err)
	}
	if s.AutoCreate {
		if err := schema.Ensure(ctx, db); err != nil {
			_ = db.Close(ctx)
			return nil, err
		}
	}
	a.Log.Info().Str("kind", s.Kind).Bool("auto_create", s.AutoCreate).Msg("store connected")
	return db, nil
}

// Close flushes metrics. Flush failures are logged, never returned.
func (a *App) Close() {
	if !a.metrics {
		return
	}
	if err := metrics.Flush(); err != nil {
		a.Log.Warn().Err(err).Msg("metrics: flush error")
	}
}
