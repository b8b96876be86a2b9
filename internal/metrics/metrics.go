// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from ingestion and the mart rebuilds.
//
// It exposes a narrow Backend interface (counters and timings) behind a
// global, pluggable backend that defaults to a no-op, so instrumentation is
// always safe to call. Concrete systems live in subpackages (prompush,
// datadog) and are installed once by the binaries.
package metrics

import (
	"sync"
	"time"
)

// Metric names emitted by the helpers below.
const (
	StepTotal           = "retail_step_total"
	StepDurationSeconds = "retail_step_duration_seconds"
	RecordsTotal        = "retail_records_total"
	PagesTotal          = "retail_pages_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep records latency and success/failure of one unit of work, such as
// loading a chunk ("load_chunk") or rebuilding a mart ("daily_metrics").
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRows increments a record-level counter for the given job and kind.
//
// Kinds used by ingestion: "read", "inserted", and one "dropped_<reason>" per
// drop reason.
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RecordsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordPages increments the count of bulk-insert pages flushed.
func RecordPages(job string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(PagesTotal, float64(delta), Labels{
		"job": job,
	})
}
