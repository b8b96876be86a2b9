package config

import (
	"fmt"
	"os"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path names the environment
// variable responsible.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static checks over cfg. It does not mutate cfg.
func Validate(cfg Config) []Issue {
	var issues []Issue
	issues = append(issues, validateStore(cfg.Store)...)
	issues = append(issues, validateIngest(cfg.Ingest)...)
	issues = append(issues, validateMetrics(cfg.Metrics)...)
	issues = append(issues, validateLog(cfg.Log)...)
	return issues
}

// ValidateStore checks only the store settings; the process binary needs
// nothing else.
func ValidateStore(cfg Config) []Issue {
	var issues []Issue
	issues = append(issues, validateStore(cfg.Store)...)
	issues = append(issues, validateMetrics(cfg.Metrics)...)
	issues = append(issues, validateLog(cfg.Log)...)
	return issues
}

func validateStore(s Store) []Issue {
	var issues []Issue

	switch s.Kind {
	case KindPostgres:
		if s.DSNOverride == "" && strings.TrimSpace(s.Host) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "DB_HOST",
				Message:  "postgres requires DB_HOST or DB_DSN",
			})
		}
	case KindSQLite, KindMySQL, KindMSSQL:
		if strings.TrimSpace(s.DSNOverride) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "DB_DSN",
				Message:  fmt.Sprintf("store kind %q requires DB_DSN", s.Kind),
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "STORE_KIND",
			Message:  fmt.Sprintf("unknown store kind %q; want postgres, sqlite, mysql or mssql", s.Kind),
		})
	}
	return issues
}

func validateIngest(in Ingest) []Issue {
	var issues []Issue

	if in.ChunkSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "CHUNK_SIZE",
			Message:  fmt.Sprintf("must be > 0, got %d", in.ChunkSize),
		})
	}
	if in.PageSize <= 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "PAGE_SIZE",
			Message:  fmt.Sprintf("must be > 0, got %d", in.PageSize),
		})
	}
	if in.ChunkSize > 0 && in.PageSize > in.ChunkSize {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "PAGE_SIZE",
			Message:  fmt.Sprintf("page size %d exceeds chunk size %d; each chunk is a single page", in.PageSize, in.ChunkSize),
		})
	}

	if fi, err := os.Stat(in.DataDir); err != nil {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "DATA_DIR",
			Message:  fmt.Sprintf("data directory %q: %v", in.DataDir, err),
		})
	} else if !fi.IsDir() {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "DATA_DIR",
			Message:  fmt.Sprintf("%q is not a directory", in.DataDir),
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	switch m.Backend {
	case "", MetricsNone, MetricsPushgateway, MetricsDatadog:
		return nil
	}
	return []Issue{{
		Severity: SeverityWarning,
		Path:     "METRICS_BACKEND",
		Message:  fmt.Sprintf("unknown metrics backend %q; metrics disabled", m.Backend),
	}}
}

func validateLog(l Log) []Issue {
	switch l.Format {
	case "", "console", "json":
		return nil
	}
	return []Issue{{
		Severity: SeverityWarning,
		Path:     "LOG_FORMAT",
		Message:  fmt.Sprintf("unknown log format %q; using console", l.Format),
	}}
}
