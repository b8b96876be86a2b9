// Package config centralizes process configuration. All tunables come from
// environment variables with local-development defaults, so both binaries run
// unmodified against the compose stack.
//
// Binaries pass os.Getenv; tests pass a map lookup to stay hermetic:
//
//	getenv := func(k string) string { return testEnv[k] }
//	cfg := config.LoadFrom(getenv)
package config

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Store kinds understood by the storage registry.
const (
	KindPostgres = "postgres"
	KindSQLite   = "sqlite"
	KindMySQL    = "mysql"
	KindMSSQL    = "mssql"
)

// Metrics backends.
const (
	MetricsNone        = "none"
	MetricsPushgateway = "pushgateway"
	MetricsDatadog     = "datadog"
)

// Config holds all process configuration. All fields are plain values so the
// struct can be copied freely after construction.
type Config struct {
	Store   Store
	Ingest  Ingest
	Metrics Metrics
	Log     Log
}

// Store describes the warehouse connection. For Postgres the DSN is built
// from discrete parts unless DSNOverride is set; other kinds need the
// override.
type Store struct {
	Kind        string // STORE_KIND
	Host        string // DB_HOST
	Port        string // DB_PORT
	Name        string // POSTGRES_DB
	User        string // POSTGRES_USER
	Password    string // POSTGRES_PASSWORD
	SSLMode     string // DB_SSLMODE
	DSNOverride string // DB_DSN

	// AutoCreate creates missing tables before running (AUTO_CREATE_TABLES).
	AutoCreate bool
}

// Ingest controls file discovery and batching.
type Ingest struct {
	DataDir   string // DATA_DIR
	Pattern   string // INGEST_PATTERN
	ChunkSize int    // CHUNK_SIZE: rows read per chunk, one transaction each
	PageSize  int    // PAGE_SIZE: rows per bulk insert inside a chunk
}

// Metrics selects the metrics backend.
type Metrics struct {
	Backend        string // METRICS_BACKEND
	PushgatewayURL string // PUSHGATEWAY_URL
	DogStatsDAddr  string // DOGSTATSD_ADDR
}

// Log controls logger output.
type Log struct {
	Level  string // LOG_LEVEL
	Format string // LOG_FORMAT: "console" or "json"
}

// LoadFrom builds a Config using getenv for every lookup. Malformed integers
// and booleans fall back to their defaults.
func LoadFrom(getenv func(string) string) Config {
	envOrDefaultFn := func(k, d string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return d
	}
	intEnvOrDefaultFn := func(k string, d int) int {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
		return d
	}
	boolEnvOrDefaultFn := func(k string, d bool) bool {
		if v := strings.ToLower(strings.TrimSpace(getenv(k))); v != "" {
			switch v {
			case "1", "true", "yes", "on":
				return true
			case "0", "false", "no", "off":
				return false
			}
		}
		return d
	}

	return Config{
		Store: Store{
			Kind:        strings.ToLower(envOrDefaultFn("STORE_KIND", KindPostgres)),
			Host:        envOrDefaultFn("DB_HOST", "postgres"),
			Port:        envOrDefaultFn("DB_PORT", "5432"),
			Name:        envOrDefaultFn("POSTGRES_DB", "warehouse"),
			User:        envOrDefaultFn("POSTGRES_USER", "de_user"),
			Password:    envOrDefaultFn("POSTGRES_PASSWORD", "de_password"),
			SSLMode:     envOrDefaultFn("DB_SSLMODE", "disable"),
			DSNOverride: getenv("DB_DSN"),
			AutoCreate:  boolEnvOrDefaultFn("AUTO_CREATE_TABLES", false),
		},
		Ingest: Ingest{
			DataDir:   envOrDefaultFn("DATA_DIR", "/data"),
			Pattern:   envOrDefaultFn("INGEST_PATTERN", "*.csv"),
			ChunkSize: intEnvOrDefaultFn("CHUNK_SIZE", 50000),
			PageSize:  intEnvOrDefaultFn("PAGE_SIZE", 10000),
		},
		Metrics: Metrics{
			Backend:        strings.ToLower(envOrDefaultFn("METRICS_BACKEND", MetricsNone)),
			PushgatewayURL: envOrDefaultFn("PUSHGATEWAY_URL", "http://pushgateway:9091"),
			DogStatsDAddr:  envOrDefaultFn("DOGSTATSD_ADDR", "127.0.0.1:8125"),
		},
		Log: Log{
			Level:  strings.ToLower(envOrDefaultFn("LOG_LEVEL", "info")),
			Format: strings.ToLower(envOrDefaultFn("LOG_FORMAT", "console")),
		},
	}
}

// DSN returns the connection string for the store. An explicit DB_DSN wins;
// otherwise a postgres URL is assembled with escaped credentials.
func (s Store) DSN() string {
	if s.DSNOverride != "" {
		return s.DSNOverride
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(s.User, s.Password),
		Host:   net.JoinHostPort(s.Host, s.Port),
		Path:   "/" + s.Name,
	}
	if s.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {s.SSLMode}}.Encode()
	}
	return u.String()
}
