package dbtrace

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	// This identifies the library in traces and metrics.
	scope = "github.com/kroma-labs/sentinel-db"
)

// config holds the configuration for instrumentation.
type config struct {
	// TracerProvider is the tracer provider to use.
	// If not set, uses the global provider via otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// MeterProvider is the meter provider to use.
	// If not set, uses the global provider via otel.GetMeterProvider().
	MeterProvider metric.MeterProvider

	// Logger receives debug events about degraded telemetry.
	// Disabled unless set.
	Logger zerolog.Logger

	// Enabled turns interception on. A disabled interceptor calls
	// through without tracing.
	Enabled bool

	// Policy decides whether statement text is recorded, and how.
	Policy Policy

	// QuerySanitizer replaces the built-in literal redaction under
	// PolicyObfuscate. Nil uses the vendor's literal set.
	QuerySanitizer func(query string) string

	// PeerService overrides the peer.service attribute when non-empty.
	PeerService string

	// DBSystem overrides the driver scheme used for vendor resolution.
	DBSystem string

	// DBName overrides the database name found in the connection context.
	DBName string

	// InstanceName identifies a specific connection, e.g. "primary" or
	// "replica". Added as db.instance.
	InstanceName string

	// ConnInfo is the connection context supplied explicitly by the caller.
	// Non-empty fields win over values parsed from a DSN.
	ConnInfo ConnInfo
}

// newConfig creates a new config with defaults and applies options.
func newConfig(opts ...Option) *config {
	cfg := &config{
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
		Logger:         zerolog.Nop(),
		Enabled:        true,
		Policy:         PolicyInclude,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// Option configures the instrumentation.
type Option func(*config)

// WithTracerProvider sets a custom tracer provider.
// If not called, the global provider from otel.GetTracerProvider() is used.
//
// Example:
//
//	tp := sdktrace.NewTracerProvider(...)
//	db, _ := sentinelsql.Open("postgres", dsn,
//	    dbtrace.WithTracerProvider(tp),
//	)
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.TracerProvider = tp
	}
}

// WithMeterProvider sets a custom meter provider.
// If not called, the global provider from otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *config) {
		cfg.MeterProvider = mp
	}
}

// WithLogger sets the logger used to report degraded telemetry, such as
// unparseable DSNs or statements replaced by a sentinel.
//
// Example:
//
//	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
//	db, _ := sentinelsql.Open("postgres", dsn,
//	    dbtrace.WithLogger(logger),
//	)
func WithLogger(l zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.Logger = l
	}
}

// WithEnabled turns instrumentation on or off.
func WithEnabled(enabled bool) Option {
	return func(cfg *config) {
		cfg.Enabled = enabled
	}
}

// WithDBStatement sets the statement policy.
//
//   - PolicyInclude (default): record db.statement as-is
//   - PolicyObfuscate: record db.statement with literals replaced by "?"
//   - PolicyOmit: never record db.statement
//
// Example:
//
//	db, _ := sentinelsql.Open("postgres", dsn,
//	    dbtrace.WithDBStatement(dbtrace.PolicyObfuscate),
//	)
//	// Query: "SELECT * FROM users WHERE id = 123"
//	// Recorded as: "SELECT * FROM users WHERE id = ?"
func WithDBStatement(p Policy) Option {
	return func(cfg *config) {
		cfg.Policy = p
	}
}

// WithQuerySanitizer sets a custom query sanitizer used instead of the
// built-in literal redaction when the policy is PolicyObfuscate. It has no
// effect under the other policies.
//
// Statements over MaxObfuscationLength characters are still replaced by
// OversizedSentinel before fn runs, and output that keeps unbalanced
// quotes is replaced by MalformedSentinel.
//
// Example:
//
//	db, _ := sentinelsql.Open("postgres", dsn,
//	    dbtrace.WithDBStatement(dbtrace.PolicyObfuscate),
//	    dbtrace.WithQuerySanitizer(func(q string) string {
//	        return emailPattern.ReplaceAllString(q, "?")
//	    }),
//	)
func WithQuerySanitizer(fn func(string) string) Option {
	return func(cfg *config) {
		cfg.QuerySanitizer = fn
	}
}

// WithDisableQuery disables recording of SQL queries in spans entirely.
// It is shorthand for WithDBStatement(PolicyOmit); db.operation is still
// recorded.
func WithDisableQuery() Option {
	return WithDBStatement(PolicyOmit)
}

// WithPeerService sets the peer.service attribute on all spans.
func WithPeerService(name string) Option {
	return func(cfg *config) {
		cfg.PeerService = name
	}
}

// WithDBSystem sets the driver scheme used to resolve db.system.
// Known schemes are normalized ("pgx" becomes "postgresql"); anything else
// is reported as given.
func WithDBSystem(system string) Option {
	return func(cfg *config) {
		cfg.DBSystem = system
	}
}

// WithDBName sets the database name being accessed.
// This is added as the "db.name" attribute and appended to query span names.
func WithDBName(name string) Option {
	return func(cfg *config) {
		cfg.DBName = name
	}
}

// WithInstanceName sets an identifier for this specific database connection.
// This is added as the "db.instance" attribute on all spans.
//
// Use this to distinguish between multiple connections to the SAME database,
// such as primary/replica setups or read/write splits.
func WithInstanceName(name string) Option {
	return func(cfg *config) {
		cfg.InstanceName = name
	}
}

// WithConnInfo supplies the connection context explicitly, for drivers whose
// DSN cannot be parsed or when the DSN is not available.
//
// Example:
//
//	db, _ := sentinelsql.Open("odbc", dsn,
//	    dbtrace.WithConnInfo(dbtrace.ConnInfo{
//	        Scheme:       "odbc",
//	        DatabaseType: "mssql",
//	        Host:         "db.internal",
//	        Port:         "1433",
//	    }),
//	)
func WithConnInfo(info ConnInfo) Option {
	return func(cfg *config) {
		cfg.ConnInfo = info
	}
}
