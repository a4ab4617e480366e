package dbtrace

import (
	"context"
	"database/sql/driver"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// defaultSpanName is used when a statement has no recognized operation,
// no database name and no call type.
const defaultSpanName = "SQL"

// CallSite is the category of host call being intercepted.
type CallSite int

const (
	// CallExecute is a generic statement execution.
	CallExecute CallSite = iota
	// CallDDL is a schema-changing statement (CREATE, ALTER, DROP, ...).
	CallDDL
	// CallDUI is a DELETE, UPDATE or INSERT style statement.
	CallDUI
	// CallInsert is an insert whose result carries the new row id.
	CallInsert
	// CallQuery is a row-returning query. Its span name carries the
	// database name.
	CallQuery
)

// String returns the name used in the db.call_site metric attribute.
func (s CallSite) String() string {
	switch s {
	case CallDDL:
		return "ddl"
	case CallDUI:
		return "dui"
	case CallInsert:
		return "insert"
	case CallQuery:
		return "query"
	default:
		return "execute"
	}
}

// ParseCallSite parses the String form of a CallSite.
func ParseCallSite(s string) (CallSite, bool) {
	for _, site := range []CallSite{CallExecute, CallDDL, CallDUI, CallInsert, CallQuery} {
		if site.String() == s {
			return site, true
		}
	}
	return CallExecute, false
}

// SiteFor picks the call site of an exec-style call from its classification.
// Adapters that only know "this call does not return rows" use it to
// report DDL, DUI and insert calls separately.
func SiteFor(c Classification) CallSite {
	switch c.Operation() {
	case "CREATE", "ALTER", "DROP", "TRUNCATE", "COMMENT", "GRANT", "REVOKE", "REINDEX":
		return CallDDL
	case "INSERT", "UPSERT", "REPLACE":
		return CallInsert
	case "UPDATE", "DELETE", "MERGE":
		return CallDUI
	default:
		return CallExecute
	}
}

// CallOptions are the options of an intercepted call.
type CallOptions struct {
	// Type names the host operation, e.g. "sqlx.Get". It is used as the
	// span name when the statement yields none.
	Type string

	// MaySkip marks calls the host may answer with driver.ErrSkip before
	// doing any work, such as driver.ExecerContext. Such calls start their
	// span only after fn returns, backdated to the call start, so a skipped
	// call leaves no span or metric behind. fn then receives the caller's
	// context.
	MaySkip bool
}

// Call is one intercepted host call.
type Call struct {
	Site      CallSite
	Statement Statement
	Options   CallOptions

	// Prepared resolves Statement.Handle, when the call runs a prepared
	// statement.
	Prepared PreparedSource
}

// Telemetry is everything the pipeline derived from one call.
type Telemetry struct {
	SpanName       string
	Attributes     Attributes
	Resolved       Resolved
	Classification Classification
	Obfuscation    ObfuscationResult
}

// Interceptor runs the telemetry pipeline around host database calls.
// It is safe for concurrent use.
type Interceptor struct {
	cfg     *config
	tracer  trace.Tracer
	metrics *metrics
	conn    ConnInfo
}

// New creates an Interceptor whose connection context comes entirely from
// options (WithConnInfo, WithDBSystem, WithDBName).
func New(opts ...Option) *Interceptor {
	return newInterceptor(ConnInfo{}, newConfig(opts...))
}

// NewForDSN creates an Interceptor whose connection context is parsed from
// the driver name and DSN. Options override parsed values. A DSN that
// cannot be parsed is logged and only the driver name is used.
func NewForDSN(driverName, dsn string, opts ...Option) *Interceptor {
	cfg := newConfig(opts...)

	info, err := ParseDSN(driverName, dsn)
	if err != nil {
		cfg.Logger.Debug().
			Err(err).
			Str("driver", driverName).
			Msg("dbtrace: dsn not parsed, connection attributes limited to db.system")
	}

	return newInterceptor(info, cfg)
}

func newInterceptor(parsed ConnInfo, cfg *config) *Interceptor {
	conn := parsed.merge(cfg.ConnInfo)
	if cfg.DBSystem != "" {
		conn.Scheme = cfg.DBSystem
	}
	if cfg.DBName != "" {
		conn.Database = cfg.DBName
	}

	i := &Interceptor{
		cfg:    cfg,
		tracer: cfg.TracerProvider.Tracer(scope),
		conn:   conn,
	}

	m, err := newMetrics(cfg.MeterProvider.Meter(scope))
	if err != nil {
		cfg.Logger.Debug().Err(err).Msg("dbtrace: metric instruments unavailable")
	}
	i.metrics = m

	return i
}

// Enabled reports whether calls are traced.
func (i *Interceptor) Enabled() bool {
	return i != nil && i.cfg.Enabled
}

// Policy returns the configured statement policy.
func (i *Interceptor) Policy() Policy {
	return i.cfg.Policy
}

// ConnInfo returns the connection context used for every call.
func (i *Interceptor) ConnInfo() ConnInfo {
	return i.conn
}

// Descriptor resolves the connection descriptor of this interceptor.
func (i *Interceptor) Descriptor() Descriptor {
	return Resolve(i.conn, i.cfg.PeerService)
}

// MetricAttributes returns the low-cardinality connection attributes
// (db.system, db.name, db.instance) attached to metrics.
func (i *Interceptor) MetricAttributes() []attribute.KeyValue {
	d := i.Descriptor()
	attrs := make([]attribute.KeyValue, 0, 3)
	if d.Vendor != "" {
		attrs = append(attrs, KeySystem.String(d.Vendor))
	}
	if d.Database != "" {
		attrs = append(attrs, KeyName.String(d.Database))
	}
	if i.cfg.InstanceName != "" {
		attrs = append(attrs, KeyInstance.String(i.cfg.InstanceName))
	}
	return attrs
}

// Describe runs the pipeline for call without tracing anything:
// prepared resolution, classification, obfuscation, connection resolution
// and assembly.
//
// It never panics. A fault while building telemetry is logged and yields
// an empty Telemetry.
func (i *Interceptor) Describe(call Call) (tel Telemetry) {
	defer func() {
		if r := recover(); r != nil {
			i.cfg.Logger.Error().
				Interface("panic", r).
				Str("call_site", call.Site.String()).
				Msg("dbtrace: failed to build statement telemetry")
			tel = Telemetry{}
		}
	}()

	resolved := ResolvePrepared(call.Statement, call.Prepared)
	classification := Classify(resolved.Text)
	descriptor := i.Descriptor()
	obfuscation := i.obfuscate(descriptor.Vendor, resolved.Text)

	name, attrs := Assemble(AssembleInput{
		Classification: classification,
		Obfuscation:    obfuscation,
		Descriptor:     descriptor,
		PreparedName:   resolved.PreparedName,
		Policy:         i.cfg.Policy,
		Instance:       i.cfg.InstanceName,
		AppendDatabase: call.Site == CallQuery,
	})

	return Telemetry{
		SpanName:       name,
		Attributes:     attrs,
		Resolved:       resolved,
		Classification: classification,
		Obfuscation:    obfuscation,
	}
}

// obfuscate applies the policy with the custom sanitizer when one is set,
// otherwise with the literal set of vendor.
func (i *Interceptor) obfuscate(vendor, text string) ObfuscationResult {
	if i.cfg.QuerySanitizer != nil {
		return obfuscateWith(i.cfg.QuerySanitizer, text, i.cfg.Policy)
	}
	return ObfuscateFor(vendor, text, i.cfg.Policy)
}

// Name returns the name the span is started with. OpenTelemetry span
// names should not be empty, so the call type and then "SQL" stand in.
func (t Telemetry) Name(opts CallOptions) string {
	if t.SpanName != "" {
		return t.SpanName
	}
	if opts.Type != "" {
		return opts.Type
	}
	return defaultSpanName
}

// Intercept traces call around fn. fn receives the span context and its
// error is returned unchanged.
//
// Example:
//
//	err := interceptor.Intercept(ctx, dbtrace.Call{
//	    Site:      dbtrace.CallExecute,
//	    Statement: dbtrace.Text(query),
//	}, func(ctx context.Context) error {
//	    _, err := conn.ExecContext(ctx, query, args)
//	    return err
//	})
func (i *Interceptor) Intercept(ctx context.Context, call Call, fn func(context.Context) error) error {
	_, err := Do(ctx, i, call, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Do traces call around fn and returns fn's result and error unchanged.
// A nil or disabled interceptor calls fn directly.
//
// Example:
//
//	rows, err := dbtrace.Do(ctx, interceptor, call,
//	    func(ctx context.Context) (driver.Rows, error) {
//	        return queryer.QueryContext(ctx, query, args)
//	    },
//	)
func Do[T any](
	ctx context.Context,
	i *Interceptor,
	call Call,
	fn func(context.Context) (T, error),
) (T, error) {
	if !i.Enabled() {
		return fn(ctx)
	}
	if call.Options.MaySkip {
		return doSkippable(ctx, i, call, fn)
	}

	start := time.Now()
	tel := i.Describe(call)

	ctx, span := i.tracer.Start(ctx, tel.Name(call.Options),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tel.Attributes.KeyValues()...),
	)
	defer span.End()

	result, err := fn(ctx)

	i.finish(ctx, span, tel, call.Site, time.Since(start), err)

	return result, err
}

// doSkippable runs fn before starting the span. A driver.ErrSkip answer
// returns straight away; any other outcome is traced from start to end.
func doSkippable[T any](
	ctx context.Context,
	i *Interceptor,
	call Call,
	fn func(context.Context) (T, error),
) (T, error) {
	start := time.Now()
	result, err := fn(ctx)
	if errors.Is(err, driver.ErrSkip) {
		return result, err
	}
	end := time.Now()

	tel := i.Describe(call)

	ctx, span := i.tracer.Start(ctx, tel.Name(call.Options),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tel.Attributes.KeyValues()...),
		trace.WithTimestamp(start),
	)
	defer span.End(trace.WithTimestamp(end))

	i.finish(ctx, span, tel, call.Site, end.Sub(start), err)

	return result, err
}

// finish records the metrics of a traced call and its error on span.
func (i *Interceptor) finish(
	ctx context.Context,
	span trace.Span,
	tel Telemetry,
	site CallSite,
	elapsed time.Duration,
	err error,
) {
	metricAttrs := i.MetricAttributes()
	i.recordObfuscation(ctx, tel, metricAttrs)
	i.metrics.recordDuration(
		ctx,
		elapsed,
		tel.Classification.Operation(),
		site.String(),
		metricAttrs,
		err,
	)

	if err != nil && !errors.Is(err, driver.ErrSkip) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// Span traces a call that carries no statement, such as PING, with the
// connection attributes only.
func (i *Interceptor) Span(ctx context.Context, name string, fn func(context.Context) error) error {
	if !i.Enabled() {
		return fn(ctx)
	}

	start := time.Now()
	attrs := ConnectionAttributes(i.Descriptor(), i.cfg.InstanceName)

	ctx, span := i.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs.KeyValues()...),
	)
	defer span.End()

	err := fn(ctx)

	i.metrics.recordDuration(ctx, time.Since(start), name, "", i.MetricAttributes(), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}

func (i *Interceptor) recordObfuscation(ctx context.Context, tel Telemetry, attrs []attribute.KeyValue) {
	outcome := tel.Obfuscation.Outcome
	i.metrics.recordObfuscation(ctx, outcome, attrs)

	if outcome == OutcomeOversized || outcome == OutcomeMalformed {
		i.cfg.Logger.Debug().
			Str("outcome", outcome.String()).
			Str("db.operation", tel.Classification.Operation()).
			Int("length", len(tel.Resolved.Text)).
			Msg("dbtrace: statement replaced by sentinel")
	}
}
