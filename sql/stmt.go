package sql

import (
	"context"
	"database/sql/driver"

	"github.com/kroma-labs/sentinel-db/dbtrace"
)

// Compile-time interface checks.
var (
	_ driver.Stmt             = (*otelStmt)(nil)
	_ driver.StmtExecContext  = (*otelStmt)(nil)
	_ driver.StmtQueryContext = (*otelStmt)(nil)
	_ dbtrace.PreparedSource  = (*otelStmt)(nil)
)

// namedStatement is implemented by driver statements that know the
// server-side name they were prepared under.
type namedStatement interface {
	Name() string
}

// otelStmt wraps a driver.Stmt with OpenTelemetry instrumentation.
// It is the prepared handle of its own calls: the statement text is
// resolved from the query it was prepared with.
type otelStmt struct {
	stmt  driver.Stmt
	ic    *dbtrace.Interceptor
	query string
	site  dbtrace.CallSite
}

// newOtelStmt creates a new instrumented statement.
func newOtelStmt(stmt driver.Stmt, ic *dbtrace.Interceptor, query string) *otelStmt {
	return &otelStmt{
		stmt:  stmt,
		ic:    ic,
		query: query,
		site:  dbtrace.SiteFor(dbtrace.Classify(query)),
	}
}

// PreparedSQL implements dbtrace.PreparedSource.
func (s *otelStmt) PreparedSQL() (string, bool) {
	return s.query, s.query != ""
}

// PreparedStatementName implements dbtrace.PreparedSource.
func (s *otelStmt) PreparedStatementName() string {
	if named, ok := s.stmt.(namedStatement); ok {
		return named.Name()
	}
	return ""
}

// Close implements driver.Stmt.
func (s *otelStmt) Close() error {
	return s.stmt.Close()
}

// NumInput implements driver.Stmt.
func (s *otelStmt) NumInput() int {
	return s.stmt.NumInput()
}

// Exec implements driver.Stmt.
// Deprecated: Use ExecContext instead. This exists for driver.Stmt interface compatibility.
func (s *otelStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.stmt.Exec(args) //nolint:staticcheck // Required for driver.Stmt interface
}

// Query implements driver.Stmt.
// Deprecated: Use QueryContext instead. This exists for driver.Stmt interface compatibility.
func (s *otelStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.stmt.Query(args) //nolint:staticcheck // Required for driver.Stmt interface
}

func (s *otelStmt) call(site dbtrace.CallSite, typ string) dbtrace.Call {
	return dbtrace.Call{
		Site:      site,
		Statement: dbtrace.Statement{Handle: s},
		Options:   dbtrace.CallOptions{Type: typ},
		Prepared:  s,
	}
}

// ExecContext implements driver.StmtExecContext.
func (s *otelStmt) ExecContext(
	ctx context.Context,
	args []driver.NamedValue,
) (driver.Result, error) {
	return dbtrace.Do(ctx, s.ic, s.call(s.site, typeStmtExec),
		func(ctx context.Context) (driver.Result, error) {
			if execer, ok := s.stmt.(driver.StmtExecContext); ok {
				return execer.ExecContext(ctx, args)
			}
			// Fallback to non-context version
			return s.stmt.Exec(namedValueToValue(args)) //nolint:staticcheck // Fallback for older drivers
		},
	)
}

// QueryContext implements driver.StmtQueryContext.
func (s *otelStmt) QueryContext(
	ctx context.Context,
	args []driver.NamedValue,
) (driver.Rows, error) {
	return dbtrace.Do(ctx, s.ic, s.call(dbtrace.CallQuery, typeStmtQuery),
		func(ctx context.Context) (driver.Rows, error) {
			if queryer, ok := s.stmt.(driver.StmtQueryContext); ok {
				return queryer.QueryContext(ctx, args)
			}
			// Fallback to non-context version
			return s.stmt.Query(namedValueToValue(args)) //nolint:staticcheck // Fallback for older drivers
		},
	)
}

// namedValueToValue converts NamedValue slice to Value slice.
func namedValueToValue(named []driver.NamedValue) []driver.Value {
	values := make([]driver.Value, len(named))
	for i, nv := range named {
		values[i] = nv.Value
	}
	return values
}
