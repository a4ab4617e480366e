package sql

import (
	"context"
	"database/sql/driver"

	"github.com/kroma-labs/sentinel-db/dbtrace"
)

// Compile-time interface checks.
var (
	_ driver.Conn               = (*otelConn)(nil)
	_ driver.ConnPrepareContext = (*otelConn)(nil)
	_ driver.ConnBeginTx        = (*otelConn)(nil)
	_ driver.ExecerContext      = (*otelConn)(nil)
	_ driver.QueryerContext     = (*otelConn)(nil)
	_ driver.Pinger             = (*otelConn)(nil)
	_ driver.SessionResetter    = (*otelConn)(nil)
	_ driver.Validator          = (*otelConn)(nil)
	_ driver.NamedValueChecker  = (*otelConn)(nil)
)

// Call types used as span names when a statement yields none.
const (
	typeConnExec  = "sql.conn.exec"
	typeConnQuery = "sql.conn.query"
	typeStmtExec  = "sql.stmt.exec"
	typeStmtQuery = "sql.stmt.query"
	typeTxBegin   = "sql.tx.begin"
	typeTxCommit  = "sql.tx.commit"
	typeTxAbort   = "sql.tx.rollback"
)

// otelConn wraps a driver.Conn with OpenTelemetry instrumentation.
type otelConn struct {
	conn driver.Conn
	ic   *dbtrace.Interceptor
}

// newOtelConn creates a new instrumented connection.
func newOtelConn(conn driver.Conn, ic *dbtrace.Interceptor) *otelConn {
	return &otelConn{
		conn: conn,
		ic:   ic,
	}
}

// Prepare implements driver.Conn.
func (c *otelConn) Prepare(query string) (driver.Stmt, error) {
	stmt, err := c.conn.Prepare(query)
	if err != nil {
		return nil, err
	}
	return newOtelStmt(stmt, c.ic, query), nil
}

// Close implements driver.Conn.
func (c *otelConn) Close() error {
	return c.conn.Close()
}

// Begin implements driver.Conn.
// Deprecated: Use BeginTx instead. This exists for driver.Conn interface compatibility.
func (c *otelConn) Begin() (driver.Tx, error) {
	tx, err := c.conn.Begin() //nolint:staticcheck // Required for driver.Conn interface
	if err != nil {
		return nil, err
	}
	return newOtelTx(context.Background(), tx, c.ic), nil
}

// PrepareContext implements driver.ConnPrepareContext.
func (c *otelConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	var stmt driver.Stmt
	var err error

	if preparer, ok := c.conn.(driver.ConnPrepareContext); ok {
		stmt, err = preparer.PrepareContext(ctx, query)
	} else {
		stmt, err = c.conn.Prepare(query)
	}

	if err != nil {
		return nil, err
	}
	return newOtelStmt(stmt, c.ic, query), nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *otelConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	call := dbtrace.Call{
		Site:      dbtrace.CallExecute,
		Statement: dbtrace.Text("BEGIN"),
		Options:   dbtrace.CallOptions{Type: typeTxBegin},
	}

	tx, err := dbtrace.Do(ctx, c.ic, call, func(ctx context.Context) (driver.Tx, error) {
		if beginner, ok := c.conn.(driver.ConnBeginTx); ok {
			return beginner.BeginTx(ctx, opts)
		}
		return c.conn.Begin() //nolint:staticcheck // Fallback for older drivers
	})
	if err != nil {
		return nil, err
	}

	return newOtelTx(ctx, tx, c.ic), nil
}

// ExecContext implements driver.ExecerContext.
func (c *otelConn) ExecContext(
	ctx context.Context,
	query string,
	args []driver.NamedValue,
) (driver.Result, error) {
	execer, ok := c.conn.(driver.ExecerContext)
	if !ok {
		// Fallback: database/sql prepares and executes
		return nil, driver.ErrSkip
	}

	call := dbtrace.Call{
		Site:      dbtrace.SiteFor(dbtrace.Classify(query)),
		Statement: dbtrace.Text(query),
		Options:   dbtrace.CallOptions{Type: typeConnExec, MaySkip: true},
	}

	return dbtrace.Do(ctx, c.ic, call, func(ctx context.Context) (driver.Result, error) {
		return execer.ExecContext(ctx, query, args)
	})
}

// QueryContext implements driver.QueryerContext.
func (c *otelConn) QueryContext(
	ctx context.Context,
	query string,
	args []driver.NamedValue,
) (driver.Rows, error) {
	queryer, ok := c.conn.(driver.QueryerContext)
	if !ok {
		// Fallback: let database/sql handle it
		return nil, driver.ErrSkip
	}

	call := dbtrace.Call{
		Site:      dbtrace.CallQuery,
		Statement: dbtrace.Text(query),
		Options:   dbtrace.CallOptions{Type: typeConnQuery, MaySkip: true},
	}

	return dbtrace.Do(ctx, c.ic, call, func(ctx context.Context) (driver.Rows, error) {
		return queryer.QueryContext(ctx, query, args)
	})
}

// Ping implements driver.Pinger.
func (c *otelConn) Ping(ctx context.Context) error {
	pinger, ok := c.conn.(driver.Pinger)
	if !ok {
		return nil
	}

	return c.ic.Span(ctx, "PING", pinger.Ping)
}

// ResetSession implements driver.SessionResetter.
func (c *otelConn) ResetSession(ctx context.Context) error {
	if resetter, ok := c.conn.(driver.SessionResetter); ok {
		return resetter.ResetSession(ctx)
	}
	return nil
}

// IsValid implements driver.Validator.
func (c *otelConn) IsValid() bool {
	if validator, ok := c.conn.(driver.Validator); ok {
		return validator.IsValid()
	}
	return true
}

// CheckNamedValue implements driver.NamedValueChecker.
func (c *otelConn) CheckNamedValue(nv *driver.NamedValue) error {
	if checker, ok := c.conn.(driver.NamedValueChecker); ok {
		return checker.CheckNamedValue(nv)
	}
	return driver.ErrSkip
}
