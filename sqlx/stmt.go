package sqlx

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/kroma-labs/sentinel-db/dbtrace"
)

// Compile-time interface checks.
var (
	_ dbtrace.PreparedSource = (*Stmt)(nil)
	_ dbtrace.PreparedSource = (*NamedStmt)(nil)
)

// Stmt wraps *sqlx.Stmt with OpenTelemetry instrumentation.
// Calls are traced with the text the statement was prepared with.
type Stmt struct {
	*sqlx.Stmt
	ic    *dbtrace.Interceptor
	query string
	site  dbtrace.CallSite
}

func newStmt(stmt *sqlx.Stmt, ic *dbtrace.Interceptor, query string) *Stmt {
	return &Stmt{
		Stmt:  stmt,
		ic:    ic,
		query: query,
		site:  dbtrace.SiteFor(dbtrace.Classify(query)),
	}
}

// PreparedSQL implements dbtrace.PreparedSource.
func (s *Stmt) PreparedSQL() (string, bool) {
	return s.query, s.query != ""
}

// PreparedStatementName implements dbtrace.PreparedSource. sqlx statements
// are unnamed.
func (s *Stmt) PreparedStatementName() string {
	return ""
}

// GetContext executes the prepared statement for a single row.
func (s *Stmt) GetContext(ctx context.Context, dest interface{}, args ...interface{}) error {
	return s.ic.Intercept(ctx, preparedCall(dbtrace.CallQuery, "sqlx.Stmt.Get", s),
		func(ctx context.Context) error {
			return s.Stmt.GetContext(ctx, dest, args...)
		},
	)
}

// SelectContext executes the prepared statement and scans results into dest.
func (s *Stmt) SelectContext(ctx context.Context, dest interface{}, args ...interface{}) error {
	return s.ic.Intercept(ctx, preparedCall(dbtrace.CallQuery, "sqlx.Stmt.Select", s),
		func(ctx context.Context) error {
			return s.Stmt.SelectContext(ctx, dest, args...)
		},
	)
}

// ExecContext executes the prepared statement.
func (s *Stmt) ExecContext(ctx context.Context, args ...interface{}) (sql.Result, error) {
	return dbtrace.Do(ctx, s.ic, preparedCall(s.site, "sqlx.Stmt.Exec", s),
		func(ctx context.Context) (sql.Result, error) {
			return s.Stmt.ExecContext(ctx, args...)
		},
	)
}

// QueryContext executes the prepared statement and returns rows.
func (s *Stmt) QueryContext(ctx context.Context, args ...interface{}) (*sql.Rows, error) {
	return dbtrace.Do(ctx, s.ic, preparedCall(dbtrace.CallQuery, "sqlx.Stmt.Query", s),
		func(ctx context.Context) (*sql.Rows, error) {
			return s.Stmt.QueryContext(ctx, args...)
		},
	)
}

// QueryRowContext executes the prepared statement and returns a single row.
func (s *Stmt) QueryRowContext(ctx context.Context, args ...interface{}) *sql.Row {
	row, _ := dbtrace.Do(ctx, s.ic, preparedCall(dbtrace.CallQuery, "sqlx.Stmt.QueryRow", s),
		func(ctx context.Context) (*sql.Row, error) {
			row := s.Stmt.QueryRowContext(ctx, args...)
			return row, row.Err()
		},
	)
	return row
}

// QueryxContext executes the prepared statement and returns sqlx.Rows.
func (s *Stmt) QueryxContext(ctx context.Context, args ...interface{}) (*sqlx.Rows, error) {
	return dbtrace.Do(ctx, s.ic, preparedCall(dbtrace.CallQuery, "sqlx.Stmt.Queryx", s),
		func(ctx context.Context) (*sqlx.Rows, error) {
			return s.Stmt.QueryxContext(ctx, args...)
		},
	)
}

// QueryRowxContext executes the prepared statement and returns sqlx.Row.
func (s *Stmt) QueryRowxContext(ctx context.Context, args ...interface{}) *sqlx.Row {
	row, _ := dbtrace.Do(ctx, s.ic, preparedCall(dbtrace.CallQuery, "sqlx.Stmt.QueryRowx", s),
		func(ctx context.Context) (*sqlx.Row, error) {
			row := s.Stmt.QueryRowxContext(ctx, args...)
			return row, row.Err()
		},
	)
	return row
}

// Unsafe returns a version of Stmt that silently ignores missing destination fields.
func (s *Stmt) Unsafe() *Stmt {
	return newStmt(s.Stmt.Unsafe(), s.ic, s.query)
}

// NamedStmt wraps *sqlx.NamedStmt with OpenTelemetry instrumentation.
// Calls are traced with the bound query sent to the database.
type NamedStmt struct {
	*sqlx.NamedStmt
	ic    *dbtrace.Interceptor
	query string
	site  dbtrace.CallSite
}

func newNamedStmt(stmt *sqlx.NamedStmt, ic *dbtrace.Interceptor, query string) *NamedStmt {
	return &NamedStmt{
		NamedStmt: stmt,
		ic:        ic,
		query:     query,
		site:      dbtrace.SiteFor(dbtrace.Classify(query)),
	}
}

// PreparedSQL implements dbtrace.PreparedSource. It prefers the bound
// query (named parameters rewritten to bindvars) over the named form.
func (ns *NamedStmt) PreparedSQL() (string, bool) {
	if ns.NamedStmt != nil && ns.NamedStmt.QueryString != "" {
		return ns.NamedStmt.QueryString, true
	}
	return ns.query, ns.query != ""
}

// PreparedStatementName implements dbtrace.PreparedSource.
func (ns *NamedStmt) PreparedStatementName() string {
	return ""
}

// GetContext executes the named statement for a single row.
func (ns *NamedStmt) GetContext(ctx context.Context, dest interface{}, arg interface{}) error {
	return ns.ic.Intercept(ctx, preparedCall(dbtrace.CallQuery, "sqlx.NamedStmt.Get", ns),
		func(ctx context.Context) error {
			return ns.NamedStmt.GetContext(ctx, dest, arg)
		},
	)
}

// SelectContext executes the named statement and scans results into dest.
func (ns *NamedStmt) SelectContext(ctx context.Context, dest interface{}, arg interface{}) error {
	return ns.ic.Intercept(ctx, preparedCall(dbtrace.CallQuery, "sqlx.NamedStmt.Select", ns),
		func(ctx context.Context) error {
			return ns.NamedStmt.SelectContext(ctx, dest, arg)
		},
	)
}

// ExecContext executes the named statement.
func (ns *NamedStmt) ExecContext(ctx context.Context, arg interface{}) (sql.Result, error) {
	return dbtrace.Do(ctx, ns.ic, preparedCall(ns.site, "sqlx.NamedStmt.Exec", ns),
		func(ctx context.Context) (sql.Result, error) {
			return ns.NamedStmt.ExecContext(ctx, arg)
		},
	)
}

// QueryContext executes the named statement and returns rows.
func (ns *NamedStmt) QueryContext(ctx context.Context, arg interface{}) (*sql.Rows, error) {
	return dbtrace.Do(ctx, ns.ic, preparedCall(dbtrace.CallQuery, "sqlx.NamedStmt.Query", ns),
		func(ctx context.Context) (*sql.Rows, error) {
			return ns.NamedStmt.QueryContext(ctx, arg)
		},
	)
}

// QueryRowContext executes the named statement and returns a single row.
func (ns *NamedStmt) QueryRowContext(ctx context.Context, arg interface{}) *sqlx.Row {
	row, _ := dbtrace.Do(ctx, ns.ic, preparedCall(dbtrace.CallQuery, "sqlx.NamedStmt.QueryRow", ns),
		func(ctx context.Context) (*sqlx.Row, error) {
			row := ns.NamedStmt.QueryRowContext(ctx, arg)
			return row, row.Err()
		},
	)
	return row
}

// QueryxContext executes the named statement and returns sqlx.Rows.
func (ns *NamedStmt) QueryxContext(ctx context.Context, arg interface{}) (*sqlx.Rows, error) {
	return dbtrace.Do(ctx, ns.ic, preparedCall(dbtrace.CallQuery, "sqlx.NamedStmt.Queryx", ns),
		func(ctx context.Context) (*sqlx.Rows, error) {
			return ns.NamedStmt.QueryxContext(ctx, arg)
		},
	)
}

// QueryRowxContext executes the named statement and returns sqlx.Row.
func (ns *NamedStmt) QueryRowxContext(ctx context.Context, arg interface{}) *sqlx.Row {
	row, _ := dbtrace.Do(ctx, ns.ic, preparedCall(dbtrace.CallQuery, "sqlx.NamedStmt.QueryRowx", ns),
		func(ctx context.Context) (*sqlx.Row, error) {
			row := ns.NamedStmt.QueryRowxContext(ctx, arg)
			return row, row.Err()
		},
	)
	return row
}

// MustExecContext executes the named statement and panics on error.
func (ns *NamedStmt) MustExecContext(ctx context.Context, arg interface{}) sql.Result {
	result, err := ns.ExecContext(ctx, arg)
	if err != nil {
		panic(err)
	}
	return result
}

// Unsafe returns a version of NamedStmt that silently ignores missing fields.
func (ns *NamedStmt) Unsafe() *NamedStmt {
	return newNamedStmt(ns.NamedStmt.Unsafe(), ns.ic, ns.query)
}

// Close closes the named statement.
func (ns *NamedStmt) Close() error {
	return ns.NamedStmt.Close()
}
