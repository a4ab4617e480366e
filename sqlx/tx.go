package sqlx

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/kroma-labs/sentinel-db/dbtrace"
)

// Tx wraps *sqlx.Tx with OpenTelemetry instrumentation.
type Tx struct {
	*sqlx.Tx
	ic *dbtrace.Interceptor

	// ctx is the context the transaction was started with; Commit and
	// Rollback spans parent to it.
	ctx context.Context
}

// GetContext executes a query that returns at most one row and scans into dest.
func (tx *Tx) GetContext(
	ctx context.Context,
	dest interface{},
	query string,
	args ...interface{},
) error {
	return tx.ic.Intercept(ctx, queryCall("sqlx.Tx.Get", query), func(ctx context.Context) error {
		return tx.Tx.GetContext(ctx, dest, query, args...)
	})
}

// SelectContext executes a query and scans all results into dest.
func (tx *Tx) SelectContext(
	ctx context.Context,
	dest interface{},
	query string,
	args ...interface{},
) error {
	return tx.ic.Intercept(ctx, queryCall("sqlx.Tx.Select", query), func(ctx context.Context) error {
		return tx.Tx.SelectContext(ctx, dest, query, args...)
	})
}

// NamedExecContext executes a named query within the transaction.
func (tx *Tx) NamedExecContext(
	ctx context.Context,
	query string,
	arg interface{},
) (sql.Result, error) {
	return dbtrace.Do(ctx, tx.ic, execCall("sqlx.Tx.NamedExec", query),
		func(ctx context.Context) (sql.Result, error) {
			return tx.Tx.NamedExecContext(ctx, query, arg)
		},
	)
}

// NamedQuery executes a named query within the transaction.
func (tx *Tx) NamedQuery(query string, arg interface{}) (*sqlx.Rows, error) {
	return dbtrace.Do(tx.ctx, tx.ic, queryCall("sqlx.Tx.NamedQuery", query),
		func(context.Context) (*sqlx.Rows, error) {
			return tx.Tx.NamedQuery(query, arg)
		},
	)
}

// QueryxContext executes a query and returns sqlx.Rows.
func (tx *Tx) QueryxContext(
	ctx context.Context,
	query string,
	args ...interface{},
) (*sqlx.Rows, error) {
	return dbtrace.Do(ctx, tx.ic, queryCall("sqlx.Tx.Queryx", query),
		func(ctx context.Context) (*sqlx.Rows, error) {
			return tx.Tx.QueryxContext(ctx, query, args...)
		},
	)
}

// QueryRowxContext executes a query and returns a single sqlx.Row.
func (tx *Tx) QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	row, _ := dbtrace.Do(ctx, tx.ic, queryCall("sqlx.Tx.QueryRowx", query),
		func(ctx context.Context) (*sqlx.Row, error) {
			row := tx.Tx.QueryRowxContext(ctx, query, args...)
			return row, row.Err()
		},
	)
	return row
}

// ExecContext executes a query without returning rows.
func (tx *Tx) ExecContext(
	ctx context.Context,
	query string,
	args ...interface{},
) (sql.Result, error) {
	return dbtrace.Do(ctx, tx.ic, execCall("sqlx.Tx.Exec", query),
		func(ctx context.Context) (sql.Result, error) {
			return tx.Tx.ExecContext(ctx, query, args...)
		},
	)
}

// QueryContext executes a query and returns rows.
func (tx *Tx) QueryContext(
	ctx context.Context,
	query string,
	args ...interface{},
) (*sql.Rows, error) {
	return dbtrace.Do(ctx, tx.ic, queryCall("sqlx.Tx.Query", query),
		func(ctx context.Context) (*sql.Rows, error) {
			return tx.Tx.QueryContext(ctx, query, args...)
		},
	)
}

// QueryRowContext executes a query and returns a single row.
func (tx *Tx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	row, _ := dbtrace.Do(ctx, tx.ic, queryCall("sqlx.Tx.QueryRow", query),
		func(ctx context.Context) (*sql.Row, error) {
			row := tx.Tx.QueryRowContext(ctx, query, args...)
			return row, row.Err()
		},
	)
	return row
}

// PrepareNamedContext prepares a named statement within the transaction.
func (tx *Tx) PrepareNamedContext(ctx context.Context, query string) (*NamedStmt, error) {
	var stmt *sqlx.NamedStmt
	err := tx.ic.Span(ctx, "sqlx.Tx.PrepareNamed", func(ctx context.Context) error {
		var err error
		stmt, err = tx.Tx.PrepareNamedContext(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}

	return newNamedStmt(stmt, tx.ic, query), nil
}

// PrepareNamed prepares a named statement within the transaction.
func (tx *Tx) PrepareNamed(query string) (*NamedStmt, error) {
	return tx.PrepareNamedContext(tx.ctx, query)
}

// PreparexContext prepares a statement within the transaction.
func (tx *Tx) PreparexContext(ctx context.Context, query string) (*Stmt, error) {
	var stmt *sqlx.Stmt
	err := tx.ic.Span(ctx, "sqlx.Tx.Preparex", func(ctx context.Context) error {
		var err error
		stmt, err = tx.Tx.PreparexContext(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}

	return newStmt(stmt, tx.ic, query), nil
}

// Preparex prepares a statement within the transaction.
func (tx *Tx) Preparex(query string) (*Stmt, error) {
	return tx.PreparexContext(tx.ctx, query)
}

// StmtxContext returns a version of the prepared statement bound to this transaction.
func (tx *Tx) StmtxContext(ctx context.Context, stmt *Stmt) *Stmt {
	return newStmt(tx.Tx.StmtxContext(ctx, stmt.Stmt), tx.ic, stmt.query)
}

// Stmtx returns a version of the prepared statement bound to this transaction.
func (tx *Tx) Stmtx(stmt *Stmt) *Stmt {
	return tx.StmtxContext(tx.ctx, stmt)
}

// NamedStmtContext returns a version of the named statement bound to this transaction.
func (tx *Tx) NamedStmtContext(ctx context.Context, stmt *NamedStmt) *NamedStmt {
	return newNamedStmt(tx.Tx.NamedStmtContext(ctx, stmt.NamedStmt), tx.ic, stmt.query)
}

// NamedStmt returns a version of the named statement bound to this transaction.
func (tx *Tx) NamedStmt(stmt *NamedStmt) *NamedStmt {
	return tx.NamedStmtContext(tx.ctx, stmt)
}

// Commit commits the transaction.
func (tx *Tx) Commit() error {
	return tx.ic.Intercept(tx.ctx, execCall("sqlx.Tx.Commit", "COMMIT"), func(context.Context) error {
		return tx.Tx.Commit()
	})
}

// Rollback aborts the transaction.
func (tx *Tx) Rollback() error {
	return tx.ic.Intercept(tx.ctx, execCall("sqlx.Tx.Rollback", "ROLLBACK"), func(context.Context) error {
		return tx.Tx.Rollback()
	})
}

// Unsafe returns a version of Tx that silently ignores missing destination fields.
func (tx *Tx) Unsafe() *Tx {
	return &Tx{
		Tx:  tx.Tx.Unsafe(),
		ic:  tx.ic,
		ctx: tx.ctx,
	}
}
