package sqlx

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/kroma-labs/sentinel-db/dbtrace"
)

// Option configures the instrumentation. See the dbtrace With* functions.
type Option = dbtrace.Option

// DB wraps *sqlx.DB with OpenTelemetry instrumentation.
// It provides instrumented versions of all sqlx-specific methods
// like Get, Select, NamedExec, and NamedQuery.
type DB struct {
	*sqlx.DB
	ic *dbtrace.Interceptor
}

// Open opens a database connection with OpenTelemetry instrumentation.
// It returns a *DB that wraps *sqlx.DB with automatic tracing and metrics.
// The connection context is parsed from dsn; options override it.
//
// Example:
//
//	db, err := sentinelsqlx.Open("postgres", dsn,
//	    dbtrace.WithDBStatement(dbtrace.PolicyObfuscate),
//	)
func Open(driverName, dsn string, opts ...Option) (*DB, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	return &DB{DB: db, ic: dbtrace.NewForDSN(driverName, dsn, opts...)}, nil
}

// Connect opens and verifies a database connection.
// It is equivalent to Open followed by Ping.
//
// Example:
//
//	db, err := sentinelsqlx.Connect(ctx, "postgres", dsn,
//	    dbtrace.WithInstanceName("primary"),
//	)
func Connect(ctx context.Context, driverName, dsn string, opts ...Option) (*DB, error) {
	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, err
	}

	return &DB{DB: db, ic: dbtrace.NewForDSN(driverName, dsn, opts...)}, nil
}

// NewDB wraps an existing *sql.DB with sqlx and instrumentation.
// Without a DSN, db.system is derived from driverName unless
// dbtrace.WithDBSystem or dbtrace.WithConnInfo say otherwise.
//
// Example:
//
//	sqlDB, _ := sql.Open("postgres", dsn)
//	db := sentinelsqlx.NewDB(sqlDB, "postgres",
//	    dbtrace.WithDBName("orders"),
//	)
func NewDB(db *sql.DB, driverName string, opts ...Option) *DB {
	opts = append([]Option{dbtrace.WithDBSystem(driverName)}, opts...)
	return &DB{
		DB: sqlx.NewDb(db, driverName),
		ic: dbtrace.New(opts...),
	}
}

// MustConnect is like Connect but panics on error.
func MustConnect(ctx context.Context, driverName, dsn string, opts ...Option) *DB {
	db, err := Connect(ctx, driverName, dsn, opts...)
	if err != nil {
		panic(err)
	}
	return db
}

// MustOpen is like Open but panics on error.
func MustOpen(driverName, dsn string, opts ...Option) *DB {
	db, err := Open(driverName, dsn, opts...)
	if err != nil {
		panic(err)
	}
	return db
}

// Interceptor returns the interceptor tracing this DB's calls.
func (db *DB) Interceptor() *dbtrace.Interceptor {
	return db.ic
}

// GetContext executes a query that is expected to return at most one row
// and scans the result into dest.
func (db *DB) GetContext(
	ctx context.Context,
	dest interface{},
	query string,
	args ...interface{},
) error {
	return db.ic.Intercept(ctx, queryCall("sqlx.Get", query), func(ctx context.Context) error {
		return db.DB.GetContext(ctx, dest, query, args...)
	})
}

// SelectContext executes a query and scans all results into dest.
func (db *DB) SelectContext(
	ctx context.Context,
	dest interface{},
	query string,
	args ...interface{},
) error {
	return db.ic.Intercept(ctx, queryCall("sqlx.Select", query), func(ctx context.Context) error {
		return db.DB.SelectContext(ctx, dest, query, args...)
	})
}

// NamedExecContext executes a named query.
func (db *DB) NamedExecContext(
	ctx context.Context,
	query string,
	arg interface{},
) (sql.Result, error) {
	return dbtrace.Do(ctx, db.ic, execCall("sqlx.NamedExec", query),
		func(ctx context.Context) (sql.Result, error) {
			return db.DB.NamedExecContext(ctx, query, arg)
		},
	)
}

// NamedQueryContext executes a named query and returns rows.
func (db *DB) NamedQueryContext(
	ctx context.Context,
	query string,
	arg interface{},
) (*sqlx.Rows, error) {
	return dbtrace.Do(ctx, db.ic, queryCall("sqlx.NamedQuery", query),
		func(ctx context.Context) (*sqlx.Rows, error) {
			return db.DB.NamedQueryContext(ctx, query, arg)
		},
	)
}

// QueryxContext executes a query and returns sqlx.Rows.
func (db *DB) QueryxContext(
	ctx context.Context,
	query string,
	args ...interface{},
) (*sqlx.Rows, error) {
	return dbtrace.Do(ctx, db.ic, queryCall("sqlx.Queryx", query),
		func(ctx context.Context) (*sqlx.Rows, error) {
			return db.DB.QueryxContext(ctx, query, args...)
		},
	)
}

// QueryRowxContext executes a query and returns a single sqlx.Row.
// The span carries the row's deferred error, if any.
func (db *DB) QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	row, _ := dbtrace.Do(ctx, db.ic, queryCall("sqlx.QueryRowx", query),
		func(ctx context.Context) (*sqlx.Row, error) {
			row := db.DB.QueryRowxContext(ctx, query, args...)
			return row, row.Err()
		},
	)
	return row
}

// BeginTxx starts an instrumented transaction.
func (db *DB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	tx, err := dbtrace.Do(ctx, db.ic, execCall("sqlx.BeginTxx", "BEGIN"),
		func(ctx context.Context) (*sqlx.Tx, error) {
			return db.DB.BeginTxx(ctx, opts)
		},
	)
	if err != nil {
		return nil, err
	}

	return &Tx{Tx: tx, ic: db.ic, ctx: ctx}, nil
}

// Beginx starts an instrumented transaction with default options.
func (db *DB) Beginx() (*Tx, error) {
	return db.BeginTxx(context.Background(), nil)
}

// MustBeginTx starts a transaction and panics on error.
func (db *DB) MustBeginTx(ctx context.Context, opts *sql.TxOptions) *Tx {
	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		panic(err)
	}
	return tx
}

// MustBegin starts a transaction and panics on error.
func (db *DB) MustBegin() *Tx {
	return db.MustBeginTx(context.Background(), nil)
}

// PrepareNamedContext prepares an instrumented named statement.
func (db *DB) PrepareNamedContext(ctx context.Context, query string) (*NamedStmt, error) {
	var stmt *sqlx.NamedStmt
	err := db.ic.Span(ctx, "sqlx.PrepareNamed", func(ctx context.Context) error {
		var err error
		stmt, err = db.DB.PrepareNamedContext(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}

	return newNamedStmt(stmt, db.ic, query), nil
}

// PrepareNamed prepares a named statement without context.
func (db *DB) PrepareNamed(query string) (*NamedStmt, error) {
	return db.PrepareNamedContext(context.Background(), query)
}

// PreparexContext prepares an instrumented statement.
func (db *DB) PreparexContext(ctx context.Context, query string) (*Stmt, error) {
	var stmt *sqlx.Stmt
	err := db.ic.Span(ctx, "sqlx.Preparex", func(ctx context.Context) error {
		var err error
		stmt, err = db.DB.PreparexContext(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}

	return newStmt(stmt, db.ic, query), nil
}

// Preparex prepares a statement without context.
func (db *DB) Preparex(query string) (*Stmt, error) {
	return db.PreparexContext(context.Background(), query)
}

// Unsafe returns a version of DB that silently ignores missing destination fields.
func (db *DB) Unsafe() *DB {
	return &DB{
		DB: db.DB.Unsafe(),
		ic: db.ic,
	}
}

// PingContext verifies the database connection.
func (db *DB) PingContext(ctx context.Context) error {
	return db.ic.Span(ctx, "PING", db.DB.PingContext)
}

// ExecContext executes a query without returning rows.
func (db *DB) ExecContext(
	ctx context.Context,
	query string,
	args ...interface{},
) (sql.Result, error) {
	return dbtrace.Do(ctx, db.ic, execCall("sqlx.Exec", query),
		func(ctx context.Context) (sql.Result, error) {
			return db.DB.ExecContext(ctx, query, args...)
		},
	)
}

// QueryContext executes a query and returns rows.
func (db *DB) QueryContext(
	ctx context.Context,
	query string,
	args ...interface{},
) (*sql.Rows, error) {
	return dbtrace.Do(ctx, db.ic, queryCall("sqlx.Query", query),
		func(ctx context.Context) (*sql.Rows, error) {
			return db.DB.QueryContext(ctx, query, args...)
		},
	)
}

// QueryRowContext executes a query and returns a single row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	row, _ := dbtrace.Do(ctx, db.ic, queryCall("sqlx.QueryRow", query),
		func(ctx context.Context) (*sql.Row, error) {
			row := db.DB.QueryRowContext(ctx, query, args...)
			return row, row.Err()
		},
	)
	return row
}
