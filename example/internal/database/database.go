package database

import (
	"context"
	"database/sql"
	"slices"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/kroma-labs/sentinel-db/dbtrace"
	"github.com/kroma-labs/sentinel-db/example/internal/config"
	sentinelsql "github.com/kroma-labs/sentinel-db/sql"
	sentinelsqlx "github.com/kroma-labs/sentinel-db/sqlx"
)

// User represents a user in the database
type User struct {
	ID    int    `db:"id"`
	Name  string `db:"name"`
	Email string `db:"email"`
}

// DB holds the same database opened through both wrappers: SQL is the
// database/sql driver wrapper, X is the sqlx wrapper.
type DB struct {
	SQL *sql.DB
	X   *sentinelsqlx.DB

	log zerolog.Logger
}

// New opens instrumented connections. Pool metrics carry db.instance
// "primary" for the database/sql pool and "sqlx" for the sqlx pool.
func New(cfg config.Config, log zerolog.Logger) (*DB, error) {
	dbtrace.Warmup()

	opts := append(cfg.Telemetry.Options(), dbtrace.WithLogger(log))
	instance := func(name string) []dbtrace.Option {
		return append(slices.Clip(opts), dbtrace.WithInstanceName(name))
	}
	meter := otel.GetMeterProvider().Meter("example-app")

	sqlDB, err := sentinelsql.Open(config.DefaultDriver, cfg.DSN, instance("primary")...)
	if err != nil {
		return nil, err
	}
	configurePool(sqlDB)

	if err := sentinelsql.RecordPoolMetrics(sqlDB, meter); err != nil {
		log.Warn().Err(err).Msg("failed to register pool metrics")
	}

	xDB, err := sentinelsqlx.Open(config.DefaultDriver, cfg.DSN, instance("sqlx")...)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	configurePool(xDB.DB.DB)

	if err := sentinelsqlx.RecordPoolMetrics(xDB, meter); err != nil {
		log.Warn().Err(err).Msg("failed to register sqlx pool metrics")
	}

	return &DB{SQL: sqlDB, X: xDB, log: log}, nil
}

func configurePool(db *sql.DB) {
	db.SetMaxOpenConns(config.DefaultMaxOpen)
	db.SetMaxIdleConns(config.DefaultMaxIdle)
	db.SetConnMaxLifetime(time.Duration(config.DefaultMaxLifetime) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(config.DefaultMaxIdleTime) * time.Second)
}

// Ping verifies both connections.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.SQL.PingContext(ctx); err != nil {
		return err
	}
	return db.X.PingContext(ctx)
}

// Close closes both connections.
func (db *DB) Close() error {
	sqlErr := db.SQL.Close()
	if err := db.X.Close(); err != nil {
		return err
	}
	return sqlErr
}
