package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/kroma-labs/sentinel-db/example/internal/config"
	"github.com/kroma-labs/sentinel-db/example/internal/database"
	"github.com/kroma-labs/sentinel-db/example/internal/telemetry"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	providers, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up telemetry")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("telemetry shutdown error")
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", providers.Metrics)
	metricsServer := &http.Server{Addr: config.MetricsPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", config.MetricsPort).Msg("starting Prometheus metrics server")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("metrics server failed")
		}
	}()

	db, err := database.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("database not reachable")
	}
	if err := db.CreateTable(ctx); err != nil {
		log.Error().Err(err).Msg("failed to create table")
	}

	tracer := providers.Tracer.Tracer("example-app")
	ticker := time.NewTicker(time.Duration(config.OperationInterval) * time.Second)
	defer ticker.Stop()

	log.Info().
		Str("db_statement", cfg.Telemetry.DBStatement.String()).
		Msg("example app started, press Ctrl+C to stop")

	for {
		select {
		case <-ticker.C:
			runOperations(ctx, tracer, db, log)

		case <-ctx.Done():
			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("metrics server shutdown error")
			}
			return
		}
	}
}

var seedUsers = []database.User{
	{Name: "Alice", Email: "alice@example.com"},
	{Name: "Bob", Email: "bob@example.com"},
	{Name: "Charlie", Email: "charlie@example.com"},
}

func runOperations(ctx context.Context, tracer trace.Tracer, db *database.DB, log zerolog.Logger) {
	ctx, span := tracer.Start(ctx, "db-operations")
	defer span.End()

	if err := db.SeedUsers(ctx, seedUsers); err != nil {
		log.Error().Err(err).Msg("failed to seed users")
	}

	users, err := db.ActiveUsers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list active users")
	}

	if u, err := db.UserByName(ctx, "Alice"); err != nil {
		log.Error().Err(err).Msg("failed to look up user")
	} else {
		log.Info().Int("id", u.ID).Str("email", u.Email).Msg("looked up user")
	}

	if err := db.RenameUser(ctx, "Charlie", "Charles"); err != nil {
		log.Error().Err(err).Msg("failed to rename user")
	}
	if err := db.Deactivate(ctx, "bob@example.com"); err != nil {
		log.Error().Err(err).Msg("failed to deactivate user")
	}

	log.Info().Int("active_users", len(users)).Msg("database operations completed")
}
