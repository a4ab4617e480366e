package cmd

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Version info (set at build time)
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"

	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "sentinel-db",
	Short: "sentinel-db - SQL span telemetry inspector",
	Long: `sentinel-db runs the sentinel-db telemetry pipeline offline.

It shows the span name and attributes a statement would be traced with,
using the same classification, obfuscation and connection resolution as
the instrumented sql and sqlx wrappers.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(cmd.ErrOrStderr(), debug)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); SENTINEL_DB_* variables override it")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// newLogger writes human-readable logs to w.
func newLogger(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	if w == nil {
		w = os.Stderr
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
