package dbtrace

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables read by LoadConfig. They override file values.
const (
	EnvEnabled     = "SENTINEL_DB_ENABLED"
	EnvDBStatement = "SENTINEL_DB_STATEMENT"
	EnvPeerService = "SENTINEL_DB_PEER_SERVICE"
)

// FileConfig is the file/environment form of the instrumentation settings.
type FileConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DBStatement  Policy `yaml:"db_statement"`
	PeerService  string `yaml:"peer_service"`
	DBSystem     string `yaml:"db_system"`
	DBName       string `yaml:"db_name"`
	InstanceName string `yaml:"instance_name"`
}

// DefaultFileConfig returns the settings used when nothing is configured.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		Enabled:     true,
		DBStatement: PolicyInclude,
	}
}

// LoadConfig reads settings from a YAML file and applies environment
// overrides. A missing file (or empty path) yields the defaults.
//
// Example file:
//
//	enabled: true
//	db_statement: obfuscate
//	peer_service: orders-db
func LoadConfig(path string) (FileConfig, error) {
	cfg := DefaultFileConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			decoder := yaml.NewDecoder(bytes.NewReader(data))
			decoder.KnownFields(true)
			decodeErr := decoder.Decode(&cfg)
			if errors.Is(decodeErr, io.EOF) {
				decodeErr = nil
			}
			if decodeErr != nil {
				return FileConfig{}, fmt.Errorf("parse yaml %q: %w", path, decodeErr)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return FileConfig{}, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return FileConfig{}, err
	}

	if err := cfg.Validate(); err != nil {
		return FileConfig{}, err
	}

	return cfg, nil
}

// Validate reports settings that cannot be turned into options.
func (c FileConfig) Validate() error {
	switch c.DBStatement {
	case PolicyInclude, PolicyOmit, PolicyObfuscate:
		return nil
	default:
		return fmt.Errorf("db_statement: unknown policy %d", int(c.DBStatement))
	}
}

func applyEnv(cfg *FileConfig) error {
	if enabled := strings.TrimSpace(os.Getenv(EnvEnabled)); enabled != "" {
		parsed, err := strconv.ParseBool(enabled)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvEnabled, err)
		}
		cfg.Enabled = parsed
	}
	if statement := os.Getenv(EnvDBStatement); statement != "" {
		policy, err := ParsePolicy(statement)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvDBStatement, err)
		}
		cfg.DBStatement = policy
	}
	if peer := strings.TrimSpace(os.Getenv(EnvPeerService)); peer != "" {
		cfg.PeerService = peer
	}
	return nil
}

// Options converts the settings into instrumentation options.
func (c FileConfig) Options() []Option {
	opts := []Option{
		WithEnabled(c.Enabled),
		WithDBStatement(c.DBStatement),
	}
	if c.PeerService != "" {
		opts = append(opts, WithPeerService(c.PeerService))
	}
	if c.DBSystem != "" {
		opts = append(opts, WithDBSystem(c.DBSystem))
	}
	if c.DBName != "" {
		opts = append(opts, WithDBName(c.DBName))
	}
	if c.InstanceName != "" {
		opts = append(opts, WithInstanceName(c.InstanceName))
	}
	return opts
}
