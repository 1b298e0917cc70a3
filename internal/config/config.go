// Package config loads process configuration from FORGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"tokenforge/internal/pda"
)

// Store kinds accepted by FORGE_STORE.
//
// Memory and postgres reject a unit of work that races another writer on the
// same account with storage.ErrConflict. Bolt has a single writer, so
// concurrent units queue behind each other and never see a conflict.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreBolt     = "bolt"
)

// Config is the configuration shared by the forge commands.
type Config struct {
	ProgramID pda.Pubkey `env:"FORGE_PROGRAM_ID"`

	Store       string `env:"FORGE_STORE"        envDefault:"memory"`
	PostgresDSN string `env:"FORGE_POSTGRES_DSN"`
	BoltPath    string `env:"FORGE_BOLT_PATH"    envDefault:"forge.db"`

	// ClickhouseDSN enables the analytics event sink when set.
	ClickhouseDSN string `env:"FORGE_CLICKHOUSE_DSN"`

	HTTPAddr        string        `env:"FORGE_HTTP_ADDR"        envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"FORGE_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	Faucet          bool          `env:"FORGE_FAUCET"`

	RPCEndpoint string `env:"FORGE_RPC_ENDPOINT" envDefault:"https://api.devnet.solana.com"`
}

// Load reads envFile (if it exists) into the process environment without
// overriding variables that are already set, then parses Config.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := LoadEnvFile(envFile); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ProgramID.IsZero() {
		cfg.ProgramID = pda.DefaultForgeProgramID
	}
	return cfg, cfg.Validate()
}

// Validate checks that the selected store has what it needs.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return errors.New("FORGE_POSTGRES_DSN is required for the postgres store")
		}
	case StoreBolt:
		if c.BoltPath == "" {
			return errors.New("FORGE_BOLT_PATH is required for the bolt store")
		}
	default:
		return fmt.Errorf("unknown FORGE_STORE %q (want memory, postgres or bolt)", c.Store)
	}
	if c.HTTPAddr == "" {
		return errors.New("FORGE_HTTP_ADDR must not be empty")
	}
	return nil
}

// LoadEnvFile loads KEY=VALUE lines from path into the environment.
// A missing file is not an error. Existing variables are not overridden.
func LoadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"`)

		// Don't override existing env vars
		if _, set := os.LookupEnv(key); !set {
			os.Setenv(key, value)
		}
	}
	return nil
}
