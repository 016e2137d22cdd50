// Package config loads skillmesh settings from viper, merging defaults,
// the YAML config file, and SKILLMESH_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/skillmesh/skillmesh/pkg/embeddings"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config is the full runtime configuration.
type Config struct {
	Store     StoreConfig       `mapstructure:"store"`
	Embedding embeddings.Config `mapstructure:"embedding"`
	Graph     GraphConfig       `mapstructure:"graph"`
	Auth      AuthConfig        `mapstructure:"auth"`
	Log       LogConfig         `mapstructure:"log"`
	Tracing   TracingConfig     `mapstructure:"tracing"`
}

// StoreConfig selects and locates the node store backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	DBPath  string `mapstructure:"db_path"`
}

// GraphConfig tunes traversal and discovery.
type GraphConfig struct {
	MaxDepth            int           `mapstructure:"max_depth"`
	DefaultK            int           `mapstructure:"default_k"`
	CandidateMultiplier int           `mapstructure:"candidate_multiplier"`
	AccessCacheTTL      time.Duration `mapstructure:"access_cache_ttl"`
}

// AuthConfig holds token settings for the MCP server.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TracingConfig holds otel settings.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	SamplerType  string  `mapstructure:"sampler_type"`
	SamplerRatio float64 `mapstructure:"sampler_ratio"`
}

// SetDefaults registers defaults on the global viper instance. Called
// once from the CLI init before the config file is read.
func SetDefaults() {
	viper.SetDefault("store.backend", StoreSQLite)
	viper.SetDefault("store.db_path", defaultDBPath())
	viper.SetDefault("embedding.provider", "local")
	viper.SetDefault("embedding.dimensions", 0)
	viper.SetDefault("graph.max_depth", 32)
	viper.SetDefault("graph.default_k", 3)
	viper.SetDefault("graph.candidate_multiplier", 10)
	viper.SetDefault("graph.access_cache_ttl", time.Duration(0))
	viper.SetDefault("auth.token_ttl", 24*time.Hour)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "fmt")
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.sampler_type", "always")
	viper.SetDefault("tracing.sampler_ratio", 0.1)
}

// FromViper unmarshals the merged configuration and validates it.
func FromViper() (Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to unmarshal configuration")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case StoreSQLite, StoreMemory:
	default:
		return errors.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == StoreSQLite && c.Store.DBPath == "" {
		return errors.New("store.db_path is required for the sqlite backend")
	}
	if c.Graph.MaxDepth < 1 {
		return errors.New("graph.max_depth must be at least 1")
	}
	if c.Graph.DefaultK < 1 {
		return errors.New("graph.default_k must be at least 1")
	}
	if c.Graph.CandidateMultiplier < 1 {
		return errors.New("graph.candidate_multiplier must be at least 1")
	}
	return nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "skillmesh.db"
	}
	return filepath.Join(home, ".skillmesh", "skillmesh.db")
}
