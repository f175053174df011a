// Package config loads the YAML configuration files this engine runs
// against: server/database/cache connection settings, the broker config
// (merged onto domain.DefaultBrokerConfig()), and the strategy spec a run
// is given. Each file loads independently, mirroring the
// teacher's one-function-per-concern config layer (guards.yaml,
// providers.yaml each get their own loader).
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/backtestlab/internal/domain"
)

// ServerConfig configures the HTTP API surface (internal/api).
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the Postgres artifact repository.
type DatabaseConfig struct {
	DSN            string        `yaml:"dsn"`
	QueryTimeout   time.Duration `yaml:"query_timeout"`
	MaxOpenConns   int           `yaml:"max_open_conns"`
	MaxIdleConns   int           `yaml:"max_idle_conns"`
}

// CacheConfig configures the Redis series cache.
type CacheConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// OptimizerConfig configures the grid-search worker pool (internal/optimize).
type OptimizerConfig struct {
	PoolSize      int `yaml:"pool_size"`
	RateLimitBurst int `yaml:"rate_limit_burst"`
}

// EngineConfig is the top-level application config: server, database,
// cache, and optimizer settings. A zero-value EngineConfig is not usable —
// load it via LoadEngineConfig or start from Default().
type EngineConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
}

// Default returns a conservative EngineConfig suitable for local development.
func Default() EngineConfig {
	return EngineConfig{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:          "postgres://localhost:5432/backtestlab?sslmode=disable",
			QueryTimeout: 5 * time.Second,
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Cache: CacheConfig{
			Addr: "localhost:6379",
			DB:   0,
			TTL:  time.Hour,
		},
		Optimizer: OptimizerConfig{
			PoolSize:       0, // 0 means min(NumCPU, 8)
			RateLimitBurst: 8,
		},
	}
}

// LoadEngineConfig loads an EngineConfig from configPath, falling back to
// Default() for any section the file omits.
func LoadEngineConfig(configPath string) (*EngineConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read engine config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse engine config: %w", err)
	}
	return &cfg, nil
}

// LoadStrategySpec loads a domain.StrategySpec from a YAML file, the
// standard way a backtest or optimize run is given its parameters outside
// of the optimizer's own grid search.
func LoadStrategySpec(specPath string) (*domain.StrategySpec, error) {
	data, err := os.ReadFile(specPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy spec: %w", err)
	}

	var spec domain.StrategySpec
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("failed to parse strategy spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid strategy spec %s: %w", specPath, err)
	}
	return &spec, nil
}

// LoadBrokerConfig loads a domain.BrokerConfig from a YAML file, falling
// back to domain.DefaultBrokerConfig() for any field the file omits by
// unmarshaling on top of the defaults rather than a zero value.
func LoadBrokerConfig(configPath string) (*domain.BrokerConfig, error) {
	cfg := domain.DefaultBrokerConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read broker config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse broker config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid broker config %s: %w", configPath, err)
	}
	return &cfg, nil
}
