// Package config loads the lab configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"strategy-lab/internal/domain"
)

// Storage backends for records.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Environment variables that override file values.
const (
	EnvPostgresDSN   = "LAB_POSTGRES_DSN"
	EnvRedisAddr     = "LAB_REDIS_ADDR"
	EnvClickhouseDSN = "LAB_CLICKHOUSE_DSN"
)

// Config is the top-level lab configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Storage    StorageConfig    `yaml:"storage"`
	MarketData MarketDataConfig `yaml:"marketData"`
	Backtest   BacktestConfig   `yaml:"backtest"`
	Optimizer  OptimizerConfig  `yaml:"optimizer"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// LogConfig controls the zerolog logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Pretty bool   `yaml:"pretty"` // console writer instead of JSON
}

// StorageConfig selects where records and bars live.
type StorageConfig struct {
	Backend        string `yaml:"backend"` // memory|redis|postgres
	RedisAddr      string `yaml:"redisAddr"`
	RedisPassword  string `yaml:"redisPassword"`
	RedisDB        int    `yaml:"redisDB"`
	RedisNamespace string `yaml:"redisNamespace"`
	PostgresDSN    string `yaml:"postgresDSN"`
	ClickhouseDSN  string `yaml:"clickhouseDSN"` // bars; in-memory when empty
}

// MarketDataConfig throttles bar store reads.
type MarketDataConfig struct {
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Burst             int           `yaml:"burst"`
	BreakerFailures   uint32        `yaml:"breakerFailures"`
	BreakerTimeout    time.Duration `yaml:"breakerTimeout"`
}

// BacktestConfig holds backtest defaults.
type BacktestConfig struct {
	InitialCapital float64 `yaml:"initialCapital"`
}

// OptimizerConfig holds default optimizer settings and constraints.
type OptimizerConfig struct {
	Settings    domain.OptimizationSettings `yaml:"settings"`
	Constraints *domain.RiskConstraints     `yaml:"constraints,omitempty"`
}

// MetricsConfig exposes Prometheus metrics when Addr is set.
type MetricsConfig struct {
	Addr      string `yaml:"addr"`
	Namespace string `yaml:"namespace"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log:     LogConfig{Level: "info"},
		Storage: StorageConfig{Backend: BackendMemory, RedisNamespace: "lab:"},
		MarketData: MarketDataConfig{
			RequestsPerSecond: 20,
			Burst:             5,
			BreakerFailures:   3,
			BreakerTimeout:    30 * time.Second,
		},
		Backtest:  BacktestConfig{InitialCapital: 10_000},
		Optimizer: OptimizerConfig{Settings: domain.OptimizationSettings{}.WithDefaults()},
		Metrics:   MetricsConfig{Namespace: "strategy_lab"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path loads defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.Optimizer.Settings = cfg.Optimizer.Settings.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv(EnvClickhouseDSN); v != "" {
		c.Storage.ClickhouseDSN = v
	}
}

// Validate checks that the selected backends are configured.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redisAddr is required for the redis backend (or set %s)", EnvRedisAddr)
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgresDSN is required for the postgres backend (or set %s)", EnvPostgresDSN)
		}
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}

	if c.MarketData.RequestsPerSecond < 0 || c.MarketData.Burst < 0 {
		return fmt.Errorf("marketData: rate limits must be non-negative")
	}
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initialCapital must be > 0")
	}
	if err := c.Optimizer.Settings.Validate(); err != nil {
		return fmt.Errorf("optimizer: %w", err)
	}
	return nil
}

// LoadStrategy reads a strategy config from a YAML file.
func LoadStrategy(path string) (*domain.StrategyConfig, error) {
	var cfg domain.StrategyConfig
	if err := readYAML(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// OptimizationFile is the YAML layout of an optimization request.
type OptimizationFile struct {
	Space       domain.ParameterSpace       `yaml:"space"`
	Settings    domain.OptimizationSettings `yaml:"settings"`
	Constraints *domain.RiskConstraints     `yaml:"constraints,omitempty"`
}

// LoadOptimization reads a parameter space with optional settings and constraints.
func LoadOptimization(path string) (*OptimizationFile, error) {
	var f OptimizationFile
	if err := readYAML(path, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
