package config

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Guard     GuardConfig     `yaml:"guard"`
	Review    ReviewConfig    `yaml:"review"`
	Routing   RoutingConfig   `yaml:"routing"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes"`
}

// DatabaseConfig points at the PostgreSQL instance holding the remote
// failure audit table. The audit sink stays off unless Enabled is set.
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", d.User, d.Password, d.Host, d.Port, d.Name)
}

// RedisConfig enables the shared cache tier and the shared rate window.
// An empty address list keeps both in-process.
type RedisConfig struct {
	Addresses []string `yaml:"addresses"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	PoolSize  int      `yaml:"pool_size"`
}

type TelemetryConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsPath string `yaml:"metrics_path"`
}

// OptimizerConfig tunes the cache, the rate window and the remote client.
type OptimizerConfig struct {
	RateLimitPerMinute      int           `yaml:"rate_limit_per_minute"`
	CacheTTL                time.Duration `yaml:"cache_ttl"`
	CacheMaxEntries         int           `yaml:"cache_max_entries"`
	FallbackCacheTTL        time.Duration `yaml:"fallback_cache_ttl"`
	RemoteTimeout           time.Duration `yaml:"remote_timeout"`
	AnalysisTextBudgetChars int           `yaml:"analysis_text_budget_chars"`
	ChatTextBudgetChars     int           `yaml:"chat_text_budget_chars"`
	DefaultConfidence       float64       `yaml:"default_confidence"`
	RemoteEnabled           bool          `yaml:"remote_enabled"`
	SecondaryLanguage       string        `yaml:"secondary_language"`
	AuditRingSize           int           `yaml:"audit_ring_size"`
}

// GuardConfig controls which inputs are kept away from remote providers.
// InjectionThreshold is the rule severity at which text aimed at the model
// keeps a document local; zero disables that check.
type GuardConfig struct {
	Enabled            bool    `yaml:"enabled"`
	InjectionThreshold float64 `yaml:"injection_threshold"`
}

// ReviewConfig drives the ACTIVE/QUARANTINED decision attached to analyses.
// BundlePath may name a directory of .rego files replacing the built-in policy.
type ReviewConfig struct {
	Enabled              bool          `yaml:"enabled"`
	BundlePath           string        `yaml:"bundle_path"`
	EvaluationTimeout    time.Duration `yaml:"evaluation_timeout"`
	QuarantineConfidence float64       `yaml:"quarantine_confidence"`
}

type RoutingConfig struct {
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	FailureThreshold      int           `yaml:"failure_threshold"`
	RecoveryProbeInterval time.Duration `yaml:"recovery_probe_interval"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     90 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
			MaxBodyBytes:     4 << 20,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "docai",
			User:            "docai",
			MaxOpenConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			WriteTimeout:    2 * time.Second,
		},
		Redis: RedisConfig{
			PoolSize: 20,
		},
		Telemetry: TelemetryConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsPath: "/metrics",
		},
		Optimizer: OptimizerConfig{
			RateLimitPerMinute:      50,
			CacheTTL:                time.Hour,
			CacheMaxEntries:         1000,
			FallbackCacheTTL:        5 * time.Minute,
			RemoteTimeout:           60 * time.Second,
			AnalysisTextBudgetChars: 4000,
			ChatTextBudgetChars:     3000,
			DefaultConfidence:       0.75,
			RemoteEnabled:           true,
			SecondaryLanguage:       "ml",
			AuditRingSize:           100,
		},
		Guard: GuardConfig{Enabled: true, InjectionThreshold: 0.9},
		Review: ReviewConfig{
			Enabled:              true,
			EvaluationTimeout:    100 * time.Millisecond,
			QuarantineConfidence: 0.3,
		},
		Routing: RoutingConfig{
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold:      5,
				RecoveryProbeInterval: 15 * time.Second,
			},
		},
	}
}

// Validate rejects values the optimizer cannot run with.
func (c *Config) Validate() error {
	var errs []error
	o := c.Optimizer
	if o.CacheMaxEntries <= 0 {
		errs = append(errs, fmt.Errorf("optimizer.cache_max_entries must be positive, got %d", o.CacheMaxEntries))
	}
	if o.RateLimitPerMinute < 0 {
		errs = append(errs, fmt.Errorf("optimizer.rate_limit_per_minute must not be negative, got %d", o.RateLimitPerMinute))
	}
	if o.CacheTTL < 0 || o.FallbackCacheTTL < 0 {
		errs = append(errs, errors.New("optimizer cache TTLs must not be negative"))
	}
	// cache_ttl 0 turns caching off
	if o.CacheTTL > 0 && o.FallbackCacheTTL >= o.CacheTTL {
		errs = append(errs, fmt.Errorf("optimizer.fallback_cache_ttl (%s) must be shorter than cache_ttl (%s)", o.FallbackCacheTTL, o.CacheTTL))
	}
	if o.RemoteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("optimizer.remote_timeout must be positive, got %s", o.RemoteTimeout))
	}
	if o.AnalysisTextBudgetChars <= 0 || o.ChatTextBudgetChars <= 0 {
		errs = append(errs, errors.New("optimizer text budgets must be positive"))
	}
	if o.DefaultConfidence < 0 || o.DefaultConfidence > 1 {
		errs = append(errs, fmt.Errorf("optimizer.default_confidence must be within [0,1], got %g", o.DefaultConfidence))
	}
	if c.Guard.InjectionThreshold < 0 || c.Guard.InjectionThreshold > 1 {
		errs = append(errs, fmt.Errorf("guard.injection_threshold must be within [0,1], got %g", c.Guard.InjectionThreshold))
	}
	if o.SecondaryLanguage == "" {
		errs = append(errs, errors.New("optimizer.secondary_language is required"))
	}
	return errors.Join(errs...)
}
