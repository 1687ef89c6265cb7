// pkg/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root ambient/bootstrap configuration for the broker daemon
// and its control plane. Feed and Profile state is not part of this
// struct — that is persisted separately through a ConfigStore.
type Config struct {
	App     AppConfig     `koanf:"app"`
	GRPC    GRPCConfig    `koanf:"grpc"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Tracing TracingConfig `koanf:"tracing"`
	Broker  BrokerConfig  `koanf:"broker"`
	Nostr   NostrConfig   `koanf:"nostr"`
}

// AppConfig carries general process identity.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// GRPCConfig configures the control-plane gRPC server.
type GRPCConfig struct {
	Address           string          `koanf:"address"` // env GRPC_ADDRESS, e.g. "[::1]:33333"
	MaxRecvMsgSize    int             `koanf:"max_recv_msg_size"`
	MaxSendMsgSize    int             `koanf:"max_send_msg_size"`
	MaxConcurrentConn int             `koanf:"max_concurrent_conn"`
	KeepAlive         KeepAliveConfig `koanf:"keepalive"`
}

// KeepAliveConfig configures gRPC server keepalive parameters.
type KeepAliveConfig struct {
	MaxConnectionIdle     time.Duration `koanf:"max_connection_idle"`
	MaxConnectionAge      time.Duration `koanf:"max_connection_age"`
	MaxConnectionAgeGrace time.Duration `koanf:"max_connection_age_grace"`
	Time                  time.Duration `koanf:"time"`
	Timeout               time.Duration `koanf:"timeout"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level      string `koanf:"level"`  // debug, info, warn, error
	Format     string `koanf:"format"` // json, text
	Output     string `koanf:"output"` // stdout, stderr, file
	FilePath   string `koanf:"file_path"`
	MaxSize    int    `koanf:"max_size"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"`
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// BrokerConfig holds the broker-wide defaults consumed when a Feed or
// Profile leaves a field unset.
type BrokerConfig struct {
	DefaultTemplate  string `koanf:"default_template"`   // env DEFAULT_TEMPLATE
	DefaultPoWLevel  int    `koanf:"default_pow_level"`  // env DEFAULT_POW_LEVEL
	DefaultCacheSize int    `koanf:"default_cache_size"` // env DEFAULT_CACHE_SIZE
}

// NostrConfig carries the fallback material used to derive the `default`
// profile when none is present in the persisted config store.
type NostrConfig struct {
	PrivateKey  string `koanf:"private_key"` // env NOSTR_PK
	Name        string `koanf:"name"`        // env NOSTR_NAME
	DisplayName string `koanf:"display_name"`
	Description string `koanf:"description"`
	Picture     string `koanf:"picture"`
	Banner      string `koanf:"banner"`
	NIP05       string `koanf:"nip05"`
	LUD16       string `koanf:"lud16"`
}

// Validate checks the configuration for obvious, fatal-at-boot problems.
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.GRPC.Address == "" {
		errs = append(errs, "grpc.address (env GRPC_ADDRESS) is required")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	if c.Broker.DefaultTemplate == "" {
		errs = append(errs, "broker.default_template (env DEFAULT_TEMPLATE) is required")
	}

	if c.Broker.DefaultPoWLevel < 0 || c.Broker.DefaultPoWLevel > 255 {
		errs = append(errs, fmt.Sprintf("broker.default_pow_level must be between 0 and 255, got %d", c.Broker.DefaultPoWLevel))
	}

	if c.Broker.DefaultCacheSize <= 0 {
		errs = append(errs, fmt.Sprintf("broker.default_cache_size must be positive, got %d", c.Broker.DefaultCacheSize))
	}

	// NOSTR_PK is required unless a default profile already exists in the
	// config store; that combined check happens at daemon bootstrap, once
	// the store has been loaded, not here.

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment reports whether the process is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction reports whether the process is running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
