// pkg/config/loader.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// genericEnvPrefix is a secondary, generic override layer applied after the
// literal spec.md env vars: operators may set NOSTRSS_METRICS_PORT etc. to
// override a configuration key by its koanf path, same precedence scheme
// as the teacher's LOGISTICS_ prefix convention. Every underscore after the
// prefix becomes a path separator, so only keys whose segments contain no
// underscore (grpc.address, metrics.port, ...) can be reached this way.
const genericEnvPrefix = "NOSTRSS_"

// literalEnvVars maps the exact, unprefixed environment variable names the
// specification requires onto their koanf keys. Unlike the prefixed
// LOGISTICS_* convention this module's teacher used, nostrss's operator
// surface names these variables literally (GRPC_ADDRESS, DEFAULT_TEMPLATE,
// NOSTR_PK, ...), so the env layer below reads exactly those names rather
// than deriving keys from a service prefix.
var literalEnvVars = map[string]string{
	"GRPC_ADDRESS":        "grpc.address",
	"DEFAULT_TEMPLATE":    "broker.default_template",
	"DEFAULT_POW_LEVEL":   "broker.default_pow_level",
	"DEFAULT_CACHE_SIZE":  "broker.default_cache_size",
	"NOSTR_PK":            "nostr.private_key",
	"NOSTR_NAME":          "nostr.name",
	"NOSTR_DISPLAY_NAME":  "nostr.display_name",
	"NOSTR_DESCRIPTION":   "nostr.description",
	"NOSTR_PICTURE":       "nostr.picture",
	"NOSTR_BANNER":        "nostr.banner",
	"NOSTR_NIP05":         "nostr.nip05",
	"NOSTR_LUD16":         "nostr.lud16",
	"LOG_LEVEL":           "log.level",
	"LOG_FORMAT":          "log.format",
	"LOG_OUTPUT":          "log.output",
	"METRICS_ENABLED":     "metrics.enabled",
	"METRICS_PORT":        "metrics.port",
	"TRACING_ENABLED":     "tracing.enabled",
	"TRACING_ENDPOINT":    "tracing.endpoint",
	"APP_ENVIRONMENT":     "app.environment",
}

// intEnvKeys holds the koanf keys that must be parsed as integers rather
// than left as strings, since env vars arrive untyped.
var intEnvKeys = map[string]bool{
	"broker.default_pow_level":  true,
	"broker.default_cache_size": true,
	"metrics.port":              true,
}

// boolEnvKeys holds the koanf keys that must be parsed as booleans.
var boolEnvKeys = map[string]bool{
	"metrics.enabled": true,
	"tracing.enabled": true,
}

// Loader loads Config from layered sources: built-in defaults, then the
// literal environment variables the specification names.
type Loader struct {
	k *koanf.Koanf
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{k: koanf.New(".")}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoaderOption configures a Loader. Reserved for future extension — none
// of this module's literal env var set is currently overridable.
type LoaderOption func(*Loader)

// Load loads the configuration with precedence:
// 1. Defaults (lowest)
// 2. Environment variables (highest)
func (l *Loader) Load() (*Config, error) {
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		"app.name":        "nostrssd",
		"app.version":     "0.1.0",
		"app.environment": "development",
		"app.debug":       false,

		"grpc.address":                            "[::1]:33333",
		"grpc.max_recv_msg_size":                  16 * 1024 * 1024,
		"grpc.max_send_msg_size":                  16 * 1024 * 1024,
		"grpc.max_concurrent_conn":                1000,
		"grpc.keepalive.max_connection_idle":      15 * time.Minute,
		"grpc.keepalive.max_connection_age":       30 * time.Minute,
		"grpc.keepalive.max_connection_age_grace": 5 * time.Minute,
		"grpc.keepalive.time":                     5 * time.Minute,
		"grpc.keepalive.timeout":                  20 * time.Second,

		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stdout",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		"metrics.enabled":   true,
		"metrics.port":      9090,
		"metrics.path":      "/metrics",
		"metrics.namespace": "nostrss",
		"metrics.subsystem": "",

		"tracing.enabled":      false,
		"tracing.endpoint":     "localhost:4317",
		"tracing.service_name": "nostrssd",
		"tracing.sample_rate":  0.1,

		"broker.default_template":   "",
		"broker.default_pow_level":  0,
		"broker.default_cache_size": 1000,

		"nostr.private_key":  "",
		"nostr.name":         "",
		"nostr.display_name": "",
		"nostr.description":  "",
		"nostr.picture":      "",
		"nostr.banner":       "",
		"nostr.nip05":        "",
		"nostr.lud16":        "",
	}

	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

// loadEnv reads the literal, unprefixed environment variables the
// specification names and loads them into the koanf tree via a confmap
// provider built from an explicit allow-list, so stray environment
// variables never leak into the configuration.
func (l *Loader) loadEnv() error {
	values := make(map[string]any)

	for envName, key := range literalEnvVars {
		raw, ok := os.LookupEnv(envName)
		if !ok {
			continue
		}

		switch {
		case intEnvKeys[key]:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("%s must be an integer: %w", envName, err)
			}
			values[key] = n
		case boolEnvKeys[key]:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("%s must be a boolean: %w", envName, err)
			}
			values[key] = b
		default:
			values[key] = raw
		}
	}

	if len(values) > 0 {
		if err := l.k.Load(confmap.Provider(values, "."), nil); err != nil {
			return err
		}
	}

	// Secondary generic override layer: NOSTRSS_<KEY_PATH> wins over
	// everything loaded above, letting operators override a config key
	// without this package needing to know its name in advance. A key with
	// an underscore inside a segment (e.g. broker.default_template) cannot
	// be addressed, since every underscore maps to a dot.
	return l.k.Load(env.Provider(genericEnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, genericEnvPrefix)),
			"_", ".",
		)
	}), nil)
}

// MustLoad loads the configuration or panics.
func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Load is a convenience function loading configuration with defaults.
func Load() (*Config, error) {
	return NewLoader().Load()
}
