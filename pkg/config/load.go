package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads, defaults, and validates a configuration file. Environment
// variables are not consulted; use LoadWithEnvOverrides for that.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	expandSecrets(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadWithEnvOverrides loads a configuration file and applies environment
// variable overrides. Variables follow the convention SWITCHBOARD_SECTION_FIELD
// (e.g., SWITCHBOARD_SERVER_LISTEN_ADDRESS) and always take precedence over
// file-based values.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Expand ${VAR} secret references
//  4. Apply environment variable overrides
//  5. Validate the final configuration
func LoadWithEnvOverrides(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// expandSecrets resolves "${VAR}" references in credential-bearing fields.
// A reference to an unset variable expands to the empty string; validation
// then reports the missing credential where one is required.
func expandSecrets(cfg *Config) {
	for name, p := range cfg.Providers {
		p.APIKey = expandRef(p.APIKey)
		cfg.Providers[name] = p
	}
	for i := range cfg.Auth.APIKeys {
		cfg.Auth.APIKeys[i].Key = expandRef(cfg.Auth.APIKeys[i].Key)
	}
	cfg.Auth.JWT.Secret = expandRef(cfg.Auth.JWT.Secret)
	cfg.Redis.Password = expandRef(cfg.Redis.Password)
}

func expandRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}

// applyEnvOverrides applies SWITCHBOARD_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("SWITCHBOARD_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("SWITCHBOARD_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("SWITCHBOARD_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}

	// Provider overrides for providers already present in the file.
	for name := range cfg.Providers {
		applyProviderEnvOverrides(cfg, name)
	}

	// Routing overrides
	if val := os.Getenv("SWITCHBOARD_ROUTING_ATTEMPT_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Routing.AttemptTimeout = d
		}
	}
	if val := os.Getenv("SWITCHBOARD_ROUTING_REQUEST_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Routing.RequestTimeout = d
		}
	}
	if val := os.Getenv("SWITCHBOARD_ROUTING_STREAM_IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Routing.StreamIdleTimeout = d
		}
	}

	// Dedup overrides
	if val := os.Getenv("SWITCHBOARD_DEDUP_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Dedup.Enabled = boolPtr(b)
		}
	}

	// Redis overrides
	if val := os.Getenv("SWITCHBOARD_REDIS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if val := os.Getenv("SWITCHBOARD_REDIS_ADDRESS"); val != "" {
		cfg.Redis.Address = val
	}
	if val := os.Getenv("SWITCHBOARD_REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("SWITCHBOARD_REDIS_DB"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = i
		}
	}

	// Store overrides
	if val := os.Getenv("SWITCHBOARD_STORE_BACKEND"); val != "" {
		cfg.Store.Backend = val
	}
	if val := os.Getenv("SWITCHBOARD_STORE_SQLITE_PATH"); val != "" {
		cfg.Store.SQLitePath = val
	}

	// Auth overrides
	if val := os.Getenv("SWITCHBOARD_AUTH_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Auth.Enabled = b
		}
	}
	if val := os.Getenv("SWITCHBOARD_AUTH_JWT_SECRET"); val != "" {
		cfg.Auth.JWT.Secret = val
	}

	// Telemetry overrides
	if val := os.Getenv("SWITCHBOARD_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("SWITCHBOARD_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("SWITCHBOARD_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = boolPtr(b)
		}
	}
}

// applyProviderEnvOverrides applies SWITCHBOARD_PROVIDERS_<NAME>_<FIELD>
// overrides for one provider, where NAME is the uppercase provider name.
func applyProviderEnvOverrides(cfg *Config, name string) {
	p := cfg.Providers[name]
	prefix := fmt.Sprintf("SWITCHBOARD_PROVIDERS_%s_", strings.ToUpper(name))

	if val := os.Getenv(prefix + "BASE_URL"); val != "" {
		p.BaseURL = val
	}
	if val := os.Getenv(prefix + "FALLBACK_URL"); val != "" {
		p.FallbackURL = val
	}
	if val := os.Getenv(prefix + "API_KEY"); val != "" {
		p.APIKey = val
	}
	if val := os.Getenv(prefix + "ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			p.Enabled = boolPtr(b)
		}
	}

	cfg.Providers[name] = p
}
