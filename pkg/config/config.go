package config

import "time"

// Config is the root configuration structure for Switchboard. It contains
// the gateway server settings, the provider and model catalog, alias
// definitions, routing policy, and the supporting subsystems (auth,
// deduplication, persistence, telemetry).
type Config struct {
	// Server contains HTTP gateway server configuration including listen
	// address, timeouts, and CORS settings.
	Server ServerConfig `yaml:"server"`

	// Providers contains configuration for all upstream providers.
	// Keys are provider names (e.g., "openai", "groq", "openrouter").
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Models is the canonical model catalog. Each entry declares a
	// canonical model and the provider bindings that can serve it.
	Models []ModelConfig `yaml:"models"`

	// Aliases maps user-facing model names onto ordered candidate lists
	// of canonical model IDs. Tenant-scoped aliases shadow global ones.
	Aliases []AliasConfig `yaml:"aliases"`

	// Routing contains routing policy weights, per-tenant and per-user
	// overrides, and attempt timeouts.
	Routing RoutingConfig `yaml:"routing"`

	// Health contains failure cooldown tuning for the health store.
	Health HealthConfig `yaml:"health"`

	// Auth contains API key and JWT authentication configuration.
	Auth AuthConfig `yaml:"auth"`

	// Dedup contains in-flight request deduplication configuration.
	Dedup DedupConfig `yaml:"dedup"`

	// Redis contains the connection settings for the optional Redis
	// coordination backend used by deduplication.
	Redis RedisConfig `yaml:"redis"`

	// Store contains usage persistence configuration (memory or SQLite)
	// and the scheduled counter reset.
	Store StoreConfig `yaml:"store"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP gateway server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port". Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of
	// the response. Streaming responses disable this per-request.
	// Default: 0 (disabled, required for SSE)
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout. Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown before in-flight requests are dropped. Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size. Default: 1MB
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits request body size. Default: 10MB
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration for browser clients.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted. Default: true
	Enabled *bool `yaml:"enabled"`

	// AllowedOrigins lists allowed origins. ["*"] allows all.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods lists allowed HTTP methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders lists allowed request headers.
	// Default: ["Authorization", "Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the preflight cache duration in seconds. Default: 3600
	MaxAge int `yaml:"max_age"`
}

// ProviderConfig contains configuration for a single upstream provider.
type ProviderConfig struct {
	// Enabled controls whether this provider participates in routing.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Kind selects the wire dialect for this provider.
	// Options: "openai-compatible", "anthropic-style", "cloudflare-ai",
	// "gemini", "generic". Default: "openai-compatible"
	Kind string `yaml:"kind"`

	// BaseURL is the primary API endpoint, e.g. "https://api.openai.com/v1".
	// Required.
	BaseURL string `yaml:"base_url"`

	// FallbackURL is an alternate endpoint tried once when the primary
	// endpoint is unreachable at the connection level. Optional.
	FallbackURL string `yaml:"fallback_url"`

	// APIKey is the credential for this provider. Values of the form
	// "${VAR}" are expanded from the environment at load time.
	APIKey string `yaml:"api_key"`

	// Tier is the fallback tier this provider belongs to: 1 (preferred),
	// 2 (free), 3 (paid), 4 (emergency). Default: 3
	Tier int `yaml:"tier"`

	// Free marks the provider as a free tier upstream. Free providers
	// are preferred by cost-aware routing. Default: false
	Free bool `yaml:"free"`

	// DefaultRPM is the per-provider requests-per-minute budget applied
	// to bindings that do not override it. 0 means unlimited.
	DefaultRPM int `yaml:"default_rpm"`

	// DefaultTPM is the per-provider tokens-per-minute budget applied
	// to bindings that do not override it. 0 means unlimited.
	DefaultTPM int `yaml:"default_tpm"`
}

// ModelConfig declares one canonical model and its provider bindings.
type ModelConfig struct {
	// ID is the canonical model identifier, e.g. "llama-3.3-70b".
	// Must match ^[a-z0-9][a-z0-9._-]*$. Required.
	ID string `yaml:"id"`

	// Family groups related models, e.g. "llama". Optional.
	Family string `yaml:"family"`

	// ContextWindow is the maximum combined token window. Required.
	ContextWindow int `yaml:"context_window"`

	// MaxOutputTokens caps completion length. 0 means provider default.
	MaxOutputTokens int `yaml:"max_output_tokens"`

	// Capabilities lists what the model supports.
	// Options: "chat", "completion", "embedding", "vision", "tools",
	// "json_mode", "streaming".
	Capabilities []string `yaml:"capabilities"`

	// ReleaseDate is an ISO date used for recency tie-breaking. Optional.
	ReleaseDate string `yaml:"release_date"`

	// Quality is a normalized quality score in [0,1] used by the router.
	// Default: 0.5
	Quality *float64 `yaml:"quality"`

	// InputPricePer1M is the USD price per million input tokens.
	InputPricePer1M float64 `yaml:"input_price_per_1m"`

	// OutputPricePer1M is the USD price per million output tokens.
	OutputPricePer1M float64 `yaml:"output_price_per_1m"`

	// Bindings lists the providers that can serve this model.
	Bindings []BindingConfig `yaml:"bindings"`
}

// BindingConfig attaches a canonical model to one provider.
type BindingConfig struct {
	// Provider is the provider name; must exist in Config.Providers.
	// Required.
	Provider string `yaml:"provider"`

	// ModelID is the provider-specific model identifier sent upstream,
	// e.g. "accounts/fireworks/models/llama-v3p3-70b". Required.
	ModelID string `yaml:"model_id"`

	// Available marks the binding as routable. Default: true
	Available *bool `yaml:"available"`

	// InputPricePer1M overrides the canonical input price. Optional.
	InputPricePer1M *float64 `yaml:"input_price_per_1m"`

	// OutputPricePer1M overrides the canonical output price. Optional.
	OutputPricePer1M *float64 `yaml:"output_price_per_1m"`

	// RPM overrides the provider's default requests-per-minute budget.
	RPM int `yaml:"rpm"`

	// TPM overrides the provider's default tokens-per-minute budget.
	TPM int `yaml:"tpm"`

	// FreeTier marks this binding as free even when the provider is not.
	FreeTier bool `yaml:"free_tier"`
}

// AliasConfig maps a user-facing name onto candidate canonical models.
type AliasConfig struct {
	// Name is the alias as clients send it, e.g. "fast" or "gpt-4o".
	// Required.
	Name string `yaml:"name"`

	// Tenant scopes the alias to one tenant. Empty means global.
	// A tenant alias shadows a global alias of the same name.
	Tenant string `yaml:"tenant"`

	// Targets is the ordered candidate list of canonical model IDs.
	// Required, at least one entry.
	Targets []string `yaml:"targets"`
}

// RoutingConfig contains routing policy and attempt tuning.
type RoutingConfig struct {
	// Policy is the global scoring policy.
	Policy PolicyConfig `yaml:"policy"`

	// Tenants contains per-tenant policy overrides, keyed by tenant ID.
	Tenants map[string]PolicyOverride `yaml:"tenants"`

	// Users contains per-user policy overrides, keyed by user ID.
	Users map[string]PolicyOverride `yaml:"users"`

	// AttemptTimeout bounds a single non-streaming provider attempt.
	// Default: 30s
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`

	// RequestTimeout bounds a whole non-streaming request across all
	// fallback attempts. Default: 10m
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// StreamIdleTimeout aborts a stream when no chunk arrives for this
	// long. Default: 60s
	StreamIdleTimeout time.Duration `yaml:"stream_idle_timeout"`
}

// PolicyConfig is the global scoring policy. Weights are normalized at
// load time so they sum to 1.
type PolicyConfig struct {
	// Weights contains the scoring dimension weights.
	Weights WeightsConfig `yaml:"weights"`

	// FreeTierBonus is added to the score of free-tier candidates.
	// Default: 50
	FreeTierBonus *float64 `yaml:"free_tier_bonus"`

	// MinScore drops candidates scoring below this threshold.
	// Default: 0 (keep all)
	MinScore *float64 `yaml:"min_score"`

	// PreferFree orders free candidates ahead of paid ones regardless
	// of score. Default: true
	PreferFree *bool `yaml:"prefer_free"`
}

// WeightsConfig contains the scoring dimension weights.
type WeightsConfig struct {
	// Quality weights the model quality score. Default: 0.35
	Quality *float64 `yaml:"quality"`

	// Quota weights remaining rate-limit headroom. Default: 0.25
	Quota *float64 `yaml:"quota"`

	// Safety weights provider health (cooldown state). Default: 0.2
	Safety *float64 `yaml:"safety"`

	// Latency weights observed provider latency. Default: 0.1
	Latency *float64 `yaml:"latency"`
}

// PolicyOverride is a sparse policy layered over the global policy.
// Nil fields inherit from the level below.
type PolicyOverride struct {
	Weights       WeightsConfig `yaml:"weights"`
	FreeTierBonus *float64      `yaml:"free_tier_bonus"`
	MinScore      *float64      `yaml:"min_score"`
	PreferFree    *bool         `yaml:"prefer_free"`

	// Denied lists canonical model IDs this principal may not use.
	Denied []string `yaml:"denied"`
}

// HealthConfig tunes the provider health store.
type HealthConfig struct {
	// CooldownBase is the cooldown after the first consecutive failure.
	// Each further failure doubles it. Default: 10s
	CooldownBase time.Duration `yaml:"cooldown_base"`

	// CooldownMax caps the exponential cooldown. Default: 5m
	CooldownMax time.Duration `yaml:"cooldown_max"`
}

// AuthConfig contains gateway authentication configuration.
type AuthConfig struct {
	// Enabled controls whether requests must authenticate. When false
	// all requests run as the anonymous principal. Default: false
	Enabled bool `yaml:"enabled"`

	// APIKeys lists static API keys and the principals they map to.
	APIKeys []APIKeyConfig `yaml:"api_keys"`

	// JWT configures bearer-token authentication.
	JWT JWTConfig `yaml:"jwt"`
}

// APIKeyConfig maps one static API key onto a principal.
type APIKeyConfig struct {
	// Key is the secret value clients present. Values of the form
	// "${VAR}" are expanded from the environment at load time.
	Key string `yaml:"key"`

	// Tenant is the tenant ID this key belongs to.
	Tenant string `yaml:"tenant"`

	// User is the user ID this key belongs to. Optional.
	User string `yaml:"user"`
}

// JWTConfig configures HS256 bearer-token authentication.
type JWTConfig struct {
	// Enabled controls whether JWT bearer tokens are accepted.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Secret is the HS256 signing secret. Values of the form "${VAR}"
	// are expanded from the environment at load time.
	Secret string `yaml:"secret"`

	// Issuer, when set, must match the token's iss claim.
	Issuer string `yaml:"issuer"`
}

// DedupConfig contains in-flight request deduplication configuration.
type DedupConfig struct {
	// Enabled controls deduplication of identical concurrent requests.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// TTL bounds how long an in-flight marker and its cached result
	// live. Default: 60s
	TTL time.Duration `yaml:"ttl"`

	// WaitTimeout bounds how long a follower waits for the owner's
	// result before proceeding on its own. Default: 30s
	WaitTimeout time.Duration `yaml:"wait_timeout"`

	// PollInterval is the follower polling cadence. Default: 100ms
	PollInterval time.Duration `yaml:"poll_interval"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	// Enabled selects Redis-backed coordination. When false, an
	// in-process fallback is used. Default: false
	Enabled bool `yaml:"enabled"`

	// Address is the Redis host:port. Default: "127.0.0.1:6379"
	Address string `yaml:"address"`

	// Password authenticates the connection. Optional.
	Password string `yaml:"password"`

	// DB selects the Redis logical database. Default: 0
	DB int `yaml:"db"`

	// DialTimeout bounds connection establishment. Default: 5s
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// StoreConfig contains usage persistence configuration.
type StoreConfig struct {
	// Backend selects the persistence backend.
	// Options: "memory", "sqlite". Default: "memory"
	Backend string `yaml:"backend"`

	// SQLitePath is the database file path when Backend is "sqlite".
	// Default: "./switchboard.db"
	SQLitePath string `yaml:"sqlite_path"`

	// FlushInterval is how often in-memory usage counters are flushed
	// to the backend. Default: 30s
	FlushInterval time.Duration `yaml:"flush_interval"`

	// ResetSchedule is a cron expression for the daily free-tier
	// counter reset. Default: "0 0 * * *" (midnight UTC)
	ResetSchedule string `yaml:"reset_schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Options: "debug", "info", "warn", "error". Default: "info"
	Level string `yaml:"level"`

	// Format selects the log output format.
	// Options: "json", "text". Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Path is the metrics endpoint path. Default: "/metrics"
	Path string `yaml:"path"`
}
