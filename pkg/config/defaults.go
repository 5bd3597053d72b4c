package config

import "time"

// Default values applied by ApplyDefaults.
const (
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20
	DefaultMaxBodyBytes    = 10 << 20

	DefaultProviderKind = "openai-compatible"
	DefaultProviderTier = 3

	DefaultAttemptTimeout    = 30 * time.Second
	DefaultRequestTimeout    = 10 * time.Minute
	DefaultStreamIdleTimeout = 60 * time.Second

	DefaultCooldownBase = 10 * time.Second
	DefaultCooldownMax  = 5 * time.Minute

	DefaultDedupTTL          = 60 * time.Second
	DefaultDedupWaitTimeout  = 30 * time.Second
	DefaultDedupPollInterval = 100 * time.Millisecond

	DefaultRedisAddress     = "127.0.0.1:6379"
	DefaultRedisDialTimeout = 5 * time.Second

	DefaultStoreBackend  = "memory"
	DefaultSQLitePath    = "./switchboard.db"
	DefaultFlushInterval = 30 * time.Second
	DefaultResetSchedule = "0 0 * * *"

	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
	DefaultMetricsPath = "/metrics"
)

// Default scoring policy values.
const (
	DefaultWeightQuality = 0.35
	DefaultWeightQuota   = 0.25
	DefaultWeightSafety  = 0.2
	DefaultWeightLatency = 0.1

	DefaultFreeTierBonus = 50.0
	DefaultModelQuality  = 0.5
)

// ApplyDefaults fills in default values for any unset fields. It is
// idempotent and is called by Load before validation.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyProviderDefaults(cfg)
	applyModelDefaults(cfg)
	applyRoutingDefaults(&cfg.Routing)
	applyHealthDefaults(&cfg.Health)
	applyDedupDefaults(&cfg.Dedup)
	applyRedisDefaults(&cfg.Redis)
	applyStoreDefaults(&cfg.Store)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(s *ServerConfig) {
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.MaxHeaderBytes == 0 {
		s.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}

	c := &s.CORS
	if c.Enabled == nil {
		c.Enabled = boolPtr(true)
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if len(c.AllowedMethods) == 0 {
		c.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(c.AllowedHeaders) == 0 {
		c.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	}
	if c.MaxAge == 0 {
		c.MaxAge = 3600
	}
}

func applyProviderDefaults(cfg *Config) {
	for name, p := range cfg.Providers {
		if p.Enabled == nil {
			p.Enabled = boolPtr(true)
		}
		if p.Kind == "" {
			p.Kind = DefaultProviderKind
		}
		if p.Tier == 0 {
			p.Tier = DefaultProviderTier
		}
		cfg.Providers[name] = p
	}
}

func applyModelDefaults(cfg *Config) {
	for i := range cfg.Models {
		m := &cfg.Models[i]
		if m.Quality == nil {
			m.Quality = floatPtr(DefaultModelQuality)
		}
		if len(m.Capabilities) == 0 {
			m.Capabilities = []string{"chat", "streaming"}
		}
		for j := range m.Bindings {
			b := &m.Bindings[j]
			if b.Available == nil {
				b.Available = boolPtr(true)
			}
		}
	}
}

func applyRoutingDefaults(r *RoutingConfig) {
	w := &r.Policy.Weights
	if w.Quality == nil {
		w.Quality = floatPtr(DefaultWeightQuality)
	}
	if w.Quota == nil {
		w.Quota = floatPtr(DefaultWeightQuota)
	}
	if w.Safety == nil {
		w.Safety = floatPtr(DefaultWeightSafety)
	}
	if w.Latency == nil {
		w.Latency = floatPtr(DefaultWeightLatency)
	}
	if r.Policy.FreeTierBonus == nil {
		r.Policy.FreeTierBonus = floatPtr(DefaultFreeTierBonus)
	}
	if r.Policy.MinScore == nil {
		r.Policy.MinScore = floatPtr(0)
	}
	if r.Policy.PreferFree == nil {
		r.Policy.PreferFree = boolPtr(true)
	}
	if r.AttemptTimeout == 0 {
		r.AttemptTimeout = DefaultAttemptTimeout
	}
	if r.RequestTimeout == 0 {
		r.RequestTimeout = DefaultRequestTimeout
	}
	if r.StreamIdleTimeout == 0 {
		r.StreamIdleTimeout = DefaultStreamIdleTimeout
	}
}

func applyHealthDefaults(h *HealthConfig) {
	if h.CooldownBase == 0 {
		h.CooldownBase = DefaultCooldownBase
	}
	if h.CooldownMax == 0 {
		h.CooldownMax = DefaultCooldownMax
	}
}

func applyDedupDefaults(d *DedupConfig) {
	if d.Enabled == nil {
		d.Enabled = boolPtr(true)
	}
	if d.TTL == 0 {
		d.TTL = DefaultDedupTTL
	}
	if d.WaitTimeout == 0 {
		d.WaitTimeout = DefaultDedupWaitTimeout
	}
	if d.PollInterval == 0 {
		d.PollInterval = DefaultDedupPollInterval
	}
}

func applyRedisDefaults(r *RedisConfig) {
	if r.Address == "" {
		r.Address = DefaultRedisAddress
	}
	if r.DialTimeout == 0 {
		r.DialTimeout = DefaultRedisDialTimeout
	}
}

func applyStoreDefaults(s *StoreConfig) {
	if s.Backend == "" {
		s.Backend = DefaultStoreBackend
	}
	if s.SQLitePath == "" {
		s.SQLitePath = DefaultSQLitePath
	}
	if s.FlushInterval == 0 {
		s.FlushInterval = DefaultFlushInterval
	}
	if s.ResetSchedule == "" {
		s.ResetSchedule = DefaultResetSchedule
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLogLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLogFormat
	}
	if t.Metrics.Enabled == nil {
		t.Metrics.Enabled = boolPtr(true)
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
}

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }
