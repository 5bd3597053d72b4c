package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// canonicalIDPattern constrains canonical model identifiers.
var canonicalIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// knownProviderKinds lists the accepted provider dialects.
var knownProviderKinds = map[string]bool{
	"openai-compatible": true,
	"anthropic-style":   true,
	"cloudflare-ai":     true,
	"gemini":            true,
	"generic":           true,
}

// knownCapabilities lists the accepted model capability names.
var knownCapabilities = map[string]bool{
	"chat":       true,
	"completion": true,
	"embedding":  true,
	"vision":     true,
	"tools":      true,
	"json_mode":  true,
	"streaming":  true,
}

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field
	// (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration. It implements the error interface.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any rules fail. All errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateProviders(cfg.Providers)...)
	errs = append(errs, validateModels(cfg)...)
	errs = append(errs, validateAliases(cfg)...)
	errs = append(errs, validateRouting(&cfg.Routing)...)
	errs = append(errs, validateAuth(&cfg.Auth)...)
	errs = append(errs, validateStore(&cfg.Store)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(s *ServerConfig) []FieldError {
	var errs []FieldError

	if s.ListenAddress == "" {
		errs = append(errs, FieldError{"server.listen_address", "must not be empty"})
	} else if !strings.Contains(s.ListenAddress, ":") {
		errs = append(errs, FieldError{"server.listen_address", "must be in host:port format"})
	}
	if s.ReadTimeout < 0 {
		errs = append(errs, FieldError{"server.read_timeout", "must not be negative"})
	}
	if s.ShutdownTimeout < time.Second {
		errs = append(errs, FieldError{"server.shutdown_timeout", "must be at least 1s"})
	}
	if s.MaxBodyBytes < 1024 {
		errs = append(errs, FieldError{"server.max_body_bytes", "must be at least 1024"})
	}

	return errs
}

func validateProviders(providers map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	for name, p := range providers {
		field := func(f string) string { return fmt.Sprintf("providers.%s.%s", name, f) }

		if !knownProviderKinds[p.Kind] {
			errs = append(errs, FieldError{field("kind"), fmt.Sprintf("unknown provider kind %q", p.Kind)})
		}
		if p.BaseURL == "" {
			errs = append(errs, FieldError{field("base_url"), "must not be empty"})
		} else if u, err := url.Parse(p.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{field("base_url"), fmt.Sprintf("invalid URL %q", p.BaseURL)})
		}
		if p.FallbackURL != "" {
			if u, err := url.Parse(p.FallbackURL); err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, FieldError{field("fallback_url"), fmt.Sprintf("invalid URL %q", p.FallbackURL)})
			}
		}
		if p.Tier < 1 || p.Tier > 4 {
			errs = append(errs, FieldError{field("tier"), "must be between 1 and 4"})
		}
		if p.DefaultRPM < 0 {
			errs = append(errs, FieldError{field("default_rpm"), "must not be negative"})
		}
		if p.DefaultTPM < 0 {
			errs = append(errs, FieldError{field("default_tpm"), "must not be negative"})
		}
	}

	return errs
}

func validateModels(cfg *Config) []FieldError {
	var errs []FieldError

	seen := make(map[string]bool, len(cfg.Models))
	for i, m := range cfg.Models {
		field := func(f string) string { return fmt.Sprintf("models[%d].%s", i, f) }

		if m.ID == "" {
			errs = append(errs, FieldError{field("id"), "must not be empty"})
			continue
		}
		if !canonicalIDPattern.MatchString(m.ID) {
			errs = append(errs, FieldError{field("id"), fmt.Sprintf("%q must match %s", m.ID, canonicalIDPattern.String())})
		}
		if seen[m.ID] {
			errs = append(errs, FieldError{field("id"), fmt.Sprintf("duplicate canonical model %q", m.ID)})
		}
		seen[m.ID] = true

		if m.ContextWindow <= 0 {
			errs = append(errs, FieldError{field("context_window"), "must be positive"})
		}
		if m.Quality != nil && (*m.Quality < 0 || *m.Quality > 1) {
			errs = append(errs, FieldError{field("quality"), "must be between 0 and 1"})
		}
		if m.InputPricePer1M < 0 || m.OutputPricePer1M < 0 {
			errs = append(errs, FieldError{field("input_price_per_1m"), "prices must not be negative"})
		}
		for _, cap := range m.Capabilities {
			if !knownCapabilities[cap] {
				errs = append(errs, FieldError{field("capabilities"), fmt.Sprintf("unknown capability %q", cap)})
			}
		}
		if m.ReleaseDate != "" {
			if _, err := time.Parse("2006-01-02", m.ReleaseDate); err != nil {
				errs = append(errs, FieldError{field("release_date"), "must be an ISO date (YYYY-MM-DD)"})
			}
		}

		for j, b := range m.Bindings {
			bfield := func(f string) string { return fmt.Sprintf("models[%d].bindings[%d].%s", i, j, f) }
			if b.Provider == "" {
				errs = append(errs, FieldError{bfield("provider"), "must not be empty"})
			} else if _, ok := cfg.Providers[b.Provider]; !ok {
				errs = append(errs, FieldError{bfield("provider"), fmt.Sprintf("unknown provider %q", b.Provider)})
			}
			if b.ModelID == "" {
				errs = append(errs, FieldError{bfield("model_id"), "must not be empty"})
			}
			if b.RPM < 0 || b.TPM < 0 {
				errs = append(errs, FieldError{bfield("rpm"), "rate limits must not be negative"})
			}
		}
	}

	return errs
}

func validateAliases(cfg *Config) []FieldError {
	var errs []FieldError

	models := make(map[string]bool, len(cfg.Models))
	for _, m := range cfg.Models {
		models[m.ID] = true
	}

	type scope struct{ tenant, name string }
	seen := make(map[scope]bool, len(cfg.Aliases))
	for i, a := range cfg.Aliases {
		field := func(f string) string { return fmt.Sprintf("aliases[%d].%s", i, f) }

		if a.Name == "" {
			errs = append(errs, FieldError{field("name"), "must not be empty"})
			continue
		}
		key := scope{a.Tenant, a.Name}
		if seen[key] {
			errs = append(errs, FieldError{field("name"), fmt.Sprintf("duplicate alias %q", a.Name)})
		}
		seen[key] = true

		if len(a.Targets) == 0 {
			errs = append(errs, FieldError{field("targets"), "must list at least one canonical model"})
		}
		for _, t := range a.Targets {
			if !models[t] {
				errs = append(errs, FieldError{field("targets"), fmt.Sprintf("unknown canonical model %q", t)})
			}
		}
	}

	return errs
}

func validateRouting(r *RoutingConfig) []FieldError {
	var errs []FieldError

	errs = append(errs, validateWeights("routing.policy.weights", &r.Policy.Weights)...)
	if r.Policy.FreeTierBonus != nil && *r.Policy.FreeTierBonus < 0 {
		errs = append(errs, FieldError{"routing.policy.free_tier_bonus", "must not be negative"})
	}
	if r.AttemptTimeout < time.Second {
		errs = append(errs, FieldError{"routing.attempt_timeout", "must be at least 1s"})
	}
	if r.StreamIdleTimeout < time.Second {
		errs = append(errs, FieldError{"routing.stream_idle_timeout", "must be at least 1s"})
	}

	for tenant, o := range r.Tenants {
		errs = append(errs, validateWeights(fmt.Sprintf("routing.tenants.%s.weights", tenant), &o.Weights)...)
	}
	for user, o := range r.Users {
		errs = append(errs, validateWeights(fmt.Sprintf("routing.users.%s.weights", user), &o.Weights)...)
	}

	return errs
}

func validateWeights(prefix string, w *WeightsConfig) []FieldError {
	var errs []FieldError
	check := func(name string, v *float64) {
		if v != nil && (*v < 0 || *v > 1) {
			errs = append(errs, FieldError{prefix + "." + name, "must be between 0 and 1"})
		}
	}
	check("quality", w.Quality)
	check("quota", w.Quota)
	check("safety", w.Safety)
	check("latency", w.Latency)
	return errs
}

func validateAuth(a *AuthConfig) []FieldError {
	var errs []FieldError

	if !a.Enabled {
		return nil
	}
	if len(a.APIKeys) == 0 && !a.JWT.Enabled {
		errs = append(errs, FieldError{"auth", "enabled but no api_keys and jwt disabled"})
	}
	for i, k := range a.APIKeys {
		if k.Key == "" {
			errs = append(errs, FieldError{fmt.Sprintf("auth.api_keys[%d].key", i), "must not be empty"})
		}
		if k.Tenant == "" {
			errs = append(errs, FieldError{fmt.Sprintf("auth.api_keys[%d].tenant", i), "must not be empty"})
		}
	}
	if a.JWT.Enabled && a.JWT.Secret == "" {
		errs = append(errs, FieldError{"auth.jwt.secret", "must not be empty when jwt is enabled"})
	}

	return errs
}

func validateStore(s *StoreConfig) []FieldError {
	var errs []FieldError

	switch s.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, FieldError{"store.backend", fmt.Sprintf("unknown backend %q (expected memory or sqlite)", s.Backend)})
	}
	if s.Backend == "sqlite" && s.SQLitePath == "" {
		errs = append(errs, FieldError{"store.sqlite_path", "must not be empty for sqlite backend"})
	}
	if s.FlushInterval < time.Second {
		errs = append(errs, FieldError{"store.flush_interval", "must be at least 1s"})
	}

	return errs
}

func validateTelemetry(t *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch t.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"telemetry.logging.level", fmt.Sprintf("unknown level %q", t.Logging.Level)})
	}
	switch t.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{"telemetry.logging.format", fmt.Sprintf("unknown format %q", t.Logging.Format)})
	}
	if !strings.HasPrefix(t.Metrics.Path, "/") {
		errs = append(errs, FieldError{"telemetry.metrics.path", "must start with /"})
	}

	return errs
}
