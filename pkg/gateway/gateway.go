package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/switchboard-ai/switchboard/pkg/config"
	"github.com/switchboard-ai/switchboard/pkg/dedup"
	"github.com/switchboard-ai/switchboard/pkg/providers"
	"github.com/switchboard-ai/switchboard/pkg/providers/anthropic"
	"github.com/switchboard-ai/switchboard/pkg/providers/openai"
	"github.com/switchboard-ai/switchboard/pkg/registry"
	"github.com/switchboard-ai/switchboard/pkg/routing"
	"github.com/switchboard-ai/switchboard/pkg/store"
	"github.com/switchboard-ai/switchboard/pkg/telemetry"
)

// defaultRequestDeadline bounds one non-streaming request end to end
// when routing.request_timeout is unset. Streaming requests carry no
// body deadline; they live as long as the client connection does.
const defaultRequestDeadline = 10 * time.Minute

// Gateway is the HTTP frontend. It owns the adapter mux and the
// middleware chain and delegates routing to the orchestrator.
type Gateway struct {
	registry     *registry.Registry
	orchestrator *routing.Orchestrator
	dedup        dedup.Deduplicator
	accountant   *store.Accountant
	metrics      *telemetry.Metrics
	logger       *slog.Logger

	adapters map[providers.ProviderKind]providers.Adapter
	apiKeys  map[string]Principal

	server config.ServerConfig
	auth   config.AuthConfig

	attemptTimeout  time.Duration
	requestDeadline time.Duration
	metricsEnabled  bool
	metricsPath     string
}

// Options carries the collaborators the gateway wires together.
type Options struct {
	Config       *config.Config
	Registry     *registry.Registry
	Orchestrator *routing.Orchestrator
	Dedup        dedup.Deduplicator
	Accountant   *store.Accountant
	Metrics      *telemetry.Metrics
	Logger       *slog.Logger

	// Adapters overrides the default adapter mux, for tests.
	Adapters map[providers.ProviderKind]providers.Adapter
}

// New builds a gateway from its collaborators. The adapter mux routes
// the openai-compatible dialects (including cloudflare-ai, gemini and
// generic) through the openai adapter and anthropic-style through the
// anthropic adapter.
func New(opts Options) *Gateway {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := opts.Dedup
	if d == nil {
		d = dedup.Noop{}
	}

	adapters := opts.Adapters
	if adapters == nil {
		creds := make(providers.StaticCredentials, len(cfg.Providers))
		for name, p := range cfg.Providers {
			creds[name] = p.APIKey
		}
		base := providers.NewHTTPAdapter(creds)
		oa := openai.New(base)
		an := anthropic.New(base)
		adapters = map[providers.ProviderKind]providers.Adapter{
			providers.KindOpenAICompatible: oa,
			providers.KindCloudflareAI:     oa,
			providers.KindGemini:           oa,
			providers.KindGeneric:          oa,
			providers.KindAnthropicStyle:   an,
		}
	}

	apiKeys := make(map[string]Principal, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		apiKeys[k.Key] = Principal{Tenant: k.Tenant, User: k.User}
	}

	attemptTimeout := cfg.Routing.AttemptTimeout
	if attemptTimeout <= 0 {
		attemptTimeout = providers.DefaultAttemptTimeout
	}

	requestDeadline := cfg.Routing.RequestTimeout
	if requestDeadline <= 0 {
		requestDeadline = defaultRequestDeadline
	}

	return &Gateway{
		registry:        opts.Registry,
		orchestrator:    opts.Orchestrator,
		dedup:           d,
		accountant:      opts.Accountant,
		metrics:         opts.Metrics,
		logger:          logger,
		adapters:        adapters,
		apiKeys:         apiKeys,
		server:          cfg.Server,
		auth:            cfg.Auth,
		attemptTimeout:  attemptTimeout,
		requestDeadline: requestDeadline,
		metricsEnabled:  cfg.Telemetry.Metrics.Enabled == nil || *cfg.Telemetry.Metrics.Enabled,
		metricsPath:     cfg.Telemetry.Metrics.Path,
	}
}

// Handler assembles the route table and middleware chain. Auth wraps
// only the API surface; probes and metrics stay open.
func (g *Gateway) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/v1/chat/completions", g.handleInvoke(providers.EndpointChatCompletions))
	api.HandleFunc("/v1/completions", g.handleInvoke(providers.EndpointCompletions))
	api.HandleFunc("/v1/responses", g.handleInvoke(providers.EndpointResponses))
	api.HandleFunc("/v1/embeddings", g.handleInvoke(providers.EndpointEmbeddings))
	api.HandleFunc("/v1/models", g.handleModels)
	api.HandleFunc("/v1/models/", g.handleModel)

	mux := http.NewServeMux()
	mux.Handle("/v1/", g.authMiddleware(api))
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/ready", g.handleReady)

	if g.metricsEnabled && g.metrics != nil {
		path := g.metricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle(path, g.metrics.Handler())
	}

	var h http.Handler = mux
	h = maxBodyMiddleware(g.server.MaxBodyBytes, h)
	h = corsMiddleware(g.server.CORS, h)
	h = loggingMiddleware(g.logger, h)
	h = requestIDMiddleware(h)
	h = recoveryMiddleware(g.logger, h)
	return h
}
