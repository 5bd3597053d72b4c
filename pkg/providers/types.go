package providers

import "time"

// ProviderKind identifies the wire dialect an upstream speaks. It selects
// which concrete adapter serves the provider.
type ProviderKind string

const (
	// KindOpenAICompatible is the OpenAI chat/completions/embeddings dialect.
	KindOpenAICompatible ProviderKind = "openai-compatible"

	// KindAnthropicStyle is the Anthropic Messages API dialect.
	KindAnthropicStyle ProviderKind = "anthropic-style"

	// KindCloudflareAI is Cloudflare Workers AI; its OpenAI compatibility
	// endpoint is close enough that the openai adapter serves it.
	KindCloudflareAI ProviderKind = "cloudflare-ai"

	// KindGemini is Google Gemini via its OpenAI-compatible endpoint.
	KindGemini ProviderKind = "gemini"

	// KindGeneric is any other OpenAI-compatible server (vLLM, Ollama,
	// LM Studio, OpenRouter and friends).
	KindGeneric ProviderKind = "generic"
)

// Definition describes one upstream provider service. It is built from
// configuration and treated as immutable by the adapters.
type Definition struct {
	// Key is the unique provider identifier (e.g., "openrouter").
	Key string

	// Kind selects the wire dialect.
	Kind ProviderKind

	// BaseEndpoint is the primary API base URL.
	BaseEndpoint string

	// FallbackEndpoint, if set, is tried once per invocation when the
	// base endpoint cannot be reached (DNS or connect failure).
	FallbackEndpoint string

	// Tier orders providers for tie-breaking; lower is preferred.
	Tier int

	// Enabled gates the provider out of routing entirely when false.
	Enabled bool

	// Free marks providers whose usage carries no per-token cost.
	Free bool

	// CredentialRef names the credential resolved through the
	// CredentialStore. The definition never holds the secret itself.
	CredentialRef string

	// DefaultRPM and DefaultTPM are the per-minute caps used when a
	// binding does not override them. Zero means uncapped.
	DefaultRPM int
	DefaultTPM int
}

// Binding maps a canonical model onto a provider-specific model identifier,
// with optional per-binding price and rate-limit overrides.
type Binding struct {
	// CanonicalID is the gateway-stable model identity.
	CanonicalID string

	// ProviderKey names the provider this binding belongs to.
	ProviderKey string

	// ProviderSpecificID is the model string sent on the wire.
	ProviderSpecificID string

	// Available gates the binding out of routing when false.
	Available bool

	// OverrideInputPrice / OverrideOutputPrice override the canonical
	// model's pricing, in USD per 1M tokens. Nil means inherit.
	OverrideInputPrice  *float64
	OverrideOutputPrice *float64

	// RateLimitRPM / RateLimitTPM override the provider defaults for this
	// binding. Zero means inherit.
	RateLimitRPM int
	RateLimitTPM int

	// FreeTier marks the binding as free even when the provider is paid
	// (some aggregators expose free variants of paid models).
	FreeTier bool
}

// EndpointKind identifies which client-facing endpoint a request came in on.
type EndpointKind string

const (
	EndpointChatCompletions EndpointKind = "chat.completions"
	EndpointCompletions     EndpointKind = "completions"
	EndpointResponses       EndpointKind = "responses"
	EndpointEmbeddings      EndpointKind = "embeddings"
)

// Message is one turn of an OpenAI-shaped conversation.
type Message struct {
	Role       string     `json:"role"`
	Content    any        `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the function name and its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool is a callable tool definition offered to the model.
type Tool struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes one callable function.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// Usage is the token accounting reported by the upstream.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is the normalized, OpenAI-shaped request handed to an adapter.
// Model is already the provider-specific identifier from the binding.
type Request struct {
	Model            string         `json:"model"`
	Messages         []Message      `json:"messages,omitempty"`
	Prompt           string         `json:"prompt,omitempty"`
	Input            any            `json:"input,omitempty"`
	Temperature      *float64       `json:"temperature,omitempty"`
	TopP             *float64       `json:"top_p,omitempty"`
	MaxTokens        int            `json:"max_tokens,omitempty"`
	Stream           bool           `json:"stream,omitempty"`
	Tools            []Tool         `json:"tools,omitempty"`
	ToolChoice       any            `json:"tool_choice,omitempty"`
	ResponseFormat   map[string]any `json:"response_format,omitempty"`
	LogProbs         bool           `json:"logprobs,omitempty"`
	Stop             []string       `json:"stop,omitempty"`
	PresencePenalty  *float64       `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64       `json:"frequency_penalty,omitempty"`
	User             string         `json:"user,omitempty"`

	// Endpoint selects the upstream path; it is not serialized.
	Endpoint EndpointKind `json:"-"`
}

// Clone returns a shallow copy of the request, used when substituting the
// provider-specific model id without mutating the caller's request.
func (r *Request) Clone() *Request {
	cp := *r
	return &cp
}

// Choice is one completion alternative in a response.
type Choice struct {
	Index        int      `json:"index"`
	Message      Message  `json:"message"`
	FinishReason string   `json:"finish_reason"`
	LogProbs     any      `json:"logprobs,omitempty"`
}

// Embedding is one embedding vector in an embeddings response.
type Embedding struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// Response is the normalized upstream response.
type Response struct {
	ID         string      `json:"id"`
	Model      string      `json:"model"`
	Created    int64       `json:"created"`
	Choices    []Choice    `json:"choices,omitempty"`
	Embeddings []Embedding `json:"embeddings,omitempty"`
	Usage      Usage       `json:"usage"`
}

// StreamChunk is one frame of a normalized streaming response.
//
// An adapter stream yields zero or more data chunks followed by exactly one
// terminal chunk, after which the channel is closed. A chunk is terminal when
// Done is true or Err is non-nil.
type StreamChunk struct {
	ID           string     `json:"id"`
	Model        string     `json:"model"`
	Created      int64      `json:"created"`
	Role         string     `json:"role,omitempty"`
	Delta        string     `json:"delta,omitempty"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Usage        *Usage     `json:"usage,omitempty"`

	// Done marks the normal end of the stream.
	Done bool `json:"-"`

	// Err marks abnormal termination; its Kind is already normalized.
	Err error `json:"-"`
}

// Terminal reports whether this chunk ends the stream.
func (c *StreamChunk) Terminal() bool {
	return c.Done || c.Err != nil
}

// Message role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Finish reason constants.
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonToolCalls     = "tool_calls"
	FinishReasonContentFilter = "content_filter"
)

// DefaultAttemptTimeout bounds one non-streaming upstream attempt.
const DefaultAttemptTimeout = 30 * time.Second

// DefaultStreamIdleTimeout bounds the gap between stream reads.
const DefaultStreamIdleTimeout = 60 * time.Second
