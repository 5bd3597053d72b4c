package openai

import (
	"context"

	"github.com/switchboard-ai/switchboard/pkg/providers"
)

// Adapter speaks the OpenAI wire dialect. It embeds the shared HTTP base
// for pooling, fallback endpoints, and error normalization.
type Adapter struct {
	base *providers.HTTPAdapter
}

// New creates an OpenAI-dialect adapter on top of the shared HTTP base.
func New(base *providers.HTTPAdapter) *Adapter {
	return &Adapter{base: base}
}

// wireRequest is the request body sent upstream. It mirrors the normalized
// request; only the embeddings endpoint uses a reduced shape.
type wireRequest struct {
	Model            string               `json:"model"`
	Messages         []providers.Message  `json:"messages,omitempty"`
	Prompt           string               `json:"prompt,omitempty"`
	Temperature      *float64             `json:"temperature,omitempty"`
	TopP             *float64             `json:"top_p,omitempty"`
	MaxTokens        int                  `json:"max_tokens,omitempty"`
	Stream           bool                 `json:"stream,omitempty"`
	Tools            []providers.Tool     `json:"tools,omitempty"`
	ToolChoice       any                  `json:"tool_choice,omitempty"`
	ResponseFormat   map[string]any       `json:"response_format,omitempty"`
	LogProbs         bool                 `json:"logprobs,omitempty"`
	Stop             []string             `json:"stop,omitempty"`
	PresencePenalty  *float64             `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64             `json:"frequency_penalty,omitempty"`
	User             string               `json:"user,omitempty"`
	StreamOptions    *wireStreamOptions   `json:"stream_options,omitempty"`
}

type wireStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// wireResponse is the upstream chat/completions response.
type wireResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []wireChoice `json:"choices"`
	Usage   providers.Usage `json:"usage"`
}

type wireChoice struct {
	Index        int               `json:"index"`
	Message      providers.Message `json:"message"`
	Text         string            `json:"text"` // legacy completions
	FinishReason string            `json:"finish_reason"`
	LogProbs     any               `json:"logprobs,omitempty"`
}

// wireEmbeddingsRequest is the reduced body for /embeddings.
type wireEmbeddingsRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
	User  string `json:"user,omitempty"`
}

type wireEmbeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Model string          `json:"model"`
	Usage providers.Usage `json:"usage"`
}

// endpointPath maps an endpoint kind to the upstream path. The responses
// endpoint is normalized through chat/completions; OpenAI-compatible servers
// rarely expose /responses and the normalized shape is identical for our
// purposes.
func endpointPath(kind providers.EndpointKind) string {
	switch kind {
	case providers.EndpointCompletions:
		return "/completions"
	case providers.EndpointEmbeddings:
		return "/embeddings"
	default:
		return "/chat/completions"
	}
}

func (a *Adapter) headers(ctx context.Context, def providers.Definition) (map[string]string, error) {
	cred, err := a.base.Credential(ctx, def)
	if err != nil {
		return nil, err
	}
	h := map[string]string{}
	if cred != "" {
		h["Authorization"] = "Bearer " + cred
	}
	return h, nil
}

// Invoke implements providers.Adapter.
func (a *Adapter) Invoke(ctx context.Context, def providers.Definition, binding providers.Binding, req *providers.Request) (*providers.Response, error) {
	headers, err := a.headers(ctx, def)
	if err != nil {
		return nil, err
	}

	if req.Endpoint == providers.EndpointEmbeddings {
		return a.invokeEmbeddings(ctx, def, req, headers)
	}

	wire := toWire(req)
	wire.Stream = false

	var resp wireResponse
	if err := a.base.DoJSON(ctx, def, endpointPath(req.Endpoint), wire, &resp, headers); err != nil {
		return nil, err
	}
	return fromWire(&resp, def.Key)
}

func (a *Adapter) invokeEmbeddings(ctx context.Context, def providers.Definition, req *providers.Request, headers map[string]string) (*providers.Response, error) {
	wire := wireEmbeddingsRequest{Model: req.Model, Input: req.Input, User: req.User}

	var resp wireEmbeddingsResponse
	if err := a.base.DoJSON(ctx, def, "/embeddings", wire, &resp, headers); err != nil {
		return nil, err
	}

	out := &providers.Response{Model: resp.Model, Usage: resp.Usage}
	out.Embeddings = make([]providers.Embedding, len(resp.Data))
	for i, d := range resp.Data {
		out.Embeddings[i] = providers.Embedding{Index: d.Index, Embedding: d.Embedding}
	}
	return out, nil
}

// toWire maps the normalized request onto the wire body.
func toWire(req *providers.Request) *wireRequest {
	return &wireRequest{
		Model:            req.Model,
		Messages:         req.Messages,
		Prompt:           req.Prompt,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		MaxTokens:        req.MaxTokens,
		Stream:           req.Stream,
		Tools:            req.Tools,
		ToolChoice:       req.ToolChoice,
		ResponseFormat:   req.ResponseFormat,
		LogProbs:         req.LogProbs,
		Stop:             req.Stop,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
		User:             req.User,
	}
}

// fromWire maps the upstream response onto the normalized shape.
func fromWire(resp *wireResponse, provider string) (*providers.Response, error) {
	if len(resp.Choices) == 0 {
		return nil, providers.NewError(providers.KindTransient, provider, "no choices in response")
	}

	out := &providers.Response{
		ID:      resp.ID,
		Model:   resp.Model,
		Created: resp.Created,
		Usage:   resp.Usage,
		Choices: make([]providers.Choice, len(resp.Choices)),
	}
	for i, c := range resp.Choices {
		msg := c.Message
		if msg.Role == "" {
			// Legacy completions carry bare text.
			msg = providers.Message{Role: providers.RoleAssistant, Content: c.Text}
		}
		out.Choices[i] = providers.Choice{
			Index:        c.Index,
			Message:      msg,
			FinishReason: c.FinishReason,
			LogProbs:     c.LogProbs,
		}
	}
	return out, nil
}
