package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/switchboard-ai/switchboard/pkg/providers"
	"github.com/switchboard-ai/switchboard/pkg/registry"
)

// PreferredProviderHeader lets a client pin the first fallback tier to
// one provider. Unknown providers are ignored, not errored.
const PreferredProviderHeader = "X-Switchboard-Provider"

// decodeRequest parses and validates the OpenAI-shaped body for the
// given endpoint. Returned errors carry KindInvalidRequest.
func decodeRequest(r *http.Request, endpoint providers.EndpointKind) (*providers.Request, error) {
	var req providers.Request
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, invalidField("body", "request body exceeds %d bytes", maxErr.Limit)
		}
		return nil, invalidField("body", "malformed JSON: %v", err)
	}
	req.Endpoint = endpoint

	if req.Model == "" {
		return nil, invalidField("model", "missing required field: model")
	}

	switch endpoint {
	case providers.EndpointChatCompletions:
		if len(req.Messages) == 0 {
			return nil, invalidField("messages", "missing required field: messages")
		}
	case providers.EndpointCompletions:
		if req.Prompt == "" {
			return nil, invalidField("prompt", "missing required field: prompt")
		}
	case providers.EndpointResponses:
		// The responses surface accepts either a plain input string or a
		// message list; both are normalized onto messages.
		if len(req.Messages) == 0 {
			msgs, err := inputMessages(req.Input)
			if err != nil {
				return nil, err
			}
			req.Messages = msgs
			req.Input = nil
		}
	case providers.EndpointEmbeddings:
		if req.Input == nil {
			return nil, invalidField("input", "missing required field: input")
		}
		if req.Stream {
			return nil, invalidField("stream", "embeddings do not support streaming")
		}
	}

	return &req, nil
}

func inputMessages(input any) ([]providers.Message, error) {
	switch v := input.(type) {
	case string:
		if v == "" {
			return nil, invalidField("input", "missing required field: input")
		}
		return []providers.Message{{Role: providers.RoleUser, Content: v}}, nil

	case []any:
		msgs := make([]providers.Message, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, invalidField("input", "input items must be role/content objects")
			}
			role, _ := m["role"].(string)
			if role == "" {
				role = providers.RoleUser
			}
			msgs = append(msgs, providers.Message{Role: role, Content: m["content"]})
		}
		if len(msgs) == 0 {
			return nil, invalidField("input", "missing required field: input")
		}
		return msgs, nil

	default:
		return nil, invalidField("input", "unsupported input type %T", input)
	}
}

// deriveCapabilities inspects the decoded body and returns the
// capability set a serving model must support.
func deriveCapabilities(endpoint providers.EndpointKind, req *providers.Request) registry.CapabilitySet {
	caps := registry.CapabilitySet{}

	switch endpoint {
	case providers.EndpointChatCompletions, providers.EndpointResponses:
		caps[registry.CapChat] = struct{}{}
	case providers.EndpointCompletions:
		caps[registry.CapCompletion] = struct{}{}
	case providers.EndpointEmbeddings:
		caps[registry.CapEmbedding] = struct{}{}
	}

	if req.Stream {
		caps[registry.CapStreaming] = struct{}{}
	}
	if len(req.Tools) > 0 {
		caps[registry.CapTools] = struct{}{}
	}
	if t, ok := req.ResponseFormat["type"].(string); ok {
		if t == "json_object" || t == "json_schema" {
			caps[registry.CapJSONMode] = struct{}{}
		}
	}
	if req.LogProbs {
		caps[registry.CapLogProbs] = struct{}{}
	}
	if hasImageParts(req.Messages) {
		caps[registry.CapVision] = struct{}{}
	}

	return caps
}

// hasImageParts reports whether any message carries an image_url
// content part (the multi-part content form).
func hasImageParts(messages []providers.Message) bool {
	for _, m := range messages {
		parts, ok := m.Content.([]any)
		if !ok {
			continue
		}
		for _, p := range parts {
			part, ok := p.(map[string]any)
			if !ok {
				continue
			}
			if t, _ := part["type"].(string); t == "image_url" {
				return true
			}
		}
	}
	return false
}
