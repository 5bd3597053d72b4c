package gateway

import (
	"time"

	"github.com/google/uuid"

	"github.com/switchboard-ai/switchboard/pkg/providers"
)

// wireChatResponse is the client-facing chat.completion shape. The
// responses endpoint reuses it with a different object tag.
type wireChatResponse struct {
	ID      string           `json:"id"`
	Object  string           `json:"object"`
	Created int64            `json:"created"`
	Model   string           `json:"model"`
	Choices []wireChatChoice `json:"choices"`
	Usage   providers.Usage  `json:"usage"`
}

type wireChatChoice struct {
	Index        int               `json:"index"`
	Message      providers.Message `json:"message"`
	FinishReason string            `json:"finish_reason"`
	LogProbs     any               `json:"logprobs,omitempty"`
}

// wireTextResponse is the legacy text_completion shape.
type wireTextResponse struct {
	ID      string           `json:"id"`
	Object  string           `json:"object"`
	Created int64            `json:"created"`
	Model   string           `json:"model"`
	Choices []wireTextChoice `json:"choices"`
	Usage   providers.Usage  `json:"usage"`
}

type wireTextChoice struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

type wireEmbeddingsResponse struct {
	Object string          `json:"object"`
	Data   []wireEmbedding `json:"data"`
	Model  string          `json:"model"`
	Usage  providers.Usage `json:"usage"`
}

type wireEmbedding struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// renderResponse converts a normalized upstream response into the
// client-facing shape for the endpoint. The model field reports the
// canonical id, never the provider-specific one.
func renderResponse(endpoint providers.EndpointKind, canonicalID string, resp *providers.Response) any {
	id := resp.ID
	created := resp.Created
	if created == 0 {
		created = time.Now().Unix()
	}

	switch endpoint {
	case providers.EndpointEmbeddings:
		data := make([]wireEmbedding, 0, len(resp.Embeddings))
		for _, e := range resp.Embeddings {
			data = append(data, wireEmbedding{Object: "embedding", Index: e.Index, Embedding: e.Embedding})
		}
		return wireEmbeddingsResponse{Object: "list", Data: data, Model: canonicalID, Usage: resp.Usage}

	case providers.EndpointCompletions:
		if id == "" {
			id = "cmpl-" + uuid.NewString()
		}
		choices := make([]wireTextChoice, 0, len(resp.Choices))
		for _, c := range resp.Choices {
			text, _ := c.Message.Content.(string)
			choices = append(choices, wireTextChoice{
				Index: c.Index, Text: text, FinishReason: c.FinishReason,
			})
		}
		return wireTextResponse{
			ID: id, Object: "text_completion", Created: created,
			Model: canonicalID, Choices: choices, Usage: resp.Usage,
		}

	default:
		object := "chat.completion"
		if endpoint == providers.EndpointResponses {
			object = "response"
		}
		if id == "" {
			id = "chatcmpl-" + uuid.NewString()
		}
		choices := make([]wireChatChoice, 0, len(resp.Choices))
		for _, c := range resp.Choices {
			choices = append(choices, wireChatChoice{
				Index: c.Index, Message: c.Message,
				FinishReason: c.FinishReason, LogProbs: c.LogProbs,
			})
		}
		return wireChatResponse{
			ID: id, Object: object, Created: created,
			Model: canonicalID, Choices: choices, Usage: resp.Usage,
		}
	}
}

// wireChunk is one streaming frame in the chat.completion.chunk shape.
type wireChunk struct {
	ID      string            `json:"id"`
	Object  string            `json:"object"`
	Created int64             `json:"created"`
	Model   string            `json:"model"`
	Choices []wireChunkChoice `json:"choices"`
	Usage   *providers.Usage  `json:"usage,omitempty"`
}

type wireChunkChoice struct {
	Index        int       `json:"index"`
	Delta        wireDelta `json:"delta"`
	FinishReason *string   `json:"finish_reason"`
}

type wireDelta struct {
	Role      string               `json:"role,omitempty"`
	Content   string               `json:"content,omitempty"`
	ToolCalls []providers.ToolCall `json:"tool_calls,omitempty"`
}

// renderChunk converts a normalized stream chunk into the client frame.
func renderChunk(streamID string, canonicalID string, c *providers.StreamChunk) wireChunk {
	created := c.Created
	if created == 0 {
		created = time.Now().Unix()
	}
	var finish *string
	if c.FinishReason != "" {
		finish = &c.FinishReason
	}
	return wireChunk{
		ID:      streamID,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   canonicalID,
		Choices: []wireChunkChoice{{
			Delta:        wireDelta{Role: c.Role, Content: c.Delta, ToolCalls: c.ToolCalls},
			FinishReason: finish,
		}},
		Usage: c.Usage,
	}
}
