package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/switchboard-ai/switchboard/pkg/providers"
)

// apiVersion is the Messages API revision sent on every request.
const apiVersion = "2023-06-01"

// defaultMaxTokens is used when the client omits max_tokens; the Messages
// API requires it.
const defaultMaxTokens = 4096

// wireRequest is the Messages API request body.
type wireRequest struct {
	Model         string        `json:"model"`
	System        string        `json:"system,omitempty"`
	Messages      []wireMessage `json:"messages"`
	MaxTokens     int           `json:"max_tokens"`
	Temperature   *float64      `json:"temperature,omitempty"`
	TopP          *float64      `json:"top_p,omitempty"`
	Stream        bool          `json:"stream,omitempty"`
	StopSequences []string      `json:"stop_sequences,omitempty"`
	Tools         []wireTool    `json:"tools,omitempty"`
}

type wireMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`

	// text blocks
	Text string `json:"text,omitempty"`

	// tool_use blocks (assistant tool calls)
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result blocks (tool role replies)
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type wireTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

// wireResponse is the Messages API response body.
type wireResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      wireUsage      `json:"usage"`
}

type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// toWire converts a normalized request into the Messages API shape. System
// messages are lifted into the top-level system field; tool replies become
// tool_result blocks on a user turn, as the API requires.
func toWire(req *providers.Request) (*wireRequest, error) {
	wire := &wireRequest{
		Model:         req.Model,
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		Stream:        req.Stream,
		StopSequences: req.Stop,
	}
	if wire.MaxTokens == 0 {
		wire.MaxTokens = defaultMaxTokens
	}

	for _, msg := range req.Messages {
		switch msg.Role {
		case providers.RoleSystem:
			if wire.System != "" {
				wire.System += "\n"
			}
			wire.System += textOf(msg.Content)

		case providers.RoleTool:
			wire.Messages = append(wire.Messages, wireMessage{
				Role: "user",
				Content: []contentBlock{{
					Type:      "tool_result",
					ToolUseID: msg.ToolCallID,
					Content:   textOf(msg.Content),
				}},
			})

		case providers.RoleAssistant:
			blocks := []contentBlock{}
			if text := textOf(msg.Content); text != "" {
				blocks = append(blocks, contentBlock{Type: "text", Text: text})
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, contentBlock{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Function.Name,
					Input: json.RawMessage(tc.Function.Arguments),
				})
			}
			wire.Messages = append(wire.Messages, wireMessage{Role: "assistant", Content: blocks})

		default:
			wire.Messages = append(wire.Messages, wireMessage{
				Role:    "user",
				Content: []contentBlock{{Type: "text", Text: textOf(msg.Content)}},
			})
		}
	}

	for _, t := range req.Tools {
		wire.Tools = append(wire.Tools, wireTool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: t.Function.Parameters,
		})
	}

	return wire, nil
}

// textOf flattens OpenAI message content (string or part array) to text.
func textOf(content any) string {
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		var out string
		for _, part := range v {
			pm, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if pm["type"] == "text" {
				if t, ok := pm["text"].(string); ok {
					if out != "" {
						out += " "
					}
					out += t
				}
			}
		}
		return out
	default:
		return fmt.Sprintf("%v", v)
	}
}

// fromWire converts a Messages API response into the normalized shape.
func fromWire(resp *wireResponse) *providers.Response {
	msg := providers.Message{Role: providers.RoleAssistant}
	var text string
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text += block.Text
		case "tool_use":
			msg.ToolCalls = append(msg.ToolCalls, providers.ToolCall{
				ID:   block.ID,
				Type: "function",
				Function: providers.FunctionCall{
					Name:      block.Name,
					Arguments: string(block.Input),
				},
			})
		}
	}
	msg.Content = text

	return &providers.Response{
		ID:    resp.ID,
		Model: resp.Model,
		Choices: []providers.Choice{{
			Index:        0,
			Message:      msg,
			FinishReason: normalizeStopReason(resp.StopReason),
		}},
		Usage: providers.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
}

// normalizeStopReason maps Messages API stop reasons onto OpenAI values.
func normalizeStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return providers.FinishReasonStop
	case "max_tokens":
		return providers.FinishReasonLength
	case "tool_use":
		return providers.FinishReasonToolCalls
	default:
		return reason
	}
}
