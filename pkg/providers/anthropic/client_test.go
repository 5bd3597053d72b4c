package anthropic

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/switchboard-ai/switchboard/internal/upstreamtest"
	"github.com/switchboard-ai/switchboard/pkg/providers"
)

func testDefinition(baseURL string) providers.Definition {
	return providers.Definition{
		Key:           "anthropic",
		Kind:          providers.KindAnthropicStyle,
		BaseEndpoint:  baseURL,
		Enabled:       true,
		CredentialRef: "anthropic",
	}
}

func newTestAdapter() *Adapter {
	return New(providers.NewHTTPAdapter(providers.StaticCredentials{"anthropic": "sk-ant"}))
}

func TestInvokeMessages(t *testing.T) {
	up := upstreamtest.New()
	defer up.Close()
	up.Script("/messages", upstreamtest.Response{
		Body: upstreamtest.MessagesResponse("claude-sonnet", "hello from claude"),
	})

	a := newTestAdapter()
	resp, err := a.Invoke(context.Background(), testDefinition(up.URL()), providers.Binding{}, &providers.Request{
		Model:    "claude-sonnet",
		Endpoint: providers.EndpointChatCompletions,
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: "be terse"},
			{Role: providers.RoleUser, Content: "hi"},
		},
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	if got := resp.Choices[0].Message.Content; got != "hello from claude" {
		t.Errorf("content = %q", got)
	}
	if resp.Choices[0].FinishReason != providers.FinishReasonStop {
		t.Errorf("finish reason = %q, want stop (normalized end_turn)", resp.Choices[0].FinishReason)
	}
	if resp.Usage.TotalTokens != 30 {
		t.Errorf("total tokens = %d, want input+output", resp.Usage.TotalTokens)
	}
	if up.LastAuthorization() != "sk-ant" {
		t.Errorf("x-api-key = %q", up.LastAuthorization())
	}
}

func TestInvokeEmbeddingsUnsupported(t *testing.T) {
	a := newTestAdapter()
	_, err := a.Invoke(context.Background(), testDefinition("http://unused"), providers.Binding{}, &providers.Request{
		Model:    "claude-sonnet",
		Endpoint: providers.EndpointEmbeddings,
		Input:    "x",
	})
	if providers.KindOf(err) != providers.KindNotFound {
		t.Errorf("kind = %v, want not_found", providers.KindOf(err))
	}
}

func TestToWireTransforms(t *testing.T) {
	req := &providers.Request{
		Model: "claude-sonnet",
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: "sys one"},
			{Role: providers.RoleSystem, Content: "sys two"},
			{Role: providers.RoleUser, Content: "question"},
			{Role: providers.RoleAssistant, ToolCalls: []providers.ToolCall{{
				ID: "call_1", Type: "function",
				Function: providers.FunctionCall{Name: "lookup", Arguments: `{"q":"x"}`},
			}}},
			{Role: providers.RoleTool, ToolCallID: "call_1", Content: "result"},
		},
	}

	wire, err := toWire(req)
	if err != nil {
		t.Fatalf("toWire() error = %v", err)
	}

	if wire.System != "sys one\nsys two" {
		t.Errorf("system = %q, want concatenated system turns", wire.System)
	}
	if wire.MaxTokens != defaultMaxTokens {
		t.Errorf("max_tokens = %d, want default when unset", wire.MaxTokens)
	}
	if len(wire.Messages) != 3 {
		t.Fatalf("messages = %d, want 3 (system lifted out)", len(wire.Messages))
	}
	if wire.Messages[1].Content[0].Type != "tool_use" {
		t.Errorf("assistant block type = %q, want tool_use", wire.Messages[1].Content[0].Type)
	}
	if wire.Messages[2].Role != "user" || wire.Messages[2].Content[0].Type != "tool_result" {
		t.Errorf("tool reply = %+v, want user turn with tool_result", wire.Messages[2])
	}
	if wire.Messages[2].Content[0].ToolUseID != "call_1" {
		t.Errorf("tool_use_id = %q", wire.Messages[2].Content[0].ToolUseID)
	}
}

func streamFrame(v map[string]any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestInvokeStreamNormalization(t *testing.T) {
	up := upstreamtest.New()
	defer up.Close()
	up.Script("/messages", upstreamtest.Response{
		StreamFrames: []string{
			streamFrame(map[string]any{
				"type": "message_start",
				"message": map[string]any{
					"id": "msg_1", "model": "claude-sonnet",
					"usage": map[string]any{"input_tokens": 7},
				},
			}),
			streamFrame(map[string]any{
				"type": "content_block_delta", "index": 0,
				"delta": map[string]any{"type": "text_delta", "text": "hel"},
			}),
			streamFrame(map[string]any{
				"type": "content_block_delta", "index": 0,
				"delta": map[string]any{"type": "text_delta", "text": "lo"},
			}),
			streamFrame(map[string]any{
				"type":  "message_delta",
				"delta": map[string]any{"stop_reason": "end_turn"},
				"usage": map[string]any{"output_tokens": 2},
			}),
			streamFrame(map[string]any{"type": "message_stop"}),
		},
	})

	a := newTestAdapter()
	ch, err := a.InvokeStream(context.Background(), testDefinition(up.URL()), providers.Binding{}, &providers.Request{
		Model:    "claude-sonnet",
		Stream:   true,
		Messages: []providers.Message{{Role: providers.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("InvokeStream() error = %v", err)
	}

	var text, finish string
	var usage *providers.Usage
	var sawRole bool
	for chunk := range ch {
		if chunk.Err != nil {
			t.Fatalf("stream error: %v", chunk.Err)
		}
		if chunk.Role == providers.RoleAssistant {
			sawRole = true
		}
		text += chunk.Delta
		if chunk.FinishReason != "" {
			finish = chunk.FinishReason
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
	}

	if !sawRole {
		t.Error("missing role announcement chunk")
	}
	if text != "hello" {
		t.Errorf("assembled text = %q", text)
	}
	if finish != providers.FinishReasonStop {
		t.Errorf("finish = %q, want stop", finish)
	}
	if usage == nil || usage.PromptTokens != 7 || usage.CompletionTokens != 2 || usage.TotalTokens != 9 {
		t.Errorf("usage = %+v, want 7/2/9", usage)
	}
}
