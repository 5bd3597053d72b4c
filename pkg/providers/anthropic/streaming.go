package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/switchboard-ai/switchboard/pkg/providers"
)

// streamEvent is one SSE frame of a Messages API stream. The event name
// arrives on its own "event:" line; the payload type field repeats it.
type streamEvent struct {
	Type string `json:"type"`

	// message_start
	Message *struct {
		ID    string    `json:"id"`
		Model string    `json:"model"`
		Usage wireUsage `json:"usage"`
	} `json:"message,omitempty"`

	// content_block_start / content_block_delta
	Index        int           `json:"index,omitempty"`
	ContentBlock *contentBlock `json:"content_block,omitempty"`
	Delta        *struct {
		Type        string `json:"type"`
		Text        string `json:"text,omitempty"`
		PartialJSON string `json:"partial_json,omitempty"`
		StopReason  string `json:"stop_reason,omitempty"`
	} `json:"delta,omitempty"`

	// message_delta
	Usage *wireUsage `json:"usage,omitempty"`

	// error
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// InvokeStream implements providers.Adapter. Messages API events are
// re-normalized into OpenAI-shaped chunks: text deltas become content
// deltas, tool_use input deltas become tool-call argument fragments, and
// message_stop becomes the terminal frame.
func (a *Adapter) InvokeStream(ctx context.Context, def providers.Definition, binding providers.Binding, req *providers.Request) (<-chan *providers.StreamChunk, error) {
	headers, err := a.headers(ctx, def)
	if err != nil {
		return nil, err
	}
	headers["Accept"] = "text/event-stream"

	wire, err := toWire(req)
	if err != nil {
		return nil, providers.Errorf(providers.KindInvalidRequest, def.Key, "building request: %v", err)
	}
	wire.Stream = true

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, providers.Errorf(providers.KindInternal, def.Key, "encoding request: %v", err)
	}

	resp, err := a.base.Do(ctx, def, "/messages", body, headers)
	if err != nil {
		return nil, err
	}

	out := make(chan *providers.StreamChunk, 8)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		var (
			msgID     string
			model     string
			usage     wireUsage
			toolCalls map[int]*providers.ToolCall
		)
		toolCalls = make(map[int]*providers.ToolCall)

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)

		idle := time.NewTimer(providers.DefaultStreamIdleTimeout)
		defer idle.Stop()

		lines := make(chan string)
		go func() {
			defer close(lines)
			for scanner.Scan() {
				select {
				case lines <- scanner.Text():
				case <-ctx.Done():
					return
				}
			}
		}()

		emit := func(c *providers.StreamChunk) bool {
			c.ID = msgID
			c.Model = model
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				out <- &providers.StreamChunk{Err: &providers.Error{
					Kind: providers.KindCanceled, Provider: def.Key,
					Message: "stream canceled", Cause: ctx.Err(),
				}}
				return

			case <-idle.C:
				out <- &providers.StreamChunk{Err: providers.NewError(
					providers.KindTransient, def.Key, "stream idle timeout")}
				return

			case line, ok := <-lines:
				if !ok {
					if ctx.Err() != nil {
						out <- &providers.StreamChunk{Err: &providers.Error{
							Kind: providers.KindCanceled, Provider: def.Key,
							Message: "stream canceled", Cause: ctx.Err(),
						}}
						return
					}
					// Connection closed without message_stop.
					out <- &providers.StreamChunk{Done: true}
					return
				}

				idle.Reset(providers.DefaultStreamIdleTimeout)

				if !strings.HasPrefix(line, "data:") {
					continue
				}
				data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

				var ev streamEvent
				if err := json.Unmarshal([]byte(data), &ev); err != nil {
					out <- &providers.StreamChunk{Err: &providers.Error{
						Kind: providers.KindTransient, Provider: def.Key,
						Message: "decoding stream event", Cause: err,
					}}
					return
				}

				switch ev.Type {
				case "message_start":
					if ev.Message != nil {
						msgID = ev.Message.ID
						model = ev.Message.Model
						usage.InputTokens = ev.Message.Usage.InputTokens
					}
					if !emit(&providers.StreamChunk{Role: providers.RoleAssistant}) {
						return
					}

				case "content_block_start":
					if ev.ContentBlock != nil && ev.ContentBlock.Type == "tool_use" {
						toolCalls[ev.Index] = &providers.ToolCall{
							ID:       ev.ContentBlock.ID,
							Type:     "function",
							Function: providers.FunctionCall{Name: ev.ContentBlock.Name},
						}
					}

				case "content_block_delta":
					if ev.Delta == nil {
						continue
					}
					switch ev.Delta.Type {
					case "text_delta":
						if !emit(&providers.StreamChunk{Delta: ev.Delta.Text}) {
							return
						}
					case "input_json_delta":
						if tc, ok := toolCalls[ev.Index]; ok {
							tc.Function.Arguments += ev.Delta.PartialJSON
						}
					}

				case "message_delta":
					if ev.Usage != nil {
						usage.OutputTokens = ev.Usage.OutputTokens
					}
					if ev.Delta != nil && ev.Delta.StopReason != "" {
						chunk := &providers.StreamChunk{
							FinishReason: normalizeStopReason(ev.Delta.StopReason),
						}
						for i := 0; i < len(toolCalls); i++ {
							if tc, ok := toolCalls[i]; ok {
								chunk.ToolCalls = append(chunk.ToolCalls, *tc)
							}
						}
						if !emit(chunk) {
							return
						}
					}

				case "message_stop":
					total := usage.InputTokens + usage.OutputTokens
					out <- &providers.StreamChunk{
						ID: msgID, Model: model, Done: true,
						Usage: &providers.Usage{
							PromptTokens:     usage.InputTokens,
							CompletionTokens: usage.OutputTokens,
							TotalTokens:      total,
						},
					}
					return

				case "error":
					msg := "upstream stream error"
					if ev.Error != nil {
						msg = ev.Error.Message
					}
					out <- &providers.StreamChunk{Err: providers.NewError(
						providers.KindTransient, def.Key, msg)}
					return
				}
			}
		}
	}()

	return out, nil
}
