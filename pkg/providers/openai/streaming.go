package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/switchboard-ai/switchboard/pkg/providers"
)

// wireStreamResponse is one SSE data frame of the upstream stream.
type wireStreamResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []wireStreamChoice `json:"choices"`
	Usage   *providers.Usage   `json:"usage,omitempty"`
}

type wireStreamChoice struct {
	Index        int             `json:"index"`
	Delta        wireStreamDelta `json:"delta"`
	Text         string          `json:"text"` // legacy completions
	FinishReason string          `json:"finish_reason,omitempty"`
}

type wireStreamDelta struct {
	Role      string                `json:"role,omitempty"`
	Content   string                `json:"content,omitempty"`
	ToolCalls []providers.ToolCall  `json:"tool_calls,omitempty"`
}

// InvokeStream implements providers.Adapter. The returned channel yields
// zero or more data chunks, then exactly one terminal chunk, then closes.
func (a *Adapter) InvokeStream(ctx context.Context, def providers.Definition, binding providers.Binding, req *providers.Request) (<-chan *providers.StreamChunk, error) {
	headers, err := a.headers(ctx, def)
	if err != nil {
		return nil, err
	}
	headers["Accept"] = "text/event-stream"

	wire := toWire(req)
	wire.Stream = true
	wire.StreamOptions = &wireStreamOptions{IncludeUsage: true}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, providers.Errorf(providers.KindInternal, def.Key, "encoding request: %v", err)
	}

	resp, err := a.base.Do(ctx, def, endpointPath(req.Endpoint), body, headers)
	if err != nil {
		return nil, err
	}

	out := make(chan *providers.StreamChunk, 8)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)

		idle := time.NewTimer(providers.DefaultStreamIdleTimeout)
		defer idle.Stop()

		lines := make(chan string)
		scanErr := make(chan error, 1)
		go func() {
			defer close(lines)
			for scanner.Scan() {
				select {
				case lines <- scanner.Text():
				case <-ctx.Done():
					return
				}
			}
			scanErr <- scanner.Err()
		}()

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
					// Reader finished without [DONE]; normal end for
					// upstreams that just close the connection. The reader
					// goroutine only posts scanErr when it ran to EOF.
					select {
					case err := <-scanErr:
						if err != nil && ctx.Err() == nil {
							out <- &providers.StreamChunk{Err: &providers.Error{
								Kind: providers.KindTransient, Provider: def.Key,
								Message: "reading stream", Cause: err,
							}}
							return
						}
					default:
					}
					out <- &providers.StreamChunk{Done: true}
					return
				}

				idle.Reset(providers.DefaultStreamIdleTimeout)

				data, ok := sseData(line)
				if !ok {
					continue
				}
				if data == "[DONE]" {
					out <- &providers.StreamChunk{Done: true}
					return
				}

				chunk, err := decodeStreamFrame(data, def.Key)
				if err != nil {
					out <- &providers.StreamChunk{Err: err}
					return
				}
				if chunk != nil {
					select {
					case out <- chunk:
					case <-ctx.Done():
						out <- &providers.StreamChunk{Err: &providers.Error{
							Kind: providers.KindCanceled, Provider: def.Key,
							Message: "stream canceled", Cause: ctx.Err(),
						}}
						return
					}
				}
			}
		}
	}()

	return out, nil
}

// sseData extracts the payload of a "data:" SSE line. Comments, event names
// and blank keep-alive lines are skipped.
func sseData(line string) (string, bool) {
	if !strings.HasPrefix(line, "data:") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(line, "data:")), true
}

// decodeStreamFrame converts one upstream SSE frame into a normalized chunk.
// Frames with neither delta content nor usage (e.g. the initial role-only
// frame) still pass through so the client sees the role announcement.
func decodeStreamFrame(data, provider string) (*providers.StreamChunk, error) {
	var frame wireStreamResponse
	if err := json.Unmarshal([]byte(data), &frame); err != nil {
		return nil, &providers.Error{
			Kind: providers.KindTransient, Provider: provider,
			Message: "decoding stream frame", Cause: err,
		}
	}

	chunk := &providers.StreamChunk{
		ID:      frame.ID,
		Model:   frame.Model,
		Created: frame.Created,
		Usage:   frame.Usage,
	}
	if len(frame.Choices) > 0 {
		c := frame.Choices[0]
		chunk.Role = c.Delta.Role
		chunk.Delta = c.Delta.Content
		if chunk.Delta == "" && c.Text != "" {
			chunk.Delta = c.Text
		}
		chunk.ToolCalls = c.Delta.ToolCalls
		chunk.FinishReason = c.FinishReason
	}
	return chunk, nil
}
