// Package upstreamtest provides a scriptable mock upstream for adapter
// tests: fixed JSON responses, SSE streams, pushback headers and
// injected delays, per path.
package upstreamtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// Response scripts what the upstream returns for one path.
type Response struct {
	Status  int
	Body    any
	Headers map[string]string
	Delay   time.Duration

	// StreamFrames, when set, turns the response into an SSE stream:
	// each frame becomes one "data:" line, followed by "data: [DONE]".
	StreamFrames []string
}

// Upstream is a mock provider server.
type Upstream struct {
	server *httptest.Server

	mu        sync.Mutex
	responses map[string]Response
	requests  int
	lastAuth  string
}

// New starts a mock upstream. Callers own Close.
func New() *Upstream {
	u := &Upstream{responses: make(map[string]Response)}
	u.server = httptest.NewServer(http.HandlerFunc(u.handle))
	return u
}

// URL is the upstream's base URL.
func (u *Upstream) URL() string { return u.server.URL }

// Close shuts the server down.
func (u *Upstream) Close() { u.server.Close() }

// Script sets the response for a path.
func (u *Upstream) Script(path string, r Response) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.responses[path] = r
}

// Requests returns how many requests arrived.
func (u *Upstream) Requests() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.requests
}

// LastAuthorization returns the Authorization header of the most recent
// request (or the x-api-key header when Authorization was absent).
func (u *Upstream) LastAuthorization() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastAuth
}

func (u *Upstream) handle(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.requests++
	u.lastAuth = r.Header.Get("Authorization")
	if u.lastAuth == "" {
		u.lastAuth = r.Header.Get("x-api-key")
	}
	resp, ok := u.responses[r.URL.Path]
	u.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}

	if len(resp.StreamFrames) > 0 {
		u.stream(w, resp.StreamFrames)
		return
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	switch body := resp.Body.(type) {
	case nil:
	case string:
		_, _ = w.Write([]byte(body))
	default:
		_ = json.NewEncoder(w).Encode(body)
	}
}

func (u *Upstream) stream(w http.ResponseWriter, frames []string) {
	w.Header().Set("Content-Type", "text/event-stream")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	for _, frame := range frames {
		fmt.Fprintf(w, "data: %s\n\n", frame)
		flusher.Flush()
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// ChatResponse builds an OpenAI-shaped chat completion body.
func ChatResponse(model, content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{
			"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30,
		},
	}
}

// ChatChunk builds one OpenAI-shaped streaming frame.
func ChatChunk(model, delta, finishReason string) string {
	frame := map[string]any{
		"id":      "chatcmpl-123",
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]any{{
			"index":         0,
			"delta":         map[string]any{"content": delta},
			"finish_reason": finishReason,
		}},
	}
	b, _ := json.Marshal(frame)
	return string(b)
}

// MessagesResponse builds an Anthropic Messages API body.
func MessagesResponse(model, content string) map[string]any {
	return map[string]any{
		"id":    "msg_123",
		"type":  "message",
		"role":  "assistant",
		"model": model,
		"content": []map[string]any{
			{"type": "text", "text": content},
		},
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 10, "output_tokens": 20},
	}
}

// ErrorResponse builds an OpenAI-shaped error body for a status code.
func ErrorResponse(status int, message string) Response {
	return Response{
		Status: status,
		Body: map[string]any{
			"error": map[string]any{"message": message, "type": "invalid_request_error"},
		},
	}
}
