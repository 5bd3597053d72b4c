package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// HTTPAdapter is the shared base for HTTP provider adapters. It owns the
// pooled transport per provider key, performs the single fallback-endpoint
// retry on connect/DNS failure, and normalizes upstream failures into Kinds.
//
// Connection lifetime is bounded (IdleConnTimeout) so pooled connections do
// not outlive upstream DNS changes.
type HTTPAdapter struct {
	creds CredentialStore

	// clients pools one *http.Client per provider key.
	clients sync.Map // string -> *http.Client

	// AttemptTimeout bounds a single non-streaming attempt. Streaming
	// requests only inherit the request context's deadline.
	AttemptTimeout time.Duration
}

// NewHTTPAdapter creates the shared HTTP base with the given credential store.
func NewHTTPAdapter(creds CredentialStore) *HTTPAdapter {
	return &HTTPAdapter{
		creds:          creds,
		AttemptTimeout: DefaultAttemptTimeout,
	}
}

// Credential resolves the provider's credential, normalizing failures.
func (a *HTTPAdapter) Credential(ctx context.Context, def Definition) (string, error) {
	if a.creds == nil {
		return "", nil
	}
	cred, err := a.creds.Resolve(ctx, def.Key, def.CredentialRef)
	if err != nil {
		var ae *Error
		if errors.As(err, &ae) {
			return "", ae
		}
		return "", &Error{Kind: KindAuthFailed, Provider: def.Key, Message: "credential resolution failed", Cause: err}
	}
	return cred, nil
}

// client returns the pooled HTTP client for a provider, creating it on first
// use. One pool per provider keeps connection reuse and failure isolation
// per upstream.
func (a *HTTPAdapter) client(key string) *http.Client {
	if c, ok := a.clients.Load(key); ok {
		return c.(*http.Client)
	}
	transport := &http.Transport{
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	c := &http.Client{Transport: transport}
	actual, _ := a.clients.LoadOrStore(key, c)
	return actual.(*http.Client)
}

// Do performs one POST against the provider, trying the fallback endpoint at
// most once when the base endpoint is unreachable. On a non-2xx status the
// body is consumed and the error is normalized; on success the caller owns
// the response body.
//
// path is joined to the endpoint base. Do itself imposes no timeout; the
// non-streaming DoJSON wrapper arms the per-attempt timeout, streaming
// callers rely on the request context alone.
func (a *HTTPAdapter) Do(ctx context.Context, def Definition, path string, body []byte, headers map[string]string) (*http.Response, error) {
	endpoints := []string{def.BaseEndpoint}
	if def.FallbackEndpoint != "" {
		endpoints = append(endpoints, def.FallbackEndpoint)
	}

	var lastErr error
	for i, base := range endpoints {
		url := joinURL(base, path)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, &Error{Kind: KindInternal, Provider: def.Key, Message: "building request", Cause: err}
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := a.client(def.Key).Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctxError(ctx, def.Key)
			}
			if i == 0 && len(endpoints) > 1 && isConnectFailure(err) {
				slog.Warn("primary endpoint unreachable, trying fallback",
					"provider", def.Key,
					"endpoint", base,
					"error", err,
				)
				lastErr = err
				continue
			}
			return nil, &Error{Kind: KindUpstreamUnavailable, Provider: def.Key, Message: "request failed", Cause: err}
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		resp.Body.Close()
		return nil, normalizeStatus(def.Key, resp.StatusCode, string(errBody), resp.Header.Get("Retry-After"))
	}

	return nil, &Error{Kind: KindUpstreamUnavailable, Provider: def.Key, Message: "all endpoints unreachable", Cause: lastErr}
}

// DoJSON performs Do and decodes the 2xx response body into out.
func (a *HTTPAdapter) DoJSON(ctx context.Context, def Definition, path string, reqBody any, out any, headers map[string]string) error {
	if a.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.AttemptTimeout)
		defer cancel()
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return &Error{Kind: KindInternal, Provider: def.Key, Message: "encoding request", Cause: err}
	}

	resp, err := a.Do(ctx, def, path, body, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return ctxError(ctx, def.Key)
		}
		return &Error{Kind: KindTransient, Provider: def.Key, Message: "reading response", Cause: err}
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &Error{Kind: KindTransient, Provider: def.Key, Message: "decoding response", Cause: err}
		}
	}
	return nil
}

// ctxError maps a context failure to the normalized taxonomy.
func ctxError(ctx context.Context, provider string) *Error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return &Error{Kind: KindCanceled, Provider: provider, Message: "request canceled", Cause: ctx.Err()}
	}
	return &Error{Kind: KindTransient, Provider: provider, Message: "attempt deadline exceeded", Cause: ctx.Err()}
}

// isConnectFailure reports whether the error is a dial-level failure for
// which the fallback endpoint is worth one try.
func isConnectFailure(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}

// normalizeStatus maps an upstream HTTP status to the closed Kind taxonomy.
func normalizeStatus(provider string, status int, body, retryAfter string) *Error {
	e := &Error{Provider: provider, Status: status, Message: truncate(body, 512)}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindAuthFailed
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status == http.StatusRequestEntityTooLarge:
		e.Kind = KindContextLengthExceeded
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		if looksLikeQuotaExhaustion(body) {
			e.Kind = KindQuotaExhausted
		}
		e.RetryAfter = parseRetryAfter(retryAfter)
	case status == http.StatusBadRequest:
		e.Kind = KindInvalidRequest
		if looksLikeContextOverflow(body) {
			e.Kind = KindContextLengthExceeded
		}
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout:
		e.Kind = KindUpstreamUnavailable
	case status >= 500:
		e.Kind = KindTransient
	case status >= 400:
		e.Kind = KindInvalidRequest
	default:
		e.Kind = KindInternal
	}
	return e
}

// looksLikeQuotaExhaustion distinguishes "out of credit" 429s from momentary
// rate limits, based on the error codes the common upstreams use.
func looksLikeQuotaExhaustion(body string) bool {
	lower := strings.ToLower(body)
	for _, marker := range []string{"insufficient_quota", "quota", "billing", "credit"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// looksLikeContextOverflow detects context-window errors reported as 400s.
func looksLikeContextOverflow(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "context_length") ||
		strings.Contains(lower, "context length") ||
		strings.Contains(lower, "maximum context") ||
		strings.Contains(lower, "too many tokens")
}

// parseRetryAfter parses the Retry-After header value. It supports both
// delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 0
}

func joinURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
