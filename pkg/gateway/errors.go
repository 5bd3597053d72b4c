package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/switchboard-ai/switchboard/pkg/providers"
)

// apiError is the OpenAI-shaped error body.
type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

// StatusClientClosedRequest is the nginx convention for a client that
// disconnected before the response was written.
const StatusClientClosedRequest = 499

// fieldError ties a gateway-side validation failure to the offending
// request field, surfaced as the envelope's param.
type fieldError struct {
	param string
	err   error
}

func (e *fieldError) Error() string { return e.err.Error() }
func (e *fieldError) Unwrap() error { return e.err }

// invalidField builds a KindInvalidRequest error attributed to one
// request field.
func invalidField(param, format string, args ...any) error {
	return &fieldError{
		param: param,
		err:   providers.Errorf(providers.KindInvalidRequest, "", format, args...),
	}
}

// writeError maps an error to the OpenAI error envelope. Upstream
// provider identities never appear in the client-visible message; the
// full detail stays in the logs keyed by the correlation id.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(r.Context(), err)

	var pe *providers.Error
	if errors.As(err, &pe) && pe.RetryAfter > 0 && status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", strconv.Itoa(int(pe.RetryAfter.Seconds())))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: body})
}

func classify(ctx context.Context, err error) (int, apiError) {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, apiError{
			Message: "request deadline exceeded",
			Type:    "timeout_error",
		}
	}

	kind := providers.KindOf(err)
	msg := clientMessage(err)

	switch kind {
	case providers.KindInvalidRequest:
		body := apiError{Message: msg, Type: "invalid_request_error"}
		if upstreamOrigin(err) {
			// Upstream rejection bodies can name provider-specific model
			// ids; they stay in the logs only.
			body.Message = "the upstream provider rejected the request as invalid"
		}
		var fe *fieldError
		if errors.As(err, &fe) {
			body.Param = fe.param
		}
		return http.StatusBadRequest, body

	case providers.KindNotFound:
		return http.StatusNotFound, apiError{
			Message: msg, Type: "invalid_request_error", Code: "model_not_found",
		}

	case providers.KindContextLengthExceeded:
		body := apiError{
			Message: msg, Type: "invalid_request_error", Code: "context_length_exceeded",
		}
		if upstreamOrigin(err) {
			body.Message = "request exceeds the model's context window"
		}
		return http.StatusBadRequest, body

	case providers.KindAuthFailed:
		return http.StatusUnauthorized, apiError{Message: msg, Type: "authentication_error"}

	case providers.KindRateLimited, providers.KindQuotaExhausted:
		return http.StatusTooManyRequests, apiError{
			Message: "rate limit reached, please retry later",
			Type:    "rate_limit_error",
		}

	case providers.KindUpstreamUnavailable, providers.KindTransient:
		return http.StatusServiceUnavailable, apiError{
			Message: "no upstream provider is currently able to serve this request",
			Type:    "server_error",
			Code:    "upstream_unavailable",
		}

	case providers.KindCanceled:
		return StatusClientClosedRequest, apiError{
			Message: "request canceled",
			Type:    "canceled",
		}

	default:
		return http.StatusInternalServerError, apiError{
			Message: fmt.Sprintf("internal error (request id %s)", RequestIDFrom(ctx)),
			Type:    "server_error",
		}
	}
}

// upstreamOrigin reports whether the error carries a provider identity,
// meaning its message is upstream text rather than gateway validation.
func upstreamOrigin(err error) bool {
	var pe *providers.Error
	return errors.As(err, &pe) && pe.Provider != ""
}

// clientMessage extracts the human-readable message without the
// provider prefix that providers.Error.Error() carries.
func clientMessage(err error) string {
	var pe *providers.Error
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return err.Error()
}

// badRequest is a convenience for handler-level validation failures.
func badRequest(w http.ResponseWriter, r *http.Request, format string, args ...any) {
	writeError(w, r, providers.Errorf(providers.KindInvalidRequest, "", format, args...))
}
