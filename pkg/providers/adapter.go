package providers

import "context"

// Adapter sends one normalized request to one upstream provider.
//
// Implementations must respect context cancellation: a canceled ctx closes
// the upstream connection and, for streams, ends the stream with a terminal
// chunk whose error has KindCanceled.
type Adapter interface {
	// Invoke performs a non-streaming request. The request's Model field
	// already carries the binding's provider-specific identifier.
	//
	// Every returned error is a *Error with a normalized Kind.
	Invoke(ctx context.Context, def Definition, binding Binding, req *Request) (*Response, error)

	// InvokeStream performs a streaming request. The returned channel
	// yields zero or more data chunks and then exactly one terminal chunk
	// (Done or Err), after which it is closed.
	//
	// An error returned directly (nil channel) means the stream never
	// started; it is normalized the same way as Invoke errors.
	InvokeStream(ctx context.Context, def Definition, binding Binding, req *Request) (<-chan *StreamChunk, error)
}

// CredentialStore resolves a provider's credential reference into the secret
// actually sent on the wire. The gateway core never stores secrets itself.
type CredentialStore interface {
	// Resolve returns the credential for the given provider. An error is
	// normalized by the caller to KindAuthFailed.
	Resolve(ctx context.Context, providerKey, credentialRef string) (string, error)
}

// StaticCredentials is a CredentialStore backed by an in-memory map, built
// from configuration (credentialRef -> secret, typically via environment
// expansion at load time).
type StaticCredentials map[string]string

// Resolve implements CredentialStore.
func (s StaticCredentials) Resolve(_ context.Context, providerKey, credentialRef string) (string, error) {
	if cred, ok := s[credentialRef]; ok && cred != "" {
		return cred, nil
	}
	// Fall back to a per-provider entry so small configs can omit refs.
	if cred, ok := s[providerKey]; ok && cred != "" {
		return cred, nil
	}
	return "", Errorf(KindAuthFailed, providerKey, "no credential for ref %q", credentialRef)
}
