package anthropic

import (
	"context"

	"github.com/switchboard-ai/switchboard/pkg/providers"
)

// Adapter speaks the Anthropic Messages API dialect.
type Adapter struct {
	base *providers.HTTPAdapter
}

// New creates an Anthropic-dialect adapter on top of the shared HTTP base.
func New(base *providers.HTTPAdapter) *Adapter {
	return &Adapter{base: base}
}

func (a *Adapter) headers(ctx context.Context, def providers.Definition) (map[string]string, error) {
	cred, err := a.base.Credential(ctx, def)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"x-api-key":         cred,
		"anthropic-version": apiVersion,
	}, nil
}

// Invoke implements providers.Adapter.
func (a *Adapter) Invoke(ctx context.Context, def providers.Definition, binding providers.Binding, req *providers.Request) (*providers.Response, error) {
	if req.Endpoint == providers.EndpointEmbeddings {
		return nil, providers.NewError(providers.KindNotFound, def.Key, "embeddings not supported by anthropic-style providers")
	}

	headers, err := a.headers(ctx, def)
	if err != nil {
		return nil, err
	}

	wire, err := toWire(req)
	if err != nil {
		return nil, providers.Errorf(providers.KindInvalidRequest, def.Key, "building request: %v", err)
	}
	wire.Stream = false

	var resp wireResponse
	if err := a.base.DoJSON(ctx, def, "/messages", wire, &resp, headers); err != nil {
		return nil, err
	}
	return fromWire(&resp), nil
}
