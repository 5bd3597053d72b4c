package dedup

import (
	"testing"

	"github.com/switchboard-ai/switchboard/pkg/providers"
)

func TestFingerprint(t *testing.T) {
	base := func() *providers.Request {
		return &providers.Request{
			Model: "llama-3.3-70b",
			Messages: []providers.Message{
				{Role: providers.RoleUser, Content: "hello"},
			},
		}
	}

	fp := func(endpoint providers.EndpointKind, tenant string, req *providers.Request) string {
		t.Helper()
		got, err := Fingerprint(endpoint, tenant, req)
		if err != nil {
			t.Fatalf("Fingerprint() error = %v", err)
		}
		return got
	}

	ref := fp(providers.EndpointChatCompletions, "acme", base())

	if got := fp(providers.EndpointChatCompletions, "acme", base()); got != ref {
		t.Error("identical requests must share a fingerprint")
	}
	if got := fp(providers.EndpointChatCompletions, "globex", base()); got == ref {
		t.Error("different tenants must not share a fingerprint")
	}
	if got := fp(providers.EndpointCompletions, "acme", base()); got == ref {
		t.Error("different endpoints must not share a fingerprint")
	}

	changed := base()
	changed.Messages[0].Content = "hello!"
	if got := fp(providers.EndpointChatCompletions, "acme", changed); got == ref {
		t.Error("different bodies must not share a fingerprint")
	}
}
