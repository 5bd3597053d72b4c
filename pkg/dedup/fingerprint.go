package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/switchboard-ai/switchboard/pkg/providers"
)

// Fingerprint derives the stable identity of a request: the endpoint
// kind, the authenticated tenant scope, and the canonicalized request
// body. Requests from different tenants never share a fingerprint.
func Fingerprint(endpoint providers.EndpointKind, tenant string, req *providers.Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write([]byte(endpoint))
	h.Write([]byte{0})
	h.Write([]byte(tenant))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), nil
}
