package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kiebitz/client-go/internal/apierrors"
	"github.com/kiebitz/client-go/internal/crypto"
)

// Transport is what role clients need from the relay connection.
// Implementations return *apierrors.TransportError when the relay rejects
// a call.
type Transport interface {
	Call(ctx context.Context, method string, params any, signer *crypto.KeyPair) (json.RawMessage, error)
}

var _ Transport = (*Client)(nil)

// Empty is the params or result of methods that carry none.
type Empty struct{}

// Method is one RPC method with its request and response types. Signed
// methods require a signer. NoRetry methods change relay state in a way a
// repeat would not reproduce, so they are sent at most once.
type Method[Req, Resp any] struct {
	Name    string
	Signed  bool
	NoRetry bool
}

// Invoke calls m over t. The signer is ignored for unsigned methods.
func (m Method[Req, Resp]) Invoke(ctx context.Context, t Transport, req Req, signer *crypto.KeyPair) (Resp, error) {
	var resp Resp
	if m.Signed && signer == nil {
		return resp, &apierrors.AuthError{Missing: "signing key for " + m.Name}
	}
	if !m.Signed {
		signer = nil
	}
	if m.NoRetry {
		ctx = WithoutRetry(ctx)
	}

	raw, err := t.Call(ctx, m.Name, req, signer)
	if err != nil {
		return resp, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return resp, nil
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return resp, fmt.Errorf("%s: decode result: %w", m.Name, err)
	}
	return resp, nil
}
