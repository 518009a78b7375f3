// Package api is the JSON-RPC 2.0 transport between Kiebitz actors and the
// relay. It handles request signing, serialization, tracing, and retry with
// exponential backoff for transient failures.
//
// # Client Creation
//
//   - [NewClient]: struct-based configuration.
//   - [New]: functional options.
//
// Both require a relay base URL; requests are posted to BaseURL + [RPCPath].
//
// # Signed Calls
//
// When a signer is passed to [Client.Call], the params object gets a
// "timestamp" field and is sent as a [crypto.SignedData]. The relay
// identifies the caller by the key that signed, so every privileged method
// is signed.
//
// # Typed Methods
//
// Each relay method is a [Method] value pairing a request type with a
// response type, for example:
//
//	keys, err := api.GetKeys.Invoke(ctx, transport, api.Empty{}, nil)
//
// # Retry Behavior
//
// Network failures and HTTP status codes 408, 429, 500, 502, 503 and 504 are
// retried up to 3 times, doubling the delay each attempt (1s, 2s, 4s).
// JSON-RPC errors are answers, not failures, and are never retried; they
// surface as *apierrors.TransportError carrying the relay's code.
//
// # Thread Safety
//
// [Client] is safe for concurrent use.
package api
