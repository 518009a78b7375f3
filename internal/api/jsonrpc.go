package api

import (
	"encoding/json"
	"fmt"

	"github.com/kiebitz/client-go/internal/crypto"
)

// Version is the JSON-RPC protocol version.
const Version = "2.0"

// Request is a JSON-RPC request envelope.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      string `json:"id"`
}

// Response is a JSON-RPC response envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      string          `json:"id"`
}

// Error is a JSON-RPC error object. The relay uses HTTP-style codes.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// TimestampField is added to every signed params object.
const TimestampField = "timestamp"

// SignParams turns params into the signed form: the params object with a
// timestamp field, signed by signer.
func SignParams(suite *crypto.Suite, params any, signer *crypto.KeyPair) (*crypto.SignedData, error) {
	fields := map[string]json.RawMessage{}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("params must be a JSON object: %w", err)
		}
		if fields == nil {
			fields = map[string]json.RawMessage{}
		}
	}

	ts, err := json.Marshal(suite.Now())
	if err != nil {
		return nil, err
	}
	fields[TimestampField] = ts

	return suite.SignJSON(fields, signer)
}
