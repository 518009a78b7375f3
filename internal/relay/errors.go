package relay

import (
	"errors"
	"fmt"
	"net/http"
)

// rpcError is a relay rejection. Code doubles as the HTTP status.
type rpcError struct {
	Code    int
	Message string
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("relay error %d: %s", e.Code, e.Message)
}

func badRequest(format string, args ...any) error {
	return &rpcError{Code: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func unauthorized(format string, args ...any) error {
	return &rpcError{Code: http.StatusUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error {
	return &rpcError{Code: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) error {
	return &rpcError{Code: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}

// asRPCError converts err into the error object sent to the caller.
// Anything that is not an rpcError is reported as an internal error
// without details.
func asRPCError(err error) *rpcError {
	var re *rpcError
	if errors.As(err, &re) {
		return re
	}
	return &rpcError{Code: http.StatusInternalServerError, Message: "internal error"}
}
