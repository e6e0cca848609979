package localmodel

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// RequestError wraps local runtime errors with status metadata.
type RequestError struct {
	Status    int
	Temporary bool
	Err       error
}

func (e *RequestError) Error() string {
	if e == nil {
		return "local model error"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("local model error (status=%d)", e.Status)
}

func (e *RequestError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTransport reports whether an error is a transport-level failure
// (unreachable, timed out, or non-success status) rather than a caller bug.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}
