package api

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// NetworkError is a transport failure talking to the API.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError is a request that ran past its deadline.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// InvalidResponseError is a response that arrived but cannot be used:
// a non-2xx status, an undecodable body, or an explicit ok:false.
type InvalidResponseError struct {
	Op     string
	Status int
	Reason string
	Err    error
}

func (e *InvalidResponseError) Error() string {
	msg := fmt.Sprintf("%s: invalid response", e.Op)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidResponseError) Unwrap() error { return e.Err }

// IsRecoverable reports whether err is a failure after which the last good
// result should be kept and shown.
func IsRecoverable(err error) bool {
	var netErr *NetworkError
	var timeoutErr *TimeoutError
	var invalidErr *InvalidResponseError
	return errors.As(err, &netErr) || errors.As(err, &timeoutErr) || errors.As(err, &invalidErr)
}

// classifyTransport maps an http.Client.Do error onto the typed errors.
// Cancellation is returned untouched so callers can match context.Canceled.
func classifyTransport(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Op: op, Err: err}
	}
	return &NetworkError{Op: op, Err: err}
}
