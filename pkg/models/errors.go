package models

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the transport layer.
var (
	ErrSessionClosed    = errors.New("session is closed")
	ErrOperationTimeout = errors.New("operation timed out")
)

// ErrorKind is the machine-readable classification surfaced to callers.
type ErrorKind string

const (
	KindResolutionError  ErrorKind = "ResolutionError"
	KindGuardrailBlocked ErrorKind = "GuardrailBlocked"
	KindConnectionError  ErrorKind = "ConnectionError"
	KindExecutionError   ErrorKind = "ExecutionError"
)

// OpError is a classified operation error. Output holds partial device
// output collected before an execution failure.
type OpError struct {
	Kind    ErrorKind
	Message string
	Output  string
	Inner   error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Inner)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the inner error.
func (e *OpError) Unwrap() error {
	return e.Inner
}

// Is matches OpErrors by kind.
func (e *OpError) Is(target error) bool {
	t, ok := target.(*OpError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithInner attaches a cause.
func (e *OpError) WithInner(err error) *OpError {
	e.Inner = err
	return e
}

// AsOpError extracts an OpError from an error chain.
func AsOpError(err error) (*OpError, bool) {
	var op *OpError
	if errors.As(err, &op) {
		return op, true
	}
	return nil, false
}

// NewResolutionError reports an unknown or misconfigured device.
func NewResolutionError(format string, args ...interface{}) *OpError {
	return &OpError{Kind: KindResolutionError, Message: fmt.Sprintf(format, args...)}
}

// NewGuardrailBlocked reports a safety-policy rejection. This is always
// distinguished from transport failures so callers can tell a policy
// rejection apart from an unreachable device.
func NewGuardrailBlocked(reason string) *OpError {
	return &OpError{Kind: KindGuardrailBlocked, Message: reason}
}

// NewConnectionError reports a failure to establish a session.
func NewConnectionError(message string, cause error) *OpError {
	return &OpError{Kind: KindConnectionError, Message: message, Inner: cause}
}

// NewExecutionError reports a failure during command execution, keeping
// whatever output was collected before the failure.
func NewExecutionError(message string, partialOutput string, cause error) *OpError {
	return &OpError{Kind: KindExecutionError, Message: message, Output: partialOutput, Inner: cause}
}
