// Package apierr defines the error envelope shared by the SDK transport and
// materialisation layers, together with the policy that decides what a caller
// sees when one of them fails.
package apierr

import (
	"errors"
	"fmt"
)

// Kind classifies where in the request pipeline an error originated
type Kind int

const (
	KindRuntime Kind = iota
	KindTransport
	KindTimeout
	KindNetwork
	KindParse
	KindMalformedPayload
	KindBackend
	KindAborted
	KindUnknownType
	KindTypeMismatch
)

// String returns the taxonomy name of the kind
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindParse:
		return "parse"
	case KindMalformedPayload:
		return "malformed-payload"
	case KindBackend:
		return "backend"
	case KindAborted:
		return "aborted"
	case KindUnknownType:
		return "unknown-type"
	case KindTypeMismatch:
		return "type-mismatch"
	default:
		return "runtime"
	}
}

// Retryable reports whether the executor may retry an attempt that failed with this kind
func (k Kind) Retryable() bool {
	return k == KindTransport || k == KindTimeout
}

// Sentinel errors, one per kind, for use with errors.Is
var (
	ErrRuntime          = errors.New("runtime error")
	ErrTransport        = errors.New("transport error")
	ErrTimeout          = errors.New("request timeout")
	ErrNetwork          = errors.New("network error")
	ErrParse            = errors.New("parse error")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrBackend          = errors.New("backend error")
	ErrAborted          = errors.New("request aborted")
	ErrUnknownType      = errors.New("unknown entity type")
	ErrTypeMismatch     = errors.New("entity type mismatch")
)

var sentinels = map[Kind]error{
	KindRuntime:          ErrRuntime,
	KindTransport:        ErrTransport,
	KindTimeout:          ErrTimeout,
	KindNetwork:          ErrNetwork,
	KindParse:            ErrParse,
	KindMalformedPayload: ErrMalformedPayload,
	KindBackend:          ErrBackend,
	KindAborted:          ErrAborted,
	KindUnknownType:      ErrUnknownType,
	KindTypeMismatch:     ErrTypeMismatch,
}

// Error is the typed error envelope. Status is optional and zero when unknown.
type Error struct {
	Kind   Kind
	Status int
	Title  string
	Text   string
	Err    error
}

// New creates an error of the given kind
func New(kind Kind, title, text string) *Error {
	return &Error{Kind: kind, Title: title, Text: text}
}

// Newf creates an error of the given kind with a formatted text
func Newf(kind Kind, title, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Title: title, Text: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind that keeps cause in its chain
func Wrap(kind Kind, cause error, title, text string) *Error {
	return &Error{Kind: kind, Title: title, Text: text, Err: cause}
}

// WithStatus returns the error with its status set
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("Error - (%s) Status - (%d) Message - (%s)", e.Title, e.Status, e.Text)
	}
	return fmt.Sprintf("Error - (%s) Message - (%s)", e.Title, e.Text)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// KindOf returns the kind of the first *Error in err's chain, or KindRuntime
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindRuntime
}

// From converts any error into an envelope, keeping existing envelopes as they are
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Wrap(KindRuntime, err, "Runtime Error",
		fmt.Sprintf("something unexpected occurred during runtime, details - %s", err.Error()))
}
