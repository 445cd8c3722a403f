package apierr

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Disposition decides what happens to an error after the listener has seen it
type Disposition int

const (
	// Rethrow returns the error to the caller
	Rethrow Disposition = iota
	// Silent drops the error
	Silent
	// LogError writes the error at error level and drops it
	LogError
	// LogWarning writes the error at warning level and drops it
	LogWarning
)

// String returns the configuration name of the disposition
func (d Disposition) String() string {
	switch d {
	case Silent:
		return "silent"
	case LogError:
		return "log-error"
	case LogWarning:
		return "log-warning"
	default:
		return "rethrow"
	}
}

// ParseDisposition maps a configuration name to a Disposition
func ParseDisposition(name string) (Disposition, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "rethrow", "throw":
		return Rethrow, nil
	case "silent":
		return Silent, nil
	case "log-error", "error", "console.error":
		return LogError, nil
	case "log-warning", "warn", "warning", "console.warn":
		return LogWarning, nil
	default:
		return Rethrow, fmt.Errorf("unknown error disposition %q", name)
	}
}

// Listener observes every handled error. Panics raised by a listener are swallowed.
type Listener func(err *Error)

// Policy is the pluggable handling applied to pipeline errors
type Policy struct {
	Listener    Listener
	Disposition Disposition
	Logger      *zap.Logger
}

// DefaultPolicy returns a policy that hands every error back to the caller
func DefaultPolicy() Policy {
	return Policy{Disposition: Rethrow}
}

// Handle runs the listener and then applies the disposition. The returned
// error is non-nil only for Rethrow.
func (p Policy) Handle(err *Error) error {
	if err == nil {
		return nil
	}
	p.notify(err)

	switch p.Disposition {
	case Silent:
		return nil
	case LogError:
		p.logger().Error(err.Error(), fields(err)...)
		return nil
	case LogWarning:
		p.logger().Warn(err.Error(), fields(err)...)
		return nil
	default:
		return err
	}
}

// Report handles a recoverable error. It never returns anything to the caller
// and logs only under the log dispositions; under Rethrow the listener is the
// only one to see it.
func (p Policy) Report(err *Error) {
	if err == nil {
		return
	}
	p.notify(err)

	switch p.Disposition {
	case LogError:
		p.logger().Error(err.Error(), fields(err)...)
	case LogWarning:
		p.logger().Warn(err.Error(), fields(err)...)
	}
}

func (p Policy) notify(err *Error) {
	if p.Listener == nil {
		return
	}
	defer func() { _ = recover() }()
	p.Listener(err)
}

func (p Policy) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func fields(err *Error) []zap.Field {
	fs := []zap.Field{
		zap.String("kind", err.Kind.String()),
		zap.String("title", err.Title),
		zap.String("text", err.Text),
	}
	if err.Status > 0 {
		fs = append(fs, zap.Int("status", err.Status))
	}
	if err.Err != nil {
		fs = append(fs, zap.NamedError("cause", err.Err))
	}
	return fs
}
