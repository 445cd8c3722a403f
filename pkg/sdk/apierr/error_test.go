package apierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestError_Message(t *testing.T) {
	err := New(KindBackend, "Not Found", "article 1 does not exist").WithStatus(404)
	assert.Equal(t, "Error - (Not Found) Status - (404) Message - (article 1 does not exist)", err.Error())

	err = New(KindParse, "Runtime Error", "bad json")
	assert.Equal(t, "Error - (Runtime Error) Message - (bad json)", err.Error())
}

func TestError_IsMatchesKindSentinel(t *testing.T) {
	tests := []struct {
		kind     Kind
		sentinel error
	}{
		{KindTransport, ErrTransport},
		{KindTimeout, ErrTimeout},
		{KindNetwork, ErrNetwork},
		{KindParse, ErrParse},
		{KindMalformedPayload, ErrMalformedPayload},
		{KindBackend, ErrBackend},
		{KindAborted, ErrAborted},
		{KindUnknownType, ErrUnknownType},
		{KindTypeMismatch, ErrTypeMismatch},
		{KindRuntime, ErrRuntime},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", New(tt.kind, "t", "x"))
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}

	assert.NotErrorIs(t, New(KindParse, "t", "x"), ErrBackend)
}

func TestError_WrapKeepsCauseChain(t *testing.T) {
	last := New(KindTransport, "Transport Error", "connection refused")
	err := Wrap(KindNetwork, last, "Network Error", "retries exhausted")

	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestKind_Retryable(t *testing.T) {
	assert.True(t, KindTransport.Retryable())
	assert.True(t, KindTimeout.Retryable())
	assert.False(t, KindBackend.Retryable())
	assert.False(t, KindParse.Retryable())
	assert.False(t, KindAborted.Retryable())
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil))

	orig := New(KindBackend, "b", "c")
	assert.Same(t, orig, From(fmt.Errorf("ctx: %w", orig)))

	conv := From(errors.New("boom"))
	assert.Equal(t, KindRuntime, conv.Kind)
	assert.Contains(t, conv.Text, "boom")
}

func TestParseDisposition(t *testing.T) {
	tests := map[string]Disposition{
		"":              Rethrow,
		"rethrow":       Rethrow,
		"silent":        Silent,
		"log-error":     LogError,
		"console.error": LogError,
		"log-warning":   LogWarning,
		"WARN":          LogWarning,
	}
	for name, want := range tests {
		got, err := ParseDisposition(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseDisposition("explode")
	assert.Error(t, err)
}

func TestPolicy_Handle(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	var seen []*Error
	listener := func(err *Error) { seen = append(seen, err) }
	e := New(KindBackend, "Bad", "nope").WithStatus(400)

	t.Run("rethrow returns the error", func(t *testing.T) {
		p := Policy{Listener: listener, Disposition: Rethrow, Logger: logger}
		assert.Same(t, e, p.Handle(e))
	})

	t.Run("silent drops the error", func(t *testing.T) {
		p := Policy{Listener: listener, Disposition: Silent, Logger: logger}
		assert.NoError(t, p.Handle(e))
	})

	t.Run("log-error logs at error level", func(t *testing.T) {
		p := Policy{Disposition: LogError, Logger: logger}
		assert.NoError(t, p.Handle(e))
		entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
		require.Len(t, entries, 1)
		assert.Equal(t, "backend", entries[0].ContextMap()["kind"])
		assert.EqualValues(t, 400, entries[0].ContextMap()["status"])
	})

	t.Run("log-warning logs at warn level", func(t *testing.T) {
		p := Policy{Disposition: LogWarning, Logger: logger}
		assert.NoError(t, p.Handle(e))
		assert.Len(t, logs.FilterLevelExact(zapcore.WarnLevel).All(), 1)
	})

	assert.Len(t, seen, 2)
	assert.NoError(t, Policy{}.Handle(nil))
}

func TestPolicy_ListenerPanicIsSwallowed(t *testing.T) {
	p := Policy{
		Listener:    func(*Error) { panic("listener exploded") },
		Disposition: Rethrow,
	}
	e := New(KindParse, "t", "x")

	var got error
	assert.NotPanics(t, func() { got = p.Handle(e) })
	assert.Same(t, e, got)
}

func TestPolicy_Report(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	called := 0
	p := Policy{
		Listener:    func(*Error) { called++ },
		Disposition: Rethrow,
		Logger:      zap.New(core),
	}

	p.Report(New(KindUnknownType, "Runtime Error", "no type widget"))

	assert.Equal(t, 1, called)
	assert.Equal(t, 0, logs.Len(), "rethrow leaves recoverable errors to the listener")

	p.Disposition = LogWarning
	p.Report(New(KindUnknownType, "Runtime Error", "no type widget"))
	assert.Len(t, logs.FilterLevelExact(zapcore.WarnLevel).All(), 1)

	p.Disposition = LogError
	p.Report(New(KindUnknownType, "Runtime Error", "no type widget"))
	assert.Len(t, logs.FilterLevelExact(zapcore.ErrorLevel).All(), 1)

	p.Disposition = Silent
	p.Report(New(KindUnknownType, "Runtime Error", "no type widget"))
	assert.Equal(t, 4, called)
	assert.Equal(t, 2, logs.Len())
}
