package cli

import (
	"errors"
	"testing"

	"github.com/klothoplatform/stackplan/pkg/resolver"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorHandler_PrintErr(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	hooked := false
	h := ErrorHandler{Log: zap.New(core), PostPrintHook: func() { hooked = true }}

	h.PrintErr(errors.Join(
		&resolver.CycleDetectedError{Cycle: []string{"a", "b"}},
		errors.New("other"),
	))

	assert.True(t, hooked)
	entries := logs.AllUntimed()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, "2 errors:", entries[0].Message)
		assert.Equal(t, "[err 1] cycle detected: a -> b -> a", entries[1].Message)
		assert.Equal(t, zap.Strings("cycle", []string{"a", "b"}).Key, entries[1].Context[0].Key)
		assert.Equal(t, "[err 2] other", entries[2].Message)
	}
}

func TestErrorHandler_SingleJoined(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := ErrorHandler{Log: zap.New(core)}
	h.PrintErr(errors.Join(&resolver.UnknownNodeError{ID: "missing"}))

	entries := logs.AllUntimed()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "[err 0] unknown node missing", entries[0].Message)
		assert.Equal(t, "missing", entries[0].ContextMap()["node"])
	}
}
