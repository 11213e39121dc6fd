package closenicely

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type closer struct{ err error }

func (c closer) Close() error { return c.err }

func TestFuncOrDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	FuncOrDebug(zap.New(core), closer{err: errors.New("busy")}.Close)
	FuncOrDebug(zap.New(core), closer{}.Close)
	assert.Equal(t, 1, logs.FilterMessage("Failed to close resource").Len())
}

func TestJoin(t *testing.T) {
	var err error
	Join(&err, closer{err: errors.New("disk full")})
	assert.EqualError(t, err, "disk full")

	err = errors.New("first")
	Join(&err, closer{err: errors.New("disk full")})
	assert.EqualError(t, err, "first")
}
