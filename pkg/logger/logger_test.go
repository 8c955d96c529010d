package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSetMode(t *testing.T) {
	SetMode("debug")
	assert.Equal(t, zap.DebugLevel, Level())

	SetMode("release")
	assert.Equal(t, zap.InfoLevel, Level())
}

func TestLWithoutInit(t *testing.T) {
	saved := Log
	Log = nil
	defer func() { Log = saved }()

	assert.NotNil(t, L())
}
