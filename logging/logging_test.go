package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestNewBuildsLeveledLoggers verifies the level switch between the
// default and debug configurations.
func TestNewBuildsLeveledLoggers(t *testing.T) {
	info, err := New(false)
	require.NoError(t, err)
	assert.False(t, info.Desugar().Core().Enabled(zap.DebugLevel))
	assert.True(t, info.Desugar().Core().Enabled(zap.InfoLevel))

	debug, err := New(true)
	require.NoError(t, err)
	assert.True(t, debug.Desugar().Core().Enabled(zap.DebugLevel))
}

// TestNewNopDiscardsEverything verifies the no-op logger accepts calls
// and keeps every level disabled.
func TestNewNopDiscardsEverything(t *testing.T) {
	log := NewNop()
	require.NotNil(t, log)
	assert.False(t, log.Desugar().Core().Enabled(zap.ErrorLevel))
	log.Infow("dropped", "key", "value")
}
