package applog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesFormattedLineToSink(t *testing.T) {
	sink := filepath.Join(t.TempDir(), "sink.log")
	logger, closeFn, err := New(sink, true)
	require.NoError(t, err)

	logger.Info("hello", "n", 1)
	require.NoError(t, closeFn())

	data, err := os.ReadFile(sink)
	require.NoError(t, err)
	assert.Contains(t, string(data), "OpalWM")
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "n=1")
}
