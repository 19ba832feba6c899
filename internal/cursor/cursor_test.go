package cursor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDecodesEmbeddedAsset(t *testing.T) {
	px, w, h, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 16, w)
	assert.Equal(t, 16, h)
	assert.Len(t, px, w*h)
}
