package shm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAttachWriteDestroy(t *testing.T) {
	key, region, err := Create(64)
	require.NoError(t, err)
	assert.NotZero(t, key)

	region.Bytes()[0] = 0xAB
	assert.Equal(t, byte(0xAB), region.Bytes()[0])

	require.NoError(t, region.Destroy())
}
