package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	c, err := NewMemory(Config{DefaultTTL: 2 * time.Second, CleanupInterval: time.Second})
	require.NoError(t, err)

	require.NoError(t, c.Set("key1", []int{1, 2}, 0))
	v, found, err := c.Get("key1")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []int{1, 2}, v)

	v, found, err = c.Get("missing")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, v)

	require.NoError(t, c.Set("expire-soon", "temp", 50*time.Millisecond))
	time.Sleep(150 * time.Millisecond)
	_, found, _ = c.Get("expire-soon")
	assert.False(t, found)

}

func TestMemory_Len(t *testing.T) {
	c, err := NewMemory(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())

	require.NoError(t, c.Set("a", 1, 0))
	require.NoError(t, c.Set("b", 2, 0))
	require.NoError(t, c.Set("a", 3, 0))
	assert.Equal(t, 2, c.Len())
}

func TestNew_FallsBackToMemory(t *testing.T) {
	c, err := New(Config{Type: "unknown"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	c, err = New(DefaultConfig())
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "classify", Key("classify"))
	assert.Equal(t, "classify:abc:v1", Key("classify", "abc", "v1"))
}
