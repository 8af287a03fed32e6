package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, ok, err := s.Get(ctx, KeySessionToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, KeySessionToken, "abc"))
	v, ok, err := s.Get(ctx, KeySessionToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	require.NoError(t, s.Set(ctx, KeySessionToken, "def"))
	v, _, _ = s.Get(ctx, KeySessionToken)
	assert.Equal(t, "def", v)

	require.NoError(t, s.Remove(ctx, KeySessionToken))
	_, ok, _ = s.Get(ctx, KeySessionToken)
	assert.False(t, ok)

	// removing a missing key is not an error
	assert.NoError(t, s.Remove(ctx, "missing"))
}
