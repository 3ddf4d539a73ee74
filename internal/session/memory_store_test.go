package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sid, err := store.Create(ctx, 7, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, sid)

	uid, err := store.Get(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, uint(7), uid)

	require.NoError(t, store.Delete(ctx, sid))
	_, err = store.Get(ctx, sid)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	sid, err := store.Create(ctx, 1, time.Minute)
	require.NoError(t, err)

	now = now.Add(59 * time.Second)
	_, err = store.Get(ctx, sid)
	assert.NoError(t, err)

	now = now.Add(time.Second)
	_, err = store.Get(ctx, sid)
	assert.ErrorIs(t, err, ErrNotFound)

	// Creating another session purges the expired one.
	_, err = store.Create(ctx, 2, time.Minute)
	require.NoError(t, err)
	assert.Len(t, store.sessions, 1)
}

func TestMemoryStoreIDsAreUnique(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		sid, err := store.Create(ctx, 1, time.Hour)
		require.NoError(t, err)
		assert.False(t, seen[sid])
		seen[sid] = true
	}
}
