package cache

import (
	"context"
	"testing"
	"time"

	dom "Tripboard/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniRedis(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(rdb, "tripboard:", 0)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func setupFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"redis": setupMiniRedis(t),
		"file":  setupFileStore(t),
	}
}

func TestStoreGetSetRemove(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var got []string
			ok, err := s.Get(ctx, "trip:x:assignees", &got)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, "trip:x:assignees", []string{"Ana", "Bo"}))
			ok, err = s.Get(ctx, "trip:x:assignees", &got)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []string{"Ana", "Bo"}, got)

			require.NoError(t, s.Remove(ctx, "trip:x:assignees"))
			require.NoError(t, s.Remove(ctx, "trip:x:assignees"))
			ok, err = s.Get(ctx, "trip:x:assignees", &got)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestTripCacheNamespacing(t *testing.T) {
	ctx := context.Background()
	s := setupFileStore(t)
	a := NewTripCache(s, "alpha")
	b := NewTripCache(s, "beta")

	deadline := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	task := dom.Task{ID: "t1", Title: "Pack", Status: dom.StatusInProgress, Deadline: &deadline}
	require.NoError(t, a.SetTasks(ctx, []dom.Task{task}))

	list, ok, err := a.Tasks(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.True(t, list[0].Deadline.Equal(deadline))

	_, ok, err = b.Tasks(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTripCacheEmptyListIsStored(t *testing.T) {
	ctx := context.Background()
	c := NewTripCache(setupMiniRedis(t), "trip")
	require.NoError(t, c.SetTasks(ctx, nil))
	list, ok, err := c.Tasks(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, list)
}

func TestCredentials(t *testing.T) {
	ctx := context.Background()
	s := setupMiniRedis(t)
	_, ok, err := LoadCredentials(ctx, s)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SaveCredentials(ctx, s, Credentials{URL: "postgres://db", Key: "k"}))
	c, ok, err := LoadCredentials(ctx, s)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "postgres://db", c.URL)
}

func TestFileStoreClosed(t *testing.T) {
	s := setupFileStore(t)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Set(context.Background(), "k", 1), ErrClosed)
}
