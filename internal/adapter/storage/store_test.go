package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the Store contract against any implementation.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "room:missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Put(ctx, "room:1", []byte(`{"id":"1"}`)))
	require.NoError(t, s.Put(ctx, "room:2", []byte(`{"id":"2"}`)))
	require.NoError(t, s.Put(ctx, "player:1", []byte(`{"id":"p1"}`)))

	v, ok, err := s.Get(ctx, "room:1")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"id":"1"}`, string(v))

	// Put replaces.
	require.NoError(t, s.Put(ctx, "room:1", []byte(`{"id":"1","started":true}`)))
	v, ok, err = s.Get(ctx, "room:1")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"id":"1","started":true}`, string(v))

	scanned, err := s.Scan(ctx, "room:")
	require.NoError(t, err)
	require.Len(t, scanned, 2)
	require.Contains(t, scanned, "room:1")
	require.Contains(t, scanned, "room:2")
	require.NotContains(t, scanned, "player:1")

	require.NoError(t, s.Delete(ctx, "room:1"))
	_, ok, err = s.Get(ctx, "room:1")
	require.NoError(t, err)
	require.False(t, ok)

	// Deleting an absent key is not an error.
	require.NoError(t, s.Delete(ctx, "room:1"))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	in := []byte(`{"id":"1"}`)
	require.NoError(t, s.Put(ctx, "k", in))
	in[0] = 'x'

	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, byte('{'), v[0])

	v[0] = 'x'
	again, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, byte('{'), again[0])
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	exerciseStore(t, NewRedisStore(client))
}

func TestRedisStoreScanEmpty(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := NewRedisStore(client)
	scanned, err := s.Scan(context.Background(), "survey:")
	require.NoError(t, err)
	require.Empty(t, scanned)
}
