package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkernet/probed/internal/testutil"
)

// stubLister is a fixed in-memory provider source.
type stubLister struct {
	addrs []string
	err   error
	calls int
}

func (s *stubLister) ListActiveProviders(context.Context) ([]string, error) {
	s.calls++
	return s.addrs, s.err
}

func TestCache_ReadThrough(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer func() {
		_ = client.Close()
	}()

	stub := &stubLister{addrs: []string{"f01000", "f01001"}}
	cache := NewCache(stub, client, CacheOptions{TTL: time.Minute})
	ctx := context.Background()

	// Miss populates the cache from the store.
	addrs, err := cache.ListActiveProviders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"f01000", "f01001"}, addrs)
	assert.Equal(t, 1, stub.calls)

	// Hit serves the cached copy even when the store changes underneath.
	stub.addrs = []string{"f09999"}
	addrs, err = cache.ListActiveProviders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"f01000", "f01001"}, addrs)
	assert.Equal(t, 1, stub.calls)
}

func TestCache_RefreshOverwrites(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer func() {
		_ = client.Close()
	}()

	stub := &stubLister{addrs: []string{"f01000"}}
	cache := NewCache(stub, client, CacheOptions{TTL: time.Minute})
	ctx := context.Background()

	_, err := cache.ListActiveProviders(ctx)
	require.NoError(t, err)

	stub.addrs = []string{"f01000", "f01002"}
	count, err := cache.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	addrs, err := cache.ListActiveProviders(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"f01000", "f01002"}, addrs)
}

func TestCache_StoreErrorPropagates(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer func() {
		_ = client.Close()
	}()

	stub := &stubLister{err: errors.New("provider source down")}
	cache := NewCache(stub, client, CacheOptions{TTL: time.Minute})

	_, err := cache.ListActiveProviders(context.Background())
	require.Error(t, err)
}
