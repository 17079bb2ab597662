package retry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCooldownKeepsLatest(t *testing.T) {
	cd := NewMemoryCooldown()
	ctx := context.Background()

	_, ok, err := cd.LastRateLimited(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	base := time.Unix(1000, 0)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = cd.MarkRateLimited(ctx, base.Add(time.Duration(i)*time.Second))
		}(i)
	}
	wg.Wait()

	last, ok, err := cd.LastRateLimited(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, base.Add(19*time.Second), last)
}

func setupRedisCooldown(t *testing.T) (*RedisCooldown, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	cd, err := NewRedisCooldown(mr.Addr())
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create cooldown: %v", err)
	}
	return cd, mr
}

func TestRedisCooldown(t *testing.T) {
	cd, mr := setupRedisCooldown(t)
	defer mr.Close()
	defer cd.Close()
	ctx := context.Background()

	_, ok, err := cd.LastRateLimited(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.UnixMilli(1_700_000_000_123)
	require.NoError(t, cd.MarkRateLimited(ctx, at))

	last, ok, err := cd.LastRateLimited(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.Equal(last))

	mr.FastForward(CooldownWindow + time.Second)
	_, ok, err = cd.LastRateLimited(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCooldownSharedAcrossClients(t *testing.T) {
	mr := miniredis.RunT(t)
	a := NewRedisCooldownClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	b := NewRedisCooldownClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer a.Close()
	defer b.Close()

	at := time.UnixMilli(42_000)
	require.NoError(t, a.MarkRateLimited(context.Background(), at))

	last, ok, err := b.LastRateLimited(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.Equal(last))
}

func TestNewRedisCooldownUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCooldown(addr)
	assert.Error(t, err)
}
