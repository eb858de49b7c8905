package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimitRepository_CountsWithinWindow(t *testing.T) {
	repo := NewRateLimitRepository()
	base := time.Unix(1_700_000_000, 0)
	repo.nowFn = func() time.Time { return base }
	ctx := context.Background()

	for want := 1; want <= 5; want++ {
		count, start, err := repo.IncrementWindow(ctx, "client-a", time.Second, "rl", 2*time.Second)
		require.NoError(t, err)
		require.Equal(t, want, count)
		require.Equal(t, base.Truncate(time.Second), start)
	}
}

func TestRateLimitRepository_WindowResets(t *testing.T) {
	repo := NewRateLimitRepository()
	base := time.Unix(1_700_000_000, 0)
	repo.nowFn = func() time.Time { return base }
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, _, err := repo.IncrementWindow(ctx, "client-a", time.Second, "rl", 2*time.Second)
		require.NoError(t, err)
	}

	// One full window later the counter starts over at 1.
	repo.nowFn = func() time.Time { return base.Add(time.Second) }
	count, start, err := repo.IncrementWindow(ctx, "client-a", time.Second, "rl", 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, base.Add(time.Second).Truncate(time.Second), start)
}

func TestRateLimitRepository_KeysAreIndependent(t *testing.T) {
	repo := NewRateLimitRepository()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := repo.IncrementWindow(ctx, "client-a", time.Minute, "rl", 2*time.Minute)
		require.NoError(t, err)
	}
	count, _, err := repo.IncrementWindow(ctx, "client-b", time.Minute, "rl", 2*time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestRateLimitRepository_Cleanup(t *testing.T) {
	repo := NewRateLimitRepository()
	base := time.Unix(1_700_000_000, 0)
	repo.nowFn = func() time.Time { return base }
	ctx := context.Background()

	_, _, err := repo.IncrementWindow(ctx, "client-a", time.Second, "rl", 2*time.Second)
	require.NoError(t, err)

	repo.nowFn = func() time.Time { return base.Add(time.Hour) }
	repo.Cleanup(time.Minute)

	repo.mu.Lock()
	size := len(repo.windows)
	repo.mu.Unlock()
	require.Zero(t, size)
}
