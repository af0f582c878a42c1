package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nutrikit/nutrikit/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedWindowQuota(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC))
	l := NewFixedWindow(3, time.Minute, fc)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "login:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "login:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)

	// Other keys have their own window.
	ok, err = l.Allow(ctx, "login:5.6.7.8")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFixedWindowLazyReset(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC))
	l := NewFixedWindow(1, time.Minute, fc)
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "k")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "k")
	assert.False(t, ok)

	fc.Advance(time.Minute)
	ok, _ = l.Allow(ctx, "k")
	assert.True(t, ok)
}

func TestFixedWindowConcurrentAccess(t *testing.T) {
	l := NewFixedWindow(50, time.Minute, clock.NewSystemClock())
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.Allow(ctx, "shared")
			require.NoError(t, err)
			if ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}
