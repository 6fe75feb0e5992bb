package rate_limiter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateLimiter_FixedWindow(t *testing.T) {
	limiter := NewMemoryRateLimiter()
	now := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return now }

	rule := RateLimitRule{Name: "diagnosis", Window: time.Minute, MaxRequests: 2}
	ctx := context.Background()

	res, err := limiter.Allow(ctx, rule, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)

	res, _ = limiter.Allow(ctx, rule, "10.0.0.1")
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	res, _ = limiter.Allow(ctx, rule, "10.0.0.1")
	assert.False(t, res.Allowed)
	assert.Equal(t, 2, res.Limit)

	// 其他客户端独立计数
	res, _ = limiter.Allow(ctx, rule, "10.0.0.2")
	assert.True(t, res.Allowed)

	now = now.Add(time.Minute)
	res, _ = limiter.Allow(ctx, rule, "10.0.0.1")
	assert.True(t, res.Allowed, "new window resets the counter")
	assert.Greater(t, res.ResetAt, now.Unix())
}

func TestMemoryRateLimiter_Concurrent(t *testing.T) {
	limiter := NewMemoryRateLimiter()
	rule := RateLimitRule{Name: "checklists", Window: time.Hour, MaxRequests: 50}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := limiter.Allow(context.Background(), rule, "client")
			if assert.NoError(t, err) && res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

func TestMemoryRateLimiter_Prune(t *testing.T) {
	limiter := NewMemoryRateLimiter()
	now := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return now }
	rule := RateLimitRule{Name: "diagnosis", Window: time.Minute, MaxRequests: 5}

	_, _ = limiter.Allow(context.Background(), rule, "a")
	_, _ = limiter.Allow(context.Background(), rule, "b")
	assert.Equal(t, 0, limiter.Prune(time.Minute))

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, limiter.Prune(time.Minute))
}

func TestRateLimitRule_Enabled(t *testing.T) {
	assert.False(t, RateLimitRule{Window: time.Minute}.Enabled())
	assert.True(t, RateLimitRule{Window: time.Minute, MaxRequests: 1}.Enabled())
}
