package distributed_lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLock_TryLockAndExpiry(t *testing.T) {
	lock := NewLocalLock()
	ctx := context.Background()

	ok, err := lock.TryLock(ctx, "a", 20*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = lock.TryLock(ctx, "a", time.Second)
	assert.False(t, ok)

	time.Sleep(30 * time.Millisecond)
	ok, _ = lock.TryLock(ctx, "a", time.Second)
	assert.True(t, ok, "expired lock should be reclaimable")

	require.NoError(t, lock.Unlock(ctx, "a"))
	ok, _ = lock.TryLock(ctx, "a", time.Second)
	assert.True(t, ok)
}

func TestAcquire_SerializesHolders(t *testing.T) {
	lock := NewLocalLock()
	var mu sync.Mutex
	inside, maxInside := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := Acquire(context.Background(), lock, "checklist", time.Second)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxInside)
}

func TestAcquire_RespectsContext(t *testing.T) {
	lock := NewLocalLock()
	_, _ = lock.TryLock(context.Background(), "busy", time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := Acquire(ctx, lock, "busy", time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
