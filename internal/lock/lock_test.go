package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolga/reserva/internal/apperror"
)

func TestAcquireRelease(t *testing.T) {
	locks := NewRoomLock()

	release, err := locks.Acquire(context.Background(), 1)
	require.NoError(t, err)

	_, ok := locks.TryAcquire(1)
	assert.False(t, ok, "lock should be held")

	release()
	release() // double release is a no-op

	again, ok := locks.TryAcquire(1)
	require.True(t, ok)
	again()
}

func TestRoomsAreIndependent(t *testing.T) {
	locks := NewRoomLock()

	r1, err := locks.Acquire(context.Background(), 1)
	require.NoError(t, err)
	defer r1()

	r2, err := locks.Acquire(context.Background(), 2)
	require.NoError(t, err)
	r2()
}

func TestAcquireHonorsDeadline(t *testing.T) {
	locks := NewRoomLock()

	release, err := locks.Acquire(context.Background(), 1)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = locks.Acquire(ctx, 1)
	require.Error(t, err)
	assert.Equal(t, apperror.KindDeadlineExceeded, apperror.KindOf(err))
}

func TestMutualExclusion(t *testing.T) {
	locks := NewRoomLock()

	const workers = 16
	var inSection, maxSeen int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locks.Acquire(context.Background(), 42)
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			inSection++
			if inSection > maxSeen {
				maxSeen = inSection
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inSection--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen, "at most one goroutine inside the critical section")
}
