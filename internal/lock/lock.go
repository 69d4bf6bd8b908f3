// Package lock provides the per-room critical section used by the booking
// coordinator and the scheduler jobs.
package lock

import (
	"context"
	"sync"

	"github.com/tolga/reserva/internal/apperror"
)

// RoomLock serializes mutations per room. The lock map grows lazily and
// entries are never removed; the population is bounded by the room count.
//
// Each room's lock is a one-slot channel so acquisition can observe the
// request deadline. Waiters on the same room are released in the order the
// runtime queues their sends, which holds the per-room commit ordering.
type RoomLock struct {
	mu    sync.Mutex
	locks map[uint]chan struct{}
}

// NewRoomLock creates an empty lock map.
func NewRoomLock() *RoomLock {
	return &RoomLock{locks: make(map[uint]chan struct{})}
}

func (l *RoomLock) slot(roomID uint) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.locks[roomID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[roomID] = ch
	}
	return ch
}

// Acquire takes the room's critical section, honoring the context deadline.
// The returned release function must be called exactly once.
func (l *RoomLock) Acquire(ctx context.Context, roomID uint) (func(), error) {
	ch := l.slot(roomID)
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() { <-ch })
		}, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, apperror.DeadlineExceeded("waiting for room lock")
		}
		return nil, apperror.Wrap(apperror.KindDeadlineExceeded, "request cancelled while waiting for room lock", ctx.Err())
	}
}

// TryAcquire takes the critical section only if it is free.
func (l *RoomLock) TryAcquire(roomID uint) (func(), bool) {
	ch := l.slot(roomID)
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() { <-ch })
		}, true
	default:
		return nil, false
	}
}
