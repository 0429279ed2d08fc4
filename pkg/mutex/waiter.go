package mutex

import (
	"sync/atomic"

	synced "github.com/Borislavv/go-castbox/pkg/sync"
)

const (
	DefaultSpinCount          int32 = 20
	DefaultWaiterPoolPrealloc       = synced.PreallocationBatchSize
)

var (
	spinCount   atomic.Int32
	groupYields atomic.Bool
	waiters     atomic.Pointer[synced.BatchPool[*waiter]]
)

func init() {
	spinCount.Store(DefaultSpinCount)
	groupYields.Store(true)
	SetWaiterPoolPrealloc(DefaultWaiterPoolPrealloc)
}

// SetSpinCount sets how many lockless attempts precede the backoff phase.
func SetSpinCount(n int32) {
	if n >= 0 {
		spinCount.Store(n)
	}
}

// SetGroupYieldsToExclusive controls the anti-starvation policy. When enabled,
// new group members do not join a batch while an exclusive waiter is pending,
// so the batch drains and the exclusive waiter gets its turn.
func SetGroupYieldsToExclusive(v bool) {
	groupYields.Store(v)
}

// SetWaiterPoolPrealloc replaces the waiter pool with one preallocating n waiters per batch.
func SetWaiterPoolPrealloc(n int) {
	waiters.Store(synced.NewBatchPool[*waiter](n, func() *waiter {
		return &waiter{ch: make(chan struct{}, 1)}
	}))
}

// waiter is a parked goroutine's wakeup slot. Each push is matched
// by at most one pop, so wake never blocks.
type waiter struct {
	ch chan struct{}
}

func (w *waiter) wait() {
	<-w.ch
}

func (w *waiter) wake() {
	w.ch <- struct{}{}
}
