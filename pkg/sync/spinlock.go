package synced

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// SpinLock is a single-bit lock for critical sections of a few pointer swaps.
// The zero value is unlocked.
type SpinLock struct {
	bit atomic.Uint32
}

func (l *SpinLock) Lock() {
	var b Backoff
	for !l.bit.CompareAndSwap(0, 1) {
		for l.bit.Load() == 1 {
			b.Snooze()
		}
	}
}

func (l *SpinLock) TryLock() bool {
	return l.bit.CompareAndSwap(0, 1)
}

func (l *SpinLock) Unlock() {
	if !l.bit.CompareAndSwap(1, 0) {
		log.Error().Msg("[spinlock] unlock of unlocked spinlock")
		panic("synced: unlock of unlocked SpinLock")
	}
}

func (l *SpinLock) IsLocked() bool {
	return l.bit.Load() == 1
}
