// Package mutex provides a user-space lock with two mutually exclusive modes:
// exclusive (one holder) and group (any number of holders at once).
//
// Acquisition spins on the state word for a bounded number of attempts,
// then snoozes with exponential backoff and finally parks the goroutine on a
// waiter queue until a release wakes it. The uncontended path performs no
// allocation.
package mutex

import (
	"sync/atomic"

	"github.com/Borislavv/go-castbox/pkg/prometheus/metrics"
	"github.com/Borislavv/go-castbox/pkg/prometheus/metrics/keyword"
	"github.com/Borislavv/go-castbox/pkg/storage/list"
	synced "github.com/Borislavv/go-castbox/pkg/sync"
	"github.com/rs/zerolog/log"
)

const (
	unlocked    uint32 = 0
	locked      uint32 = 1
	lockedGroup uint32 = 3
	// dirty means the last group member has left. A newcomer may reopen the
	// batch from here directly, an exclusive acquire may take it as well.
	dirty uint32 = 4
)

// The state word keeps the mode in the low half and the number of group
// holders in the high half, so every transition is a single CAS.
const (
	holderShift = 32
	modeMask    = 1<<holderShift - 1
)

func pack(mode uint32, holders uint32) uint64 {
	return uint64(holders)<<holderShift | uint64(mode)
}

func unpack(w uint64) (mode uint32, holders uint32) {
	return uint32(w & modeMask), uint32(w >> holderShift)
}

// Mutex is the zero-value-ready lock. It must not be copied after first use.
type Mutex struct {
	state   atomic.Uint64
	pending atomic.Int64 // exclusive waiters that exhausted the spin budget

	guard     synced.SpinLock // serializes park re-checks against wakeups
	exclusive list.ParkingStack[*waiter]
	group     list.ParkingStack[*waiter]
}

func (m *Mutex) LockExclusive() {
	if m.tryExclusive() {
		return
	}
	m.lockExclusiveSlow()
}

// TryLockExclusive acquires the exclusive mode only if that is possible without waiting.
func (m *Mutex) TryLockExclusive() bool {
	return m.tryExclusive()
}

func (m *Mutex) UnlockExclusive() {
	if !m.state.CompareAndSwap(pack(locked, 0), pack(unlocked, 0)) {
		m.violation("unlock_exclusive", "unlock of mutex which is not exclusively locked")
	}
	m.wakeNext()
}

func (m *Mutex) LockGroup() {
	if m.tryGroup() {
		return
	}
	m.lockGroupSlow()
}

// TryLockGroup joins or opens a group batch only if that is possible without waiting.
func (m *Mutex) TryLockGroup() bool {
	return m.tryGroup()
}

func (m *Mutex) UnlockGroup() {
	for {
		w := m.state.Load()
		mode, n := unpack(w)
		if mode != lockedGroup || n == 0 {
			m.violation("unlock_group", "unlock of group lock which is not held")
		}
		if n > 1 {
			if m.state.CompareAndSwap(w, pack(lockedGroup, n-1)) {
				return
			}
			continue
		}
		if m.state.CompareAndSwap(w, pack(dirty, 0)) {
			m.wakeNext()
			return
		}
	}
}

// UnlockAllGroup releases the whole group batch at once, regardless of how
// many members are still inside. The caller must know that no member will
// call UnlockGroup afterwards.
func (m *Mutex) UnlockAllGroup() {
	for {
		w := m.state.Load()
		if mode, _ := unpack(w); mode != lockedGroup {
			m.violation("unlock_all_group", "unlock of group lock which is not held")
		}
		if m.state.CompareAndSwap(w, pack(dirty, 0)) {
			m.wakeNext()
			return
		}
	}
}

// IsLocked reports whether any mode is held.
func (m *Mutex) IsLocked() bool {
	mode, _ := unpack(m.state.Load())
	return mode == locked || mode == lockedGroup
}

func (m *Mutex) IsLockedExclusive() bool {
	mode, _ := unpack(m.state.Load())
	return mode == locked
}

func (m *Mutex) IsLockedGroup() bool {
	mode, _ := unpack(m.state.Load())
	return mode == lockedGroup
}

func (m *Mutex) canExclusive() bool {
	mode, _ := unpack(m.state.Load())
	return mode == unlocked || mode == dirty
}

func (m *Mutex) canGroup() bool {
	if groupYields.Load() && m.pending.Load() > 0 {
		return false
	}
	mode, _ := unpack(m.state.Load())
	return mode != locked
}

func (m *Mutex) tryExclusive() bool {
	w := m.state.Load()
	switch mode, _ := unpack(w); mode {
	case unlocked, dirty:
		return m.state.CompareAndSwap(w, pack(locked, 0))
	}
	return false
}

func (m *Mutex) tryGroup() bool {
	if groupYields.Load() && m.pending.Load() > 0 {
		return false
	}

	for {
		w := m.state.Load()
		switch mode, n := unpack(w); mode {
		case lockedGroup:
			if m.state.CompareAndSwap(w, pack(lockedGroup, n+1)) {
				return true
			}
		case unlocked, dirty:
			if m.state.CompareAndSwap(w, pack(lockedGroup, 1)) {
				m.wakeGroup()
				return true
			}
		default:
			return false
		}
	}
}

func (m *Mutex) lockExclusiveSlow() {
	var b synced.Backoff
	for i := spinCount.Load(); i > 0; i-- {
		if m.canExclusive() && m.tryExclusive() {
			return
		}
		b.Spin()
	}

	m.pending.Add(1)
	defer m.pending.Add(-1)

	b.Reset()
	for {
		if m.tryExclusive() {
			return
		}
		if !b.IsCompleted() {
			b.Snooze()
			continue
		}
		m.park(true)
		b.Reset()
	}
}

func (m *Mutex) lockGroupSlow() {
	var b synced.Backoff
	for i := spinCount.Load(); i > 0; i-- {
		if m.canGroup() && m.tryGroup() {
			return
		}
		b.Spin()
	}

	b.Reset()
	for {
		if m.tryGroup() {
			return
		}
		if !b.IsCompleted() {
			b.Snooze()
			continue
		}
		m.park(false)
		b.Reset()
	}
}

// park blocks the caller until a release pops it, unless the lock
// became acquirable while the guard was being taken.
func (m *Mutex) park(exclusive bool) {
	m.guard.Lock()
	if (exclusive && m.canExclusive()) || (!exclusive && m.canGroup()) {
		m.guard.Unlock()
		return
	}

	w := waiters.Load().Get()
	if exclusive {
		m.exclusive.Push(w)
		metrics.Default.IncParked(keyword.ExclusiveMode)
	} else {
		m.group.Push(w)
		metrics.Default.IncParked(keyword.GroupMode)
	}
	m.guard.Unlock()

	w.wait()
	waiters.Load().Put(w)
}

// hasWaiters must be called after the state change it publishes. A parker
// either holds the guard right now or has already pushed itself, otherwise
// its re-check will observe the new state.
func (m *Mutex) hasWaiters() bool {
	return m.guard.IsLocked() || !m.exclusive.IsEmpty() || !m.group.IsEmpty()
}

// wakeNext wakes one exclusive waiter, or one group waiter if none is queued.
func (m *Mutex) wakeNext() {
	if !m.hasWaiters() {
		return
	}

	m.guard.Lock()
	if w, ok := m.exclusive.Pop(); ok {
		w.wake()
		m.guard.Unlock()
		metrics.Default.IncWoken(keyword.ExclusiveMode, 1)
		return
	}
	w, ok := m.group.Pop()
	if ok {
		w.wake()
	}
	m.guard.Unlock()
	if ok {
		metrics.Default.IncWoken(keyword.GroupMode, 1)
	}
}

// wakeGroup lets every parked group waiter join the freshly opened batch.
// Waiters stay parked while an exclusive waiter is pending and group
// acquisitions yield to it.
func (m *Mutex) wakeGroup() {
	if !m.hasWaiters() || (groupYields.Load() && m.pending.Load() > 0) {
		return
	}

	n := 0
	m.guard.Lock()
	for {
		w, ok := m.group.Pop()
		if !ok {
			break
		}
		w.wake()
		n++
	}
	m.guard.Unlock()
	metrics.Default.IncWoken(keyword.GroupMode, n)
}

func (m *Mutex) violation(op, msg string) {
	metrics.Default.IncViolation(op)
	log.Error().Str("op", op).Msg("[mutex] " + msg)
	panic("mutex: " + msg)
}
