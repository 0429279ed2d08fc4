package mutex

import "sync/atomic"

// Guard grants exclusive access to a value protected by a Mutex.
// Release unlocks exactly once, so it is safe to defer and to call early.
type Guard[T any] struct {
	mu        *Mutex
	v         *T
	onRelease func()
	released  atomic.Bool
}

// Exclusive locks mu exclusively and returns a guard over v.
func Exclusive[T any](mu *Mutex, v *T) *Guard[T] {
	mu.LockExclusive()
	return &Guard[T]{mu: mu, v: v}
}

// AdoptExclusive wraps a mutex the caller already holds exclusively.
// onRelease, if set, runs after the unlock.
func AdoptExclusive[T any](mu *Mutex, v *T, onRelease func()) *Guard[T] {
	return &Guard[T]{mu: mu, v: v, onRelease: onRelease}
}

func (g *Guard[T]) Get() *T {
	if g.released.Load() {
		panic("mutex: access through released guard")
	}
	return g.v
}

// Release returns false if the guard has already been released.
func (g *Guard[T]) Release() bool {
	if !g.released.CompareAndSwap(false, true) {
		return false
	}
	g.mu.UnlockExclusive()
	if g.onRelease != nil {
		g.onRelease()
	}
	return true
}

// ReadGuard is the group mode counterpart of Guard. Holders of the same
// group batch are not excluded from each other, so the value must be
// treated as read-only.
type ReadGuard[T any] struct {
	mu        *Mutex
	v         *T
	onRelease func()
	released  atomic.Bool
}

// Group joins the group mode of mu and returns a guard over v.
func Group[T any](mu *Mutex, v *T) *ReadGuard[T] {
	mu.LockGroup()
	return &ReadGuard[T]{mu: mu, v: v}
}

// AdoptGroup wraps a group lock the caller already holds.
func AdoptGroup[T any](mu *Mutex, v *T, onRelease func()) *ReadGuard[T] {
	return &ReadGuard[T]{mu: mu, v: v, onRelease: onRelease}
}

func (g *ReadGuard[T]) Get() *T {
	if g.released.Load() {
		panic("mutex: access through released guard")
	}
	return g.v
}

func (g *ReadGuard[T]) Release() bool {
	if !g.released.CompareAndSwap(false, true) {
		return false
	}
	g.mu.UnlockGroup()
	if g.onRelease != nil {
		g.onRelease()
	}
	return true
}
