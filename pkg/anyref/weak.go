package anyref

import (
	"fmt"
	"sync/atomic"
)

// Weak observes an object without keeping its payload alive.
// The zero value and NewWeak are dangling: they never upgrade.
type Weak struct {
	c        *cell
	released atomic.Bool
}

// NewWeak returns a dangling weak handle.
func NewWeak() *Weak {
	return &Weak{}
}

// Upgrade returns a strong handle while the payload is alive.
func (w *Weak) Upgrade() (*Ref, bool) {
	c := w.live()
	if c == nil {
		return nil, false
	}
	for {
		n := c.strong.Load()
		if n == 0 {
			return nil, false
		}
		if n > MaxRefcount {
			abort(fmt.Sprintf("strong count overflow on %s", c.typeName()))
		}
		if c.strong.CompareAndSwap(n, n+1) {
			return &Ref{c: c}, true
		}
	}
}

func (w *Weak) Clone() *Weak {
	c := w.live()
	if c == nil {
		return NewWeak()
	}
	if old := c.weak.Add(1) - 1; old > MaxRefcount {
		abort(fmt.Sprintf("weak count overflow on %s", c.typeName()))
	}
	return &Weak{c: c}
}

// Release drops this handle and reports whether it freed the object.
func (w *Weak) Release() bool {
	if w == nil || w.c == nil || !w.released.CompareAndSwap(false, true) {
		return false
	}
	return w.c.releaseWeak()
}

// StrongCount returns zero for a dangling handle.
func (w *Weak) StrongCount() uint64 {
	if c := w.live(); c != nil {
		return c.strong.Load()
	}
	return 0
}

// WeakCount returns the number of Weak handles, or zero once no strong handle is left.
func (w *Weak) WeakCount() uint64 {
	c := w.live()
	if c == nil || c.strong.Load() == 0 {
		return 0
	}
	return c.weak.Load() - 1
}

func (w *Weak) IsDangling() bool {
	return w.live() == nil
}

func (w *Weak) live() *cell {
	if w == nil || w.c == nil {
		return nil
	}
	if w.released.Load() {
		panic("anyref: use of released Weak")
	}
	return w.c
}
