package anyref

import (
	"fmt"
	"reflect"
	"sync/atomic"

	synced "github.com/Borislavv/go-castbox/pkg/sync"
	"github.com/Borislavv/go-castbox/pkg/types"
)

var (
	_ types.RefCounted = (*Ref)(nil)
	_ types.RefCounted = (*Weak)(nil)
)

// Ref is a strong handle. Every handle, including clones, must be
// released exactly once; extra Release calls are ignored and any other
// use of a released handle panics.
type Ref struct {
	c        *cell
	released atomic.Bool
}

// Defaulter is implemented by payloads that need more than a zero value in DefaultWith.
type Defaulter interface {
	SetDefaults()
}

func New[T any](v T) *Ref {
	return &Ref{c: newCell(&v)}
}

// FromBoxed adopts p as the payload without copying it.
func FromBoxed[T any](p *T) *Ref {
	if p == nil {
		panic("anyref: FromBoxed of nil pointer")
	}
	return &Ref{c: newCell(p)}
}

// Default returns a handle to an empty struct payload.
func Default() *Ref {
	return New(struct{}{})
}

// DefaultWith returns a handle to the zero value of T, passed through
// SetDefaults when *T implements Defaulter.
func DefaultWith[T any]() *Ref {
	p := new(T)
	if d, ok := any(p).(Defaulter); ok {
		d.SetDefaults()
	}
	return FromBoxed(p)
}

func (r *Ref) cell() *cell {
	if r == nil || r.c == nil || r.released.Load() {
		panic("anyref: use of released Ref")
	}
	return r.c
}

func (r *Ref) Clone() *Ref {
	c := r.cell()
	if old := c.strong.Add(1) - 1; old > MaxRefcount {
		abort(fmt.Sprintf("strong count overflow on %s", c.typeName()))
	}
	return &Ref{c: c}
}

// Release drops this handle. It returns true if it was the last strong handle
// and the payload has been destroyed.
func (r *Ref) Release() bool {
	if r == nil || r.c == nil || !r.released.CompareAndSwap(false, true) {
		return false
	}
	c := r.c
	if c.strong.Add(^uint64(0)) != 0 {
		return false
	}
	c.destroy()
	c.releaseWeak()
	return true
}

func (r *Ref) StrongCount() uint64 {
	return r.cell().strong.Load()
}

// WeakCount returns the number of Weak handles, not counting the implicit unit.
func (r *Ref) WeakCount() uint64 {
	w := r.cell().weak.Load()
	if w == weakLocked {
		return 0
	}
	return w - 1
}

// IsUnique reports whether this is the only handle, strong or weak.
// The weak counter is locked for the duration of the check so that a
// concurrent Downgrade cannot slip in between.
func (r *Ref) IsUnique() bool {
	c := r.cell()
	if !c.weak.CompareAndSwap(1, weakLocked) {
		return false
	}
	unique := c.strong.Load() == 1
	c.weak.Store(1)
	return unique
}

func (r *Ref) Downgrade() *Weak {
	c := r.cell()
	var b synced.Backoff
	for {
		cur := c.weak.Load()
		if cur == weakLocked {
			b.Spin()
			continue
		}
		if cur > MaxRefcount {
			abort(fmt.Sprintf("weak count overflow on %s", c.typeName()))
		}
		if c.weak.CompareAndSwap(cur, cur+1) {
			return &Weak{c: c}
		}
	}
}

// TypeName returns the Go type of the payload, e.g. "string" or "*pkg.T".
func (r *Ref) TypeName() string {
	return r.cell().typeName()
}

// Type returns the reflect.Type of the payload.
func (r *Ref) Type() reflect.Type {
	return r.cell().typ
}

// Is reports whether the payload has type T.
func Is[T any](r *Ref) bool {
	return r.cell().typ == reflect.TypeFor[T]()
}

// IsLocked reports whether a guard currently holds the payload lock.
func (r *Ref) IsLocked() bool {
	return r.cell().mu.IsLocked()
}

func (r *Ref) String() string {
	if r == nil || r.c == nil || r.released.Load() {
		return "anyref.Ref(released)"
	}
	return fmt.Sprintf("anyref.Ref[%s](strong=%d, weak=%d)", r.c.typeName(), r.StrongCount(), r.WeakCount())
}

// PtrEq reports whether both handles point to the same object.
func PtrEq(a, b *Ref) bool {
	return a.cell() == b.cell()
}

// TryUnwrap moves the payload out if r is its only strong handle and it
// has type T. On success r is consumed; on failure r stays usable.
func TryUnwrap[T any](r *Ref) (v T, ok bool) {
	c := r.cell()
	p, ok := c.data.(*T)
	if !ok || !c.strong.CompareAndSwap(1, 0) {
		return v, false
	}
	r.released.Store(true)
	v = *p
	c.data = nil
	c.releaseWeak()
	return v, true
}

// Fill replaces the payload and its type in place.
// The caller must hold the only handle to the object, this is not checked.
func Fill[T any](r *Ref, v T) *Ref {
	c := r.cell()
	c.data = &v
	c.typ = reflect.TypeFor[T]()
	return r
}

// Map builds a new object from the payload of r. r stays untouched.
func Map[T, U any](r *Ref, fn func(*T) U) *Ref {
	return New(fn(DowncastRef[T](r)))
}
