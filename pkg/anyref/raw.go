package anyref

import (
	"reflect"
	"unsafe"

	sharded "github.com/Borislavv/go-castbox/pkg/storage/map"
)

// rawSlot counts the strong units parked in the raw table for one payload.
type rawSlot struct {
	c *cell
	n uint64
}

// raw maps addresses handed out by IntoRaw back to their objects.
var raw = sharded.NewMap[uintptr, rawSlot]()

// IntoRaw consumes r and returns the address of its payload. The strong unit
// of r stays reserved until FromRaw turns the address back into a Ref.
// Zero-size payloads are addressed through their object, so every object
// yields a distinct address.
func (r *Ref) IntoRaw() unsafe.Pointer {
	c := r.cell()
	if !r.released.CompareAndSwap(false, true) {
		panic("anyref: use of released Ref")
	}
	p := c.rawAddr()
	taken := false
	raw.Compute(uintptr(p), func(s rawSlot, ok bool) (rawSlot, bool) {
		// two objects boxing the same pointer
		if ok && s.c != c {
			taken = true
			return s, true
		}
		s.c = c
		s.n++
		return s, true
	})
	if taken {
		r.released.Store(false)
		panic("anyref: payload address of " + c.typeName() + " is reserved by another object")
	}
	return p
}

func (c *cell) rawAddr() unsafe.Pointer {
	if c.typ.Size() == 0 {
		return unsafe.Pointer(&c.anchor)
	}
	return reflect.ValueOf(c.data).UnsafePointer()
}

// FromRaw takes back a strong unit reserved by IntoRaw. It reports false for
// nil and for addresses without a reservation.
func FromRaw(p unsafe.Pointer) (*Ref, bool) {
	if p == nil {
		return nil, false
	}
	var c *cell
	raw.Compute(uintptr(p), func(s rawSlot, ok bool) (rawSlot, bool) {
		if !ok {
			return s, false
		}
		c = s.c
		s.n--
		return s, s.n > 0
	})
	if c == nil {
		return nil, false
	}
	return &Ref{c: c}, true
}

// CastRaw borrows the payload behind an IntoRaw address as *T without
// taking its reservation.
func CastRaw[T any](p unsafe.Pointer) (*T, bool) {
	if p == nil {
		return nil, false
	}
	s, ok := raw.Load(uintptr(p))
	if !ok || s.c.typ != reflect.TypeFor[T]() {
		return nil, false
	}
	return (*T)(p), true
}
