package anyref

import (
	"reflect"

	"github.com/Borislavv/go-castbox/pkg/mutex"
	"github.com/rs/zerolog/log"
)

// TryDowncastRef returns the payload if it has type T.
//
// The pointer is not synchronized with guards from DowncastMut: readers
// racing with a writer must coordinate on their own.
func TryDowncastRef[T any](r *Ref) (*T, bool) {
	c := r.cell()
	if c.typ != reflect.TypeFor[T]() {
		return nil, false
	}
	p, ok := c.data.(*T)
	return p, ok
}

// DowncastRef is TryDowncastRef which panics on a type mismatch.
func DowncastRef[T any](r *Ref) *T {
	p, ok := TryDowncastRef[T](r)
	if !ok {
		mismatch[T](r)
	}
	return p
}

// TryDowncastMut locks the payload exclusively if it has type T.
// On a mismatch the lock is not touched. The guard keeps the object alive
// until released.
func TryDowncastMut[T any](r *Ref) (*mutex.Guard[T], bool) {
	p, ok := TryDowncastRef[T](r)
	if !ok {
		return nil, false
	}
	hold := r.Clone()
	c := hold.c
	c.mu.LockExclusive()
	return mutex.AdoptExclusive(&c.mu, p, func() { hold.Release() }), true
}

// DowncastMut is TryDowncastMut which panics on a type mismatch.
func DowncastMut[T any](r *Ref) *mutex.Guard[T] {
	g, ok := TryDowncastMut[T](r)
	if !ok {
		mismatch[T](r)
	}
	return g
}

func mismatch[T any](r *Ref) {
	want := reflect.TypeFor[T]().String()
	log.Error().Str("want", want).Str("have", r.TypeName()).Msg("[anyref] downcast to wrong type")
	panic("anyref: downcast of " + r.TypeName() + " to " + want)
}
