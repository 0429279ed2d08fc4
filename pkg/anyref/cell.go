// Package anyref implements a type-erased, atomically reference counted
// pointer with strong and weak handles and a lock embedded in every object.
//
// A payload is reached only through a checked downcast: the stored type is
// compared with the requested one on every access. Mutable access goes
// through a guard holding the embedded lock exclusively.
package anyref

import (
	"io"
	"math"
	"reflect"
	"sync/atomic"

	"github.com/Borislavv/go-castbox/pkg/mutex"
	"github.com/Borislavv/go-castbox/pkg/prometheus/metrics"
	"github.com/rs/zerolog/log"
)

const (
	// MaxRefcount is the largest strong or weak count before the process aborts.
	MaxRefcount uint64 = math.MaxInt64
	// weakLocked is stored in the weak counter while IsUnique inspects the strong one.
	weakLocked uint64 = math.MaxUint64
)

// abort terminates the process. Overflowing a counter means some handle
// is leaked in a loop and the counters can no longer be trusted.
var abort = func(reason string) {
	metrics.Default.IncAborted()
	log.Fatal().Msg("[anyref] " + reason)
}

type cell struct {
	strong atomic.Uint64
	// weak holds one implicit unit shared by all strong handles.
	weak atomic.Uint64
	mu   mutex.Mutex
	typ  reflect.Type
	data any // *T of typ, nil once the payload is destroyed
	// anchor gives zero-size payloads an address of their own, since the
	// runtime may place every zero-size allocation at the same one.
	anchor byte
}

func newCell[T any](p *T) *cell {
	c := &cell{typ: reflect.TypeFor[T](), data: p}
	c.strong.Store(1)
	c.weak.Store(1)
	return c
}

// destroy drops the payload, closing it first if it is an io.Closer.
// Only the goroutine which brought strong to zero may call it.
func (c *cell) destroy() {
	data := c.data
	c.data = nil
	metrics.Default.IncDestroyed()

	if closer, ok := data.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Err(err).Str("type", c.typ.String()).Msg("[anyref] payload close failed")
		}
	}
}

// releaseWeak drops one weak unit and reports whether the cell was freed.
func (c *cell) releaseWeak() bool {
	if c.weak.Add(^uint64(0)) != 0 {
		return false
	}
	c.typ = nil
	return true
}

func (c *cell) typeName() string {
	if c.typ == nil {
		return "<nil>"
	}
	return c.typ.String()
}
