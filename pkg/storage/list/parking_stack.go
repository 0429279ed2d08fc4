package list

import (
	"sync/atomic"

	synced "github.com/Borislavv/go-castbox/pkg/sync"
	"github.com/rs/zerolog/log"
)

type node[T any] struct {
	value T
	next  *node[T]
}

// ParkingStack is a shareable FIFO container guarded by a single-bit spinlock.
// Values are pushed at the tail and popped from the head.
//
// The zero value is an empty stack with one owner. Clone adds an owner and
// Release drops one; the final Release discards remaining nodes and any later
// use panics.
type ParkingStack[T any] struct {
	lock   synced.SpinLock
	head   *node[T]
	tail   *node[T]
	len    atomic.Int64
	refs   atomic.Int64 // owners beyond the first one
	closed atomic.Bool
}

func NewParkingStack[T any]() *ParkingStack[T] {
	return &ParkingStack[T]{}
}

func (s *ParkingStack[T]) Push(v T) {
	n := &node[T]{value: v}

	s.lock.Lock()
	s.mustBeOpen()
	if s.tail == nil {
		s.head = n
	} else {
		s.tail.next = n
	}
	s.tail = n
	s.len.Add(1)
	s.lock.Unlock()
}

func (s *ParkingStack[T]) Pop() (v T, ok bool) {
	s.lock.Lock()
	s.mustBeOpen()
	n := s.head
	if n == nil {
		s.lock.Unlock()
		return v, false
	}
	s.head = n.next
	if s.head == nil {
		s.tail = nil
	}
	s.len.Add(-1)
	s.lock.Unlock()

	v, n.next = n.value, nil
	return v, true
}

func (s *ParkingStack[T]) Len() int {
	return int(s.len.Load())
}

func (s *ParkingStack[T]) IsEmpty() bool {
	return s.len.Load() == 0
}

// IsBusy reports whether some goroutine is inside a Push or Pop right now.
func (s *ParkingStack[T]) IsBusy() bool {
	return s.lock.IsLocked()
}

// Clone registers another owner and returns the same stack.
func (s *ParkingStack[T]) Clone() *ParkingStack[T] {
	if s.closed.Load() {
		panic("list: clone of released ParkingStack")
	}
	s.refs.Add(1)
	return s
}

// Release drops one owner. It returns true when this was the last owner
// and the stack has been torn down.
func (s *ParkingStack[T]) Release() bool {
	if s.refs.Add(-1) >= 0 {
		return false
	}

	s.lock.Lock()
	if !s.closed.CompareAndSwap(false, true) {
		s.lock.Unlock()
		panic("list: double release of ParkingStack")
	}
	for n := s.head; n != nil; {
		next := n.next
		n.next = nil
		n = next
	}
	s.head, s.tail = nil, nil
	s.len.Store(0)
	s.lock.Unlock()
	return true
}

func (s *ParkingStack[T]) mustBeOpen() {
	if s.closed.Load() {
		s.lock.Unlock()
		log.Error().Msg("[parking-stack] use after final release")
		panic("list: use of released ParkingStack")
	}
}
