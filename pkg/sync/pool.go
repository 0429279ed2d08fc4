package synced

import (
	"sync"
	"sync/atomic"
)

const PreallocationBatchSize = 64

// BatchPool is a typed sync.Pool which refills itself in batches
// so that bursts of Get calls do not hit the allocator one by one.
type BatchPool[T any] struct {
	allocated atomic.Int64
	batch     int
	pool      *sync.Pool
	allocFunc func() T
}

func NewBatchPool[T any](preallocateBatchSize int, allocFunc func() T) *BatchPool[T] {
	if preallocateBatchSize < 1 {
		preallocateBatchSize = 1
	}
	bp := &BatchPool[T]{batch: preallocateBatchSize, allocFunc: allocFunc}
	bp.pool = &sync.Pool{
		New: func() any {
			// one item goes back to the caller, the rest of the batch stays pooled
			bp.preallocate(bp.batch - 1)
			bp.allocated.Add(1)
			return bp.allocFunc()
		},
	}
	bp.preallocate(preallocateBatchSize)
	return bp
}

// Allocated returns how many items the pool has created so far.
func (bp *BatchPool[T]) Allocated() int {
	return int(bp.allocated.Load())
}

func (bp *BatchPool[T]) preallocate(n int) {
	for i := 0; i < n; i++ {
		bp.pool.Put(bp.allocFunc())
	}
	bp.allocated.Add(int64(n))
}

func (bp *BatchPool[T]) Get() T {
	return bp.pool.Get().(T)
}

func (bp *BatchPool[T]) Put(x T) {
	bp.pool.Put(x)
}
