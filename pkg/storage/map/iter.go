package sharded

type entry[K comparable, V any] struct {
	key   K
	value V
}

// Iter walks the map bucket by bucket. Entries are copied out of a bucket
// while no exclusive value guard is held on it.
type Iter[K comparable, V any] struct {
	smap   *Map[K, V]
	next   int
	buf    []entry[K, V]
	pos    int
	closed bool
}

// Next returns the next entry, or false when the map is exhausted.
func (it *Iter[K, V]) Next() (key K, value V, ok bool) {
	if it.closed {
		return key, value, false
	}
	for it.pos >= len(it.buf) {
		if it.next >= len(it.smap.buckets) {
			return key, value, false
		}
		it.fill(it.smap.buckets[it.next])
		it.next++
	}
	e := it.buf[it.pos]
	it.pos++
	return e.key, e.value, true
}

func (it *Iter[K, V]) fill(b *bucket[K, V]) {
	// waits for outstanding GetMut guards on this bucket
	b.values.LockGroup()
	b.lock.Lock()
	it.buf = b.snapshot(it.buf[:0])
	b.lock.Unlock()
	b.values.UnlockGroup()
	it.pos = 0
}

// Close unlocks the map. It is safe to call more than once.
func (it *Iter[K, V]) Close() {
	if it.closed {
		return
	}
	it.closed = true
	it.buf = nil
	it.smap.mu.UnlockExclusive()
}
