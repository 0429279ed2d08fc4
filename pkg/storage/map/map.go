package sharded

import (
	"iter"
	"sync"
	"sync/atomic"

	"github.com/Borislavv/go-castbox/pkg/mutex"
	"github.com/rs/zerolog/log"
)

const DefaultBucketCount = 256

var defaultBucketCount atomic.Int64

func init() {
	defaultBucketCount.Store(DefaultBucketCount)
}

// SetDefaultBucketCount changes the bucket count used by NewMap.
func SetDefaultBucketCount(n int) {
	if n > 0 {
		defaultBucketCount.Store(int64(n))
	}
}

// Map is a fixed-bucket concurrent hash map.
//
// Single-key operations hold the map lock in group mode, so they run in
// parallel and only contend on their own bucket. Iteration takes the map
// lock exclusively and holds it until the iterator is closed.
//
// Guards returned by Get and GetMut hold the value lock of their bucket:
// releasing them before mutating the same bucket is up to the caller.
//
// The zero value is an empty map with the default bucket count and hasher.
type Map[K comparable, V any] struct {
	once    sync.Once
	mu      mutex.Mutex
	buckets []*bucket[K, V]
	hasher  Hasher[K]
	len     atomic.Int64
	refs    atomic.Int64
	closed  atomic.Bool
}

func NewMap[K comparable, V any]() *Map[K, V] {
	return NewMapWithHasher[K, V](int(defaultBucketCount.Load()), DefaultHasher[K]())
}

func NewMapWithHasher[K comparable, V any](buckets int, hasher Hasher[K]) *Map[K, V] {
	if buckets < 1 {
		buckets = 1
	}
	if hasher == nil {
		hasher = DefaultHasher[K]()
	}
	smap := &Map[K, V]{}
	smap.allocate(buckets, hasher)
	return smap
}

func (smap *Map[K, V]) allocate(buckets int, hasher Hasher[K]) {
	smap.once.Do(func() {
		smap.hasher = hasher
		smap.buckets = make([]*bucket[K, V], buckets)
		for i := range smap.buckets {
			smap.buckets[i] = &bucket[K, V]{}
		}
	})
}

func (smap *Map[K, V]) BucketCount() int {
	smap.allocate(int(defaultBucketCount.Load()), DefaultHasher[K]())
	return len(smap.buckets)
}

func (smap *Map[K, V]) bucket(key K) *bucket[K, V] {
	return smap.buckets[smap.hasher(key)%uint64(len(smap.buckets))]
}

// Insert stores value under key. It returns true if an existing value was replaced.
func (smap *Map[K, V]) Insert(key K, value V) (replaced bool) {
	smap.lockGroup()
	defer smap.mu.UnlockGroup()

	b := smap.bucket(key)
	b.values.LockExclusive()
	b.lock.Lock()
	if it := b.find(key); it != nil {
		it.value = value
		replaced = true
	} else {
		b.head = &item[K, V]{key: key, value: value, next: b.head}
		smap.len.Add(1)
	}
	b.lock.Unlock()
	b.values.UnlockExclusive()

	return replaced
}

// Compute atomically replaces the value under key with the result of fn.
// fn receives the current value (zero and false if absent) and returns
// the new value plus whether to keep it; returning false deletes the key.
// fn must not call back into the map.
func (smap *Map[K, V]) Compute(key K, fn func(old V, ok bool) (V, bool)) (V, bool) {
	smap.lockGroup()
	defer smap.mu.UnlockGroup()

	b := smap.bucket(key)
	b.values.LockExclusive()
	defer b.values.UnlockExclusive()

	b.lock.Lock()
	defer b.lock.Unlock()

	var old V
	it := b.find(key)
	if it != nil {
		old = it.value
	}

	v, keep := fn(old, it != nil)
	switch {
	case keep && it != nil:
		it.value = v
	case keep:
		b.head = &item[K, V]{key: key, value: v, next: b.head}
		smap.len.Add(1)
	case it != nil:
		b.unlink(key)
		smap.len.Add(-1)
	}
	return v, keep
}

// Get returns a shared guard over the value stored under key.
func (smap *Map[K, V]) Get(key K) (*mutex.ReadGuard[V], bool) {
	smap.lockGroup()
	defer smap.mu.UnlockGroup()

	b := smap.bucket(key)
	b.values.LockGroup()
	b.lock.Lock()
	it := b.find(key)
	b.lock.Unlock()
	if it == nil {
		b.values.UnlockGroup()
		return nil, false
	}
	return mutex.AdoptGroup(&b.values, &it.value, nil), true
}

// GetMut returns an exclusive guard over the value stored under key.
func (smap *Map[K, V]) GetMut(key K) (*mutex.Guard[V], bool) {
	smap.lockGroup()
	defer smap.mu.UnlockGroup()

	b := smap.bucket(key)
	b.values.LockExclusive()
	b.lock.Lock()
	it := b.find(key)
	b.lock.Unlock()
	if it == nil {
		b.values.UnlockExclusive()
		return nil, false
	}
	return mutex.AdoptExclusive(&b.values, &it.value, nil), true
}

// Load returns a copy of the value stored under key.
func (smap *Map[K, V]) Load(key K) (value V, found bool) {
	g, ok := smap.Get(key)
	if !ok {
		return value, false
	}
	value = *g.Get()
	g.Release()
	return value, true
}

func (smap *Map[K, V]) Remove(key K) (value V, found bool) {
	smap.lockGroup()
	defer smap.mu.UnlockGroup()

	b := smap.bucket(key)
	b.values.LockExclusive()
	b.lock.Lock()
	it := b.unlink(key)
	b.lock.Unlock()
	b.values.UnlockExclusive()

	if it == nil {
		return value, false
	}
	smap.len.Add(-1)
	return it.value, true
}

func (smap *Map[K, V]) Len() int {
	return int(smap.len.Load())
}

// Iter locks the map exclusively until the returned iterator is closed.
func (smap *Map[K, V]) Iter() *Iter[K, V] {
	smap.mustBeOpen()
	smap.mu.LockExclusive()
	return &Iter[K, V]{smap: smap}
}

// All is a range-over-func view of Iter.
func (smap *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		it := smap.Iter()
		defer it.Close()
		for {
			k, v, ok := it.Next()
			if !ok || !yield(k, v) {
				return
			}
		}
	}
}

// Range calls fn for each entry until fn returns false.
func (smap *Map[K, V]) Range(fn func(key K, value V) bool) {
	for k, v := range smap.All() {
		if !fn(k, v) {
			return
		}
	}
}

func (smap *Map[K, V]) Keys() []K {
	keys := make([]K, 0, smap.Len())
	for k := range smap.All() {
		keys = append(keys, k)
	}
	return keys
}

// Clone registers another owner and returns the same map.
func (smap *Map[K, V]) Clone() *Map[K, V] {
	smap.mustBeOpen()
	smap.refs.Add(1)
	return smap
}

// Release drops one owner. The last owner empties the map and any later use panics.
func (smap *Map[K, V]) Release() bool {
	if smap.refs.Add(-1) >= 0 {
		return false
	}

	smap.mu.LockExclusive()
	defer smap.mu.UnlockExclusive()

	if !smap.closed.CompareAndSwap(false, true) {
		panic("sharded: double release of Map")
	}
	for _, b := range smap.buckets {
		b.lock.Lock()
		for it := b.head; it != nil; {
			next := it.next
			it.next = nil
			it = next
		}
		b.head = nil
		b.lock.Unlock()
	}
	smap.len.Store(0)
	return true
}

func (smap *Map[K, V]) lockGroup() {
	smap.mustBeOpen()
	smap.mu.LockGroup()
}

func (smap *Map[K, V]) mustBeOpen() {
	if smap.closed.Load() {
		log.Error().Msg("[sharded] use of released map")
		panic("sharded: use of released Map")
	}
	smap.allocate(int(defaultBucketCount.Load()), DefaultHasher[K]())
}
