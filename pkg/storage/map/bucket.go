package sharded

import (
	"github.com/Borislavv/go-castbox/pkg/mutex"
	synced "github.com/Borislavv/go-castbox/pkg/sync"
)

type item[K comparable, V any] struct {
	key   K
	value V
	next  *item[K, V]
}

// bucket is a singly linked list of items. The spinlock protects the links,
// the value lock serializes readers of an item against its writers.
type bucket[K comparable, V any] struct {
	lock   synced.SpinLock
	values mutex.Mutex
	head   *item[K, V]
}

// find must be called under the bucket spinlock.
func (b *bucket[K, V]) find(key K) *item[K, V] {
	for it := b.head; it != nil; it = it.next {
		if it.key == key {
			return it
		}
	}
	return nil
}

// unlink must be called under the bucket spinlock.
func (b *bucket[K, V]) unlink(key K) *item[K, V] {
	var prev *item[K, V]
	for it := b.head; it != nil; prev, it = it, it.next {
		if it.key != key {
			continue
		}
		if prev == nil {
			b.head = it.next
		} else {
			prev.next = it.next
		}
		it.next = nil
		return it
	}
	return nil
}

// snapshot copies the bucket items, it must be called under the bucket spinlock.
func (b *bucket[K, V]) snapshot(dst []entry[K, V]) []entry[K, V] {
	for it := b.head; it != nil; it = it.next {
		dst = append(dst, entry[K, V]{key: it.key, value: it.value})
	}
	return dst
}
