package list

import (
	"sync"
	"testing"
)

func TestParkingStackFIFO(t *testing.T) {
	s := NewParkingStack[int]()
	if _, ok := s.Pop(); ok {
		t.Fatal("pop on empty stack must report absence")
	}
	for i := 0; i < 5; i++ {
		s.Push(i)
	}
	if s.Len() != 5 || s.IsEmpty() {
		t.Fatalf("expected 5 items, got %d", s.Len())
	}
	for i := 0; i < 5; i++ {
		v, ok := s.Pop()
		if !ok || v != i {
			t.Fatalf("pop #%d: got (%d, %v)", i, v, ok)
		}
	}
	if !s.IsEmpty() {
		t.Fatal("expected empty stack")
	}

	// tail must be reset once drained, otherwise this push would be lost
	s.Push(42)
	if v, ok := s.Pop(); !ok || v != 42 {
		t.Fatalf("push after drain: got (%d, %v)", v, ok)
	}
}

func TestParkingStackZeroValue(t *testing.T) {
	var s ParkingStack[string]
	s.Push("a")
	if v, ok := s.Pop(); !ok || v != "a" {
		t.Fatalf("got (%q, %v)", v, ok)
	}
}

func TestParkingStackConcurrentPushPop(t *testing.T) {
	const producers, perProducer = 8, 1000

	s := NewParkingStack[int]()
	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				s.Push(base*perProducer + i)
			}
		}(p)
	}

	seen := make([]bool, producers*perProducer)
	var mu sync.Mutex
	var consumers sync.WaitGroup
	popped := 0
	done := make(chan struct{})
	consumers.Add(4)
	for c := 0; c < 4; c++ {
		go func() {
			defer consumers.Done()
			for {
				v, ok := s.Pop()
				if !ok {
					select {
					case <-done:
						if s.IsEmpty() {
							return
						}
					default:
					}
					continue
				}
				mu.Lock()
				if seen[v] {
					mu.Unlock()
					t.Errorf("value %d popped twice", v)
					return
				}
				seen[v] = true
				popped++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	close(done)
	consumers.Wait()

	if popped != producers*perProducer {
		t.Fatalf("popped %d values, want %d", popped, producers*perProducer)
	}
}

func TestParkingStackReleaseLifecycle(t *testing.T) {
	s := NewParkingStack[int]()
	s.Push(1)
	s.Push(2)

	shared := s.Clone()
	if shared.Release() {
		t.Fatal("release of a clone must not tear the stack down")
	}
	if s.Len() != 2 {
		t.Fatalf("expected items to survive, got len %d", s.Len())
	}
	if !s.Release() {
		t.Fatal("final release must report teardown")
	}
	if s.Len() != 0 {
		t.Fatal("final release must drop remaining nodes")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on use after release")
		}
	}()
	s.Push(3)
}
