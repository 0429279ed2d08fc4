package mutex

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	synced "github.com/Borislavv/go-castbox/pkg/sync"
)

func TestExclusivity(t *testing.T) {
	var (
		m       Mutex
		wg      sync.WaitGroup
		inside  atomic.Int32
		counter int
	)

	const goroutines, iterations = 8, 500
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				m.LockExclusive()
				if n := inside.Add(1); n != 1 {
					t.Errorf("exclusive sections overlap: %d inside", n)
				}
				counter++
				inside.Add(-1)
				m.UnlockExclusive()
			}
		}()
	}
	wg.Wait()

	if counter != goroutines*iterations {
		t.Fatalf("lost updates: got %d, want %d", counter, goroutines*iterations)
	}
	if m.IsLocked() {
		t.Fatal("mutex must be free at the end")
	}
}

func TestGroupConcurrency(t *testing.T) {
	var (
		m       Mutex
		wg      sync.WaitGroup
		inside  atomic.Int32
		maxSeen atomic.Int32
		start   = make(chan struct{})
	)

	const goroutines = 6
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			<-start
			m.LockGroup()
			n := inside.Add(1)
			for {
				cur := maxSeen.Load()
				if n <= cur || maxSeen.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			inside.Add(-1)
			m.UnlockGroup()
		}()
	}
	close(start)
	wg.Wait()

	if maxSeen.Load() <= 1 {
		t.Fatalf("group mode behaved as exclusive: max concurrent holders %d", maxSeen.Load())
	}
	if m.IsLocked() {
		t.Fatal("mutex must be free at the end")
	}
}

func TestMutualExclusionAcrossModes(t *testing.T) {
	var (
		m           Mutex
		wg          sync.WaitGroup
		exclusiveIn atomic.Int32
		groupIn     atomic.Int32
	)

	const goroutines, iterations = 8, 300
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				if (id+i)%3 == 0 {
					m.LockExclusive()
					exclusiveIn.Add(1)
					if groupIn.Load() != 0 {
						t.Error("group holder inside an exclusive section")
					}
					exclusiveIn.Add(-1)
					m.UnlockExclusive()
				} else {
					m.LockGroup()
					groupIn.Add(1)
					if exclusiveIn.Load() != 0 {
						t.Error("exclusive holder inside a group section")
					}
					groupIn.Add(-1)
					m.UnlockGroup()
				}
			}
		}(g)
	}
	wg.Wait()

	if m.IsLocked() {
		t.Fatal("mutex must be free at the end")
	}
}

func TestStateTransitions(t *testing.T) {
	var m Mutex
	if m.IsLocked() || m.IsLockedExclusive() || m.IsLockedGroup() {
		t.Fatal("zero value must be unlocked")
	}

	m.LockExclusive()
	if !m.IsLocked() || !m.IsLockedExclusive() || m.IsLockedGroup() {
		t.Fatal("expected exclusive state")
	}
	if m.TryLockExclusive() || m.TryLockGroup() {
		t.Fatal("no acquisition is possible while exclusively held")
	}
	m.UnlockExclusive()

	m.LockGroup()
	m.LockGroup()
	if !m.IsLockedGroup() || m.IsLockedExclusive() {
		t.Fatal("expected group state")
	}
	if m.TryLockExclusive() {
		t.Fatal("exclusive must not be granted while the group is held")
	}
	m.UnlockGroup()
	if !m.IsLockedGroup() {
		t.Fatal("group must stay held while a member is inside")
	}
	m.UnlockGroup()

	// dirty with zero holders counts as free
	if m.IsLocked() || m.IsLockedGroup() {
		t.Fatal("drained group must be reported as free")
	}
	if !m.TryLockExclusive() {
		t.Fatal("exclusive must be granted after the group drained")
	}
	m.UnlockExclusive()
}

func TestUnlockAllGroup(t *testing.T) {
	var m Mutex
	for i := 0; i < 3; i++ {
		m.LockGroup()
	}
	m.UnlockAllGroup()
	if m.IsLocked() {
		t.Fatal("expected the whole batch to be released")
	}
	m.LockExclusive()
	m.UnlockExclusive()
}

func TestContractViolationsPanic(t *testing.T) {
	cases := []struct {
		name string
		fn   func(m *Mutex)
	}{
		{"unlock exclusive of free mutex", func(m *Mutex) { m.UnlockExclusive() }},
		{"unlock exclusive of group mutex", func(m *Mutex) { m.LockGroup(); m.UnlockExclusive() }},
		{"unlock group of free mutex", func(m *Mutex) { m.UnlockGroup() }},
		{"unlock group twice", func(m *Mutex) { m.LockGroup(); m.UnlockGroup(); m.UnlockGroup() }},
		{"unlock group of exclusive mutex", func(m *Mutex) { m.LockExclusive(); m.UnlockGroup() }},
		{"unlock all group of free mutex", func(m *Mutex) { m.UnlockAllGroup() }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			var m Mutex
			tc.fn(&m)
		})
	}
}

func TestFailedUnlockKeepsState(t *testing.T) {
	var m Mutex
	mustPanic := func(fn func()) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic")
			}
		}()
		fn()
	}

	mustPanic(m.UnlockGroup)
	if mode, n := unpack(m.state.Load()); mode != unlocked || n != 0 {
		t.Fatalf("state corrupted: mode=%d holders=%d", mode, n)
	}

	m.LockExclusive()
	mustPanic(m.UnlockGroup)
	if mode, n := unpack(m.state.Load()); mode != locked || n != 0 {
		t.Fatalf("exclusive state corrupted: mode=%d holders=%d", mode, n)
	}
	m.UnlockExclusive()

	m.LockGroup()
	m.UnlockGroup()
}

func TestRejectedGroupAttemptLeavesNoTrace(t *testing.T) {
	var m Mutex

	m.LockExclusive()
	if m.TryLockGroup() {
		t.Fatal("group granted while exclusively held")
	}
	m.UnlockExclusive()

	m.LockGroup()
	m.UnlockGroup()

	if m.IsLocked() {
		mode, n := unpack(m.state.Load())
		t.Fatalf("drained mutex reported as locked: mode=%d holders=%d", mode, n)
	}
	if !m.TryLockExclusive() {
		t.Fatal("exclusive must be granted once the batch drained")
	}
	m.UnlockExclusive()
}

func TestMixedModesUnderContention(t *testing.T) {
	spin, yield := synced.BackoffLimits()
	SetSpinCount(1)
	synced.SetBackoffLimits(1, 2)
	defer func() {
		SetSpinCount(DefaultSpinCount)
		synced.SetBackoffLimits(spin, yield)
		SetGroupYieldsToExclusive(true)
	}()

	for _, yields := range []bool{true, false} {
		SetGroupYieldsToExclusive(yields)
		name := "group yields"
		if !yields {
			name = "group does not yield"
		}
		t.Run(name, func(t *testing.T) {
			var (
				m           Mutex
				wg          sync.WaitGroup
				exclusiveIn atomic.Int32
				groupIn     atomic.Int32
				counter     int
				exclusives  atomic.Int64
			)

			const goroutines, iterations = 16, 2000
			wg.Add(goroutines)
			for g := 0; g < goroutines; g++ {
				go func(id int) {
					defer wg.Done()
					for i := 0; i < iterations; i++ {
						if (id+i)%4 == 0 {
							m.LockExclusive()
							if exclusiveIn.Add(1) != 1 || groupIn.Load() != 0 {
								t.Error("exclusive section overlaps another holder")
							}
							counter++
							runtime.Gosched()
							exclusiveIn.Add(-1)
							exclusives.Add(1)
							m.UnlockExclusive()
						} else {
							m.LockGroup()
							groupIn.Add(1)
							if exclusiveIn.Load() != 0 {
								t.Error("group section overlaps an exclusive holder")
							}
							runtime.Gosched()
							groupIn.Add(-1)
							m.UnlockGroup()
						}
					}
				}(g)
			}

			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(30 * time.Second):
				mode, n := unpack(m.state.Load())
				t.Fatalf("mutex stalled: mode=%d holders=%d pending=%d parked=%d/%d",
					mode, n, m.pending.Load(), m.exclusive.Len(), m.group.Len())
			}

			if int64(counter) != exclusives.Load() {
				t.Fatalf("lost updates: got %d, want %d", counter, exclusives.Load())
			}
			if m.IsLocked() {
				t.Fatal("mutex must be free at the end")
			}
		})
	}
}

func TestParkedExclusiveWakesOnGroupRelease(t *testing.T) {
	var m Mutex
	m.LockGroup()

	acquired := make(chan struct{})
	go func() {
		m.LockExclusive()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("exclusive acquired while the group is held")
	case <-time.After(50 * time.Millisecond):
	}

	m.UnlockGroup()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("exclusive waiter was not woken")
	}
	m.UnlockExclusive()
}

func TestParkedGroupWakesOnExclusiveRelease(t *testing.T) {
	var m Mutex
	m.LockExclusive()

	const goroutines = 4
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			m.LockGroup()
			m.UnlockGroup()
		}()
	}

	time.Sleep(50 * time.Millisecond)
	m.UnlockExclusive()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("group waiters were not woken")
	}
}

func TestExclusiveIsNotStarvedByGroupStream(t *testing.T) {
	var (
		m    Mutex
		wg   sync.WaitGroup
		stop atomic.Bool
	)

	const readers = 6
	wg.Add(readers)
	for i := 0; i < readers; i++ {
		go func() {
			defer wg.Done()
			for !stop.Load() {
				m.LockGroup()
				time.Sleep(time.Millisecond)
				m.UnlockGroup()
			}
		}()
	}
	defer func() {
		stop.Store(true)
		wg.Wait()
	}()

	time.Sleep(10 * time.Millisecond)

	acquired := make(chan struct{})
	go func() {
		m.LockExclusive()
		close(acquired)
		m.UnlockExclusive()
	}()

	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("exclusive waiter starved by group holders")
	}
}

func TestUncontendedPathDoesNotAllocate(t *testing.T) {
	var m Mutex
	allocs := testing.AllocsPerRun(100, func() {
		m.LockExclusive()
		m.UnlockExclusive()
		m.LockGroup()
		m.UnlockGroup()
	})
	if allocs != 0 {
		t.Fatalf("expected zero allocations, got %v", allocs)
	}
}

func BenchmarkLockExclusiveUncontended(b *testing.B) {
	var m Mutex
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m.LockExclusive()
		m.UnlockExclusive()
	}
}

func BenchmarkLockGroupParallel(b *testing.B) {
	var m Mutex
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.LockGroup()
			m.UnlockGroup()
		}
	})
}

func BenchmarkMixedParallel(b *testing.B) {
	var (
		m Mutex
		n int
	)
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if i%10 == 0 {
				m.LockExclusive()
				n++
				m.UnlockExclusive()
			} else {
				m.LockGroup()
				_ = n
				m.UnlockGroup()
			}
			i++
		}
	})
}
