package soak

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Borislavv/go-castbox/internal/soak/config"
	"github.com/Borislavv/go-castbox/pkg/anyref"
	"github.com/Borislavv/go-castbox/pkg/mutex"
	"github.com/Borislavv/go-castbox/pkg/prometheus/metrics"
	"github.com/Borislavv/go-castbox/pkg/rate"
	"github.com/Borislavv/go-castbox/pkg/storage/list"
	sharded "github.com/Borislavv/go-castbox/pkg/storage/map"
	"github.com/Borislavv/go-castbox/pkg/types"
	"github.com/Borislavv/go-castbox/pkg/utils"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const statsInterval = 5 * time.Second

type op int

const (
	opGroupSection op = iota
	opExclusiveSection
	opInsert
	opMutate
	opRemove
	opUpgrade
	opIterate
	opCount
)

var opNames = [opCount]string{
	opGroupSection:     "group_section",
	opExclusiveSection: "exclusive_section",
	opInsert:           "insert",
	opMutate:           "mutate",
	opRemove:           "remove",
	opUpgrade:          "upgrade",
	opIterate:          "iterate",
}

// object is the payload stored behind every map entry.
type object struct {
	id    int
	hits  int64
	owner *Runner
}

func (o *object) Close() error {
	o.owner.destroyed.Add(1)
	return nil
}

// Runner drives the primitives from many goroutines and checks that
// their invariants hold once the load stops.
type Runner struct {
	cfg     *config.Soak
	limiter rate.Limiter
	meter   metrics.Meter

	mu      mutex.Mutex
	counter int64 // guarded by mu

	objects *sharded.Map[int, *anyref.Ref]
	weaks   *list.ParkingStack[*anyref.Weak]

	ops        [opCount]atomic.Int64
	created    atomic.Int64
	destroyed  atomic.Int64
	upgraded   atomic.Int64
	expired    atomic.Int64
	lastActive atomic.Int64
}

func NewRunner(cfg *config.Soak, limiter rate.Limiter, meter metrics.Meter) *Runner {
	return &Runner{
		cfg:     cfg,
		limiter: limiter,
		meter:   meter,
		objects: sharded.NewMap[int, *anyref.Ref](),
		weaks:   list.NewParkingStack[*anyref.Weak](),
	}
}

// Run blocks until ctx is done, then tears the shared state down and verifies it.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.cfg.Workers; i++ {
		id := i
		g.Go(func() error { return r.work(gctx, id) })
	}
	g.Go(func() error {
		r.logStats(gctx)
		return nil
	})

	err := g.Wait()
	if verr := r.teardown(); err == nil {
		err = verr
	}
	return err
}

// IsActive reports whether some worker finished an operation within d.
func (r *Runner) IsActive(d time.Duration) bool {
	last := r.lastActive.Load()
	return last == 0 || time.Since(time.Unix(0, last)) < d
}

func (r *Runner) work(ctx context.Context, id int) error {
	rnd := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(id)))
	for {
		if _, ok := r.limiter.Take(ctx); !ok {
			return nil
		}
		o := r.pick(rnd)
		r.do(o, rnd)
		r.ops[o].Add(1)
		r.meter.IncOp(opNames[o])
		r.lastActive.Store(time.Now().UnixNano())
	}
}

func (r *Runner) pick(rnd *rand.Rand) op {
	switch n := rnd.IntN(100); {
	case n < 30:
		if rnd.Float64() < r.cfg.GroupRatio {
			return opGroupSection
		}
		return opExclusiveSection
	case n < 50:
		return opInsert
	case n < 75:
		return opMutate
	case n < 87:
		return opRemove
	case n < 99:
		return opUpgrade
	default:
		return opIterate
	}
}

func (r *Runner) do(o op, rnd *rand.Rand) {
	key := rnd.IntN(r.cfg.Keys)

	switch o {
	case opGroupSection:
		r.mu.LockGroup()
		if r.counter < 0 {
			log.Error().Int64("counter", r.counter).Msg("[soak] guarded counter went negative")
		}
		r.mu.UnlockGroup()

	case opExclusiveSection:
		r.mu.LockExclusive()
		r.counter++
		r.mu.UnlockExclusive()

	case opInsert:
		ref := anyref.New(object{id: key, owner: r})
		r.created.Add(1)
		r.objects.Compute(key, func(old *anyref.Ref, ok bool) (*anyref.Ref, bool) {
			if ok {
				old.Release()
			}
			return ref, true
		})

	case opMutate:
		g, ok := r.objects.Get(key)
		if !ok {
			return
		}
		ref := (*g.Get()).Clone()
		g.Release()

		guard := anyref.DowncastMut[object](ref)
		guard.Get().hits++
		types.ReleaseAll(ref, guard)

	case opRemove:
		ref, ok := r.objects.Remove(key)
		if !ok {
			return
		}
		r.weaks.Push(ref.Downgrade())
		ref.Release()

	case opUpgrade:
		w, ok := r.weaks.Pop()
		if !ok {
			return
		}
		if ref, ok := w.Upgrade(); ok {
			r.upgraded.Add(1)
			ref.Release()
		} else {
			r.expired.Add(1)
		}
		w.Release()

	case opIterate:
		n := 0
		r.objects.Range(func(int, *anyref.Ref) bool {
			n++
			return true
		})
		if n > r.cfg.Keys {
			log.Error().Int("entries", n).Int("keys", r.cfg.Keys).Msg("[soak] map holds more entries than keys")
		}
	}
}

func (r *Runner) logStats(ctx context.Context) {
	t := utils.NewTicker(ctx, statsInterval)
	var prev int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-t:
			total := r.total()
			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)
			log.Info().Msgf(
				"[soak][5s] ops: %d (%d/s), objects: %d, parked weaks: %d, upgraded/expired: %d/%d, heap: %s",
				total, (total-prev)/int64(statsInterval/time.Second), r.objects.Len(), r.weaks.Len(),
				r.upgraded.Load(), r.expired.Load(), utils.FmtMemory(mem.HeapAlloc),
			)
			prev = total
		}
	}
}

func (r *Runner) total() (n int64) {
	for i := range r.ops {
		n += r.ops[i].Load()
	}
	return n
}

// teardown releases every handle the runner still owns and checks the counters.
func (r *Runner) teardown() error {
	for _, key := range r.objects.Keys() {
		if ref, ok := r.objects.Remove(key); ok {
			ref.Release()
		}
	}
	for {
		w, ok := r.weaks.Pop()
		if !ok {
			break
		}
		w.Release()
	}
	types.ReleaseAll(r.objects, r.weaks)

	log.Info().Msgf("[soak] stopped after %d ops: created %d, destroyed %d, exclusive sections %d",
		r.total(), r.created.Load(), r.destroyed.Load(), r.ops[opExclusiveSection].Load())

	if r.mu.IsLocked() {
		return fmt.Errorf("soak: mutex is still locked after the run")
	}
	if r.counter != r.ops[opExclusiveSection].Load() {
		return fmt.Errorf("soak: %d exclusive sections produced %d increments",
			r.ops[opExclusiveSection].Load(), r.counter)
	}
	if r.created.Load() != r.destroyed.Load() {
		return fmt.Errorf("soak: %d objects created, %d destroyed", r.created.Load(), r.destroyed.Load())
	}
	return nil
}
