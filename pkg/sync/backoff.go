package synced

import (
	"runtime"
	"sync/atomic"
)

const (
	DefaultSpinLimit  uint32 = 6
	DefaultYieldLimit uint32 = 10
)

var (
	spinLimit  atomic.Uint32
	yieldLimit atomic.Uint32
)

func init() {
	spinLimit.Store(DefaultSpinLimit)
	yieldLimit.Store(DefaultYieldLimit)
}

// SetBackoffLimits overrides the process-wide backoff limits.
// Zero values keep the current setting, yield must not be lower than spin.
func SetBackoffLimits(spin, yield uint32) {
	if spin > 0 {
		spinLimit.Store(spin)
	}
	if yield > 0 {
		yieldLimit.Store(yield)
	}
	if yieldLimit.Load() < spinLimit.Load() {
		yieldLimit.Store(spinLimit.Load())
	}
}

// BackoffLimits returns the current spin and yield limits.
func BackoffLimits() (spin, yield uint32) {
	return spinLimit.Load(), yieldLimit.Load()
}

// Backoff is an exponential backoff for spin loops. It is owned by a single
// goroutine and must not be shared.
type Backoff struct {
	step uint32
}

func (b *Backoff) Reset() {
	b.step = 0
}

// Spin busy-waits for 2^min(step, spinLimit) iterations and advances the step.
func (b *Backoff) Spin() {
	limit := spinLimit.Load()
	n := b.step
	if n > limit {
		n = limit
	}
	for i := 0; i < 1<<n; i++ {
		cpuRelax()
	}
	if b.step <= limit {
		b.step++
	}
}

// Snooze busy-waits while the step is under the spin limit
// and yields the processor afterwards.
func (b *Backoff) Snooze() {
	if b.step <= spinLimit.Load() {
		for i := 0; i < 1<<b.step; i++ {
			cpuRelax()
		}
	} else {
		runtime.Gosched()
	}
	if b.step <= yieldLimit.Load() {
		b.step++
	}
}

// IsYielding reports whether Snooze has moved from spinning to yielding.
func (b *Backoff) IsYielding() bool {
	return b.step > spinLimit.Load()
}

// IsCompleted reports whether the caller should stop snoozing and block instead.
func (b *Backoff) IsCompleted() bool {
	return b.step > yieldLimit.Load()
}

//go:noinline
func cpuRelax() {}
