package utils

import (
	"context"
	"time"
)

// NewTicker returns a channel which receives a tick every d until ctx is done.
// Ticks are dropped while the receiver is busy.
func NewTicker(ctx context.Context, d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	go func() {
		t := time.NewTicker(d)
		defer t.Stop()
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case tick := <-t.C:
				select {
				case ch <- tick:
				default:
				}
			}
		}
	}()
	return ch
}
