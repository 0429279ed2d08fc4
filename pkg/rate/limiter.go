package rate

import (
	"context"
	"time"

	"github.com/Borislavv/go-castbox/pkg/utils"
)

type Limiter interface {
	Take(ctx context.Context) (token struct{}, ok bool)
	Chan() <-chan struct{}
}

// Limit hands out tokens at a fixed rate through a buffered channel.
type Limit struct {
	ctx context.Context
	q   chan struct{}
}

// NewLimiter - limit: tokens per second will be allocated, init: number of tokens available on start.
func NewLimiter(ctx context.Context, limit, init int) *Limit {
	if limit < 1 {
		limit = 1
	}
	if init > limit {
		init = limit
	}
	return &Limit{ctx: ctx, q: spawnTokenProvider(ctx, limit, init)}
}

func (rl *Limit) Chan() <-chan struct{} {
	return rl.q
}

// Take blocks until a token is available or ctx (the limiter ctx if nil) is done.
func (rl *Limit) Take(ctx context.Context) (token struct{}, ok bool) {
	if ctx == nil {
		ctx = rl.ctx
	}
	select {
	case <-ctx.Done():
		return token, false
	case s, open := <-rl.q:
		return s, open
	}
}

func spawnTokenProvider(ctx context.Context, limit, init int) chan struct{} {
	q := make(chan struct{}, limit)
	for i := 0; i < init; i++ {
		q <- struct{}{}
	}

	go func() {
		defer close(q)

		t := utils.NewTicker(ctx, time.Duration(float64(time.Second)/float64(limit)))
		for {
			select {
			case <-ctx.Done():
				return
			case <-t:
				select {
				case q <- struct{}{}:
				default: // bucket is full
				}
			}
		}
	}()

	return q
}
