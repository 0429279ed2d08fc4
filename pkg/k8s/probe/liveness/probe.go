package liveness

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Borislavv/go-castbox/pkg/utils"
	"github.com/rs/zerolog/log"
)

const DefaultInterval = time.Second

// Service is something whose health is polled by a Probe.
type Service interface {
	IsAlive(ctx context.Context) bool
}

type Prober interface {
	IsAlive() bool
	Watch(ctx context.Context, services ...Service)
}

// Probe polls services and keeps the last verdict. A service which does not
// answer within the timeout counts as dead.
type Probe struct {
	timeout  time.Duration
	interval time.Duration
	alive    atomic.Bool
}

func NewProbe(timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = DefaultInterval
	}
	p := &Probe{timeout: timeout, interval: DefaultInterval}
	p.alive.Store(true)
	return p
}

func (p *Probe) IsAlive() bool {
	return p.alive.Load()
}

// Watch starts polling in the background until ctx is done.
func (p *Probe) Watch(ctx context.Context, services ...Service) {
	go func() {
		t := utils.NewTicker(ctx, p.interval)
		for {
			select {
			case <-ctx.Done():
				return
			case <-t:
				p.check(ctx, services)
			}
		}
	}()
}

func (p *Probe) check(ctx context.Context, services []Service) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	for _, s := range services {
		if !s.IsAlive(ctx) {
			if p.alive.Swap(false) {
				log.Warn().Msg("[liveness] service is not alive")
			}
			return
		}
	}
	if !p.alive.Swap(true) {
		log.Info().Msg("[liveness] service is alive again")
	}
}
