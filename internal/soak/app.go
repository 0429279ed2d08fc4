package soak

import (
	"context"

	"github.com/Borislavv/go-castbox/internal/soak/config"
	"github.com/Borislavv/go-castbox/internal/soak/server"
	"github.com/Borislavv/go-castbox/pkg/k8s/probe/liveness"
	"github.com/Borislavv/go-castbox/pkg/prometheus/metrics"
	"github.com/Borislavv/go-castbox/pkg/rate"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// App runs the soak load together with the metrics and probe server.
type App struct {
	cfg    *config.Config
	ctx    context.Context
	cancel context.CancelFunc
	probe  liveness.Prober
	server server.Http
	runner *Runner
}

func NewApp(ctx context.Context, cfg *config.Config, probe liveness.Prober) (*App, error) {
	var cancel context.CancelFunc
	if cfg.Duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	srv, err := server.New(ctx, cfg, metrics.Default, probe)
	if err != nil {
		cancel()
		return nil, err
	}

	limiter := rate.NewLimiter(ctx, cfg.OpsPerSec, cfg.OpsPerSec/10)

	return &App{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		probe:  probe,
		server: srv,
		runner: NewRunner(&cfg.Soak, limiter, metrics.Default),
	}, nil
}

// Start blocks until the run is over and returns the first failure.
func (a *App) Start() error {
	defer a.stop()

	log.Info().Msgf("[soak] starting with %d workers, %d keys, %d ops/s",
		a.cfg.Workers, a.cfg.Keys, a.cfg.OpsPerSec)

	a.probe.Watch(a.ctx, a)

	g, ctx := errgroup.WithContext(a.ctx)
	g.Go(func() error {
		a.server.Start()
		return nil
	})
	g.Go(func() error {
		defer a.cancel() // the server goes down with the load
		return a.runner.Run(ctx)
	})
	return g.Wait()
}

func (a *App) stop() {
	a.cancel()
	log.Info().Msg("[soak] app has been stopped")
}

// IsAlive fails when the server is gone or the workers stalled.
func (a *App) IsAlive(_ context.Context) bool {
	if !a.server.IsAlive() {
		log.Info().Msg("[soak] http server has gone away")
		return false
	}
	if !a.runner.IsActive(a.cfg.LivenessProbeTimeout) {
		log.Info().Msg("[soak] workers made no progress")
		return false
	}
	return true
}

var _ liveness.Service = (*App)(nil)
