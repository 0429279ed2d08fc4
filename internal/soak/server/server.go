package server

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Borislavv/go-castbox/internal/soak/config"
	"github.com/Borislavv/go-castbox/pkg/k8s/probe/liveness"
	"github.com/Borislavv/go-castbox/pkg/prometheus/metrics"
	metricscontroller "github.com/Borislavv/go-castbox/pkg/prometheus/metrics/controller"
	metricsmiddleware "github.com/Borislavv/go-castbox/pkg/prometheus/metrics/middleware"
	httpserver "github.com/Borislavv/go-castbox/pkg/server"
	"github.com/Borislavv/go-castbox/pkg/server/controller"
	"github.com/Borislavv/go-castbox/pkg/server/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	InitFailedErrorMessage        = "[server] init. failed"
	MetricsInitFailedErrorMessage = "[server] init. prometheus metrics failed"
)

type Http interface {
	Start()
	IsAlive() bool
}

// HttpServer exposes the soak runner's metrics and liveness endpoints.
type HttpServer struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg           *config.Config
	metrics       *metrics.Metrics
	server        *httpserver.HTTP
	isServerAlive *atomic.Bool
}

func New(ctx context.Context, cfg *config.Config, meter *metrics.Metrics, probe liveness.Prober) (*HttpServer, error) {
	var err error

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		if err != nil {
			cancel()
		}
	}()

	srv := &HttpServer{
		ctx:           ctx,
		cancel:        cancel,
		cfg:           cfg,
		metrics:       meter,
		isServerAlive: &atomic.Bool{},
	}

	if cfg.IsPrometheusMetricsEnabled() {
		if err = meter.Register(prometheus.DefaultRegisterer); err != nil {
			log.Err(err).Msg(MetricsInitFailedErrorMessage)
			return nil, errors.New(MetricsInitFailedErrorMessage)
		}
	}

	if srv.server, err = httpserver.New(ctx, cfg, srv.controllers(probe), srv.middlewares()); err != nil {
		log.Err(err).Msg(InitFailedErrorMessage)
		return nil, errors.New(InitFailedErrorMessage)
	}

	return srv, nil
}

// Start blocks until the server has been shut down.
func (s *HttpServer) Start() {
	defer s.cancel()

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer func() {
			s.isServerAlive.Store(false)
			wg.Done()
		}()
		s.isServerAlive.Store(true)
		s.server.ListenAndServe()
	}()
	wg.Wait()
}

func (s *HttpServer) IsAlive() bool {
	return s.isServerAlive.Load()
}

func (s *HttpServer) controllers(probe liveness.Prober) []controller.HttpController {
	controllers := []controller.HttpController{
		liveness.NewController(probe),
	}
	if s.cfg.IsPrometheusMetricsEnabled() {
		controllers = append(controllers, metricscontroller.NewPrometheusMetrics(s.ctx))
	}
	return controllers
}

// watermark exposes the lock tunables the soak is running with.
func (s *HttpServer) watermark() map[string]string {
	return map[string]string{
		"X-Castbox-Procs":        strconv.Itoa(runtime.GOMAXPROCS(0)),
		"X-Castbox-Spin-Count":   strconv.Itoa(int(s.cfg.MutexSpinCount)),
		"X-Castbox-Group-Yields": strconv.FormatBool(s.cfg.MutexGroupYields),
	}
}

// middlewares are applied in slice order, the first one is the outermost.
func (s *HttpServer) middlewares() []middleware.HttpMiddleware {
	middlewares := []middleware.HttpMiddleware{
		middleware.NewInitCtxMiddleware(s.ctx, s.cfg),
		middleware.NewWatermarkMiddleware(s.cfg, s.watermark()),
		middleware.NewDuration(s.ctx, s.cfg),
	}
	if s.cfg.IsPrometheusMetricsEnabled() {
		middlewares = append(middlewares, metricsmiddleware.NewPrometheusMetrics(s.ctx, s.metrics))
	}
	return middlewares
}
