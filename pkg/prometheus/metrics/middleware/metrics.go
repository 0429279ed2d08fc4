package middleware

import (
	"context"
	"strconv"

	"github.com/Borislavv/go-castbox/pkg/prometheus/metrics"
	"github.com/valyala/fasthttp"
)

type PrometheusMetrics struct {
	ctx     context.Context
	metrics metrics.Meter
}

func NewPrometheusMetrics(ctx context.Context, metrics metrics.Meter) *PrometheusMetrics {
	return &PrometheusMetrics{ctx: ctx, metrics: metrics}
}

func (m *PrometheusMetrics) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		// copied since fasthttp reuses the request buffer
		path := string(ctx.Path())
		timer := m.metrics.NewResponseTimeTimer(path)

		next(ctx)

		m.metrics.IncRequest(path, strconv.Itoa(ctx.Response.StatusCode()))
		timer.ObserveDuration()
	}
}
