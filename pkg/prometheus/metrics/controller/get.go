package controller

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const PrometheusMetricsPath = "/metrics"

type PrometheusMetrics struct {
	ctx     context.Context
	handler fasthttp.RequestHandler
}

func NewPrometheusMetrics(ctx context.Context) *PrometheusMetrics {
	return &PrometheusMetrics{
		ctx:     ctx,
		handler: fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()),
	}
}

func (m *PrometheusMetrics) Get(ctx *fasthttp.RequestCtx) {
	m.handler(ctx)
}

func (m *PrometheusMetrics) AddRoute(router *router.Router) {
	router.GET(PrometheusMetricsPath, m.Get)
}
