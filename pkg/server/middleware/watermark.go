package middleware

import (
	"github.com/Borislavv/go-castbox/pkg/server/config"
	"github.com/valyala/fasthttp"
)

const ServerNameHeader = "X-Server-Name"

// WatermarkMiddleware stamps every response with the server name and a set
// of static headers resolved once at construction.
type WatermarkMiddleware struct {
	keys, values []string
}

func NewWatermarkMiddleware(cfg config.Configurator, extra map[string]string) *WatermarkMiddleware {
	m := &WatermarkMiddleware{
		keys:   make([]string, 0, len(extra)+1),
		values: make([]string, 0, len(extra)+1),
	}
	m.keys = append(m.keys, ServerNameHeader)
	m.values = append(m.values, cfg.GetHttpServerName())
	for k, v := range extra {
		m.keys = append(m.keys, k)
		m.values = append(m.values, v)
	}
	return m
}

func (m *WatermarkMiddleware) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		for i, k := range m.keys {
			ctx.Response.Header.Set(k, m.values[i])
		}
		next(ctx)
	}
}
