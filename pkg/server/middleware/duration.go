package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/Borislavv/go-castbox/pkg/server/config"
	"github.com/rs/zerolog/log"
	gstrconv "github.com/savsgio/gotils/strconv"
	"github.com/valyala/fasthttp"
)

type Duration struct {
	ctx    context.Context
	config config.Configurator
}

func NewDuration(ctx context.Context, config config.Configurator) *Duration {
	return &Duration{ctx: ctx, config: config}
}

func (m *Duration) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		from := time.Now()

		next(ctx)

		elapsed := time.Since(from)
		ctx.Response.Header.Add("Server-Timing", "p;dur="+strconv.Itoa(int(elapsed.Milliseconds())))

		if elapsed > m.config.GetHttpServerRequestTimeout() {
			log.Warn().
				Str("path", gstrconv.B2S(ctx.Path())).
				Dur("elapsed", elapsed).
				Msg("[fasthttp] request exceeded the timeout")
		}
	}
}
