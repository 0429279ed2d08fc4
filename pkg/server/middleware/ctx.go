package middleware

import (
	"context"
	"errors"

	"github.com/Borislavv/go-castbox/pkg/server/config"
	"github.com/Borislavv/go-castbox/pkg/server/keyword"
	"github.com/valyala/fasthttp"
)

var ErrNoRequestCtx = errors.New("request context is not attached")

// RequestCtx returns the context attached by InitCtxMiddleware.
func RequestCtx(ctx *fasthttp.RequestCtx) (context.Context, error) {
	if reqCtx, ok := ctx.UserValue(keyword.CtxKey).(context.Context); ok {
		return reqCtx, nil
	}
	return nil, ErrNoRequestCtx
}

// InitCtxMiddleware attaches a context bounded by the request timeout.
type InitCtxMiddleware struct {
	ctx    context.Context
	config config.Configurator
}

func NewInitCtxMiddleware(ctx context.Context, config config.Configurator) *InitCtxMiddleware {
	return &InitCtxMiddleware{ctx: ctx, config: config}
}

func (m *InitCtxMiddleware) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		reqCtx, cancel := context.WithTimeout(m.ctx, m.config.GetHttpServerRequestTimeout())
		defer cancel()

		ctx.SetUserValue(keyword.CtxKey, reqCtx)

		next(ctx)
	}
}
