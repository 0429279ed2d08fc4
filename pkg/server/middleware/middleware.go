package middleware

import "github.com/valyala/fasthttp"

type HttpMiddleware interface {
	Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler
}
