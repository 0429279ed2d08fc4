package httpserver

import (
	"context"
	"testing"
	"time"

	"github.com/Borislavv/go-castbox/pkg/server/config"
	"github.com/Borislavv/go-castbox/pkg/server/controller"
	"github.com/Borislavv/go-castbox/pkg/server/middleware"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

type pingController struct {
	sawCtx bool
}

func (c *pingController) AddRoute(r *router.Router) {
	r.GET("/ping", func(ctx *fasthttp.RequestCtx) {
		_, err := middleware.RequestCtx(ctx)
		c.sawCtx = err == nil
		ctx.SetBodyString("pong")
	})
}

func testConfig() config.HttpServer {
	return config.HttpServer{
		ServerName:            "castbox-test",
		ServerPort:            ":0",
		ServerShutDownTimeout: time.Second,
		ServerRequestTimeout:  time.Second,
	}
}

func TestHandlerComposition(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig()
	ping := &pingController{}
	s, err := New(ctx, cfg,
		[]controller.HttpController{ping},
		[]middleware.HttpMiddleware{
			middleware.NewInitCtxMiddleware(ctx, cfg),
			middleware.NewWatermarkMiddleware(cfg, map[string]string{"X-Castbox-Procs": "4"}),
			middleware.NewDuration(ctx, cfg),
		},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var reqCtx fasthttp.RequestCtx
	reqCtx.Request.Header.SetMethod(fasthttp.MethodGet)
	reqCtx.Request.SetRequestURI("/ping")
	s.Handler()(&reqCtx)

	if string(reqCtx.Response.Body()) != "pong" {
		t.Fatalf("unexpected body %q", reqCtx.Response.Body())
	}
	if string(reqCtx.Response.Header.Peek("X-Server-Name")) != "castbox-test" {
		t.Fatal("watermark header is missing")
	}
	if string(reqCtx.Response.Header.Peek("X-Castbox-Procs")) != "4" {
		t.Fatal("static watermark header is missing")
	}
	if len(reqCtx.Response.Header.Peek("Server-Timing")) == 0 {
		t.Fatal("duration header is missing")
	}
	if !ping.sawCtx {
		t.Fatal("request context was not attached")
	}
}

func TestNewRequiresPort(t *testing.T) {
	cfg := testConfig()
	cfg.ServerPort = ""
	if _, err := New(context.Background(), cfg, nil, nil); err == nil {
		t.Fatal("expected an error without a port")
	}
}
