package liveness

import (
	"encoding/json"

	"github.com/Borislavv/go-castbox/pkg/server/middleware"
	"github.com/fasthttp/router"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const K8SProbeGetPath = "/k8s/probe"

type Controller struct {
	prober Prober
}

func NewController(prober Prober) *Controller {
	return &Controller{prober: prober}
}

func (c *Controller) Probe(ctx *fasthttp.RequestCtx) {
	if _, err := middleware.RequestCtx(ctx); err != nil {
		log.Err(err).Msg("[probe-controller] unable to handle request")
		c.write(ctx, fasthttp.StatusInternalServerError, map[string]map[string]string{
			"error": {"message": "Internal server error"},
		})
		return
	}

	isAlive := c.prober.IsAlive()

	status := fasthttp.StatusOK
	if !isAlive {
		status = fasthttp.StatusServiceUnavailable
	}
	c.write(ctx, status, map[string]map[string]bool{
		"data": {"success": isAlive},
	})
}

func (c *Controller) write(ctx *fasthttp.RequestCtx, status int, resp any) {
	b, err := json.Marshal(resp)
	if err != nil {
		log.Err(err).Msg("[probe-controller] failed to marshal response")
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	if _, err = ctx.Write(b); err != nil {
		log.Err(err).Msg("[probe-controller] failed to write response into *fasthttp.RequestCtx")
	}
}

func (c *Controller) AddRoute(router *router.Router) {
	router.GET(K8SProbeGetPath, c.Probe)
}
