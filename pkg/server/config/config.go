package config

import (
	"time"
)

type Configurator interface {
	GetHttpServerName() string
	GetHttpServerPort() string
	GetHttpServerShutDownTimeout() time.Duration
	GetHttpServerRequestTimeout() time.Duration
	IsPrometheusMetricsEnabled() bool
}

type HttpServer struct {
	// ServerName is a name of the soak server.
	ServerName string `mapstructure:"SERVER_NAME"`
	// ServerPort is a port for the soak server (/metrics and /k8s/probe).
	ServerPort string `mapstructure:"SERVER_PORT"`
	// ServerShutDownTimeout is a duration value before the server will be closed forcefully.
	ServerShutDownTimeout time.Duration `mapstructure:"SERVER_SHUTDOWN_TIMEOUT"`
	// ServerRequestTimeout bounds a single request.
	ServerRequestTimeout time.Duration `mapstructure:"SERVER_REQUEST_TIMEOUT"`
	// IsEnabledPrometheusMetrics defines whether /metrics is served and requests are measured.
	IsEnabledPrometheusMetrics bool `mapstructure:"IS_PROMETHEUS_METRICS_ENABLED"`
}

func (c HttpServer) GetHttpServerName() string {
	return c.ServerName
}

func (c HttpServer) GetHttpServerPort() string {
	return c.ServerPort
}

func (c HttpServer) GetHttpServerShutDownTimeout() time.Duration {
	return c.ServerShutDownTimeout
}

func (c HttpServer) GetHttpServerRequestTimeout() time.Duration {
	return c.ServerRequestTimeout
}

func (c HttpServer) IsPrometheusMetricsEnabled() bool {
	return c.IsEnabledPrometheusMetrics
}
