package config

import (
	"fmt"
	"time"

	primitives "github.com/Borislavv/go-castbox/pkg/config"
	serverconfig "github.com/Borislavv/go-castbox/pkg/server/config"
	"github.com/spf13/viper"
)

type Soak struct {
	// Workers is the number of goroutines hammering the primitives.
	Workers int `mapstructure:"SOAK_WORKERS"`
	// Keys is the key space of the shared map.
	Keys int `mapstructure:"SOAK_KEYS"`
	// OpsPerSec caps the overall operation rate.
	OpsPerSec int `mapstructure:"SOAK_OPS_PER_SEC"`
	// Duration stops the run after the given time, zero runs until a signal.
	Duration time.Duration `mapstructure:"SOAK_DURATION"`
	// GroupRatio is the share of mutex sections taken in group mode (0..1).
	GroupRatio float64 `mapstructure:"SOAK_GROUP_RATIO"`
	// LivenessProbeTimeout is how long the app may stay silent before the probe fails.
	LivenessProbeTimeout time.Duration `mapstructure:"LIVENESS_PROBE_FAILED_TIMEOUT"`
}

type Config struct {
	serverconfig.HttpServer `mapstructure:",squash"`
	primitives.Config       `mapstructure:",squash"`
	Soak                    `mapstructure:",squash"`
}

// Envs lists every variable the soak runner reads.
var Envs = []string{
	"SERVER_NAME",
	"SERVER_PORT",
	"SERVER_SHUTDOWN_TIMEOUT",
	"SERVER_REQUEST_TIMEOUT",
	"IS_PROMETHEUS_METRICS_ENABLED",
	"BACKOFF_SPIN_LIMIT",
	"BACKOFF_YIELD_LIMIT",
	"MUTEX_SPIN_COUNT",
	"MUTEX_GROUP_YIELDS",
	"WAITER_POOL_PREALLOC",
	"MAP_DEFAULT_BUCKETS",
	"SOAK_WORKERS",
	"SOAK_KEYS",
	"SOAK_OPS_PER_SEC",
	"SOAK_DURATION",
	"SOAK_GROUP_RATIO",
	"LIVENESS_PROBE_FAILED_TIMEOUT",
}

func SetDefaults(v *viper.Viper) {
	primitives.SetDefaults(v)
	v.SetDefault("SERVER_NAME", "castbox-soak")
	v.SetDefault("SERVER_PORT", ":8020")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second)
	v.SetDefault("SERVER_REQUEST_TIMEOUT", 10*time.Second)
	v.SetDefault("IS_PROMETHEUS_METRICS_ENABLED", true)
	v.SetDefault("SOAK_WORKERS", 16)
	v.SetDefault("SOAK_KEYS", 4096)
	v.SetDefault("SOAK_OPS_PER_SEC", 200000)
	v.SetDefault("SOAK_DURATION", time.Duration(0))
	v.SetDefault("SOAK_GROUP_RATIO", 0.8)
	v.SetDefault("LIVENESS_PROBE_FAILED_TIMEOUT", 5*time.Second)
}

func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal soak config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	switch {
	case c.Workers < 1:
		return fmt.Errorf("SOAK_WORKERS must be positive, got %d", c.Workers)
	case c.Keys < 1:
		return fmt.Errorf("SOAK_KEYS must be positive, got %d", c.Keys)
	case c.OpsPerSec < 1:
		return fmt.Errorf("SOAK_OPS_PER_SEC must be positive, got %d", c.OpsPerSec)
	case c.GroupRatio < 0 || c.GroupRatio > 1:
		return fmt.Errorf("SOAK_GROUP_RATIO must be within [0, 1], got %v", c.GroupRatio)
	}
	return nil
}
