package config

import (
	"fmt"

	"github.com/Borislavv/go-castbox/pkg/mutex"
	sharded "github.com/Borislavv/go-castbox/pkg/storage/map"
	synced "github.com/Borislavv/go-castbox/pkg/sync"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds the process-wide tunables of the primitives.
// Zero values keep the built-in defaults.
type Config struct {
	// BackoffSpinLimit is the backoff step after which snoozing yields
	// the processor instead of busy-waiting (default 6).
	BackoffSpinLimit uint32 `mapstructure:"BACKOFF_SPIN_LIMIT"`
	// BackoffYieldLimit is the backoff step after which a lock parks
	// the goroutine (default 10).
	BackoffYieldLimit uint32 `mapstructure:"BACKOFF_YIELD_LIMIT"`
	// MutexSpinCount is the number of lockless attempts before backing off (default 20).
	MutexSpinCount int32 `mapstructure:"MUTEX_SPIN_COUNT"`
	// MutexGroupYields makes new group members wait behind pending exclusive waiters.
	MutexGroupYields bool `mapstructure:"MUTEX_GROUP_YIELDS"`
	// WaiterPoolPrealloc is the parked waiters batch size.
	WaiterPoolPrealloc int `mapstructure:"WAITER_POOL_PREALLOC"`
	// MapDefaultBuckets is the bucket count of maps built by sharded.NewMap (default 256).
	MapDefaultBuckets int `mapstructure:"MAP_DEFAULT_BUCKETS"`
}

// Defaults returns the built-in tunables.
func Defaults() Config {
	return Config{
		BackoffSpinLimit:   synced.DefaultSpinLimit,
		BackoffYieldLimit:  synced.DefaultYieldLimit,
		MutexSpinCount:     mutex.DefaultSpinCount,
		MutexGroupYields:   true,
		WaiterPoolPrealloc: mutex.DefaultWaiterPoolPrealloc,
		MapDefaultBuckets:  sharded.DefaultBucketCount,
	}
}

// SetDefaults registers the built-in tunables in v so that unset env vars
// resolve to them.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("BACKOFF_SPIN_LIMIT", d.BackoffSpinLimit)
	v.SetDefault("BACKOFF_YIELD_LIMIT", d.BackoffYieldLimit)
	v.SetDefault("MUTEX_SPIN_COUNT", d.MutexSpinCount)
	v.SetDefault("MUTEX_GROUP_YIELDS", d.MutexGroupYields)
	v.SetDefault("WAITER_POOL_PREALLOC", d.WaiterPoolPrealloc)
	v.SetDefault("MAP_DEFAULT_BUCKETS", d.MapDefaultBuckets)
}

// Load reads the tunables from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal primitives config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.BackoffYieldLimit != 0 && c.BackoffYieldLimit < c.BackoffSpinLimit {
		return fmt.Errorf("BACKOFF_YIELD_LIMIT (%d) must not be lower than BACKOFF_SPIN_LIMIT (%d)",
			c.BackoffYieldLimit, c.BackoffSpinLimit)
	}
	if c.MutexSpinCount < 0 {
		return fmt.Errorf("MUTEX_SPIN_COUNT must not be negative, got %d", c.MutexSpinCount)
	}
	if c.MapDefaultBuckets < 0 {
		return fmt.Errorf("MAP_DEFAULT_BUCKETS must not be negative, got %d", c.MapDefaultBuckets)
	}
	return nil
}

// Apply pushes the tunables into the packages. It must run before the
// primitives are used concurrently.
func (c *Config) Apply() {
	synced.SetBackoffLimits(c.BackoffSpinLimit, c.BackoffYieldLimit)
	mutex.SetSpinCount(c.MutexSpinCount)
	mutex.SetGroupYieldsToExclusive(c.MutexGroupYields)
	if c.WaiterPoolPrealloc > 0 {
		mutex.SetWaiterPoolPrealloc(c.WaiterPoolPrealloc)
	}
	sharded.SetDefaultBucketCount(c.MapDefaultBuckets)

	spin, yield := synced.BackoffLimits()
	log.Info().Msgf("[config] backoff spin=%d yield=%d, mutex spins=%d group-yields=%v, map buckets=%d",
		spin, yield, c.MutexSpinCount, c.MutexGroupYields, c.MapDefaultBuckets)
}
