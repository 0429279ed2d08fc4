package config

import (
	"testing"

	synced "github.com/Borislavv/go-castbox/pkg/sync"
	"github.com/spf13/viper"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BACKOFF_SPIN_LIMIT", "4")
	t.Setenv("BACKOFF_YIELD_LIMIT", "9")
	t.Setenv("MAP_DEFAULT_BUCKETS", "64")

	v := viper.New()
	v.AutomaticEnv()
	SetDefaults(v)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BackoffSpinLimit != 4 || cfg.BackoffYieldLimit != 9 || cfg.MapDefaultBuckets != 64 {
		t.Fatalf("env values not applied: %+v", cfg)
	}
	if cfg.MutexSpinCount != Defaults().MutexSpinCount || !cfg.MutexGroupYields {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"defaults", Defaults(), true},
		{"zero", Config{}, true},
		{"yield below spin", Config{BackoffSpinLimit: 8, BackoffYieldLimit: 4}, false},
		{"negative spins", Config{MutexSpinCount: -1}, false},
		{"negative buckets", Config{MapDefaultBuckets: -1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); (err == nil) != tc.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tc.ok)
			}
		})
	}
}

func TestApply(t *testing.T) {
	defaults := Defaults()
	defer defaults.Apply()

	cfg := Defaults()
	cfg.BackoffSpinLimit, cfg.BackoffYieldLimit = 5, 12
	cfg.Apply()

	if s, y := synced.BackoffLimits(); s != 5 || y != 12 {
		t.Fatalf("limits not applied: spin=%d yield=%d", s, y)
	}
}
