package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerPort != ":8020" || cfg.Workers != 16 || cfg.GroupRatio != 0.8 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.MapDefaultBuckets != 256 {
		t.Fatalf("primitives defaults not squashed: %+v", cfg.Config)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SOAK_WORKERS", "3")
	t.Setenv("SOAK_DURATION", "2s")

	v := viper.New()
	v.AutomaticEnv()
	SetDefaults(v)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Workers != 3 || cfg.Duration.String() != "2s" {
		t.Fatalf("overrides not applied: %+v", cfg.Soak)
	}
}

func TestValidateRejectsBadRatio(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("SOAK_GROUP_RATIO", 1.5)
	if _, err := Load(v); err == nil {
		t.Fatal("expected validation error")
	}
}
