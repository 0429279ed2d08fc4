package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/Borislavv/go-castbox/internal/soak"
	"github.com/Borislavv/go-castbox/internal/soak/config"
	"github.com/Borislavv/go-castbox/pkg/k8s/probe/liveness"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.uber.org/automaxprocs/maxprocs"
)

// Loads .env and .env.local (when present) and binds the variables with Viper,
// so that every value can be overridden from the environment.
func init() {
	for _, file := range []string{".env", ".env.local"} {
		if err := godotenv.Overload(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	}

	viper.AutomaticEnv()
	for _, env := range config.Envs {
		_ = viper.BindEnv(env)
	}
	config.SetDefaults(viper.GetViper())
}

// setMaxProcs sets GOMAXPROCS according to the container CPU quota.
func setMaxProcs() {
	if _, err := maxprocs.Set(); err != nil {
		log.Err(err).Msg("[main] setting up GOMAXPROCS value failed")
		panic(err)
	}
	log.Info().Msgf("[main] optimized GOMAXPROCS=%d was set up", runtime.GOMAXPROCS(0))
}

func loadCfg() *config.Config {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		log.Err(err).Msg("[main] failed to load config from envs")
		panic(err)
	}
	cfg.Config.Apply()
	return cfg
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	setMaxProcs()

	cfg := loadCfg()

	probe := liveness.NewProbe(cfg.LivenessProbeTimeout)

	app, err := soak.NewApp(ctx, cfg, probe)
	if err != nil {
		log.Err(err).Msg("[main] failed to init soak app")
		os.Exit(1)
	}

	if err = app.Start(); err != nil {
		log.Err(err).Msg("[main] soak run failed")
		cancel()
		os.Exit(1)
	}
	log.Info().Msg("[main] soak run passed")
}
