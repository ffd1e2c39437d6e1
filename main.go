package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/scambait/honeynet/agent/detect"
	"github.com/scambait/honeynet/agent/engage"
	"github.com/scambait/honeynet/agent/intel"
	"github.com/scambait/honeynet/agent/manager"
	"github.com/scambait/honeynet/agent/report"
	"github.com/scambait/honeynet/agent/state"
	"github.com/scambait/honeynet/pkg/callback"
	configx "github.com/scambait/honeynet/pkg/config"
	_ "github.com/scambait/honeynet/pkg/logger/autoload"
	"github.com/scambait/honeynet/pkg/openrouter"
	"github.com/scambait/honeynet/server"
)

type AppConfig struct {
	StoreBackend string        `envconfig:"STORE_BACKEND" split_words:"true" default:"memory"`
	LockTimeout  time.Duration `envconfig:"LOCK_TIMEOUT" split_words:"true" default:"5s"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("HONEYPOT")

	store, sessions, err := buildStore(appCfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", appCfg.StoreBackend).Msg("store init failed")
	}

	provider := openrouter.MustNew(*configx.MustNew[openrouter.Config]("OPENROUTER"))
	sink := callback.MustNew(*configx.MustNew[callback.Config]("CALLBACK"))

	mgr, err := manager.New(
		store,
		detect.New(detect.DefaultConfig()),
		intel.New(intel.DefaultConfig()),
		engage.New(provider, engage.DefaultConfig()),
		report.New(sink),
		*configx.MustNew[manager.Config]("HONEYPOT"),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("manager init failed")
	}

	srv, err := server.New(*configx.MustNew[server.Config]("SERVER"), mgr, sessions)
	if err != nil {
		log.Fatal().Err(err).Msg("server init failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("store", appCfg.StoreBackend).Msg("honeynet starting")
	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("gateway failed")
	}
	log.Info().Msg("honeynet stopped")
}

func buildStore(cfg *AppConfig) (state.Store, state.Snapshotter, error) {
	switch cfg.StoreBackend {
	case "memory":
		s := state.NewMemoryStore(cfg.LockTimeout)
		return s, s, nil
	case "redis":
		s, err := state.NewRedisStore(*configx.MustNew[state.RedisConfig]("REDIS"))
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "postgres":
		s, err := state.NewPostgresStore(*configx.MustNew[state.PostgresConfig]("POSTGRES"))
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
