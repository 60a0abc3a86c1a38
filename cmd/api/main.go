package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrovagas/platform/internal/api"
	"github.com/agrovagas/platform/internal/api/middleware"
	"github.com/agrovagas/platform/internal/core/service"
	"github.com/agrovagas/platform/internal/infrastructure/wiring"
	"github.com/agrovagas/platform/internal/pkg/config"
	"github.com/agrovagas/platform/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// @title        AgroVagas API
// @version      1.0
// @description  Sign-up, sign-in and area access for professionals and employers.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.MustLoad(ctx)
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Development(),
		Service: "agrovagas-api",
	})

	stores, err := wiring.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open stores")
	}
	defer stores.Close()

	provider := stores.Provider(cfg, logger.Component("identity"))
	resolver := service.NewRoleResolver(stores.Roles, logger.Component("role_resolver"))
	signup := service.NewSignupFlow(stores.Roles, stores.Profiles, logger.Component("signup"))
	authService := service.NewAuthService(provider, resolver, signup, logger.Component("auth"))

	e := api.NewRouter(api.Dependencies{
		AuthService: authService,
		Mongo:       stores.Mongo,
		Redis:       stores.Redis,
		Postgres:    stores.Postgres,
		Gate: middleware.GateConfig{
			EntryPath:   cfg.Gate.EntryPath,
			NeutralPath: cfg.Gate.NeutralPath,
		},
		ExposeConfirmation: cfg.Development(),
		Log:                logger.Component("http"),
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("store_driver", cfg.StoreDriver).Msg("listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	waitForShutdown(log)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func waitForShutdown(log zerolog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("shutting down")
}
