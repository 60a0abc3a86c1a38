package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agrovagas/platform/internal/core/service"
	"github.com/agrovagas/platform/internal/core/session"
	"github.com/agrovagas/platform/internal/infrastructure/identity"
	"github.com/agrovagas/platform/internal/infrastructure/queue"
	"github.com/agrovagas/platform/internal/infrastructure/wiring"
	"github.com/agrovagas/platform/internal/pkg/config"
	"github.com/agrovagas/platform/pkg/logger"
)

const commandTimeout = 30 * time.Second

// app is one command's worth of wiring: stores, the identity client holding
// the on-disk session, and the bootstrapper that owns the current user.
type app struct {
	cfg        *config.Config
	stores     *wiring.Stores
	client     *identity.Client
	dispatcher *queue.Dispatcher
	boot       *session.Bootstrapper
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  true,
		Output:  os.Stderr,
		Service: "campovagas",
	})

	stores, err := wiring.Open(ctx, cfg, logger.Component("stores"))
	if err != nil {
		return nil, err
	}

	path, err := sessionPath(cfg)
	if err != nil {
		stores.Close()
		return nil, err
	}

	provider := stores.Provider(cfg, logger.Component("identity"))
	client := identity.NewClient(provider, identity.NewFilePersister(path), logger.Component("identity_client"))
	resolver := service.NewRoleResolver(stores.Roles, logger.Component("role_resolver"))
	signup := service.NewSignupFlow(stores.Roles, stores.Profiles, logger.Component("signup"))

	dispatcher := queue.NewDispatcher(logger.Component("dispatcher"))
	dispatcher.Start()

	boot := session.New(client, resolver, signup,
		session.WithLogger(logger.Component("session")),
		session.WithScheduler(dispatcher.Schedule),
	)
	if err := boot.Start(ctx); err != nil {
		log.Warn().Err(err).Msg("could not restore session")
	}

	return &app{cfg: cfg, stores: stores, client: client, dispatcher: dispatcher, boot: boot}, nil
}

// close tears down in dependency order: the bootstrapper waits for tasks
// still queued on the dispatcher.
func (a *app) close() {
	a.boot.Close()
	a.dispatcher.Stop()
	a.stores.Close()
}

func sessionPath(cfg *config.Config) (string, error) {
	if cfg.Session.File != "" {
		return cfg.Session.File, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate session file: %w", err)
	}
	return filepath.Join(home, ".campovagas", "session.json"), nil
}

// withApp runs fn against a freshly opened app and reports errors on stderr.
func withApp(fn func(ctx context.Context, a *app) error) int {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup: %v\n", err)
		return 1
	}
	defer a.close()

	if _, err := a.boot.WaitResolved(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "session: %v\n", err)
		return 1
	}
	if err := fn(ctx, a); err != nil {
		printError(err)
		return 1
	}
	return 0
}
