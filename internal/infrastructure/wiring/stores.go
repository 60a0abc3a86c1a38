// Package wiring opens the backing stores selected by configuration and hands
// them out behind the core ports.
package wiring

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/agrovagas/platform/internal/core/ports"
	mongostore "github.com/agrovagas/platform/internal/infrastructure/db/mongo"
	pgstore "github.com/agrovagas/platform/internal/infrastructure/db/postgres"
	redisstore "github.com/agrovagas/platform/internal/infrastructure/db/redis"
	"github.com/agrovagas/platform/internal/infrastructure/identity"
	"github.com/agrovagas/platform/internal/pkg/config"
)

// Stores holds the open connections and the repositories built on them.
type Stores struct {
	Mongo    *mongo.Database
	Redis    *goredis.Client
	Postgres *pgxpool.Pool

	Accounts ports.AccountRepository
	Roles    ports.RoleStore
	Profiles ports.ProfileStore
	Revoker  ports.TokenRevoker

	closers []func()
}

// Open connects to MongoDB and Redis, and to Postgres when it holds role
// data. On error everything opened so far is closed again.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *Stores, err error) {
	s := &Stores{}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func() { _ = client.Disconnect(context.Background()) })
	s.Mongo = db
	if err := mongostore.EnsureIndexes(ctx, db); err != nil {
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func() { _ = rdb.Close() })
	s.Redis = rdb
	log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")

	s.Accounts = mongostore.NewAccountRepository(db)
	s.Revoker = redisstore.NewTokenRevoker(rdb)

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := pgstore.Connect(ctx, pgstore.Config{
			DSN:         cfg.Postgres.DSN,
			MaxConns:    cfg.Postgres.MaxConns,
			MinConns:    cfg.Postgres.MinConns,
			MaxConnIdle: cfg.Postgres.MaxConnIdle,
			MaxConnLife: cfg.Postgres.MaxConnLife,
		})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		s.Postgres = pool
		if cfg.Postgres.RunMigrations {
			if err := pgstore.Migrate(ctx, pool, log); err != nil {
				return nil, err
			}
		}
		s.Roles = pgstore.NewRoleRepository(pool)
		s.Profiles = pgstore.NewProfileRepository(pool)
		log.Info().Msg("role and profile data kept in postgres")
	default:
		s.Roles = mongostore.NewRoleRepository(db)
		s.Profiles = mongostore.NewProfileRepository(db)
	}

	return s, nil
}

// Provider builds the identity provider over the opened stores.
func (s *Stores) Provider(cfg *config.Config, log zerolog.Logger) *identity.Provider {
	return identity.NewProvider(s.Accounts, s.Revoker, identity.Config{
		JWTSecret:           cfg.Auth.JWTSecret,
		TokenTTL:            cfg.Auth.TokenTTL,
		ConfirmationTTL:     cfg.Auth.ConfirmationTTL,
		RequireConfirmation: cfg.Auth.RequireConfirmation,
		BcryptCost:          cfg.Auth.BcryptCost,
	}, log)
}

// Close releases connections in reverse opening order.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
