package main

import (
	"context"
	"fmt"

	"github.com/alem-hub/student-roster/config"
	"github.com/alem-hub/student-roster/internal/domain/roster"
	"github.com/alem-hub/student-roster/internal/infrastructure/persistence/file"
	"github.com/alem-hub/student-roster/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/student-roster/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/student-roster/internal/infrastructure/persistence/sqlite"
	"github.com/alem-hub/student-roster/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORE FACTORY
// ══════════════════════════════════════════════════════════════════════════════

// openStore создаёт хранилище для выбранного backend.
// Возвращаемую функцию нужно вызвать для освобождения соединений.
func openStore(ctx context.Context, c *config.Config, l *logger.Logger) (roster.Store, func(), error) {
	l = l.With(logger.Backend(string(c.Storage.Backend)))

	switch c.Storage.Backend {
	case config.BackendFile:
		return file.New(c.Storage.Path, l), func() {}, nil

	case config.BackendSQLite:
		store := sqlite.New(c.Storage.Path, l)
		return store, func() {
			if err := store.Close(); err != nil {
				l.Warn("failed to close sqlite store", logger.Err(err))
			}
		}, nil

	case config.BackendPostgres:
		conn, err := openPostgres(ctx, c, l)
		if err != nil {
			return nil, nil, err
		}
		if c.Database.MigrateOnStart {
			applied, err := postgres.NewMigrator(conn).Migrate(ctx)
			if err != nil {
				conn.Close()
				return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			l.Info("migrations applied", logger.Count(applied))
		}
		return postgres.NewRosterStore(conn, l), conn.Close, nil

	case config.BackendRedis:
		cache, err := redis.NewCache(ctx, redisConfig(c), l)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return redis.NewSnapshotStore(cache, l), func() {
			if err := cache.Close(); err != nil {
				l.Warn("failed to close redis client", logger.Err(err))
			}
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
}

func openPostgres(ctx context.Context, c *config.Config, l *logger.Logger) (*postgres.Connection, error) {
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = c.Database.URL
	pgCfg.MaxConns = c.Database.MaxConns
	pgCfg.MinConns = c.Database.MinConns
	if c.Database.ConnMaxLifetime > 0 {
		pgCfg.MaxConnLifetime = c.Database.ConnMaxLifetime
	}
	if c.Database.ConnMaxIdleTime > 0 {
		pgCfg.MaxConnIdleTime = c.Database.ConnMaxIdleTime
	}
	pgCfg.ConnectAttempts = c.Storage.ConnectAttempts

	conn, err := postgres.NewConnection(ctx, pgCfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return conn, nil
}

func redisConfig(c *config.Config) redis.Config {
	rc := redis.DefaultConfig()
	rc.URL = c.Redis.URL
	if c.Redis.Host != "" {
		rc.Host = c.Redis.Host
	}
	if c.Redis.Port != 0 {
		rc.Port = c.Redis.Port
	}
	rc.Password = c.Redis.Password
	rc.DB = c.Redis.DB
	rc.KeyPrefix = c.Redis.KeyPrefix
	if c.Redis.PoolSize > 0 {
		rc.PoolSize = c.Redis.PoolSize
	}
	if c.Redis.DialTimeout > 0 {
		rc.DialTimeout = c.Redis.DialTimeout
	}
	if c.Redis.ReadTimeout > 0 {
		rc.ReadTimeout = c.Redis.ReadTimeout
	}
	if c.Redis.WriteTimeout > 0 {
		rc.WriteTimeout = c.Redis.WriteTimeout
	}
	rc.ConnectAttempts = c.Storage.ConnectAttempts
	return rc
}
