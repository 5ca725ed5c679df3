package database

import (
	"context"
	"fmt"

	"github.com/sahilchouksey/course-market-api/config"
	"github.com/sahilchouksey/course-market-api/utils/apperr"
	"github.com/sahilchouksey/course-market-api/utils/logger"
	"github.com/sahilchouksey/course-market-api/utils/retry"
)

// Pinger checks durable storage connectivity. Swapped out in tests.
type Pinger func(ctx context.Context, dsn string) error

// Opener brings up the durable store once the ping succeeded
type Opener func(env *config.EnvironmentVariable, log *logger.Logger) (Storage, error)

// Connector decides which backend serves the process. The decision is made
// once; requests never switch backends afterwards.
type Connector struct {
	Ping Pinger
	Open Opener
}

// NewConnector returns a Connector wired to lib/pq and GORM
func NewConnector() *Connector {
	return &Connector{
		Ping: PingPostgres,
		Open: func(env *config.EnvironmentVariable, log *logger.Logger) (Storage, error) {
			return StartGORM(env, log)
		},
	}
}

// Connect selects and initializes the storage backend.
//
// STORAGE_BACKEND=memory skips the database entirely. Otherwise the database
// is pinged DB_CONNECT_RETRIES times. When it stays unreachable, production
// refuses to start and every other environment falls back to memory.
func (c *Connector) Connect(ctx context.Context, env *config.EnvironmentVariable, log *logger.Logger) (Storage, error) {
	if env.STORAGE_BACKEND == BackendMemory {
		log.Info("storage backend forced to memory")
		return c.memory(ctx)
	}

	store, err := c.durable(ctx, env, log)
	if err == nil {
		return store, nil
	}

	if env.IsProduction() || env.STORAGE_BACKEND == BackendPostgres {
		return nil, apperr.BackendUnavailable(err)
	}

	log.Warn("durable storage unreachable, falling back to in-memory storage; data will not survive a restart",
		"error", err.Error(),
	)
	return c.memory(ctx)
}

func (c *Connector) durable(ctx context.Context, env *config.EnvironmentVariable, log *logger.Logger) (Storage, error) {
	policy := retry.Fixed(env.DB_CONNECT_RETRIES, env.DB_CONNECT_RETRY_DELAY)
	_, err := retry.Do(ctx, policy, log, "postgres ping", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.Ping(ctx, env.PostgresDSN())
	})
	if err != nil {
		return nil, err
	}

	store, err := c.Open(env, log)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize %s storage: %w", store.Backend(), err)
	}
	return store, nil
}

func (c *Connector) memory(ctx context.Context) (Storage, error) {
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
