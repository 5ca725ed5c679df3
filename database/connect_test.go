package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sahilchouksey/course-market-api/config"
	"github.com/sahilchouksey/course-market-api/utils/apperr"
	"github.com/sahilchouksey/course-market-api/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// durableStub stands in for Postgres so tests can tell the backends apart
type durableStub struct {
	*MemoryStore
	initErr error
	closed  bool
}

func (d *durableStub) Backend() string { return BackendPostgres }

func (d *durableStub) Init(ctx context.Context) error { return d.initErr }

func (d *durableStub) Close() error {
	d.closed = true
	return nil
}

func testEnv(goEnv, backend string) *config.EnvironmentVariable {
	return &config.EnvironmentVariable{
		GO_ENV:                 goEnv,
		STORAGE_BACKEND:        backend,
		DB_CONNECT_RETRIES:     3,
		DB_CONNECT_RETRY_DELAY: time.Millisecond,
	}
}

func failingConnector(pings *int) *Connector {
	return &Connector{
		Ping: func(ctx context.Context, dsn string) error {
			*pings++
			return errors.New("connection refused")
		},
		Open: func(env *config.EnvironmentVariable, log *logger.Logger) (Storage, error) {
			return nil, errors.New("must not be called")
		},
	}
}

func TestConnectUsesDurableStore(t *testing.T) {
	stub := &durableStub{MemoryStore: NewMemoryStore()}
	pings := 0
	c := &Connector{
		Ping: func(ctx context.Context, dsn string) error {
			pings++
			if pings < 2 {
				return errors.New("starting up")
			}
			return nil
		},
		Open: func(env *config.EnvironmentVariable, log *logger.Logger) (Storage, error) {
			return stub, nil
		},
	}

	store, err := c.Connect(context.Background(), testEnv("development", "auto"), logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, store.Backend())
	assert.Equal(t, 2, pings)
}

func TestConnectFallsBackToMemory(t *testing.T) {
	pings := 0
	store, err := failingConnector(&pings).Connect(context.Background(), testEnv("development", "auto"), logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, store.Backend())
	assert.Equal(t, 3, pings)
}

func TestConnectFailsInProduction(t *testing.T) {
	pings := 0
	_, err := failingConnector(&pings).Connect(context.Background(), testEnv("production", "auto"), logger.Nop())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindBackendUnavailable))
	assert.Equal(t, 3, pings)
}

func TestConnectFailsWhenPostgresRequired(t *testing.T) {
	pings := 0
	_, err := failingConnector(&pings).Connect(context.Background(), testEnv("development", BackendPostgres), logger.Nop())
	assert.True(t, apperr.Is(err, apperr.KindBackendUnavailable))
}

func TestConnectForcedMemorySkipsPing(t *testing.T) {
	pings := 0
	store, err := failingConnector(&pings).Connect(context.Background(), testEnv("production", BackendMemory), logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, store.Backend())
	assert.Zero(t, pings)
}

func TestConnectClosesStoreWhenInitFails(t *testing.T) {
	stub := &durableStub{MemoryStore: NewMemoryStore(), initErr: errors.New("migration failed")}
	c := &Connector{
		Ping: func(ctx context.Context, dsn string) error { return nil },
		Open: func(env *config.EnvironmentVariable, log *logger.Logger) (Storage, error) {
			return stub, nil
		},
	}

	store, err := c.Connect(context.Background(), testEnv("development", "auto"), logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, store.Backend())
	assert.True(t, stub.closed)
}
