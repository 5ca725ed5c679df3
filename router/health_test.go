package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/handlers"
	"github.com/sahilchouksey/course-market-api/utils/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableCache answers every call like a MemoryCache but fails Ping
type unreachableCache struct {
	*cache.MemoryCache
}

func (unreachableCache) Ping(ctx context.Context) error {
	return errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
}

func readHealth(t *testing.T, s *testServer) (int, handlers.HealthStatus) {
	t.Helper()
	resp := s.raw(t, http.MethodGet, "/ping", nil, "")
	defer resp.Body.Close()

	var status handlers.HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	return resp.StatusCode, status
}

func TestHealthReportsCache(t *testing.T) {
	s := newTestServer(t)
	code, status := readHealth(t, s)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, handlers.HealthStatus{Status: "ok", Backend: "memory", Cache: "ok"}, status)
}

func TestHealthDegradesWhenCacheIsDown(t *testing.T) {
	s := newTestServer(t, func(d *Dependencies) {
		d.Cache = unreachableCache{cache.NewMemoryCache()}
	})
	code, status := readHealth(t, s)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "unavailable", status.Cache)
	assert.Equal(t, "memory", status.Backend)
}

func TestHealthWithoutCache(t *testing.T) {
	s := newTestServer(t, func(d *Dependencies) { d.Cache = nil })
	code, status := readHealth(t, s)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "ok", status.Status)
	assert.Empty(t, status.Cache)
}
