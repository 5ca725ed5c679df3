package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/database"
	"github.com/sahilchouksey/course-market-api/utils/apperr"
	"github.com/sahilchouksey/course-market-api/utils/cache"
)

// HealthStatus is the body of GET /ping
type HealthStatus struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Cache   string `json:"cache,omitempty"`
}

// CheckHealth reports which backend serves requests and whether it answers.
// An unreachable cache degrades the status without failing the check.
func CheckHealth(tokens cache.Store) func(c *fiber.Ctx, store database.Storage) error {
	return func(c *fiber.Ctx, store database.Storage) error {
		ctx := c.UserContext()
		if err := store.HealthCheck(ctx); err != nil {
			return apperr.BackendUnavailable(err)
		}

		status := HealthStatus{Status: "ok", Backend: store.Backend()}
		if tokens != nil {
			status.Cache = "ok"
			if err := tokens.Ping(ctx); err != nil {
				status.Status = "degraded"
				status.Cache = "unavailable"
			}
		}
		return c.JSON(status)
	}
}
