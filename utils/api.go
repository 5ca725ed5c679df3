package utils

import (
	fiber "github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/database"
	"github.com/sahilchouksey/course-market-api/utils/logger"
	"github.com/sahilchouksey/course-market-api/utils/response"
)

// StoreHandlerFunc is a handler that only needs the storage backend
type StoreHandlerFunc func(c *fiber.Ctx, store database.Storage) error

// MakeHTTPHandleFunc binds store to handler and renders returned errors in the
// standard envelope
func MakeHTTPHandleFunc(handler StoreHandlerFunc, store database.Storage, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := handler(c, store); err != nil {
			return response.FromError(c, log, err)
		}
		return nil
	}
}
