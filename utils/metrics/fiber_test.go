package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrapeSurvivesMixedMethods(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/metrics", Handler())
	app.Get("/items/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Post("/items", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })
	app.Delete("/items/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	for i := 0; i < 5; i++ {
		for _, req := range []*http.Request{
			httptest.NewRequest(http.MethodGet, "/items/1", nil),
			httptest.NewRequest(http.MethodPost, "/items", nil),
			httptest.NewRequest(http.MethodDelete, "/items/2", nil),
			httptest.NewRequest(http.MethodGet, "/missing", nil),
		} {
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			resp.Body.Close()
		}
	}

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

		text := string(body)
		assert.True(t, strings.Contains(text, `method="DELETE",route="/items/:id",status="204"`), text)
		assert.True(t, strings.Contains(text, `method="POST",route="/items",status="201"`), text)
		assert.False(t, strings.Contains(text, `method="GETT"`))
	}
}
