package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/utils/middleware"
	"github.com/sahilchouksey/course-market-api/utils/response"
)

// GetUser handles GET /api/v1/auth/user
func (h *AuthHandler) GetUser(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}
	return response.Success(c, user)
}
