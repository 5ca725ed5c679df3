package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/utils/middleware"
	"github.com/sahilchouksey/course-market-api/utils/response"
)

// Logout handles POST /api/v1/auth/logout by revoking the current token
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	expiresAt := time.Now().Add(h.jwtManager.Expiry())
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := h.blacklistService.RevokeToken(c.UserContext(), claims.ID, expiresAt); err != nil {
		return response.FromError(c, h.log, err)
	}
	middleware.ClearTokenCookie(c, h.secureCookies)

	return response.SuccessWithMessage(c, "Successfully logged out", nil)
}
