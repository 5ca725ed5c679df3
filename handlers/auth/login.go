package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/utils/apperr"
	authutil "github.com/sahilchouksey/course-market-api/utils/auth"
	"github.com/sahilchouksey/course-market-api/utils/response"
)

// LoginRequest represents a user login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.Check(req); err != nil {
		return response.ValidationError(c, err)
	}

	user, err := h.store.GetUserByEmail(c.UserContext(), req.Email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			h.recordFailure(c)
			return response.Unauthorized(c, "Invalid email or password")
		}
		return response.FromError(c, h.log, err)
	}

	if err := authutil.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		h.recordFailure(c)
		return response.Unauthorized(c, "Invalid email or password")
	}

	if !user.IsActive {
		return response.Unauthorized(c, "Account is deactivated")
	}

	if h.bruteForceProtection != nil {
		h.bruteForceProtection.RecordSuccessfulAttempt(c)
	}

	res, err := h.issue(c, user)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, res)
}

func (h *AuthHandler) recordFailure(c *fiber.Ctx) {
	if h.bruteForceProtection != nil {
		h.bruteForceProtection.RecordFailedAttempt(c)
	}
}
