package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/database"
	"github.com/sahilchouksey/course-market-api/model"
	authutil "github.com/sahilchouksey/course-market-api/utils/auth"
	"github.com/sahilchouksey/course-market-api/utils/logger"
	"github.com/sahilchouksey/course-market-api/utils/middleware"
	"github.com/sahilchouksey/course-market-api/utils/response"
	"github.com/sahilchouksey/course-market-api/utils/validation"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	store                database.Storage
	jwtManager           *authutil.JWTManager
	blacklistService     *authutil.BlacklistService
	bruteForceProtection *middleware.BruteForceProtection
	validator            *validation.Validator
	log                  *logger.Logger
	secureCookies        bool
}

// NewAuthHandler creates a new auth handler. bruteForceProtection may be nil.
func NewAuthHandler(store database.Storage, jwtManager *authutil.JWTManager, blacklist *authutil.BlacklistService, bruteForceProtection *middleware.BruteForceProtection, log *logger.Logger, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		store:                store,
		jwtManager:           jwtManager,
		blacklistService:     blacklist,
		bruteForceProtection: bruteForceProtection,
		validator:            validation.Default(),
		log:                  log,
		secureCookies:        secureCookies,
	}
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=student instructor"` // defaults to student
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.Check(req); err != nil {
		return response.ValidationError(c, err)
	}

	// hash here so a password shaped like a bcrypt hash is not stored verbatim
	hash, err := authutil.HashPasswordWithCost(req.Password, h.store.PasswordCost())
	if err != nil {
		return response.FromError(c, h.log, err)
	}

	user, err := h.store.CreateUser(c.UserContext(), model.NewUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: hash,
		Role:     model.Role(req.Role),
	})
	if err != nil {
		return response.FromError(c, h.log, err)
	}

	res, err := h.issue(c, user)
	if err != nil {
		return response.FromError(c, h.log, err)
	}

	h.log.Info("user registered", "user_id", user.ID, "role", user.Role)
	return response.Created(c, res)
}

// issue signs a token for user and sets the auth cookie
func (h *AuthHandler) issue(c *fiber.Ctx, user *model.User) (*AuthResponse, error) {
	token, err := h.jwtManager.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	middleware.SetTokenCookie(c, token, h.secureCookies)
	return &AuthResponse{
		User:      user,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	}, nil
}
