package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/database"
	"github.com/sahilchouksey/course-market-api/model"
	"github.com/sahilchouksey/course-market-api/policy"
	"github.com/sahilchouksey/course-market-api/utils/apperr"
	"github.com/sahilchouksey/course-market-api/utils/auth"
	"github.com/sahilchouksey/course-market-api/utils/response"
)

// TokenCookie is the cookie the login handler persists the token in
const TokenCookie = "token"

// SetTokenCookie persists an issued token for browser clients
func SetTokenCookie(c *fiber.Ctx, token *auth.IssuedToken, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     TokenCookie,
		Value:    token.Token,
		Path:     "/",
		Expires:  token.ExpiresAt,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearTokenCookie expires the token cookie
func ClearTokenCookie(c *fiber.Ctx, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager       *auth.JWTManager
	blacklistService *auth.BlacklistService
	store            database.Storage
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, blacklist *auth.BlacklistService, store database.Storage) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:       jwtManager,
		blacklistService: blacklist,
		store:            store,
	}
}

// ExtractToken reads the bearer token from the Authorization header, falling
// back to the token cookie
func ExtractToken(c *fiber.Ctx) (string, error) {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", apperr.Authentication("Invalid authorization format")
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if cookie := c.Cookies(TokenCookie); cookie != "" {
		return cookie, nil
	}
	return "", apperr.Authentication("Missing authorization token")
}

// authenticate resolves the caller from the request credentials
func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*model.User, *auth.Claims, error) {
	tokenString, err := ExtractToken(c)
	if err != nil {
		return nil, nil, err
	}

	claims, err := m.jwtManager.ValidateToken(tokenString)
	if err != nil {
		if err == auth.ErrExpiredToken {
			return nil, nil, apperr.Authentication("Token has expired")
		}
		return nil, nil, apperr.Authentication("Invalid token")
	}

	isRevoked, err := m.blacklistService.IsTokenRevoked(c.UserContext(), claims.ID)
	if err != nil {
		return nil, nil, err
	}
	if isRevoked {
		return nil, nil, apperr.Authentication("Token has been revoked")
	}

	user, err := m.store.GetUser(c.UserContext(), claims.UserID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, nil, apperr.Authentication("User not found")
		}
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, apperr.Authentication("Account is deactivated")
	}
	return user, claims, nil
}

func setIdentity(c *fiber.Ctx, user *model.User, claims *auth.Claims) {
	c.Locals("user_id", user.ID)
	c.Locals("user_role", user.Role)
	c.Locals("claims", claims)
	c.Locals("user", user)
	c.Locals("token_jti", claims.ID)
}

// Required is middleware that requires a valid JWT token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, claims, err := m.authenticate(c)
		if err != nil {
			if apperr.Is(err, apperr.KindAuthentication) {
				return response.Unauthorized(c, apperr.MessageOf(err))
			}
			return err
		}
		setIdentity(c, user, claims)
		return c.Next()
	}
}

// Optional resolves the caller when a valid token is present and otherwise
// continues anonymously
func (m *AuthMiddleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, claims, err := m.authenticate(c)
		if err == nil {
			setIdentity(c, user, claims)
		}
		return c.Next()
	}
}

// RequireRole is middleware that requires specific user role
func (m *AuthMiddleware) RequireRole(roles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := GetUserRole(c)
		if !ok {
			return response.Forbidden(c, "Access denied")
		}

		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}

		return response.Forbidden(c, "Insufficient permissions")
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) (model.UserID, bool) {
	id, ok := c.Locals("user_id").(model.UserID)
	return id, ok && id != ""
}

// GetUserRole extracts user role from context
func GetUserRole(c *fiber.Ctx) (model.Role, bool) {
	role, ok := c.Locals("user_role").(model.Role)
	return role, ok
}

// GetUser extracts full user object from context
func GetUser(c *fiber.Ctx) (*model.User, bool) {
	u, ok := c.Locals("user").(*model.User)
	return u, ok
}

// GetClaims extracts full claims from context
func GetClaims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals("claims").(*auth.Claims)
	return claims, ok
}

// GetActor returns the caller for policy checks, Anonymous on public routes
func GetActor(c *fiber.Ctx) policy.Actor {
	user, ok := GetUser(c)
	if !ok {
		return policy.Anonymous
	}
	return policy.Actor{ID: user.ID, Role: user.Role}
}
