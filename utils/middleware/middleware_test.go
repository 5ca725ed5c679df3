package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/database"
	"github.com/sahilchouksey/course-market-api/model"
	"github.com/sahilchouksey/course-market-api/utils/auth"
	"github.com/sahilchouksey/course-market-api/utils/cache"
	"github.com/sahilchouksey/course-market-api/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	app       *fiber.App
	jwt       *auth.JWTManager
	blacklist *auth.BlacklistService
	store     *database.MemoryStore
	user      *model.User
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	store := database.NewMemoryStore()
	user, err := store.CreateUser(context.Background(), model.NewUser{
		Name:     "Grace",
		Email:    "grace@example.com",
		Password: "password123",
		Role:     model.RoleInstructor,
	})
	require.NoError(t, err)

	jwtManager := auth.NewJWTManager(auth.JWTConfig{Secret: "secret", Expiry: time.Hour})
	blacklist := auth.NewBlacklistService(cache.NewMemoryCache())
	mw := NewAuthMiddleware(jwtManager, blacklist, store)

	app := fiber.New()
	app.Get("/private", mw.Required(), func(c *fiber.Ctx) error {
		actor := GetActor(c)
		return c.SendString(string(actor.ID))
	})
	app.Get("/public", mw.Optional(), func(c *fiber.Ctx) error {
		actor := GetActor(c)
		if actor.IsAnonymous() {
			return c.SendString("anonymous")
		}
		return c.SendString(string(actor.ID))
	})
	app.Get("/instructors", mw.Required(), mw.RequireRole(model.RoleInstructor), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	return &authFixture{app: app, jwt: jwtManager, blacklist: blacklist, store: store, user: user}
}

func (f *authFixture) token(t *testing.T) *auth.IssuedToken {
	t.Helper()
	issued, err := f.jwt.GenerateToken(f.user.ID, f.user.Role)
	require.NoError(t, err)
	return issued
}

func TestRequiredRejectsMissingToken(t *testing.T) {
	f := newAuthFixture(t)

	resp, err := f.app.Test(httptest.NewRequest(http.MethodGet, "/private", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequiredAcceptsHeaderAndCookie(t *testing.T) {
	f := newAuthFixture(t)
	issued := f.token(t)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Token)
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: issued.Token})
	resp, err = f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequiredRejectsMalformedHeader(t *testing.T) {
	f := newAuthFixture(t)
	issued := f.token(t)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Token "+issued.Token)
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequiredRejectsRevokedToken(t *testing.T) {
	f := newAuthFixture(t)
	issued := f.token(t)
	require.NoError(t, f.blacklist.RevokeToken(context.Background(), issued.JTI, issued.ExpiresAt))

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Token)
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequiredRejectsDeactivatedUser(t *testing.T) {
	f := newAuthFixture(t)
	issued := f.token(t)
	inactive := false
	_, err := f.store.UpdateUser(context.Background(), f.user.ID, model.UserPatch{IsActive: &inactive})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Token)
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestOptionalFallsBackToAnonymous(t *testing.T) {
	f := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireRole(t *testing.T) {
	f := newAuthFixture(t)
	student, err := f.store.CreateUser(context.Background(), model.NewUser{
		Name: "Sam", Email: "sam@example.com", Password: "password123",
	})
	require.NoError(t, err)
	issued, err := f.jwt.GenerateToken(student.ID, student.Role)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/instructors", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Token)
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestBruteForceLocksAfterFiveFailures(t *testing.T) {
	bf := NewBruteForceProtection(cache.NewMemoryCache(), logger.Nop())
	app := fiber.New()
	app.Post("/login", bf.CheckAndRecordAttempt(), func(c *fiber.Ctx) error {
		if c.Query("ok") == "1" {
			bf.RecordSuccessfulAttempt(c)
			return c.SendStatus(fiber.StatusOK)
		}
		bf.RecordFailedAttempt(c)
		return c.SendStatus(fiber.StatusUnauthorized)
	})

	for i := 0; i < 5; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/login?ok=1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestLockoutSchedule(t *testing.T) {
	assert.Zero(t, lockoutFor(4))
	assert.Equal(t, 2*time.Minute, lockoutFor(5))
	assert.Equal(t, time.Hour, lockoutFor(10))
	assert.Equal(t, 24*time.Hour, lockoutFor(25))
}

func TestNormalizeOrigins(t *testing.T) {
	assert.Equal(t, "*", normalizeOrigins(""))
	assert.Equal(t, "http://a.test,http://b.test", normalizeOrigins(" http://a.test , http://b.test,"))
}
