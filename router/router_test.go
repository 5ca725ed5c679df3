package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/api"
	"github.com/sahilchouksey/course-market-api/database"
	auth_handlers "github.com/sahilchouksey/course-market-api/handlers/auth"
	"github.com/sahilchouksey/course-market-api/model"
	"github.com/sahilchouksey/course-market-api/services"
	"github.com/sahilchouksey/course-market-api/services/payment"
	"github.com/sahilchouksey/course-market-api/utils/auth"
	"github.com/sahilchouksey/course-market-api/utils/cache"
	"github.com/sahilchouksey/course-market-api/utils/logger"
	"github.com/sahilchouksey/course-market-api/utils/middleware"
	"github.com/sahilchouksey/course-market-api/utils/response"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	app      *fiber.App
	store    *database.MemoryStore
	payments *payment.SandboxProvider
	jwt      *auth.JWTManager
}

type envelope struct {
	Success    bool                     `json:"success"`
	Message    string                   `json:"message"`
	Data       json.RawMessage          `json:"data"`
	Error      *response.ErrorDetail    `json:"error"`
	Pagination *response.PaginationMeta `json:"pagination"`
}

type session struct {
	Token string
	User  model.User
}

func newTestServer(t *testing.T, opts ...func(*Dependencies)) *testServer {
	t.Helper()
	log := logger.Nop()
	store := database.NewMemoryStore()
	payments := payment.NewSandboxProvider(false)
	jwtManager := auth.NewJWTManager(auth.JWTConfig{Secret: "test-secret", Expiry: time.Hour, Issuer: "test"})
	tokens := cache.NewMemoryCache()

	deps := Dependencies{
		Store:       store,
		Log:         log,
		JWT:         jwtManager,
		Blacklist:   auth.NewBlacklistService(tokens),
		Cache:       tokens,
		BruteForce:  middleware.NewBruteForceProtection(cache.NewMemoryCache(), log),
		Enrollments: services.NewEnrollmentService(store, payments, "usd", log),
		Security:    middleware.SecurityConfig{AllowedOrigins: "*"},
	}
	for _, opt := range opts {
		opt(&deps)
	}

	app := api.New(log)
	SetupRoutes(app, deps)

	return &testServer{app: app, store: store, payments: payments, jwt: jwtManager}
}

func (s *testServer) call(t *testing.T, method, path string, body interface{}, token string) (int, envelope) {
	t.Helper()
	resp := s.raw(t, method, path, body, token)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (s *testServer) raw(t *testing.T, method, path string, body interface{}, token string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, env envelope, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, out), string(env.Data))
}

func (s *testServer) register(t *testing.T, name, email string, role model.Role) session {
	t.Helper()
	status, env := s.call(t, http.MethodPost, "/api/v1/auth/register", fiber.Map{
		"name":     name,
		"email":    email,
		"password": "password123",
		"role":     string(role),
	}, "")
	require.Equal(t, fiber.StatusCreated, status, env.Error)

	var res auth_handlers.AuthResponse
	decode(t, env, &res)
	return session{Token: res.Token, User: *res.User}
}

// admin is created directly in the store because the API never hands out
// the admin role
func (s *testServer) admin(t *testing.T) session {
	t.Helper()
	user, err := s.store.CreateUser(context.Background(), model.NewUser{
		Name:     "Root",
		Email:    "root@example.com",
		Password: "password123",
		Role:     model.RoleAdmin,
	})
	require.NoError(t, err)
	issued, err := s.jwt.GenerateToken(user.ID, user.Role)
	require.NoError(t, err)
	return session{Token: issued.Token, User: *user}
}

func (s *testServer) createCourse(t *testing.T, token string, overrides fiber.Map) model.Course {
	t.Helper()
	body := fiber.Map{
		"title":        "Practical Go",
		"description":  "Services and tooling",
		"category":     "development",
		"level":        "beginner",
		"price":        0,
		"is_published": true,
	}
	for k, v := range overrides {
		body[k] = v
	}

	status, env := s.call(t, http.MethodPost, "/api/v1/courses", body, token)
	require.Equal(t, fiber.StatusCreated, status, env.Error)

	var course model.Course
	decode(t, env, &course)
	return course
}

func (s *testServer) createLesson(t *testing.T, token string, courseID model.CourseID, body fiber.Map) model.Lesson {
	t.Helper()
	status, env := s.call(t, http.MethodPost, "/api/v1/courses/"+string(courseID)+"/lessons", body, token)
	require.Equal(t, fiber.StatusCreated, status, env.Error)

	var lesson model.Lesson
	decode(t, env, &lesson)
	return lesson
}

func (s *testServer) enroll(t *testing.T, token string, courseID model.CourseID) (int, services.EnrollResult) {
	t.Helper()
	status, env := s.call(t, http.MethodPost, "/api/v1/courses/"+string(courseID)+"/enroll", nil, token)
	var res services.EnrollResult
	if env.Success {
		decode(t, env, &res)
	}
	return status, res
}
