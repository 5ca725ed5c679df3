package router

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateProfile(t *testing.T) {
	s := newTestServer(t)
	sam := s.register(t, "Sam Student", "sam@example.com", model.RoleStudent)
	s.register(t, "Other Person", "other@example.com", model.RoleStudent)

	status, env := s.call(t, http.MethodPut, "/api/v1/users/me", fiber.Map{
		"name":     "Samuel",
		"headline": "Backend engineer",
	}, sam.Token)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	var user model.User
	decode(t, env, &user)
	assert.Equal(t, "Samuel", user.Name)
	assert.Equal(t, "Backend engineer", user.Profile.Headline)
	assert.Equal(t, "sam@example.com", user.Email)

	status, _ = s.call(t, http.MethodPut, "/api/v1/users/me", fiber.Map{"email": "other@example.com"}, sam.Token)
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = s.call(t, http.MethodPut, "/api/v1/users/me", fiber.Map{"website": "not a url"}, sam.Token)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t)
	sam := s.register(t, "Sam Student", "sam@example.com", model.RoleStudent)

	status, _ := s.call(t, http.MethodPut, "/api/v1/users/me/password", fiber.Map{
		"current_password": "not-my-password",
		"new_password":     "another-password",
	}, sam.Token)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.call(t, http.MethodPut, "/api/v1/users/me/password", fiber.Map{
		"current_password": "password123",
		"new_password":     "another-password",
	}, sam.Token)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = s.call(t, http.MethodPost, "/api/v1/auth/login", fiber.Map{
		"email":    "sam@example.com",
		"password": "another-password",
	}, "")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestUpdateSettingsKeepsUntouchedFlags(t *testing.T) {
	s := newTestServer(t)
	sam := s.register(t, "Sam Student", "sam@example.com", model.RoleStudent)

	status, env := s.call(t, http.MethodPut, "/api/v1/users/me/settings/notifications", fiber.Map{
		"promotions": true,
	}, sam.Token)
	require.Equal(t, fiber.StatusOK, status)
	var settings model.UserSettings
	decode(t, env, &settings)
	assert.True(t, settings.Notifications.Promotions)
	assert.True(t, settings.Notifications.Email)
	assert.True(t, settings.Privacy.ShowProfile)

	status, env = s.call(t, http.MethodPut, "/api/v1/users/me/settings/privacy", fiber.Map{
		"show_profile": false,
	}, sam.Token)
	require.Equal(t, fiber.StatusOK, status)
	decode(t, env, &settings)
	assert.False(t, settings.Privacy.ShowProfile)
	assert.True(t, settings.Notifications.Promotions)
}

func TestDeleteAccountCascades(t *testing.T) {
	s := newTestServer(t)
	ada := s.register(t, "Ada Lovelace", "ada@example.com", model.RoleInstructor)
	course := s.createCourse(t, ada.Token, nil)

	status, _ := s.call(t, http.MethodDelete, "/api/v1/users/me", nil, ada.Token)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = s.call(t, http.MethodGet, "/api/v1/courses/"+string(course.ID), nil, "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = s.call(t, http.MethodPost, "/api/v1/auth/login", fiber.Map{
		"email":    "ada@example.com",
		"password": "password123",
	}, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.call(t, http.MethodGet, "/api/v1/auth/user", nil, ada.Token)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}
