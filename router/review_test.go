package router

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reviewsPath(id model.CourseID) string {
	return "/api/v1/reviews/course/" + string(id)
}

func reviewPath(id model.ReviewID) string {
	return "/api/v1/reviews/" + string(id)
}

func (s *testServer) courseRating(t *testing.T, id model.CourseID) (float64, int) {
	t.Helper()
	status, env := s.call(t, http.MethodGet, coursePath(id), nil, "")
	require.Equal(t, fiber.StatusOK, status)
	var c model.Course
	decode(t, env, &c)
	return c.AverageRating, c.NumReviews
}

func TestReviewLifecycle(t *testing.T) {
	s := newTestServer(t)
	ada := s.register(t, "Ada Lovelace", "ada@example.com", model.RoleInstructor)
	sam := s.register(t, "Sam Student", "sam@example.com", model.RoleStudent)
	eve := s.register(t, "Eve Student", "eve@example.com", model.RoleStudent)
	c := s.createCourse(t, ada.Token, nil)
	s.enroll(t, sam.Token, c.ID)
	s.enroll(t, eve.Token, c.ID)

	status, env := s.call(t, http.MethodPost, reviewsPath(c.ID), fiber.Map{"rating": 4, "comment": "Clear and practical"}, sam.Token)
	require.Equal(t, fiber.StatusCreated, status, env.Error)
	var review model.Review
	decode(t, env, &review)

	status, _ = s.call(t, http.MethodPost, reviewsPath(c.ID), fiber.Map{"rating": 2, "comment": "Again"}, sam.Token)
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = s.call(t, http.MethodPost, reviewsPath(c.ID), fiber.Map{"rating": 2, "comment": "Too fast"}, eve.Token)
	require.Equal(t, fiber.StatusCreated, status)

	avg, n := s.courseRating(t, c.ID)
	assert.InDelta(t, 3.0, avg, 0.001)
	assert.Equal(t, 2, n)

	status, env = s.call(t, http.MethodGet, reviewsPath(c.ID), nil, "")
	require.Equal(t, fiber.StatusOK, status)
	var listed []model.ReviewDetail
	decode(t, env, &listed)
	require.Len(t, listed, 2)
	names := []string{listed[0].Author.Name, listed[1].Author.Name}
	assert.ElementsMatch(t, []string{"Sam Student", "Eve Student"}, names)

	status, _ = s.call(t, http.MethodPut, reviewPath(review.ID), fiber.Map{"rating": 1}, eve.Token)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, env = s.call(t, http.MethodPut, reviewPath(review.ID), fiber.Map{"rating": 5}, sam.Token)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	decode(t, env, &review)
	assert.Equal(t, 5, review.Rating)
	assert.Equal(t, "Clear and practical", review.Comment)

	avg, _ = s.courseRating(t, c.ID)
	assert.InDelta(t, 3.5, avg, 0.001)

	// the course's instructor may moderate
	status, _ = s.call(t, http.MethodDelete, reviewPath(review.ID), nil, ada.Token)
	require.Equal(t, fiber.StatusOK, status)

	avg, n = s.courseRating(t, c.ID)
	assert.InDelta(t, 2.0, avg, 0.001)
	assert.Equal(t, 1, n)
}

func TestReviewRequiresPaidEnrollment(t *testing.T) {
	s := newTestServer(t)
	ada := s.register(t, "Ada Lovelace", "ada@example.com", model.RoleInstructor)
	sam := s.register(t, "Sam Student", "sam@example.com", model.RoleStudent)
	paid := s.createCourse(t, ada.Token, fiber.Map{"price": 29})

	body := fiber.Map{"rating": 5, "comment": "Great"}

	status, _ := s.call(t, http.MethodPost, reviewsPath(paid.ID), body, sam.Token)
	assert.Equal(t, fiber.StatusForbidden, status)

	s.enroll(t, sam.Token, paid.ID)
	status, _ = s.call(t, http.MethodPost, reviewsPath(paid.ID), body, sam.Token)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = s.call(t, http.MethodPost, reviewsPath(paid.ID), body, ada.Token)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestReviewValidation(t *testing.T) {
	s := newTestServer(t)
	ada := s.register(t, "Ada Lovelace", "ada@example.com", model.RoleInstructor)
	sam := s.register(t, "Sam Student", "sam@example.com", model.RoleStudent)
	c := s.createCourse(t, ada.Token, nil)
	s.enroll(t, sam.Token, c.ID)

	tests := []struct {
		name string
		body fiber.Map
	}{
		{"rating too high", fiber.Map{"rating": 6, "comment": "Wow"}},
		{"rating missing", fiber.Map{"comment": "Wow"}},
		{"comment missing", fiber.Map{"rating": 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := s.call(t, http.MethodPost, reviewsPath(c.ID), tt.body, sam.Token)
			assert.Equal(t, fiber.StatusBadRequest, status)
		})
	}

	status, _ := s.call(t, http.MethodGet, reviewsPath("777"), nil, "")
	assert.Equal(t, fiber.StatusNotFound, status)
}
