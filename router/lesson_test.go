package router

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/handlers/lesson"
	"github.com/sahilchouksey/course-market-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lessonPath(id model.LessonID) string {
	return "/api/v1/lessons/" + string(id)
}

type lessonFixture struct {
	*testServer
	ada     session
	course  model.Course
	preview model.Lesson
	locked  model.Lesson
}

func newLessonFixture(t *testing.T, price float64) *lessonFixture {
	t.Helper()
	s := newTestServer(t)
	ada := s.register(t, "Ada Lovelace", "ada@example.com", model.RoleInstructor)
	c := s.createCourse(t, ada.Token, fiber.Map{"price": price})

	preview := s.createLesson(t, ada.Token, c.ID, fiber.Map{
		"title":      "Introduction",
		"content":    "Welcome to the course",
		"duration":   10,
		"is_preview": true,
	})
	locked := s.createLesson(t, ada.Token, c.ID, fiber.Map{
		"title":     "Deep dive",
		"content":   "The good part",
		"video_url": "https://cdn.example.com/deep-dive.mp4",
		"duration":  25,
	})

	return &lessonFixture{testServer: s, ada: ada, course: c, preview: preview, locked: locked}
}

func (f *lessonFixture) listLessons(t *testing.T, token string) []lesson.LessonView {
	t.Helper()
	status, env := f.call(t, http.MethodGet, coursePath(f.course.ID)+"/lessons", nil, token)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	var views []lesson.LessonView
	decode(t, env, &views)
	return views
}

func TestLessonsAreOrderedAndCounted(t *testing.T) {
	f := newLessonFixture(t, 0)
	assert.Equal(t, 1, f.preview.Order)
	assert.Equal(t, 2, f.locked.Order)

	status, env := f.call(t, http.MethodGet, coursePath(f.course.ID), nil, "")
	require.Equal(t, fiber.StatusOK, status)
	var c model.Course
	decode(t, env, &c)
	assert.Equal(t, 2, c.TotalLessons)
	assert.Equal(t, 35, c.TotalDuration)

	status, _ = f.call(t, http.MethodPut, lessonPath(f.locked.ID), fiber.Map{"duration": 45}, f.ada.Token)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = f.call(t, http.MethodDelete, lessonPath(f.preview.ID), nil, f.ada.Token)
	require.Equal(t, fiber.StatusOK, status)

	_, env = f.call(t, http.MethodGet, coursePath(f.course.ID), nil, "")
	decode(t, env, &c)
	assert.Equal(t, 1, c.TotalLessons)
	assert.Equal(t, 45, c.TotalDuration)

	views := f.listLessons(t, f.ada.Token)
	require.Len(t, views, 1)
	assert.Equal(t, 1, views[0].Order)
}

func TestLockedLessonsShowOutlineOnly(t *testing.T) {
	f := newLessonFixture(t, 0)

	views := f.listLessons(t, "")
	require.Len(t, views, 2)
	assert.False(t, views[0].Locked)
	assert.Equal(t, "Welcome to the course", views[0].Content)
	assert.True(t, views[1].Locked)
	assert.Empty(t, views[1].Content)
	assert.Empty(t, views[1].VideoURL)
	assert.Equal(t, "Deep dive", views[1].Title)

	status, env := f.call(t, http.MethodGet, lessonPath(f.locked.ID), nil, "")
	require.Equal(t, fiber.StatusOK, status)
	var view lesson.LessonView
	decode(t, env, &view)
	assert.True(t, view.Locked)

	owner := f.listLessons(t, f.ada.Token)
	assert.False(t, owner[1].Locked)
	assert.Equal(t, "The good part", owner[1].Content)

	status, env = f.call(t, http.MethodGet, coursePath(f.course.ID), nil, "")
	require.Equal(t, fiber.StatusOK, status)
	var detail struct {
		Lessons []model.Lesson `json:"lessons"`
	}
	decode(t, env, &detail)
	require.Len(t, detail.Lessons, 2)
	assert.Empty(t, detail.Lessons[0].Content)
	assert.Empty(t, detail.Lessons[1].VideoURL)
}

func TestEnrolledStudentSeesContent(t *testing.T) {
	f := newLessonFixture(t, 0)
	sam := f.register(t, "Sam Student", "sam@example.com", model.RoleStudent)

	views := f.listLessons(t, sam.Token)
	assert.True(t, views[1].Locked)

	status, _ := f.enroll(t, sam.Token, f.course.ID)
	require.Equal(t, fiber.StatusCreated, status)

	views = f.listLessons(t, sam.Token)
	assert.False(t, views[1].Locked)
	assert.Equal(t, "https://cdn.example.com/deep-dive.mp4", views[1].VideoURL)
}

func TestLessonManagementPermissions(t *testing.T) {
	f := newLessonFixture(t, 0)
	bob := f.register(t, "Bob Builder", "bob@example.com", model.RoleInstructor)

	status, _ := f.call(t, http.MethodPost, coursePath(f.course.ID)+"/lessons", fiber.Map{"title": "Intruder"}, bob.Token)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = f.call(t, http.MethodPut, lessonPath(f.locked.ID), fiber.Map{"title": "Renamed"}, bob.Token)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = f.call(t, http.MethodDelete, lessonPath(f.locked.ID), nil, bob.Token)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = f.call(t, http.MethodPost, coursePath(f.course.ID)+"/lessons", fiber.Map{
		"title":     "Bad video",
		"video_url": "not a url",
	}, f.ada.Token)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = f.call(t, http.MethodGet, lessonPath("404"), nil, "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestLessonsOfDraftCourseAreHidden(t *testing.T) {
	f := newLessonFixture(t, 0)
	status, _ := f.call(t, http.MethodPut, coursePath(f.course.ID), fiber.Map{"is_published": false}, f.ada.Token)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = f.call(t, http.MethodGet, coursePath(f.course.ID)+"/lessons", nil, "")
	assert.Equal(t, fiber.StatusNotFound, status)
	status, _ = f.call(t, http.MethodGet, lessonPath(f.preview.ID), nil, "")
	assert.Equal(t, fiber.StatusNotFound, status)

	views := f.listLessons(t, f.ada.Token)
	assert.Len(t, views, 2)
}
