package lesson

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/database"
	"github.com/sahilchouksey/course-market-api/model"
	"github.com/sahilchouksey/course-market-api/policy"
	"github.com/sahilchouksey/course-market-api/utils/apperr"
	"github.com/sahilchouksey/course-market-api/utils/logger"
	"github.com/sahilchouksey/course-market-api/utils/middleware"
	"github.com/sahilchouksey/course-market-api/utils/response"
	"github.com/sahilchouksey/course-market-api/utils/validation"
)

// LessonHandler handles lesson-related requests
type LessonHandler struct {
	store     database.Storage
	validator *validation.Validator
	log       *logger.Logger
}

// NewLessonHandler creates a new lesson handler
func NewLessonHandler(store database.Storage, log *logger.Logger) *LessonHandler {
	return &LessonHandler{
		store:     store,
		validator: validation.Default(),
		log:       log,
	}
}

// CreateLessonRequest represents the request body for creating a lesson.
// Order is appended after the last lesson when omitted.
type CreateLessonRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	Content     string `json:"content"`
	VideoURL    string `json:"video_url" validate:"omitempty,url"`
	Duration    int    `json:"duration" validate:"gte=0"`
	Order       int    `json:"order" validate:"omitempty,gte=1"`
	IsPreview   bool   `json:"is_preview"`
}

// UpdateLessonRequest represents the request body for updating a lesson
type UpdateLessonRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Content     *string `json:"content"`
	VideoURL    *string `json:"video_url" validate:"omitempty,url"`
	Duration    *int    `json:"duration" validate:"omitempty,gte=0"`
	Order       *int    `json:"order" validate:"omitempty,gte=1"`
	IsPreview   *bool   `json:"is_preview"`
}

// LessonView is a lesson as the caller may see it. Locked lessons carry no
// content or video.
type LessonView struct {
	model.Lesson
	Locked bool `json:"locked"`
}

// ListLessons handles GET /api/v1/courses/:id/lessons
func (h *LessonHandler) ListLessons(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	courseID, err := model.ParseCourseID(c.Params("id"))
	if err != nil {
		return response.FromError(c, h.log, err)
	}

	ctx := c.UserContext()
	course, err := h.store.GetCourse(ctx, courseID)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	if err := policy.CanViewCourse(actor, course); err != nil {
		return response.FromError(c, h.log, err)
	}

	enrollment, err := h.enrollmentOf(c, actor, course.ID)
	if err != nil {
		return response.FromError(c, h.log, err)
	}

	lessons, err := h.store.GetLessonsForCourse(ctx, course.ID)
	if err != nil {
		return response.FromError(c, h.log, err)
	}

	views := make([]LessonView, 0, len(lessons))
	for i := range lessons {
		views = append(views, view(actor, course, &lessons[i], enrollment))
	}
	return response.Success(c, views)
}

// GetLesson handles GET /api/v1/lessons/:id
func (h *LessonHandler) GetLesson(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	lesson, course, err := h.loadLesson(c)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	if err := policy.CanViewCourse(actor, course); err != nil {
		return response.FromError(c, h.log, err)
	}

	enrollment, err := h.enrollmentOf(c, actor, course.ID)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, view(actor, course, lesson, enrollment))
}

// CreateLesson handles POST /api/v1/courses/:id/lessons
func (h *LessonHandler) CreateLesson(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	courseID, err := model.ParseCourseID(c.Params("id"))
	if err != nil {
		return response.FromError(c, h.log, err)
	}

	course, err := h.store.GetCourse(c.UserContext(), courseID)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	if err := policy.CanManageCourse(actor, course); err != nil {
		return response.FromError(c, h.log, err)
	}

	var req CreateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Check(req); err != nil {
		return response.ValidationError(c, err)
	}

	lesson, err := h.store.CreateLesson(c.UserContext(), model.Lesson{
		CourseID:    course.ID,
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		VideoURL:    req.VideoURL,
		Duration:    req.Duration,
		Order:       req.Order,
		IsPreview:   req.IsPreview,
	})
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Created(c, lesson)
}

// UpdateLesson handles PUT /api/v1/lessons/:id
func (h *LessonHandler) UpdateLesson(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	lesson, course, err := h.loadLesson(c)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	if err := policy.CanManageCourse(actor, course); err != nil {
		return response.FromError(c, h.log, err)
	}

	var req UpdateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Check(req); err != nil {
		return response.ValidationError(c, err)
	}

	updated, err := h.store.UpdateLesson(c.UserContext(), lesson.ID, model.LessonPatch{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		VideoURL:    req.VideoURL,
		Duration:    req.Duration,
		Order:       req.Order,
		IsPreview:   req.IsPreview,
	})
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, updated)
}

// DeleteLesson handles DELETE /api/v1/lessons/:id. The remaining lessons are
// renumbered from 1.
func (h *LessonHandler) DeleteLesson(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	lesson, course, err := h.loadLesson(c)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	if err := policy.CanManageCourse(actor, course); err != nil {
		return response.FromError(c, h.log, err)
	}

	if err := h.store.DeleteLesson(c.UserContext(), lesson.ID); err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.SuccessWithMessage(c, "Lesson deleted successfully", nil)
}

func (h *LessonHandler) loadLesson(c *fiber.Ctx) (*model.Lesson, *model.Course, error) {
	id, err := model.ParseLessonID(c.Params("id"))
	if err != nil {
		return nil, nil, err
	}
	lesson, err := h.store.GetLesson(c.UserContext(), id)
	if err != nil {
		return nil, nil, err
	}
	course, err := h.store.GetCourse(c.UserContext(), lesson.CourseID)
	if err != nil {
		return nil, nil, err
	}
	return lesson, course, nil
}

// enrollmentOf returns the actor's enrollment in the course, nil when none
func (h *LessonHandler) enrollmentOf(c *fiber.Ctx, actor policy.Actor, courseID model.CourseID) (*model.Enrollment, error) {
	if actor.IsAnonymous() {
		return nil, nil
	}
	enrollment, err := h.store.GetEnrollment(c.UserContext(), actor.ID, courseID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, nil
	}
	return enrollment, err
}

func view(actor policy.Actor, course *model.Course, lesson *model.Lesson, enrollment *model.Enrollment) LessonView {
	if policy.CanViewLessonContent(actor, course, lesson, enrollment) {
		return LessonView{Lesson: *lesson}
	}
	return LessonView{Lesson: lesson.Outline(), Locked: true}
}
