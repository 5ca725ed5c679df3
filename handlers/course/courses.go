package course

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/database"
	"github.com/sahilchouksey/course-market-api/model"
	"github.com/sahilchouksey/course-market-api/policy"
	"github.com/sahilchouksey/course-market-api/services/assets"
	"github.com/sahilchouksey/course-market-api/utils/apperr"
	"github.com/sahilchouksey/course-market-api/utils/logger"
	"github.com/sahilchouksey/course-market-api/utils/metrics"
	"github.com/sahilchouksey/course-market-api/utils/middleware"
	"github.com/sahilchouksey/course-market-api/utils/response"
	"github.com/sahilchouksey/course-market-api/utils/validation"
)

// CourseHandler handles course-related requests
type CourseHandler struct {
	store     database.Storage
	uploader  assets.Uploader
	validator *validation.Validator
	log       *logger.Logger
}

// NewCourseHandler creates a new course handler. uploader may be nil when
// no bucket is configured.
func NewCourseHandler(store database.Storage, uploader assets.Uploader, log *logger.Logger) *CourseHandler {
	return &CourseHandler{
		store:     store,
		uploader:  uploader,
		validator: validation.Default(),
		log:       log,
	}
}

// CreateCourseRequest represents the request body for creating a course
type CreateCourseRequest struct {
	Title       string  `json:"title" validate:"required,min=3,max=120"`
	Description string  `json:"description" validate:"omitempty,max=5000"`
	Category    string  `json:"category" validate:"required,course_category"`
	Level       string  `json:"level" validate:"required,course_level"`
	Price       float64 `json:"price" validate:"gte=0"`
	Thumbnail   string  `json:"thumbnail" validate:"omitempty,url"`
	IsPublished bool    `json:"is_published"`
}

// UpdateCourseRequest represents the request body for updating a course
type UpdateCourseRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=3,max=120"`
	Description *string  `json:"description" validate:"omitempty,max=5000"`
	Category    *string  `json:"category" validate:"omitempty,course_category"`
	Level       *string  `json:"level" validate:"omitempty,course_level"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Thumbnail   *string  `json:"thumbnail" validate:"omitempty,url"`
	IsPublished *bool    `json:"is_published"`
}

// UploadURLRequest asks for a presigned asset upload
type UploadURLRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=thumbnail video"`
	ContentType string `json:"content_type" validate:"required"`
}

// CourseDetail is a course with its instructor and lesson outline
type CourseDetail struct {
	*model.Course
	Instructor model.UserSummary `json:"instructor"`
	Lessons    []model.Lesson    `json:"lessons"`
	Enrollment *model.Enrollment `json:"enrollment,omitempty"`
}

// ListCourses handles GET /api/v1/courses
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	page := response.ParsePage(c)

	filter := model.CourseFilter{
		Category:      model.Category(c.Query("category")),
		Level:         model.Level(c.Query("level")),
		Search:        strings.TrimSpace(c.Query("search")),
		InstructorID:  model.UserID(c.Query("instructor")),
		PublishedOnly: true,
		Limit:         page.Limit,
		Offset:        page.Offset(),
	}
	if filter.Category != "" && !filter.Category.Valid() {
		return response.ValidationError(c, apperr.Validationf("unknown category %q", filter.Category))
	}
	if filter.Level != "" && !filter.Level.Valid() {
		return response.ValidationError(c, apperr.Validationf("unknown level %q", filter.Level))
	}

	courses, total, err := h.store.GetCourses(c.UserContext(), filter)
	if err != nil {
		return response.FromError(c, h.log, err)
	}

	return response.Paginated(c, courses, page, total)
}

// GetCourse handles GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	course, err := h.loadCourse(c)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	if err := policy.CanViewCourse(actor, course); err != nil {
		return response.FromError(c, h.log, err)
	}

	ctx := c.UserContext()
	detail := CourseDetail{
		Course:     course,
		Instructor: model.UserSummary{ID: course.InstructorID},
	}

	instructor, err := h.store.GetUser(ctx, course.InstructorID)
	switch {
	case err == nil:
		detail.Instructor = instructor.Summary()
	case !apperr.Is(err, apperr.KindNotFound):
		return response.FromError(c, h.log, err)
	}

	lessons, err := h.store.GetLessonsForCourse(ctx, course.ID)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	detail.Lessons = make([]model.Lesson, 0, len(lessons))
	for _, l := range lessons {
		detail.Lessons = append(detail.Lessons, l.Outline())
	}

	if !actor.IsAnonymous() {
		enrollment, err := h.store.GetEnrollment(ctx, actor.ID, course.ID)
		switch {
		case err == nil:
			detail.Enrollment = enrollment
		case !apperr.Is(err, apperr.KindNotFound):
			return response.FromError(c, h.log, err)
		}
	}

	return response.Success(c, detail)
}

// CreateCourse handles POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	// the route admits instructors and admins only
	actor := middleware.GetActor(c)

	var req CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Check(req); err != nil {
		return response.ValidationError(c, err)
	}

	course, err := h.store.CreateCourse(c.UserContext(), model.Course{
		Title:        req.Title,
		Description:  req.Description,
		Category:     model.Category(req.Category),
		Level:        model.Level(req.Level),
		Price:        req.Price,
		Thumbnail:    req.Thumbnail,
		InstructorID: actor.ID,
		IsPublished:  req.IsPublished,
	})
	if err != nil {
		return response.FromError(c, h.log, err)
	}

	h.log.Info("course created", "course_id", course.ID, "instructor_id", actor.ID)
	return response.Created(c, course)
}

// UpdateCourse handles PUT /api/v1/courses/:id
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	course, err := h.loadCourse(c)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	if err := policy.CanManageCourse(actor, course); err != nil {
		return response.FromError(c, h.log, err)
	}

	var req UpdateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Check(req); err != nil {
		return response.ValidationError(c, err)
	}

	patch := model.CoursePatch{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Thumbnail:   req.Thumbnail,
		IsPublished: req.IsPublished,
	}
	if req.Category != nil {
		category := model.Category(*req.Category)
		patch.Category = &category
	}
	if req.Level != nil {
		level := model.Level(*req.Level)
		patch.Level = &level
	}

	updated, err := h.store.UpdateCourse(c.UserContext(), course.ID, patch)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, updated)
}

// DeleteCourse handles DELETE /api/v1/courses/:id. Lessons, enrollments and
// reviews of the course are removed with it.
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	course, err := h.loadCourse(c)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	if err := policy.CanManageCourse(actor, course); err != nil {
		return response.FromError(c, h.log, err)
	}

	err = h.store.DeleteCourse(c.UserContext(), course.ID)
	metrics.ObserveCascadeDelete("course", err)
	if err != nil {
		return response.FromError(c, h.log, err)
	}

	h.log.Info("course deleted", "course_id", course.ID, "actor_id", actor.ID)
	return response.SuccessWithMessage(c, "Course deleted successfully", nil)
}

// MyCourses handles GET /api/v1/courses/instructor/mine, drafts included
func (h *CourseHandler) MyCourses(c *fiber.Ctx) error {
	// the route admits instructors and admins only
	actor := middleware.GetActor(c)

	courses, err := h.store.GetCoursesByInstructor(c.UserContext(), actor.ID)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, courses)
}

// CreateUploadURL handles POST /api/v1/courses/:id/assets/upload-url
func (h *CourseHandler) CreateUploadURL(c *fiber.Ctx) error {
	if h.uploader == nil {
		return response.ServiceUnavailable(c, "Asset uploads are not configured")
	}

	actor := middleware.GetActor(c)
	course, err := h.loadCourse(c)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	if err := policy.CanManageCourse(actor, course); err != nil {
		return response.FromError(c, h.log, err)
	}

	var req UploadURLRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Check(req); err != nil {
		return response.ValidationError(c, err)
	}

	upload, err := h.uploader.PresignUpload(c.UserContext(), course.ID, assets.Kind(req.Kind), req.ContentType)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, upload)
}

func (h *CourseHandler) loadCourse(c *fiber.Ctx) (*model.Course, error) {
	id, err := model.ParseCourseID(c.Params("id"))
	if err != nil {
		return nil, err
	}
	return h.store.GetCourse(c.UserContext(), id)
}
