package enrollment

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/model"
	"github.com/sahilchouksey/course-market-api/services"
	"github.com/sahilchouksey/course-market-api/utils/logger"
	"github.com/sahilchouksey/course-market-api/utils/middleware"
	"github.com/sahilchouksey/course-market-api/utils/response"
	"github.com/sahilchouksey/course-market-api/utils/validation"
)

// EnrollmentHandler handles enrollment requests
type EnrollmentHandler struct {
	enrollments *services.EnrollmentService
	validator   *validation.Validator
	log         *logger.Logger
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(enrollments *services.EnrollmentService, log *logger.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		enrollments: enrollments,
		validator:   validation.Default(),
		log:         log,
	}
}

// UpdateProgressRequest sets the completion percentage
type UpdateProgressRequest struct {
	Progress *int `json:"progress" validate:"required,gte=0,lte=100"`
}

// Enroll handles POST /api/v1/courses/:id/enroll. A repeat call returns the
// existing enrollment with 200 instead of 201.
func (h *EnrollmentHandler) Enroll(c *fiber.Ctx) error {
	courseID, err := model.ParseCourseID(c.Params("id"))
	if err != nil {
		return response.FromError(c, h.log, err)
	}

	result, err := h.enrollments.Enroll(c.UserContext(), middleware.GetActor(c), courseID)
	if err != nil {
		return response.FromError(c, h.log, err)
	}

	if result.Created {
		return response.Created(c, result)
	}
	return response.Success(c, result)
}

// ListEnrollments handles GET /api/v1/enrollments
func (h *EnrollmentHandler) ListEnrollments(c *fiber.Ctx) error {
	enrollments, err := h.enrollments.ListEnrollments(c.UserContext(), middleware.GetActor(c))
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, enrollments)
}

// GetCourseEnrollment handles GET /api/v1/courses/:id/enrollment
func (h *EnrollmentHandler) GetCourseEnrollment(c *fiber.Ctx) error {
	courseID, err := model.ParseCourseID(c.Params("id"))
	if err != nil {
		return response.FromError(c, h.log, err)
	}

	enrollment, err := h.enrollments.GetEnrollment(c.UserContext(), middleware.GetActor(c), courseID)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, enrollment)
}

// UpdateProgress handles PUT /api/v1/enrollments/:id/progress
func (h *EnrollmentHandler) UpdateProgress(c *fiber.Ctx) error {
	id, err := model.ParseEnrollmentID(c.Params("id"))
	if err != nil {
		return response.FromError(c, h.log, err)
	}

	var req UpdateProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Check(req); err != nil {
		return response.ValidationError(c, err)
	}

	enrollment, err := h.enrollments.UpdateProgress(c.UserContext(), middleware.GetActor(c), id, *req.Progress)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, enrollment)
}
