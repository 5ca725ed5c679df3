package review

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

// ReviewHandler handles course reviews
type ReviewHandler struct {
	store     database.Storage
	validator *validation.Validator
	log       *logger.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(store database.Storage, log *logger.Logger) *ReviewHandler {
	return &ReviewHandler{
		store:     store,
		validator: validation.Default(),
		log:       log,
	}
}

// CreateReviewRequest represents a new review
type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"required,max=1000"`
}

// UpdateReviewRequest represents a review edit
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Comment *string `json:"comment" validate:"omitempty,min=1,max=1000"`
}

// ListCourseReviews handles GET /api/v1/reviews/course/:id
func (h *ReviewHandler) ListCourseReviews(c *fiber.Ctx) error {
	course, err := h.loadCourse(c)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	if err := policy.CanViewCourse(middleware.GetActor(c), course); err != nil {
		return response.FromError(c, h.log, err)
	}

	reviews, err := h.store.GetReviewsByCourse(c.UserContext(), course.ID)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, reviews)
}

// CreateReview handles POST /api/v1/reviews/course/:id
func (h *ReviewHandler) CreateReview(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	course, err := h.loadCourse(c)
	if err != nil {
		return response.FromError(c, h.log, err)
	}

	var req CreateReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Check(req); err != nil {
		return response.ValidationError(c, err)
	}

	ctx := c.UserContext()
	enrollment, err := h.store.GetEnrollment(ctx, actor.ID, course.ID)
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return response.FromError(c, h.log, err)
	}
	if err := policy.CanReview(actor, course, enrollment); err != nil {
		return response.FromError(c, h.log, err)
	}

	review, err := h.store.CreateReview(ctx, model.Review{
		UserID:   actor.ID,
		CourseID: course.ID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Created(c, review)
}

// UpdateReview handles PUT /api/v1/reviews/:id
func (h *ReviewHandler) UpdateReview(c *fiber.Ctx) error {
	review, err := h.loadReview(c)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	if err := policy.CanModifyReview(middleware.GetActor(c), review); err != nil {
		return response.FromError(c, h.log, err)
	}

	var req UpdateReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Check(req); err != nil {
		return response.ValidationError(c, err)
	}

	updated, err := h.store.UpdateReview(c.UserContext(), review.ID, model.ReviewPatch{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, updated)
}

// DeleteReview handles DELETE /api/v1/reviews/:id
func (h *ReviewHandler) DeleteReview(c *fiber.Ctx) error {
	review, err := h.loadReview(c)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	course, err := h.store.GetCourse(c.UserContext(), review.CourseID)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	if err := policy.CanDeleteReview(middleware.GetActor(c), review, course); err != nil {
		return response.FromError(c, h.log, err)
	}

	if err := h.store.DeleteReview(c.UserContext(), review.ID); err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.SuccessWithMessage(c, "Review deleted successfully", nil)
}

func (h *ReviewHandler) loadCourse(c *fiber.Ctx) (*model.Course, error) {
	id, err := model.ParseCourseID(c.Params("id"))
	if err != nil {
		return nil, err
	}
	return h.store.GetCourse(c.UserContext(), id)
}

func (h *ReviewHandler) loadReview(c *fiber.Ctx) (*model.Review, error) {
	id, err := model.ParseReviewID(c.Params("id"))
	if err != nil {
		return nil, err
	}
	return h.store.GetReview(c.UserContext(), id)
}
