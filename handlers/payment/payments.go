package payment

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/services"
	"github.com/sahilchouksey/course-market-api/utils/logger"
	"github.com/sahilchouksey/course-market-api/utils/middleware"
	"github.com/sahilchouksey/course-market-api/utils/response"
	"github.com/sahilchouksey/course-market-api/utils/validation"
)

// PaymentHandler confirms card payments started by an enrollment
type PaymentHandler struct {
	enrollments *services.EnrollmentService
	validator   *validation.Validator
	log         *logger.Logger
}

func NewPaymentHandler(enrollments *services.EnrollmentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		enrollments: enrollments,
		validator:   validation.Default(),
		log:         log,
	}
}

// ConfirmPaymentRequest names the intent the client just completed
type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required,max=255"`
}

// ConfirmPayment handles POST /api/v1/payments/confirm
func (h *PaymentHandler) ConfirmPayment(c *fiber.Ctx) error {
	var req ConfirmPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Check(req); err != nil {
		return response.ValidationError(c, err)
	}

	enrollment, err := h.enrollments.ConfirmPayment(c.UserContext(), middleware.GetActor(c), req.PaymentIntentID)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, enrollment)
}
