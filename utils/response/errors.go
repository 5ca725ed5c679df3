package response

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/utils/apperr"
	"github.com/sahilchouksey/course-market-api/utils/logger"
)

// FromError writes the envelope matching err's kind. Unclassified errors are
// logged with request context and answered with a generic message.
func FromError(c *fiber.Ctx, log *logger.Logger, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return Error(c, fe.Code, fe.Message, codeForStatus(fe.Code))
	}

	msg := apperr.MessageOf(err)
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return Error(c, fiber.StatusBadRequest, msg, "VALIDATION_ERROR")
	case apperr.KindNotFound:
		return NotFound(c, msg)
	case apperr.KindConflict:
		return Conflict(c, msg)
	case apperr.KindAuthentication:
		return Unauthorized(c, msg)
	case apperr.KindAuthorization:
		return Forbidden(c, msg)
	case apperr.KindBackendUnavailable:
		logError(c, log, err)
		return ServiceUnavailable(c, "")
	}

	logError(c, log, err)
	return InternalServerError(c, "")
}

// ErrorHandler is installed as fiber's ErrorHandler so errors returned from
// handlers and middleware share one envelope.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return FromError(c, log, err)
	}
}

func logError(c *fiber.Ctx, log *logger.Logger, err error) {
	if log == nil {
		return
	}
	requestID, _ := c.Locals("requestid").(string)
	log.Error("request failed",
		"method", c.Method(),
		"path", c.Path(),
		"request_id", requestID,
		"error", err.Error(),
	)
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusForbidden:
		return "FORBIDDEN"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusConflict:
		return "CONFLICT"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case fiber.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	case fiber.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	}
	if status >= 500 {
		return "INTERNAL_ERROR"
	}
	return "ERROR"
}
