package user

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/database"
	"github.com/sahilchouksey/course-market-api/model"
	"github.com/sahilchouksey/course-market-api/utils/auth"
	"github.com/sahilchouksey/course-market-api/utils/logger"
	"github.com/sahilchouksey/course-market-api/utils/metrics"
	"github.com/sahilchouksey/course-market-api/utils/middleware"
	"github.com/sahilchouksey/course-market-api/utils/response"
	"github.com/sahilchouksey/course-market-api/utils/validation"
)

// UserHandler handles the current user's account
type UserHandler struct {
	store         database.Storage
	blacklist     *auth.BlacklistService
	validator     *validation.Validator
	log           *logger.Logger
	secureCookies bool
}

// NewUserHandler creates a new user handler
func NewUserHandler(store database.Storage, blacklist *auth.BlacklistService, log *logger.Logger, secureCookies bool) *UserHandler {
	return &UserHandler{
		store:         store,
		blacklist:     blacklist,
		validator:     validation.Default(),
		log:           log,
		secureCookies: secureCookies,
	}
}

// UpdateProfileRequest represents a profile update; omitted fields are kept
type UpdateProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Headline *string `json:"headline" validate:"omitempty,max=120"`
	Bio      *string `json:"bio" validate:"omitempty,max=2000"`
	Avatar   *string `json:"avatar" validate:"omitempty,url"`
	Website  *string `json:"website" validate:"omitempty,url"`
}

// ChangePasswordRequest represents a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// UpdateMe handles PUT /api/v1/users/me
func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Check(req); err != nil {
		return response.ValidationError(c, err)
	}

	user, err := h.store.UpdateUser(c.UserContext(), userID, model.UserPatch{
		Name:     req.Name,
		Email:    req.Email,
		Headline: req.Headline,
		Bio:      req.Bio,
		Avatar:   req.Avatar,
		Website:  req.Website,
	})
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, user)
}

// ChangePassword handles PUT /api/v1/users/me/password
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Check(req); err != nil {
		return response.ValidationError(c, err)
	}

	if err := auth.VerifyPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		return response.Unauthorized(c, "Current password is incorrect")
	}

	hash, err := auth.HashPasswordWithCost(req.NewPassword, h.store.PasswordCost())
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	if _, err := h.store.UpdateUser(c.UserContext(), user.ID, model.UserPatch{Password: &hash}); err != nil {
		return response.FromError(c, h.log, err)
	}

	h.log.Info("password changed", "user_id", user.ID)
	return response.SuccessWithMessage(c, "Password updated", nil)
}

// UpdateNotificationSettings handles PUT /api/v1/users/me/settings/notifications
func (h *UserHandler) UpdateNotificationSettings(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var patch model.NotificationSettingsPatch
	if err := c.BodyParser(&patch); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.store.UpdateNotificationSettings(c.UserContext(), userID, patch)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, user.Settings.Data())
}

// UpdatePrivacySettings handles PUT /api/v1/users/me/settings/privacy
func (h *UserHandler) UpdatePrivacySettings(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var patch model.PrivacySettingsPatch
	if err := c.BodyParser(&patch); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.store.UpdatePrivacySettings(c.UserContext(), userID, patch)
	if err != nil {
		return response.FromError(c, h.log, err)
	}
	return response.Success(c, user.Settings.Data())
}

// DeleteMe handles DELETE /api/v1/users/me. Authored courses, enrollments and
// reviews go with the account.
func (h *UserHandler) DeleteMe(c *fiber.Ctx) error {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	err := h.store.DeleteUser(c.UserContext(), claims.UserID)
	metrics.ObserveCascadeDelete("user", err)
	if err != nil {
		return response.FromError(c, h.log, err)
	}

	expiresAt := time.Now().Add(24 * time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := h.blacklist.RevokeToken(c.UserContext(), claims.ID, expiresAt); err != nil {
		h.log.Warn("failed to revoke token of deleted user", "user_id", claims.UserID, "error", err.Error())
	}
	middleware.ClearTokenCookie(c, h.secureCookies)

	h.log.Info("user deleted", "user_id", claims.UserID)
	return response.SuccessWithMessage(c, "Account deleted", nil)
}
