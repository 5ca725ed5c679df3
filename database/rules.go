package database

import (
	"strings"

	"github.com/sahilchouksey/course-market-api/model"
	"github.com/sahilchouksey/course-market-api/utils/apperr"
	"github.com/sahilchouksey/course-market-api/utils/auth"
	"github.com/sahilchouksey/course-market-api/utils/validation"
	"gorm.io/datatypes"
)

// Rules in this file are shared by both backends so they accept and reject
// exactly the same input.

func buildUser(in model.NewUser, hashCost int) (model.User, error) {
	name := validation.SanitizeString(in.Name)
	if len(name) < 2 || len(name) > 100 {
		return model.User{}, apperr.Validation("name must be between 2 and 100 characters")
	}
	email := model.NormalizeEmail(in.Email)
	if !validation.ValidateEmail(email) {
		return model.User{}, apperr.Validation("invalid email format")
	}
	role := in.Role
	if role == "" {
		role = model.RoleStudent
	}
	if !role.Valid() {
		return model.User{}, apperr.Validationf("unknown role %q", role)
	}
	hash, err := hashPassword(in.Password, hashCost)
	if err != nil {
		return model.User{}, err
	}
	return model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Profile:      in.Profile,
		Settings:     datatypes.NewJSONType(model.DefaultUserSettings()),
		IsActive:     true,
	}, nil
}

func hashPassword(password string, cost int) (string, error) {
	hash, err := auth.EnsureHashed(password, cost)
	if err == auth.ErrPasswordTooShort {
		return "", apperr.Validation(err.Error())
	}
	return hash, err
}

// applyUserPatch applies patch to u, hashing a new password when present
func applyUserPatch(u *model.User, patch model.UserPatch, hashCost int) error {
	patch.Apply(u)
	if patch.Name != nil {
		u.Name = validation.SanitizeString(u.Name)
		if len(u.Name) < 2 || len(u.Name) > 100 {
			return apperr.Validation("name must be between 2 and 100 characters")
		}
	}
	if patch.Email != nil && !validation.ValidateEmail(u.Email) {
		return apperr.Validation("invalid email format")
	}
	if !u.Role.Valid() {
		return apperr.Validationf("unknown role %q", u.Role)
	}
	if patch.Password != nil {
		hash, err := hashPassword(*patch.Password, hashCost)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
	}
	return nil
}

func checkCourse(c *model.Course) error {
	c.Title = validation.SanitizeString(c.Title)
	c.Description = strings.TrimSpace(c.Description)
	c.Price = model.RoundPrice(c.Price)
	return validation.Default().Check(c)
}

func checkLesson(l *model.Lesson) error {
	l.Title = validation.SanitizeString(l.Title)
	return validation.Default().Check(l)
}

// checkNewLessonOrder keeps a supplied position contiguous with the existing
// lessons: it must be free and at most one past the last.
func checkNewLessonOrder(existing []model.Lesson, order int) error {
	if next := NextLessonOrder(existing); order > next {
		return apperr.Validationf("lesson order must be between 1 and %d", next)
	}
	if orderTaken(existing, order, "") {
		return apperr.Conflict("a lesson already occupies that position")
	}
	return nil
}

// checkLessonMove bounds a reorder to the positions the course already has
func checkLessonMove(siblings []model.Lesson, target int) error {
	if target < 1 || target > len(siblings) {
		return apperr.Validationf("lesson order must be between 1 and %d", len(siblings))
	}
	return nil
}

func checkReview(r *model.Review) error {
	r.Comment = validation.SanitizeString(r.Comment)
	if r.Comment == "" {
		return apperr.Validation("comment must not be empty")
	}
	if len([]rune(r.Comment)) > model.MaxReviewCommentLength {
		return apperr.Validationf("comment must be at most %d characters", model.MaxReviewCommentLength)
	}
	return validation.Default().Check(r)
}

func checkProgress(progress int) error {
	if progress < 0 || progress > 100 {
		return apperr.Validation("progress must be between 0 and 100")
	}
	return nil
}

func checkPaymentTransition(from, to model.PaymentStatus) error {
	if !to.Valid() {
		return apperr.Validationf("unknown payment status %q", to)
	}
	if !from.CanTransitionTo(to) {
		return apperr.Conflict("payment status cannot change from " + string(from) + " to " + string(to))
	}
	return nil
}

// applyPaymentUpdate moves e to status. The amount is only kept on completion
// so a failed or retried checkout never reports money as paid.
func applyPaymentUpdate(e *model.Enrollment, paymentRef string, status model.PaymentStatus, amountPaid float64) error {
	if err := checkPaymentTransition(e.PaymentStatus, status); err != nil {
		return err
	}
	if e.PaymentStatus == status && status == model.PaymentCompleted {
		return nil
	}
	if amountPaid < 0 {
		return apperr.Validation("amount paid must not be negative")
	}
	e.PaymentStatus = status
	if paymentRef != "" {
		e.PaymentRef = paymentRef
	}
	e.AmountPaid = 0
	if status == model.PaymentCompleted {
		e.AmountPaid = amountPaid
	}
	return nil
}

func prepareEnrollment(e *model.Enrollment) error {
	if e.PaymentStatus == "" {
		e.PaymentStatus = model.PaymentPending
	}
	if !e.PaymentStatus.Valid() {
		return apperr.Validationf("unknown payment status %q", e.PaymentStatus)
	}
	if err := checkProgress(e.Progress); err != nil {
		return err
	}
	if e.AmountPaid < 0 || (e.PaymentStatus != model.PaymentCompleted && e.AmountPaid != 0) {
		return apperr.Validation("amount paid is only recorded for completed payments")
	}
	e.Completed = e.Progress >= 100
	return nil
}
