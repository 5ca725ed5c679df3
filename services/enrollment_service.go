package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sahilchouksey/course-market-api/database"
	"github.com/sahilchouksey/course-market-api/model"
	"github.com/sahilchouksey/course-market-api/policy"
	"github.com/sahilchouksey/course-market-api/services/payment"
	"github.com/sahilchouksey/course-market-api/utils/apperr"
	"github.com/sahilchouksey/course-market-api/utils/logger"
	"github.com/sahilchouksey/course-market-api/utils/metrics"
	"github.com/sahilchouksey/course-market-api/utils/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultPendingTTL is how long a checkout may stay pending before it expires
const DefaultPendingTTL = 24 * time.Hour

// EnrollmentService runs the enrollment and checkout flow
type EnrollmentService struct {
	store    database.Storage
	payments payment.Provider
	currency string
	log      *logger.Logger
	now      func() time.Time
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(store database.Storage, payments payment.Provider, currency string, log *logger.Logger) *EnrollmentService {
	if currency == "" {
		currency = "usd"
	}
	return &EnrollmentService{
		store:    store,
		payments: payments,
		currency: currency,
		log:      log,
		now:      time.Now,
	}
}

// EnrollResult is returned by Enroll. ClientSecret is set while a card
// payment is still outstanding.
type EnrollResult struct {
	Enrollment      *model.Enrollment `json:"enrollment"`
	Created         bool              `json:"created"`
	RequiresPayment bool              `json:"requires_payment"`
	ClientSecret    string            `json:"client_secret,omitempty"`
}

// Enroll enrolls the actor in a published course. Repeated calls return the
// existing enrollment; a failed checkout is restarted with a new intent.
func (s *EnrollmentService) Enroll(ctx context.Context, actor policy.Actor, courseID model.CourseID) (*EnrollResult, error) {
	ctx, span := tracing.Start(ctx, "enrollment.enroll",
		attribute.String("user.id", string(actor.ID)),
		attribute.String("course.id", string(courseID)),
	)
	result, err := s.enroll(ctx, actor, courseID)
	if err == nil {
		span.SetAttributes(
			attribute.Bool("enrollment.created", result.Created),
			attribute.String("enrollment.payment_status", string(result.Enrollment.PaymentStatus)),
		)
	}
	tracing.End(span, err)
	return result, err
}

func (s *EnrollmentService) enroll(ctx context.Context, actor policy.Actor, courseID model.CourseID) (*EnrollResult, error) {
	course, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanEnroll(actor, course); err != nil {
		return nil, err
	}

	existing, err := s.store.GetEnrollment(ctx, actor.ID, courseID)
	switch {
	case err == nil:
		return s.resume(ctx, actor, course, existing)
	case !apperr.Is(err, apperr.KindNotFound):
		return nil, err
	}

	if course.IsFree() {
		enrollment, created, err := s.store.CreateEnrollment(ctx, model.Enrollment{
			UserID:        actor.ID,
			CourseID:      course.ID,
			PaymentStatus: model.PaymentCompleted,
		})
		if err != nil {
			return nil, err
		}
		if created {
			metrics.ObserveEnrollment(string(model.PaymentCompleted))
			s.log.Info("enrolled in free course", "user_id", actor.ID, "course_id", course.ID)
		}
		return &EnrollResult{Enrollment: enrollment, Created: created}, nil
	}

	intent, err := s.createIntent(ctx, actor, course)
	if err != nil {
		return nil, err
	}
	enrollment, created, err := s.store.CreateEnrollment(ctx, model.Enrollment{
		UserID:        actor.ID,
		CourseID:      course.ID,
		PaymentStatus: model.PaymentPending,
		PaymentRef:    intent.ID,
	})
	if err != nil {
		return nil, err
	}
	if !created {
		// a concurrent request won; its intent is the one that counts
		return s.resume(ctx, actor, course, enrollment)
	}
	metrics.ObserveEnrollment(string(model.PaymentPending))
	s.log.Info("checkout started", "user_id", actor.ID, "course_id", course.ID, "payment_ref", intent.ID)

	return s.settle(ctx, course, enrollment, intent, true)
}

// resume returns an existing enrollment, restarting a failed checkout
func (s *EnrollmentService) resume(ctx context.Context, actor policy.Actor, course *model.Course, enrollment *model.Enrollment) (*EnrollResult, error) {
	switch enrollment.PaymentStatus {
	case model.PaymentCompleted:
		return &EnrollResult{Enrollment: enrollment}, nil

	case model.PaymentPending:
		result := &EnrollResult{Enrollment: enrollment, RequiresPayment: true}
		if enrollment.PaymentRef == "" {
			return result, nil
		}
		intent, err := s.payments.RetrievePaymentIntent(ctx, enrollment.PaymentRef)
		if err != nil {
			s.log.Warn("failed to reload payment intent", "payment_ref", enrollment.PaymentRef, "error", err.Error())
			return result, nil
		}
		return s.settle(ctx, course, enrollment, intent, false)
	}

	// failed: retry goes back to pending, free courses complete right away
	if course.IsFree() {
		retried, err := s.store.UpdateEnrollmentPaymentStatus(ctx, enrollment.ID, "", model.PaymentPending, 0)
		if err != nil {
			return nil, err
		}
		done, err := s.store.UpdateEnrollmentPaymentStatus(ctx, retried.ID, "", model.PaymentCompleted, 0)
		if err != nil {
			return nil, err
		}
		return &EnrollResult{Enrollment: done}, nil
	}

	intent, err := s.createIntent(ctx, actor, course)
	if err != nil {
		return nil, err
	}
	retried, err := s.store.UpdateEnrollmentPaymentStatus(ctx, enrollment.ID, intent.ID, model.PaymentPending, 0)
	if err != nil {
		return nil, err
	}
	s.log.Info("checkout restarted", "user_id", actor.ID, "course_id", course.ID, "payment_ref", intent.ID)
	return s.settle(ctx, course, retried, intent, false)
}

// settle applies an intent that has already reached a final state
func (s *EnrollmentService) settle(ctx context.Context, course *model.Course, enrollment *model.Enrollment, intent *payment.Intent, created bool) (*EnrollResult, error) {
	switch {
	case intent.Succeeded():
		done, err := s.store.UpdateEnrollmentPaymentStatus(ctx, enrollment.ID, intent.ID, model.PaymentCompleted, centsToAmount(intent.AmountCents))
		if err != nil {
			return nil, err
		}
		metrics.ObserveEnrollment(string(model.PaymentCompleted))
		return &EnrollResult{Enrollment: done, Created: created}, nil
	case intent.Failed():
		failed, err := s.store.UpdateEnrollmentPaymentStatus(ctx, enrollment.ID, intent.ID, model.PaymentFailed, 0)
		if err != nil {
			return nil, err
		}
		metrics.ObserveEnrollment(string(model.PaymentFailed))
		return &EnrollResult{Enrollment: failed, Created: created}, nil
	}
	return &EnrollResult{
		Enrollment:      enrollment,
		Created:         created,
		RequiresPayment: true,
		ClientSecret:    intent.ClientSecret,
	}, nil
}

func (s *EnrollmentService) createIntent(ctx context.Context, actor policy.Actor, course *model.Course) (*payment.Intent, error) {
	intent, err := s.payments.CreatePaymentIntent(ctx, course.PriceInCents(), s.currency, map[string]string{
		payment.MetaUserID:   string(actor.ID),
		payment.MetaCourseID: string(course.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start checkout with %s: %w", s.payments.Name(), err)
	}
	return intent, nil
}

// ConfirmPayment checks an intent with the gateway and moves the matching
// enrollment to completed or failed. Intents still in flight leave it pending.
func (s *EnrollmentService) ConfirmPayment(ctx context.Context, actor policy.Actor, intentID string) (*model.Enrollment, error) {
	ctx, span := tracing.Start(ctx, "enrollment.confirm_payment",
		attribute.String("user.id", string(actor.ID)),
		attribute.String("payment.provider", s.payments.Name()),
	)
	enrollment, err := s.confirmPayment(ctx, actor, intentID)
	tracing.End(span, err)
	return enrollment, err
}

func (s *EnrollmentService) confirmPayment(ctx context.Context, actor policy.Actor, intentID string) (*model.Enrollment, error) {
	if intentID == "" {
		return nil, apperr.Validation("payment intent id is required")
	}
	intent, err := s.payments.RetrievePaymentIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}

	userID := model.UserID(intent.Metadata[payment.MetaUserID])
	courseID := model.CourseID(intent.Metadata[payment.MetaCourseID])
	if userID == "" || courseID == "" {
		return nil, apperr.Validation("payment intent is not linked to an enrollment")
	}
	if userID != actor.ID {
		return nil, apperr.Authorization("payment intent belongs to another user")
	}

	enrollment, err := s.store.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrollment.PaymentRef != intent.ID {
		return nil, apperr.Conflict("payment intent does not match the current checkout")
	}
	if enrollment.PaymentStatus != model.PaymentPending {
		return enrollment, nil
	}

	course, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	result, err := s.settle(ctx, course, enrollment, intent, false)
	if err != nil {
		return nil, err
	}
	s.log.Info("payment confirmed", "user_id", userID, "course_id", courseID, "status", result.Enrollment.PaymentStatus)
	return result.Enrollment, nil
}

// UpdateProgress records lesson progress for the actor's own paid enrollment
func (s *EnrollmentService) UpdateProgress(ctx context.Context, actor policy.Actor, id model.EnrollmentID, progress int) (*model.Enrollment, error) {
	enrollment, err := s.store.GetEnrollmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if enrollment.UserID != actor.ID {
		return nil, apperr.Authorization("you can only update your own progress")
	}
	if !enrollment.HasAccess() {
		return nil, apperr.Validation("complete payment before tracking progress")
	}
	return s.store.UpdateEnrollmentProgress(ctx, id, progress)
}

// GetEnrollment returns the actor's enrollment in a course
func (s *EnrollmentService) GetEnrollment(ctx context.Context, actor policy.Actor, courseID model.CourseID) (*model.Enrollment, error) {
	enrollment, err := s.store.GetEnrollment(ctx, actor.ID, courseID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanAccessEnrollment(actor, enrollment); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// ListEnrollments returns the actor's enrollments with course details
func (s *EnrollmentService) ListEnrollments(ctx context.Context, actor policy.Actor) ([]model.EnrollmentDetail, error) {
	return s.store.GetEnrollmentsByUser(ctx, actor.ID)
}

// ExpireStalePending fails checkouts left pending for longer than olderThan.
// Intents that succeeded in the meantime are completed instead.
func (s *EnrollmentService) ExpireStalePending(ctx context.Context, olderThan time.Duration) (expired int, err error) {
	ctx, span := tracing.Start(ctx, "enrollment.expire_stale_pending")
	defer func() {
		span.SetAttributes(attribute.Int("enrollment.expired", expired))
		tracing.End(span, err)
	}()

	pending, err := s.store.GetPendingEnrollments(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}

	for i := range pending {
		enrollment := &pending[i]
		if enrollment.PaymentRef != "" {
			intent, err := s.payments.RetrievePaymentIntent(ctx, enrollment.PaymentRef)
			if err == nil && intent.Succeeded() {
				if _, err := s.store.UpdateEnrollmentPaymentStatus(ctx, enrollment.ID, intent.ID, model.PaymentCompleted, centsToAmount(intent.AmountCents)); err != nil {
					return expired, err
				}
				continue
			}
		}
		if _, err := s.store.UpdateEnrollmentPaymentStatus(ctx, enrollment.ID, "", model.PaymentFailed, 0); err != nil {
			return expired, fmt.Errorf("failed to expire enrollment %s: %w", enrollment.ID, err)
		}
		expired++
	}
	return expired, nil
}

func centsToAmount(cents int64) float64 {
	return float64(cents) / 100
}
