package services

import (
	"context"
	"testing"
	"time"

	"github.com/sahilchouksey/course-market-api/database"
	"github.com/sahilchouksey/course-market-api/model"
	"github.com/sahilchouksey/course-market-api/policy"
	"github.com/sahilchouksey/course-market-api/services/payment"
	"github.com/sahilchouksey/course-market-api/utils/apperr"
	"github.com/sahilchouksey/course-market-api/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type enrollmentFixture struct {
	ctx        context.Context
	store      *database.MemoryStore
	sandbox    *payment.SandboxProvider
	svc        *EnrollmentService
	instructor policy.Actor
	student    policy.Actor
	paid       *model.Course
	free       *model.Course
}

func newEnrollmentFixture(t *testing.T) *enrollmentFixture {
	t.Helper()
	ctx := context.Background()
	store := database.NewMemoryStore()
	sandbox := payment.NewSandboxProvider(false)

	instructor, err := store.CreateUser(ctx, model.NewUser{Name: "Ada", Email: "ada@example.com", Password: "password123", Role: model.RoleInstructor})
	require.NoError(t, err)
	student, err := store.CreateUser(ctx, model.NewUser{Name: "Sam", Email: "sam@example.com", Password: "password123"})
	require.NoError(t, err)

	paid, err := store.CreateCourse(ctx, model.Course{
		Title: "Paid course", Category: model.CategoryDevelopment, Level: model.LevelBeginner,
		Price: 49.99, InstructorID: instructor.ID, IsPublished: true,
	})
	require.NoError(t, err)
	free, err := store.CreateCourse(ctx, model.Course{
		Title: "Free course", Category: model.CategoryDesign, Level: model.LevelBeginner,
		InstructorID: instructor.ID, IsPublished: true,
	})
	require.NoError(t, err)

	return &enrollmentFixture{
		ctx:        ctx,
		store:      store,
		sandbox:    sandbox,
		svc:        NewEnrollmentService(store, sandbox, "usd", logger.Nop()),
		instructor: policy.Actor{ID: instructor.ID, Role: instructor.Role},
		student:    policy.Actor{ID: student.ID, Role: student.Role},
		paid:       paid,
		free:       free,
	}
}

func TestEnrollFreeCourseCompletesImmediately(t *testing.T) {
	f := newEnrollmentFixture(t)

	result, err := f.svc.Enroll(f.ctx, f.student, f.free.ID)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.False(t, result.RequiresPayment)
	assert.Equal(t, model.PaymentCompleted, result.Enrollment.PaymentStatus)
	assert.Zero(t, result.Enrollment.AmountPaid)

	course, err := f.store.GetCourse(f.ctx, f.free.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, course.TotalStudents)
}

func TestEnrollIsIdempotent(t *testing.T) {
	f := newEnrollmentFixture(t)

	first, err := f.svc.Enroll(f.ctx, f.student, f.paid.ID)
	require.NoError(t, err)
	second, err := f.svc.Enroll(f.ctx, f.student, f.paid.ID)
	require.NoError(t, err)

	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Equal(t, first.Enrollment.ID, second.Enrollment.ID)
	assert.Equal(t, first.ClientSecret, second.ClientSecret)

	enrollments, err := f.store.GetEnrollmentsByUser(f.ctx, f.student.ID)
	require.NoError(t, err)
	assert.Len(t, enrollments, 1)

	course, _ := f.store.GetCourse(f.ctx, f.paid.ID)
	assert.Equal(t, 1, course.TotalStudents)
}

func TestPaidCheckoutSucceeds(t *testing.T) {
	f := newEnrollmentFixture(t)

	result, err := f.svc.Enroll(f.ctx, f.student, f.paid.ID)
	require.NoError(t, err)
	assert.True(t, result.RequiresPayment)
	assert.NotEmpty(t, result.ClientSecret)
	assert.Equal(t, model.PaymentPending, result.Enrollment.PaymentStatus)

	ref := result.Enrollment.PaymentRef
	require.NoError(t, f.sandbox.Succeed(ref))

	enrollment, err := f.svc.ConfirmPayment(f.ctx, f.student, ref)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, enrollment.PaymentStatus)
	assert.InDelta(t, 49.99, enrollment.AmountPaid, 0.001)

	// confirming twice is harmless
	again, err := f.svc.ConfirmPayment(f.ctx, f.student, ref)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, again.PaymentStatus)
}

func TestPaidCheckoutFailsAndRetries(t *testing.T) {
	f := newEnrollmentFixture(t)

	result, err := f.svc.Enroll(f.ctx, f.student, f.paid.ID)
	require.NoError(t, err)
	firstRef := result.Enrollment.PaymentRef
	require.NoError(t, f.sandbox.Fail(firstRef))

	enrollment, err := f.svc.ConfirmPayment(f.ctx, f.student, firstRef)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentFailed, enrollment.PaymentStatus)

	retry, err := f.svc.Enroll(f.ctx, f.student, f.paid.ID)
	require.NoError(t, err)
	assert.False(t, retry.Created)
	assert.True(t, retry.RequiresPayment)
	assert.Equal(t, model.PaymentPending, retry.Enrollment.PaymentStatus)
	assert.NotEqual(t, firstRef, retry.Enrollment.PaymentRef)
	assert.Equal(t, enrollment.ID, retry.Enrollment.ID)

	// the stale intent no longer matches the checkout
	_, err = f.svc.ConfirmPayment(f.ctx, f.student, firstRef)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestConfirmPaymentLeavesProcessingPending(t *testing.T) {
	f := newEnrollmentFixture(t)

	result, err := f.svc.Enroll(f.ctx, f.student, f.paid.ID)
	require.NoError(t, err)

	enrollment, err := f.svc.ConfirmPayment(f.ctx, f.student, result.Enrollment.PaymentRef)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, enrollment.PaymentStatus)
}

func TestConfirmPaymentRejectsOtherUsers(t *testing.T) {
	f := newEnrollmentFixture(t)

	result, err := f.svc.Enroll(f.ctx, f.student, f.paid.ID)
	require.NoError(t, err)
	require.NoError(t, f.sandbox.Succeed(result.Enrollment.PaymentRef))

	_, err = f.svc.ConfirmPayment(f.ctx, f.instructor, result.Enrollment.PaymentRef)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	_, err = f.svc.ConfirmPayment(f.ctx, f.student, "pi_unknown")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestAutoConfirmSandboxCompletesOnEnroll(t *testing.T) {
	f := newEnrollmentFixture(t)
	f.svc = NewEnrollmentService(f.store, payment.NewSandboxProvider(true), "usd", logger.Nop())

	result, err := f.svc.Enroll(f.ctx, f.student, f.paid.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, result.Enrollment.PaymentStatus)
	assert.False(t, result.RequiresPayment)
}

func TestEnrollRejectsOwnAndUnpublishedCourses(t *testing.T) {
	f := newEnrollmentFixture(t)

	_, err := f.svc.Enroll(f.ctx, f.instructor, f.paid.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	unpublished := false
	_, err = f.store.UpdateCourse(f.ctx, f.free.ID, model.CoursePatch{IsPublished: &unpublished})
	require.NoError(t, err)
	_, err = f.svc.Enroll(f.ctx, f.student, f.free.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Enroll(f.ctx, f.student, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdateProgress(t *testing.T) {
	f := newEnrollmentFixture(t)

	result, err := f.svc.Enroll(f.ctx, f.student, f.free.ID)
	require.NoError(t, err)
	id := result.Enrollment.ID

	enrollment, err := f.svc.UpdateProgress(f.ctx, f.student, id, 40)
	require.NoError(t, err)
	assert.Equal(t, 40, enrollment.Progress)
	assert.False(t, enrollment.Completed)

	enrollment, err = f.svc.UpdateProgress(f.ctx, f.student, id, 100)
	require.NoError(t, err)
	assert.True(t, enrollment.Completed)

	_, err = f.svc.UpdateProgress(f.ctx, f.student, id, 101)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.UpdateProgress(f.ctx, f.instructor, id, 50)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
}

func TestUpdateProgressRequiresPayment(t *testing.T) {
	f := newEnrollmentFixture(t)

	result, err := f.svc.Enroll(f.ctx, f.student, f.paid.ID)
	require.NoError(t, err)

	_, err = f.svc.UpdateProgress(f.ctx, f.student, result.Enrollment.ID, 10)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestExpireStalePending(t *testing.T) {
	f := newEnrollmentFixture(t)

	result, err := f.svc.Enroll(f.ctx, f.student, f.paid.ID)
	require.NoError(t, err)

	expired, err := f.svc.ExpireStalePending(f.ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, expired)

	f.svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	expired, err = f.svc.ExpireStalePending(f.ctx, DefaultPendingTTL)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	enrollment, err := f.store.GetEnrollmentByID(f.ctx, result.Enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentFailed, enrollment.PaymentStatus)
}

func TestExpireStalePendingCompletesLatePayments(t *testing.T) {
	f := newEnrollmentFixture(t)

	result, err := f.svc.Enroll(f.ctx, f.student, f.paid.ID)
	require.NoError(t, err)
	require.NoError(t, f.sandbox.Succeed(result.Enrollment.PaymentRef))

	f.svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	expired, err := f.svc.ExpireStalePending(f.ctx, DefaultPendingTTL)
	require.NoError(t, err)
	assert.Zero(t, expired)

	enrollment, err := f.store.GetEnrollmentByID(f.ctx, result.Enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCompleted, enrollment.PaymentStatus)
}
