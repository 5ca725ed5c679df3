package database

import (
	"context"
	"time"

	"github.com/sahilchouksey/course-market-api/model"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Storage defines the interface that both the durable and the in-memory store
// satisfy. The backend is chosen once at startup and passed down explicitly.
type Storage interface {
	// Lifecycle methods
	Init(ctx context.Context) error
	Close() error
	HealthCheck(ctx context.Context) error
	Backend() string
	// PasswordCost is the bcrypt cost the store hashes new passwords with.
	// Values that already carry the bcrypt marker are stored as given, so
	// callers accepting untrusted input hash it first.
	PasswordCost() int

	// Users
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, in model.NewUser) (*model.User, error)
	UpdateUser(ctx context.Context, id model.UserID, patch model.UserPatch) (*model.User, error)
	UpdateNotificationSettings(ctx context.Context, id model.UserID, patch model.NotificationSettingsPatch) (*model.User, error)
	UpdatePrivacySettings(ctx context.Context, id model.UserID, patch model.PrivacySettingsPatch) (*model.User, error)
	DeleteUser(ctx context.Context, id model.UserID) error

	// Courses
	CreateCourse(ctx context.Context, course model.Course) (*model.Course, error)
	GetCourse(ctx context.Context, id model.CourseID) (*model.Course, error)
	GetCourses(ctx context.Context, filter model.CourseFilter) ([]model.Course, int64, error)
	GetCoursesByInstructor(ctx context.Context, instructorID model.UserID) ([]model.Course, error)
	UpdateCourse(ctx context.Context, id model.CourseID, patch model.CoursePatch) (*model.Course, error)
	DeleteCourse(ctx context.Context, id model.CourseID) error

	// Lessons
	CreateLesson(ctx context.Context, lesson model.Lesson) (*model.Lesson, error)
	GetLesson(ctx context.Context, id model.LessonID) (*model.Lesson, error)
	GetLessonsForCourse(ctx context.Context, courseID model.CourseID) ([]model.Lesson, error)
	UpdateLesson(ctx context.Context, id model.LessonID, patch model.LessonPatch) (*model.Lesson, error)
	DeleteLesson(ctx context.Context, id model.LessonID) error

	// Enrollments. CreateEnrollment reports created=false when the pair already
	// existed and the stored record is returned instead.
	CreateEnrollment(ctx context.Context, enrollment model.Enrollment) (*model.Enrollment, bool, error)
	GetEnrollment(ctx context.Context, userID model.UserID, courseID model.CourseID) (*model.Enrollment, error)
	GetEnrollmentByID(ctx context.Context, id model.EnrollmentID) (*model.Enrollment, error)
	GetEnrollmentsByUser(ctx context.Context, userID model.UserID) ([]model.EnrollmentDetail, error)
	GetPendingEnrollments(ctx context.Context, enrolledBefore time.Time) ([]model.Enrollment, error)
	UpdateEnrollmentProgress(ctx context.Context, id model.EnrollmentID, progress int) (*model.Enrollment, error)
	UpdateEnrollmentPaymentStatus(ctx context.Context, id model.EnrollmentID, paymentRef string, status model.PaymentStatus, amountPaid float64) (*model.Enrollment, error)

	// Reviews
	CreateReview(ctx context.Context, review model.Review) (*model.Review, error)
	GetReview(ctx context.Context, id model.ReviewID) (*model.Review, error)
	GetReviewsByCourse(ctx context.Context, courseID model.CourseID) ([]model.ReviewDetail, error)
	UpdateReview(ctx context.Context, id model.ReviewID, patch model.ReviewPatch) (*model.Review, error)
	DeleteReview(ctx context.Context, id model.ReviewID) error

	// Aggregates
	UpdateCourseRating(ctx context.Context, courseID model.CourseID) error
	RecalculateCourseStats(ctx context.Context, courseID model.CourseID) (*model.Course, error)
	ListCourseIDs(ctx context.Context) ([]model.CourseID, error)
}
