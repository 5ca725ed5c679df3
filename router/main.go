package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market-api/database"
	"github.com/sahilchouksey/course-market-api/handlers"
	auth_handlers "github.com/sahilchouksey/course-market-api/handlers/auth"
	course_handlers "github.com/sahilchouksey/course-market-api/handlers/course"
	enrollment_handlers "github.com/sahilchouksey/course-market-api/handlers/enrollment"
	lesson_handlers "github.com/sahilchouksey/course-market-api/handlers/lesson"
	payment_handlers "github.com/sahilchouksey/course-market-api/handlers/payment"
	review_handlers "github.com/sahilchouksey/course-market-api/handlers/review"
	user_handlers "github.com/sahilchouksey/course-market-api/handlers/user"
	"github.com/sahilchouksey/course-market-api/model"
	"github.com/sahilchouksey/course-market-api/services"
	"github.com/sahilchouksey/course-market-api/services/assets"
	"github.com/sahilchouksey/course-market-api/utils"
	"github.com/sahilchouksey/course-market-api/utils/auth"
	"github.com/sahilchouksey/course-market-api/utils/cache"
	"github.com/sahilchouksey/course-market-api/utils/logger"
	"github.com/sahilchouksey/course-market-api/utils/metrics"
	"github.com/sahilchouksey/course-market-api/utils/middleware"
)

// Dependencies carries everything the route handlers need. BruteForce,
// Uploader and Cache may be nil.
type Dependencies struct {
	Store         database.Storage
	Log           *logger.Logger
	JWT           *auth.JWTManager
	Blacklist     *auth.BlacklistService
	Cache         cache.Store
	BruteForce    *middleware.BruteForceProtection
	Enrollments   *services.EnrollmentService
	Uploader      assets.Uploader
	SecureCookies bool
	Security      middleware.SecurityConfig
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	store := deps.Store

	authMiddleware := middleware.NewAuthMiddleware(deps.JWT, deps.Blacklist, store)

	authHandler := auth_handlers.NewAuthHandler(store, deps.JWT, deps.Blacklist, deps.BruteForce, deps.Log, deps.SecureCookies)
	userHandler := user_handlers.NewUserHandler(store, deps.Blacklist, deps.Log, deps.SecureCookies)
	courseHandler := course_handlers.NewCourseHandler(store, deps.Uploader, deps.Log)
	lessonHandler := lesson_handlers.NewLessonHandler(store, deps.Log)
	enrollmentHandler := enrollment_handlers.NewEnrollmentHandler(deps.Enrollments, deps.Log)
	paymentHandler := payment_handlers.NewPaymentHandler(deps.Enrollments, deps.Log)
	reviewHandler := review_handlers.NewReviewHandler(store, deps.Log)

	// Apply security middleware
	middleware.SetupSecurity(app, deps.Security)

	// Health check and metrics (public)
	app.Get("/ping", utils.MakeHTTPHandleFunc(handlers.CheckHealth(deps.Cache), store, deps.Log))
	app.Get("/metrics", metrics.Handler())

	// API v1 group
	api := app.Group("/api/v1")

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)

	// Login with brute force protection
	if deps.BruteForce != nil {
		authGroup.Post("/login", deps.BruteForce.CheckAndRecordAttempt(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}

	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Get("/user", authMiddleware.Required(), authHandler.GetUser)

	// Account routes (protected)
	users := api.Group("/users/me", authMiddleware.Required())
	users.Put("/", userHandler.UpdateMe)
	users.Put("/password", userHandler.ChangePassword)
	users.Put("/settings/notifications", userHandler.UpdateNotificationSettings)
	users.Put("/settings/privacy", userHandler.UpdatePrivacySettings)
	users.Delete("/", userHandler.DeleteMe)

	// Courses routes
	authorOnly := authMiddleware.RequireRole(model.RoleInstructor, model.RoleAdmin)
	courses := api.Group("/courses")
	courses.Get("/", authMiddleware.Optional(), courseHandler.ListCourses)                          // Public: published catalog
	courses.Get("/instructor/mine", authMiddleware.Required(), authorOnly, courseHandler.MyCourses) // Protected: must precede /:id
	courses.Get("/:id", authMiddleware.Optional(), courseHandler.GetCourse)                         // Public: drafts only for managers
	courses.Post("/", authMiddleware.Required(), authorOnly, courseHandler.CreateCourse)            // Instructor or admin
	courses.Put("/:id", authMiddleware.Required(), courseHandler.UpdateCourse)                      // Owner or admin
	courses.Delete("/:id", authMiddleware.Required(), courseHandler.DeleteCourse)                   // Owner or admin
	courses.Post("/:id/assets/upload-url", authMiddleware.Required(), courseHandler.CreateUploadURL)

	// Lessons routes
	courses.Get("/:id/lessons", authMiddleware.Optional(), lessonHandler.ListLessons)
	courses.Post("/:id/lessons", authMiddleware.Required(), lessonHandler.CreateLesson)

	lessons := api.Group("/lessons")
	lessons.Get("/:id", authMiddleware.Optional(), lessonHandler.GetLesson)
	lessons.Put("/:id", authMiddleware.Required(), lessonHandler.UpdateLesson)
	lessons.Delete("/:id", authMiddleware.Required(), lessonHandler.DeleteLesson)

	// Enrollment routes (protected)
	courses.Post("/:id/enroll", authMiddleware.Required(), enrollmentHandler.Enroll)
	courses.Get("/:id/enrollment", authMiddleware.Required(), enrollmentHandler.GetCourseEnrollment)

	enrollments := api.Group("/enrollments", authMiddleware.Required())
	enrollments.Get("/", enrollmentHandler.ListEnrollments)
	enrollments.Put("/:id/progress", enrollmentHandler.UpdateProgress)

	api.Post("/payments/confirm", authMiddleware.Required(), paymentHandler.ConfirmPayment)

	// Reviews routes
	reviews := api.Group("/reviews")
	reviews.Get("/course/:id", authMiddleware.Optional(), reviewHandler.ListCourseReviews)
	reviews.Post("/course/:id", authMiddleware.Required(), reviewHandler.CreateReview)
	reviews.Put("/:id", authMiddleware.Required(), reviewHandler.UpdateReview)
	reviews.Delete("/:id", authMiddleware.Required(), reviewHandler.DeleteReview)
}
