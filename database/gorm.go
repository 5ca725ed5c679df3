package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market-api/config"
	"github.com/sahilchouksey/course-market-api/model"
	"github.com/sahilchouksey/course-market-api/utils/apperr"
	"github.com/sahilchouksey/course-market-api/utils/auth"
	"github.com/sahilchouksey/course-market-api/utils/logger"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GORMStore is the durable backend. IDs are UUID strings.
type GORMStore struct {
	db       *gorm.DB
	hashCost int
}

var _ Storage = (*GORMStore)(nil)

type GORMOption func(*GORMStore)

// WithPasswordCost overrides the bcrypt cost used when storing passwords
func WithPasswordCost(cost int) GORMOption {
	return func(s *GORMStore) {
		s.hashCost = cost
	}
}

// NewGORMStore wraps an open connection. Open it with TranslateError so
// unique violations surface as gorm.ErrDuplicatedKey.
func NewGORMStore(db *gorm.DB, opts ...GORMOption) *GORMStore {
	s := &GORMStore{db: db, hashCost: auth.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartGORM initializes a GORM connection to PostgreSQL
func StartGORM(env *config.EnvironmentVariable, log *logger.Logger) (*GORMStore, error) {
	gormLog := gormlogger.Default.LogMode(gormlogger.Info)
	if env.IsProduction() {
		gormLog = gormlogger.Default.LogMode(gormlogger.Warn)
	}

	db, err := gorm.Open(postgres.Open(env.PostgresDSN()), &gorm.Config{
		Logger:         gormLog,
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres with gorm: %w", err)
	}

	// Get underlying *sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("connected to postgres with gorm", "host", env.DB_HOST, "database", env.DB_NAME)
	return NewGORMStore(db), nil
}

// Init runs AutoMigrate for every marketplace table
func (s *GORMStore) Init(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.Lesson{},
		&model.Enrollment{},
		&model.Review{},
	)
	if err != nil {
		return fmt.Errorf("failed to run automigrate: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HealthCheck verifies the database connection is alive
func (s *GORMStore) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Backend returns the dialect name, "postgres" in production
func (s *GORMStore) Backend() string {
	return s.db.Dialector.Name()
}

func (s *GORMStore) PasswordCost() int { return s.hashCost }

func newUUID() string {
	return uuid.New().String()
}

func lookupErr(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity)
	}
	return fmt.Errorf("failed to load %s: %w", entity, err)
}

func (s *GORMStore) exists(ctx context.Context, table interface{}, id string, entity string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(table).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to load %s: %w", entity, err)
	}
	if count == 0 {
		return apperr.NotFound(entity)
	}
	return nil
}

// ==================== Users ====================

func (s *GORMStore) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "user")
	}
	return &user, nil
}

func (s *GORMStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", model.NormalizeEmail(email)).Error; err != nil {
		return nil, lookupErr(err, "user")
	}
	return &user, nil
}

func (s *GORMStore) emailTaken(ctx context.Context, email string, except model.UserID) (bool, error) {
	var count int64
	query := s.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email)
	if except != "" {
		query = query.Where("id <> ?", except)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}

func (s *GORMStore) CreateUser(ctx context.Context, in model.NewUser) (*model.User, error) {
	user, err := buildUser(in, s.hashCost)
	if err != nil {
		return nil, err
	}
	taken, err := s.emailTaken(ctx, user.Email, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("email is already registered")
	}

	user.ID = model.UserID(newUUID())
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("email is already registered")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// userEditableColumns excludes settings, which have their own update path
var userEditableColumns = []string{
	"name", "email", "password_hash", "role",
	"profile_headline", "profile_bio", "profile_avatar", "profile_website",
	"payment_customer_ref", "is_active", "updated_at",
}

func (s *GORMStore) UpdateUser(ctx context.Context, id model.UserID, patch model.UserPatch) (*model.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyUserPatch(user, patch, s.hashCost); err != nil {
		return nil, err
	}
	if patch.Email != nil {
		taken, err := s.emailTaken(ctx, user.Email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict("email is already registered")
		}
	}
	if err := s.db.WithContext(ctx).Model(user).Select(userEditableColumns).Updates(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("email is already registered")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (s *GORMStore) UpdateNotificationSettings(ctx context.Context, id model.UserID, patch model.NotificationSettingsPatch) (*model.User, error) {
	return s.updateSettings(ctx, id, func(settings *model.UserSettings) {
		patch.Apply(&settings.Notifications)
	})
}

func (s *GORMStore) UpdatePrivacySettings(ctx context.Context, id model.UserID, patch model.PrivacySettingsPatch) (*model.User, error) {
	return s.updateSettings(ctx, id, func(settings *model.UserSettings) {
		patch.Apply(&settings.Privacy)
	})
}

func (s *GORMStore) updateSettings(ctx context.Context, id model.UserID, mutate func(*model.UserSettings)) (*model.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	settings := user.Settings.Data()
	mutate(&settings)
	user.Settings = datatypes.NewJSONType(settings)
	if err := s.db.WithContext(ctx).Model(user).Update("settings", user.Settings).Error; err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return user, nil
}

// DeleteUser removes the user's courses (with their own cascade), enrollments
// and reviews, then the user. Steps run in order and the first failure aborts.
func (s *GORMStore) DeleteUser(ctx context.Context, id model.UserID) error {
	if err := s.exists(ctx, &model.User{}, string(id), "user"); err != nil {
		return err
	}
	db := s.db.WithContext(ctx)

	var owned []model.CourseID
	if err := db.Model(&model.Course{}).Where("instructor_id = ?", id).Pluck("id", &owned).Error; err != nil {
		return fmt.Errorf("failed to list courses of user %s: %w", id, err)
	}
	for _, courseID := range owned {
		if err := s.deleteCourse(ctx, courseID); err != nil {
			return fmt.Errorf("failed to cascade user %s: %w", id, err)
		}
	}

	var enrollments []model.Enrollment
	if err := db.Where("user_id = ?", id).Find(&enrollments).Error; err != nil {
		return fmt.Errorf("failed to list enrollments of user %s: %w", id, err)
	}
	for _, e := range enrollments {
		if err := db.Delete(&model.Enrollment{}, "id = ?", e.ID).Error; err != nil {
			return fmt.Errorf("failed to delete enrollment %s: %w", e.ID, err)
		}
		if err := db.Model(&model.Course{}).
			Where("id = ? AND total_students > 0", e.CourseID).
			UpdateColumn("total_students", gorm.Expr("total_students - 1")).Error; err != nil {
			return fmt.Errorf("failed to update students of course %s: %w", e.CourseID, err)
		}
	}

	var reviewed []model.CourseID
	if err := db.Model(&model.Review{}).Where("user_id = ?", id).Distinct().Pluck("course_id", &reviewed).Error; err != nil {
		return fmt.Errorf("failed to list reviews of user %s: %w", id, err)
	}
	if err := db.Where("user_id = ?", id).Delete(&model.Review{}).Error; err != nil {
		return fmt.Errorf("failed to delete reviews of user %s: %w", id, err)
	}
	for _, courseID := range reviewed {
		if err := s.UpdateCourseRating(ctx, courseID); err != nil {
			return fmt.Errorf("failed to cascade user %s: %w", id, err)
		}
	}

	if err := db.Delete(&model.User{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	return nil
}

// ==================== Courses ====================

func (s *GORMStore) CreateCourse(ctx context.Context, course model.Course) (*model.Course, error) {
	if err := checkCourse(&course); err != nil {
		return nil, err
	}
	if err := s.exists(ctx, &model.User{}, string(course.InstructorID), "instructor"); err != nil {
		return nil, err
	}
	course.ID = model.CourseID(newUUID())
	course.TotalLessons = 0
	course.TotalDuration = 0
	course.AverageRating = 0
	course.NumReviews = 0
	course.TotalStudents = 0
	if err := s.db.WithContext(ctx).Create(&course).Error; err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}
	return &course, nil
}

func (s *GORMStore) GetCourse(ctx context.Context, id model.CourseID) (*model.Course, error) {
	var course model.Course
	if err := s.db.WithContext(ctx).First(&course, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "course")
	}
	return &course, nil
}

func (s *GORMStore) GetCourses(ctx context.Context, filter model.CourseFilter) ([]model.Course, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.Course{})

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Level != "" {
		query = query.Where("level = ?", filter.Level)
	}
	if filter.InstructorID != "" {
		query = query.Where("instructor_id = ?", filter.InstructorID)
	}
	if filter.PublishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Search)); q != "" {
		pattern := "%" + q + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}

	query = query.Order("created_at DESC")
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	courses := make([]model.Course, 0)
	if err := query.Find(&courses).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch courses: %w", err)
	}
	return courses, total, nil
}

func (s *GORMStore) GetCoursesByInstructor(ctx context.Context, instructorID model.UserID) ([]model.Course, error) {
	courses, _, err := s.GetCourses(ctx, model.CourseFilter{InstructorID: instructorID})
	return courses, err
}

// courseEditableColumns leaves out the counters the store maintains, so an
// edit never writes back a stale aggregate
var courseEditableColumns = []string{"title", "description", "category", "price", "level", "thumbnail", "is_published", "updated_at"}

func (s *GORMStore) UpdateCourse(ctx context.Context, id model.CourseID, patch model.CoursePatch) (*model.Course, error) {
	course, err := s.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(course)
	if err := checkCourse(course); err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(course).Select(courseEditableColumns).Updates(course).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}
	// reload so counters changed by concurrent writers come back current
	return s.GetCourse(ctx, id)
}

func (s *GORMStore) DeleteCourse(ctx context.Context, id model.CourseID) error {
	if err := s.exists(ctx, &model.Course{}, string(id), "course"); err != nil {
		return err
	}
	return s.deleteCourse(ctx, id)
}

func (s *GORMStore) deleteCourse(ctx context.Context, id model.CourseID) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("course_id = ?", id).Delete(&model.Lesson{}).Error; err != nil {
		return fmt.Errorf("failed to delete lessons of course %s: %w", id, err)
	}
	if err := db.Where("course_id = ?", id).Delete(&model.Enrollment{}).Error; err != nil {
		return fmt.Errorf("failed to delete enrollments of course %s: %w", id, err)
	}
	if err := db.Where("course_id = ?", id).Delete(&model.Review{}).Error; err != nil {
		return fmt.Errorf("failed to delete reviews of course %s: %w", id, err)
	}
	if err := db.Delete(&model.Course{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete course %s: %w", id, err)
	}
	return nil
}

func (s *GORMStore) ListCourseIDs(ctx context.Context) ([]model.CourseID, error) {
	var ids []model.CourseID
	if err := s.db.WithContext(ctx).Model(&model.Course{}).Order("created_at ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return ids, nil
}

// ==================== Lessons ====================

func (s *GORMStore) lessonsOf(ctx context.Context, courseID model.CourseID) ([]model.Lesson, error) {
	lessons := make([]model.Lesson, 0)
	err := s.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("lesson_order ASC").
		Find(&lessons).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lessons: %w", err)
	}
	return lessons, nil
}

func (s *GORMStore) CreateLesson(ctx context.Context, lesson model.Lesson) (*model.Lesson, error) {
	if err := s.exists(ctx, &model.Course{}, string(lesson.CourseID), "course"); err != nil {
		return nil, err
	}
	existing, err := s.lessonsOf(ctx, lesson.CourseID)
	if err != nil {
		return nil, err
	}
	if lesson.Order == 0 {
		lesson.Order = NextLessonOrder(existing)
	}
	if err := checkLesson(&lesson); err != nil {
		return nil, err
	}
	if err := checkNewLessonOrder(existing, lesson.Order); err != nil {
		return nil, err
	}

	lesson.ID = model.LessonID(newUUID())
	db := s.db.WithContext(ctx)
	if err := db.Create(&lesson).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("a lesson already occupies that position")
		}
		return nil, fmt.Errorf("failed to create lesson: %w", err)
	}

	err = db.Model(&model.Course{}).Where("id = ?", lesson.CourseID).Updates(map[string]interface{}{
		"total_lessons":  gorm.Expr("total_lessons + ?", 1),
		"total_duration": gorm.Expr("total_duration + ?", lesson.Duration),
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update course stats: %w", err)
	}
	return &lesson, nil
}

func (s *GORMStore) GetLesson(ctx context.Context, id model.LessonID) (*model.Lesson, error) {
	var lesson model.Lesson
	if err := s.db.WithContext(ctx).First(&lesson, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "lesson")
	}
	return &lesson, nil
}

func (s *GORMStore) GetLessonsForCourse(ctx context.Context, courseID model.CourseID) ([]model.Lesson, error) {
	if err := s.exists(ctx, &model.Course{}, string(courseID), "course"); err != nil {
		return nil, err
	}
	return s.lessonsOf(ctx, courseID)
}

// lessonContentColumns are the lesson columns an edit may write. Order is
// persisted separately so siblings can shift with it.
var lessonContentColumns = []string{"title", "description", "content", "video_url", "duration", "is_preview", "updated_at"}

func (s *GORMStore) UpdateLesson(ctx context.Context, id model.LessonID, patch model.LessonPatch) (*model.Lesson, error) {
	lesson, err := s.GetLesson(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *lesson
	patch.Apply(lesson)
	if err := checkLesson(lesson); err != nil {
		return nil, err
	}
	var moves []OrderChange
	if lesson.Order != before.Order {
		siblings, err := s.lessonsOf(ctx, lesson.CourseID)
		if err != nil {
			return nil, err
		}
		if err := checkLessonMove(siblings, lesson.Order); err != nil {
			return nil, err
		}
		moves = MoveLesson(siblings, id, lesson.Order)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(lesson).Select(lessonContentColumns).Updates(lesson).Error; err != nil {
			return fmt.Errorf("failed to update lesson: %w", err)
		}
		if err := applyOrderChanges(tx, moves); err != nil {
			return err
		}
		if delta := lesson.Duration - before.Duration; delta != 0 {
			err := tx.Model(&model.Course{}).Where("id = ?", lesson.CourseID).
				UpdateColumn("total_duration", gorm.Expr("total_duration + ?", delta)).Error
			if err != nil {
				return fmt.Errorf("failed to update course duration: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lesson, nil
}

// applyOrderChanges parks every moving lesson on a negative position first so
// the (course_id, lesson_order) unique index never sees two lessons at once.
func applyOrderChanges(tx *gorm.DB, changes []OrderChange) error {
	for _, change := range changes {
		err := tx.Model(&model.Lesson{}).Where("id = ?", change.LessonID).UpdateColumn("lesson_order", -change.Order).Error
		if err != nil {
			return fmt.Errorf("failed to reorder lesson %s: %w", change.LessonID, err)
		}
	}
	for _, change := range changes {
		err := tx.Model(&model.Lesson{}).Where("id = ?", change.LessonID).UpdateColumn("lesson_order", change.Order).Error
		if err != nil {
			return fmt.Errorf("failed to reorder lesson %s: %w", change.LessonID, err)
		}
	}
	return nil
}

// DeleteLesson removes the lesson, closes the gap in the ordering and
// recomputes the course's duration from the lessons that remain.
func (s *GORMStore) DeleteLesson(ctx context.Context, id model.LessonID) error {
	lesson, err := s.GetLesson(ctx, id)
	if err != nil {
		return err
	}
	db := s.db.WithContext(ctx)
	if err := db.Delete(&model.Lesson{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete lesson: %w", err)
	}

	remaining, err := s.lessonsOf(ctx, lesson.CourseID)
	if err != nil {
		return err
	}
	for _, change := range ReorderLessons(remaining) {
		err := db.Model(&model.Lesson{}).Where("id = ?", change.LessonID).Update("lesson_order", change.Order).Error
		if err != nil {
			return fmt.Errorf("failed to reorder lesson %s: %w", change.LessonID, err)
		}
	}

	err = db.Model(&model.Course{}).Where("id = ?", lesson.CourseID).Updates(map[string]interface{}{
		"total_lessons":  gorm.Expr("CASE WHEN total_lessons > 0 THEN total_lessons - 1 ELSE 0 END"),
		"total_duration": SumDurations(remaining),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update course stats: %w", err)
	}
	return nil
}

// ==================== Enrollments ====================

func (s *GORMStore) CreateEnrollment(ctx context.Context, enrollment model.Enrollment) (*model.Enrollment, bool, error) {
	if err := prepareEnrollment(&enrollment); err != nil {
		return nil, false, err
	}
	if err := s.exists(ctx, &model.User{}, string(enrollment.UserID), "user"); err != nil {
		return nil, false, err
	}
	if err := s.exists(ctx, &model.Course{}, string(enrollment.CourseID), "course"); err != nil {
		return nil, false, err
	}

	existing, err := s.GetEnrollment(ctx, enrollment.UserID, enrollment.CourseID)
	if err == nil {
		return existing, false, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, false, err
	}

	enrollment.ID = model.EnrollmentID(newUUID())
	enrollment.EnrolledAt = time.Now().UTC()
	enrollment.LastAccessedAt = enrollment.EnrolledAt
	db := s.db.WithContext(ctx)
	if err := db.Create(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost the race against a concurrent double submit
			existing, lookupErr := s.GetEnrollment(ctx, enrollment.UserID, enrollment.CourseID)
			if lookupErr != nil {
				return nil, false, lookupErr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to create enrollment: %w", err)
	}

	err = db.Model(&model.Course{}).Where("id = ?", enrollment.CourseID).
		UpdateColumn("total_students", gorm.Expr("total_students + ?", 1)).Error
	if err != nil {
		return nil, false, fmt.Errorf("failed to update course students: %w", err)
	}
	return &enrollment, true, nil
}

func (s *GORMStore) GetEnrollment(ctx context.Context, userID model.UserID, courseID model.CourseID) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enrollment).Error
	if err != nil {
		return nil, lookupErr(err, "enrollment")
	}
	return &enrollment, nil
}

func (s *GORMStore) GetEnrollmentByID(ctx context.Context, id model.EnrollmentID) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	if err := s.db.WithContext(ctx).First(&enrollment, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "enrollment")
	}
	return &enrollment, nil
}

func (s *GORMStore) GetEnrollmentsByUser(ctx context.Context, userID model.UserID) ([]model.EnrollmentDetail, error) {
	db := s.db.WithContext(ctx)
	var enrollments []model.Enrollment
	if err := db.Where("user_id = ?", userID).Order("enrolled_at DESC").Find(&enrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch enrollments: %w", err)
	}
	details := make([]model.EnrollmentDetail, 0, len(enrollments))
	if len(enrollments) == 0 {
		return details, nil
	}

	courseIDs := make([]model.CourseID, 0, len(enrollments))
	for _, e := range enrollments {
		courseIDs = append(courseIDs, e.CourseID)
	}
	var courses []model.Course
	if err := db.Where("id IN ?", courseIDs).Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch enrolled courses: %w", err)
	}
	courseByID := make(map[model.CourseID]model.Course, len(courses))
	instructorIDs := make([]model.UserID, 0, len(courses))
	for _, c := range courses {
		courseByID[c.ID] = c
		instructorIDs = append(instructorIDs, c.InstructorID)
	}
	var instructors []model.User
	if err := db.Where("id IN ?", instructorIDs).Find(&instructors).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch instructors: %w", err)
	}
	instructorByID := make(map[model.UserID]model.User, len(instructors))
	for _, u := range instructors {
		instructorByID[u.ID] = u
	}

	for _, e := range enrollments {
		course, ok := courseByID[e.CourseID]
		if !ok {
			continue
		}
		detail := model.EnrollmentDetail{Enrollment: e, Course: course.Summary()}
		if instructor, ok := instructorByID[course.InstructorID]; ok {
			detail.Instructor = instructor.Summary()
		} else {
			detail.Instructor = model.UserSummary{ID: course.InstructorID}
		}
		details = append(details, detail)
	}
	return details, nil
}

func (s *GORMStore) GetPendingEnrollments(ctx context.Context, enrolledBefore time.Time) ([]model.Enrollment, error) {
	pending := make([]model.Enrollment, 0)
	err := s.db.WithContext(ctx).
		Where("payment_status = ? AND enrolled_at < ?", model.PaymentPending, enrolledBefore).
		Order("enrolled_at ASC").
		Find(&pending).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending enrollments: %w", err)
	}
	return pending, nil
}

func (s *GORMStore) UpdateEnrollmentProgress(ctx context.Context, id model.EnrollmentID, progress int) (*model.Enrollment, error) {
	if err := checkProgress(progress); err != nil {
		return nil, err
	}
	enrollment, err := s.GetEnrollmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	enrollment.Progress = progress
	enrollment.Completed = progress >= 100
	enrollment.LastAccessedAt = time.Now().UTC()
	err = s.db.WithContext(ctx).Model(enrollment).Updates(map[string]interface{}{
		"progress":         enrollment.Progress,
		"completed":        enrollment.Completed,
		"last_accessed_at": enrollment.LastAccessedAt,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}
	return enrollment, nil
}

func (s *GORMStore) UpdateEnrollmentPaymentStatus(ctx context.Context, id model.EnrollmentID, paymentRef string, status model.PaymentStatus, amountPaid float64) (*model.Enrollment, error) {
	enrollment, err := s.GetEnrollmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := enrollment.PaymentStatus
	if err := applyPaymentUpdate(enrollment, paymentRef, status, amountPaid); err != nil {
		return nil, err
	}
	// the status guard turns a concurrent transition into a conflict
	result := s.db.WithContext(ctx).Model(&model.Enrollment{}).
		Where("id = ? AND payment_status = ?", id, previous).
		Updates(map[string]interface{}{
			"payment_status": enrollment.PaymentStatus,
			"payment_ref":    enrollment.PaymentRef,
			"amount_paid":    enrollment.AmountPaid,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperr.Conflict("payment status changed concurrently")
	}
	return enrollment, nil
}

// ==================== Reviews ====================

func (s *GORMStore) CreateReview(ctx context.Context, review model.Review) (*model.Review, error) {
	if err := checkReview(&review); err != nil {
		return nil, err
	}
	if err := s.exists(ctx, &model.User{}, string(review.UserID), "user"); err != nil {
		return nil, err
	}
	if err := s.exists(ctx, &model.Course{}, string(review.CourseID), "course"); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&model.Review{}).
		Where("user_id = ? AND course_id = ?", review.UserID, review.CourseID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing review: %w", err)
	}
	if count > 0 {
		return nil, apperr.Conflict("you have already reviewed this course")
	}

	review.ID = model.ReviewID(newUUID())
	if err := db.Create(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("you have already reviewed this course")
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	if err := s.UpdateCourseRating(ctx, review.CourseID); err != nil {
		return nil, err
	}
	return &review, nil
}

func (s *GORMStore) GetReview(ctx context.Context, id model.ReviewID) (*model.Review, error) {
	var review model.Review
	if err := s.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, lookupErr(err, "review")
	}
	return &review, nil
}

func (s *GORMStore) GetReviewsByCourse(ctx context.Context, courseID model.CourseID) ([]model.ReviewDetail, error) {
	if err := s.exists(ctx, &model.Course{}, string(courseID), "course"); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	var reviews []model.Review
	if err := db.Where("course_id = ?", courseID).Order("created_at DESC").Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch reviews: %w", err)
	}
	details := make([]model.ReviewDetail, 0, len(reviews))
	if len(reviews) == 0 {
		return details, nil
	}

	authorIDs := make([]model.UserID, 0, len(reviews))
	for _, r := range reviews {
		authorIDs = append(authorIDs, r.UserID)
	}
	var authors []model.User
	if err := db.Where("id IN ?", authorIDs).Find(&authors).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch review authors: %w", err)
	}
	authorByID := make(map[model.UserID]model.User, len(authors))
	for _, u := range authors {
		authorByID[u.ID] = u
	}
	for _, r := range reviews {
		detail := model.ReviewDetail{Review: r, Author: model.UserSummary{ID: r.UserID}}
		if author, ok := authorByID[r.UserID]; ok {
			detail.Author = author.Summary()
		}
		details = append(details, detail)
	}
	return details, nil
}

func (s *GORMStore) UpdateReview(ctx context.Context, id model.ReviewID, patch model.ReviewPatch) (*model.Review, error) {
	review, err := s.GetReview(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(review)
	if err := checkReview(review); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(review).Error; err != nil {
		return nil, fmt.Errorf("failed to update review: %w", err)
	}
	if err := s.UpdateCourseRating(ctx, review.CourseID); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *GORMStore) DeleteReview(ctx context.Context, id model.ReviewID) error {
	review, err := s.GetReview(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&model.Review{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return s.UpdateCourseRating(ctx, review.CourseID)
}

// ==================== Aggregates ====================

// UpdateCourseRating recomputes the average in Go so both backends round identically
func (s *GORMStore) UpdateCourseRating(ctx context.Context, courseID model.CourseID) error {
	if err := s.exists(ctx, &model.Course{}, string(courseID), "course"); err != nil {
		return err
	}
	db := s.db.WithContext(ctx)
	var ratings []int
	if err := db.Model(&model.Review{}).Where("course_id = ?", courseID).Pluck("rating", &ratings).Error; err != nil {
		return fmt.Errorf("failed to load ratings: %w", err)
	}
	avg, count := AverageRating(ratings)
	err := db.Model(&model.Course{}).Where("id = ?", courseID).Updates(map[string]interface{}{
		"average_rating": avg,
		"num_reviews":    count,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update course rating: %w", err)
	}
	return nil
}

func (s *GORMStore) RecalculateCourseStats(ctx context.Context, courseID model.CourseID) (*model.Course, error) {
	if err := s.exists(ctx, &model.Course{}, string(courseID), "course"); err != nil {
		return nil, err
	}
	lessons, err := s.lessonsOf(ctx, courseID)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	var students int64
	if err := db.Model(&model.Enrollment{}).Where("course_id = ?", courseID).Count(&students).Error; err != nil {
		return nil, fmt.Errorf("failed to count students: %w", err)
	}
	err = db.Model(&model.Course{}).Where("id = ?", courseID).Updates(map[string]interface{}{
		"total_lessons":  len(lessons),
		"total_duration": SumDurations(lessons),
		"total_students": students,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update course stats: %w", err)
	}
	if err := s.UpdateCourseRating(ctx, courseID); err != nil {
		return nil, err
	}
	return s.GetCourse(ctx, courseID)
}
