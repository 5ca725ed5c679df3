package database

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sahilchouksey/course-market-api/model"
	"github.com/sahilchouksey/course-market-api/utils/apperr"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

// MemoryStore is the in-process fallback backend. IDs are decimal strings
// taken from one monotonically increasing counter. Every read returns a copy,
// so callers can never mutate stored state.
type MemoryStore struct {
	mu       sync.RWMutex
	seq      int64
	hashCost int

	users       map[model.UserID]*model.User
	courses     map[model.CourseID]*model.Course
	lessons     map[model.LessonID]*model.Lesson
	enrollments map[model.EnrollmentID]*model.Enrollment
	reviews     map[model.ReviewID]*model.Review
}

var _ Storage = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store. Passwords are hashed at bcrypt.MinCost.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hashCost:    bcrypt.MinCost,
		users:       make(map[model.UserID]*model.User),
		courses:     make(map[model.CourseID]*model.Course),
		lessons:     make(map[model.LessonID]*model.Lesson),
		enrollments: make(map[model.EnrollmentID]*model.Enrollment),
		reviews:     make(map[model.ReviewID]*model.Review),
	}
}

func (s *MemoryStore) Init(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) HealthCheck(ctx context.Context) error { return nil }

func (s *MemoryStore) Backend() string { return BackendMemory }

func (s *MemoryStore) PasswordCost() int { return s.hashCost }

func (s *MemoryStore) nextID() string {
	s.seq++
	return strconv.FormatInt(s.seq, 10)
}

// seqOf recovers the creation sequence from a memory ID, used as a tie-breaker
func seqOf(id string) int64 {
	n, _ := strconv.ParseInt(id, 10, 64)
	return n
}

func now() time.Time {
	return time.Now().UTC()
}

// ==================== Users ====================

func (s *MemoryStore) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = model.NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("user")
}

func (s *MemoryStore) emailTakenLocked(email string, except model.UserID) bool {
	for _, u := range s.users {
		if u.Email == email && u.ID != except {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateUser(ctx context.Context, in model.NewUser) (*model.User, error) {
	user, err := buildUser(in, s.hashCost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTakenLocked(user.Email, "") {
		return nil, apperr.Conflict("email is already registered")
	}
	user.ID = model.UserID(s.nextID())
	user.CreatedAt = now()
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = &user
	cp := user
	return &cp, nil
}

func (s *MemoryStore) UpdateUser(ctx context.Context, id model.UserID, patch model.UserPatch) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	updated := *stored
	if err := applyUserPatch(&updated, patch, s.hashCost); err != nil {
		return nil, err
	}
	if patch.Email != nil && s.emailTakenLocked(updated.Email, id) {
		return nil, apperr.Conflict("email is already registered")
	}
	updated.UpdatedAt = now()
	*stored = updated
	return &updated, nil
}

func (s *MemoryStore) UpdateNotificationSettings(ctx context.Context, id model.UserID, patch model.NotificationSettingsPatch) (*model.User, error) {
	return s.updateSettings(id, func(settings *model.UserSettings) {
		patch.Apply(&settings.Notifications)
	})
}

func (s *MemoryStore) UpdatePrivacySettings(ctx context.Context, id model.UserID, patch model.PrivacySettingsPatch) (*model.User, error) {
	return s.updateSettings(id, func(settings *model.UserSettings) {
		patch.Apply(&settings.Privacy)
	})
}

func (s *MemoryStore) updateSettings(id model.UserID, mutate func(*model.UserSettings)) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	settings := stored.Settings.Data()
	mutate(&settings)
	stored.Settings = datatypes.NewJSONType(settings)
	stored.UpdatedAt = now()
	cp := *stored
	return &cp, nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return apperr.NotFound("user")
	}

	for cid, c := range s.courses {
		if c.InstructorID == id {
			s.deleteCourseLocked(cid)
		}
	}

	for eid, e := range s.enrollments {
		if e.UserID != id {
			continue
		}
		if c, ok := s.courses[e.CourseID]; ok {
			c.TotalStudents = decrementFloor(c.TotalStudents)
		}
		delete(s.enrollments, eid)
	}

	touched := make(map[model.CourseID]struct{})
	for rid, r := range s.reviews {
		if r.UserID == id {
			touched[r.CourseID] = struct{}{}
			delete(s.reviews, rid)
		}
	}
	for cid := range touched {
		s.updateRatingLocked(cid)
	}

	delete(s.users, id)
	return nil
}

// ==================== Courses ====================

func (s *MemoryStore) CreateCourse(ctx context.Context, course model.Course) (*model.Course, error) {
	if err := checkCourse(&course); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[course.InstructorID]; !ok {
		return nil, apperr.NotFound("instructor")
	}
	course.ID = model.CourseID(s.nextID())
	course.CreatedAt = now()
	course.UpdatedAt = course.CreatedAt
	course.TotalLessons = 0
	course.TotalDuration = 0
	course.AverageRating = 0
	course.NumReviews = 0
	course.TotalStudents = 0
	s.courses[course.ID] = &course
	cp := course
	return &cp, nil
}

func (s *MemoryStore) GetCourse(ctx context.Context, id model.CourseID) (*model.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, apperr.NotFound("course")
	}
	cp := *c
	return &cp, nil
}

func matchesCourse(c *model.Course, f model.CourseFilter) bool {
	if f.Category != "" && c.Category != f.Category {
		return false
	}
	if f.Level != "" && c.Level != f.Level {
		return false
	}
	if f.InstructorID != "" && c.InstructorID != f.InstructorID {
		return false
	}
	if f.PublishedOnly && !c.IsPublished {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(c.Title), q) && !strings.Contains(strings.ToLower(c.Description), q) {
			return false
		}
	}
	return true
}

func sortCoursesNewestFirst(courses []model.Course) {
	sort.SliceStable(courses, func(i, j int) bool {
		if !courses[i].CreatedAt.Equal(courses[j].CreatedAt) {
			return courses[i].CreatedAt.After(courses[j].CreatedAt)
		}
		return seqOf(string(courses[i].ID)) > seqOf(string(courses[j].ID))
	})
}

func (s *MemoryStore) GetCourses(ctx context.Context, filter model.CourseFilter) ([]model.Course, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]model.Course, 0)
	for _, c := range s.courses {
		if matchesCourse(c, filter) {
			matched = append(matched, *c)
		}
	}
	sortCoursesNewestFirst(matched)
	total := int64(len(matched))

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []model.Course{}, total, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (s *MemoryStore) GetCoursesByInstructor(ctx context.Context, instructorID model.UserID) ([]model.Course, error) {
	courses, _, err := s.GetCourses(ctx, model.CourseFilter{InstructorID: instructorID})
	return courses, err
}

func (s *MemoryStore) UpdateCourse(ctx context.Context, id model.CourseID, patch model.CoursePatch) (*model.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.courses[id]
	if !ok {
		return nil, apperr.NotFound("course")
	}
	updated := *stored
	patch.Apply(&updated)
	if err := checkCourse(&updated); err != nil {
		return nil, err
	}
	updated.UpdatedAt = now()
	*stored = updated
	return &updated, nil
}

func (s *MemoryStore) DeleteCourse(ctx context.Context, id model.CourseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[id]; !ok {
		return apperr.NotFound("course")
	}
	s.deleteCourseLocked(id)
	return nil
}

func (s *MemoryStore) deleteCourseLocked(id model.CourseID) {
	for lid, l := range s.lessons {
		if l.CourseID == id {
			delete(s.lessons, lid)
		}
	}
	for eid, e := range s.enrollments {
		if e.CourseID == id {
			delete(s.enrollments, eid)
		}
	}
	for rid, r := range s.reviews {
		if r.CourseID == id {
			delete(s.reviews, rid)
		}
	}
	delete(s.courses, id)
}

func (s *MemoryStore) ListCourseIDs(ctx context.Context) ([]model.CourseID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]model.CourseID, 0, len(s.courses))
	for id := range s.courses {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return seqOf(string(ids[i])) < seqOf(string(ids[j])) })
	return ids, nil
}

// ==================== Lessons ====================

func (s *MemoryStore) lessonsOfLocked(courseID model.CourseID) []model.Lesson {
	lessons := make([]model.Lesson, 0)
	for _, l := range s.lessons {
		if l.CourseID == courseID {
			lessons = append(lessons, *l)
		}
	}
	SortLessons(lessons)
	return lessons
}

func (s *MemoryStore) CreateLesson(ctx context.Context, lesson model.Lesson) (*model.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	course, ok := s.courses[lesson.CourseID]
	if !ok {
		return nil, apperr.NotFound("course")
	}
	existing := s.lessonsOfLocked(lesson.CourseID)
	if lesson.Order == 0 {
		lesson.Order = NextLessonOrder(existing)
	}
	if err := checkLesson(&lesson); err != nil {
		return nil, err
	}
	if err := checkNewLessonOrder(existing, lesson.Order); err != nil {
		return nil, err
	}

	lesson.ID = model.LessonID(s.nextID())
	lesson.CreatedAt = now()
	lesson.UpdatedAt = lesson.CreatedAt
	s.lessons[lesson.ID] = &lesson

	course.TotalLessons++
	course.TotalDuration += lesson.Duration
	course.UpdatedAt = now()

	cp := lesson
	return &cp, nil
}

func (s *MemoryStore) GetLesson(ctx context.Context, id model.LessonID) (*model.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lessons[id]
	if !ok {
		return nil, apperr.NotFound("lesson")
	}
	cp := *l
	return &cp, nil
}

func (s *MemoryStore) GetLessonsForCourse(ctx context.Context, courseID model.CourseID) ([]model.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.courses[courseID]; !ok {
		return nil, apperr.NotFound("course")
	}
	return s.lessonsOfLocked(courseID), nil
}

func (s *MemoryStore) UpdateLesson(ctx context.Context, id model.LessonID, patch model.LessonPatch) (*model.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.lessons[id]
	if !ok {
		return nil, apperr.NotFound("lesson")
	}
	updated := *stored
	patch.Apply(&updated)
	if err := checkLesson(&updated); err != nil {
		return nil, err
	}
	var moves []OrderChange
	if updated.Order != stored.Order {
		siblings := s.lessonsOfLocked(stored.CourseID)
		if err := checkLessonMove(siblings, updated.Order); err != nil {
			return nil, err
		}
		moves = MoveLesson(siblings, id, updated.Order)
	}
	for _, change := range moves {
		if change.LessonID == id {
			continue
		}
		s.lessons[change.LessonID].Order = change.Order
		s.lessons[change.LessonID].UpdatedAt = now()
	}

	if delta := updated.Duration - stored.Duration; delta != 0 {
		if course, ok := s.courses[stored.CourseID]; ok {
			course.TotalDuration += delta
			course.UpdatedAt = now()
		}
	}
	updated.UpdatedAt = now()
	*stored = updated
	return &updated, nil
}

func (s *MemoryStore) DeleteLesson(ctx context.Context, id model.LessonID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.lessons[id]
	if !ok {
		return apperr.NotFound("lesson")
	}
	courseID := stored.CourseID
	delete(s.lessons, id)

	remaining := s.lessonsOfLocked(courseID)
	for _, change := range ReorderLessons(remaining) {
		s.lessons[change.LessonID].Order = change.Order
		s.lessons[change.LessonID].UpdatedAt = now()
	}

	if course, ok := s.courses[courseID]; ok {
		course.TotalLessons = decrementFloor(course.TotalLessons)
		course.TotalDuration = SumDurations(remaining)
		course.UpdatedAt = now()
	}
	return nil
}

// ==================== Enrollments ====================

func (s *MemoryStore) findEnrollmentLocked(userID model.UserID, courseID model.CourseID) *model.Enrollment {
	for _, e := range s.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			return e
		}
	}
	return nil
}

func (s *MemoryStore) CreateEnrollment(ctx context.Context, enrollment model.Enrollment) (*model.Enrollment, bool, error) {
	if err := prepareEnrollment(&enrollment); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[enrollment.UserID]; !ok {
		return nil, false, apperr.NotFound("user")
	}
	course, ok := s.courses[enrollment.CourseID]
	if !ok {
		return nil, false, apperr.NotFound("course")
	}
	if existing := s.findEnrollmentLocked(enrollment.UserID, enrollment.CourseID); existing != nil {
		cp := *existing
		return &cp, false, nil
	}

	enrollment.ID = model.EnrollmentID(s.nextID())
	enrollment.EnrolledAt = now()
	enrollment.LastAccessedAt = enrollment.EnrolledAt
	enrollment.UpdatedAt = enrollment.EnrolledAt
	s.enrollments[enrollment.ID] = &enrollment
	course.TotalStudents++

	cp := enrollment
	return &cp, true, nil
}

func (s *MemoryStore) GetEnrollment(ctx context.Context, userID model.UserID, courseID model.CourseID) (*model.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.findEnrollmentLocked(userID, courseID)
	if e == nil {
		return nil, apperr.NotFound("enrollment")
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) GetEnrollmentByID(ctx context.Context, id model.EnrollmentID) (*model.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.enrollments[id]
	if !ok {
		return nil, apperr.NotFound("enrollment")
	}
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) GetEnrollmentsByUser(ctx context.Context, userID model.UserID) ([]model.EnrollmentDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	details := make([]model.EnrollmentDetail, 0)
	for _, e := range s.enrollments {
		if e.UserID != userID {
			continue
		}
		course, ok := s.courses[e.CourseID]
		if !ok {
			continue
		}
		detail := model.EnrollmentDetail{Enrollment: *e, Course: course.Summary()}
		if instructor, ok := s.users[course.InstructorID]; ok {
			detail.Instructor = instructor.Summary()
		} else {
			detail.Instructor = model.UserSummary{ID: course.InstructorID}
		}
		details = append(details, detail)
	}
	sort.SliceStable(details, func(i, j int) bool {
		if !details[i].EnrolledAt.Equal(details[j].EnrolledAt) {
			return details[i].EnrolledAt.After(details[j].EnrolledAt)
		}
		return seqOf(string(details[i].ID)) > seqOf(string(details[j].ID))
	})
	return details, nil
}

func (s *MemoryStore) GetPendingEnrollments(ctx context.Context, enrolledBefore time.Time) ([]model.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pending := make([]model.Enrollment, 0)
	for _, e := range s.enrollments {
		if e.PaymentStatus == model.PaymentPending && e.EnrolledAt.Before(enrolledBefore) {
			pending = append(pending, *e)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return seqOf(string(pending[i].ID)) < seqOf(string(pending[j].ID)) })
	return pending, nil
}

func (s *MemoryStore) UpdateEnrollmentProgress(ctx context.Context, id model.EnrollmentID, progress int) (*model.Enrollment, error) {
	if err := checkProgress(progress); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enrollments[id]
	if !ok {
		return nil, apperr.NotFound("enrollment")
	}
	e.Progress = progress
	e.Completed = progress >= 100
	e.LastAccessedAt = now()
	e.UpdatedAt = e.LastAccessedAt
	cp := *e
	return &cp, nil
}

func (s *MemoryStore) UpdateEnrollmentPaymentStatus(ctx context.Context, id model.EnrollmentID, paymentRef string, status model.PaymentStatus, amountPaid float64) (*model.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enrollments[id]
	if !ok {
		return nil, apperr.NotFound("enrollment")
	}
	if err := applyPaymentUpdate(e, paymentRef, status, amountPaid); err != nil {
		return nil, err
	}
	e.UpdatedAt = now()
	cp := *e
	return &cp, nil
}

// ==================== Reviews ====================

func (s *MemoryStore) CreateReview(ctx context.Context, review model.Review) (*model.Review, error) {
	if err := checkReview(&review); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[review.UserID]; !ok {
		return nil, apperr.NotFound("user")
	}
	if _, ok := s.courses[review.CourseID]; !ok {
		return nil, apperr.NotFound("course")
	}
	for _, r := range s.reviews {
		if r.UserID == review.UserID && r.CourseID == review.CourseID {
			return nil, apperr.Conflict("you have already reviewed this course")
		}
	}

	review.ID = model.ReviewID(s.nextID())
	review.CreatedAt = now()
	review.UpdatedAt = review.CreatedAt
	s.reviews[review.ID] = &review
	s.updateRatingLocked(review.CourseID)

	cp := review
	return &cp, nil
}

func (s *MemoryStore) GetReview(ctx context.Context, id model.ReviewID) (*model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[id]
	if !ok {
		return nil, apperr.NotFound("review")
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) GetReviewsByCourse(ctx context.Context, courseID model.CourseID) ([]model.ReviewDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.courses[courseID]; !ok {
		return nil, apperr.NotFound("course")
	}
	details := make([]model.ReviewDetail, 0)
	for _, r := range s.reviews {
		if r.CourseID != courseID {
			continue
		}
		detail := model.ReviewDetail{Review: *r, Author: model.UserSummary{ID: r.UserID}}
		if author, ok := s.users[r.UserID]; ok {
			detail.Author = author.Summary()
		}
		details = append(details, detail)
	}
	sort.SliceStable(details, func(i, j int) bool {
		if !details[i].CreatedAt.Equal(details[j].CreatedAt) {
			return details[i].CreatedAt.After(details[j].CreatedAt)
		}
		return seqOf(string(details[i].ID)) > seqOf(string(details[j].ID))
	})
	return details, nil
}

func (s *MemoryStore) UpdateReview(ctx context.Context, id model.ReviewID, patch model.ReviewPatch) (*model.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.reviews[id]
	if !ok {
		return nil, apperr.NotFound("review")
	}
	updated := *stored
	patch.Apply(&updated)
	if err := checkReview(&updated); err != nil {
		return nil, err
	}
	updated.UpdatedAt = now()
	*stored = updated
	s.updateRatingLocked(updated.CourseID)
	return &updated, nil
}

func (s *MemoryStore) DeleteReview(ctx context.Context, id model.ReviewID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return apperr.NotFound("review")
	}
	delete(s.reviews, id)
	s.updateRatingLocked(r.CourseID)
	return nil
}

// ==================== Aggregates ====================

func (s *MemoryStore) UpdateCourseRating(ctx context.Context, courseID model.CourseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[courseID]; !ok {
		return apperr.NotFound("course")
	}
	s.updateRatingLocked(courseID)
	return nil
}

func (s *MemoryStore) updateRatingLocked(courseID model.CourseID) {
	course, ok := s.courses[courseID]
	if !ok {
		return
	}
	var ratings []int
	for _, r := range s.reviews {
		if r.CourseID == courseID {
			ratings = append(ratings, r.Rating)
		}
	}
	course.AverageRating, course.NumReviews = AverageRating(ratings)
	course.UpdatedAt = now()
}

func (s *MemoryStore) RecalculateCourseStats(ctx context.Context, courseID model.CourseID) (*model.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	course, ok := s.courses[courseID]
	if !ok {
		return nil, apperr.NotFound("course")
	}
	lessons := s.lessonsOfLocked(courseID)
	course.TotalLessons = len(lessons)
	course.TotalDuration = SumDurations(lessons)

	students := 0
	for _, e := range s.enrollments {
		if e.CourseID == courseID {
			students++
		}
	}
	course.TotalStudents = students
	s.updateRatingLocked(courseID)

	cp := *course
	return &cp, nil
}
