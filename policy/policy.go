// Package policy holds the access rules shared by every handler. Rules only
// look at the actor and the entities involved, never at the storage backend.
package policy

import (
	"github.com/sahilchouksey/course-market-api/model"
	"github.com/sahilchouksey/course-market-api/utils/apperr"
)

// Actor is the authenticated caller
type Actor struct {
	ID   model.UserID
	Role model.Role
}

// Anonymous is the zero actor used on public routes without a token
var Anonymous = Actor{}

func (a Actor) IsAnonymous() bool { return a.ID == "" }
func (a Actor) IsAdmin() bool     { return a.Role == model.RoleAdmin }

// Owns reports whether the actor is the course's instructor
func (a Actor) Owns(course *model.Course) bool {
	return !a.IsAnonymous() && course != nil && course.InstructorID == a.ID
}

// RequireAuthor allows instructors and admins
func RequireAuthor(actor Actor) error {
	if !actor.Role.CanAuthor() {
		return apperr.Authorization("only instructors can manage courses")
	}
	return nil
}

// CanManageCourse allows the course's instructor, and admins
func CanManageCourse(actor Actor, course *model.Course) error {
	if err := RequireAuthor(actor); err != nil {
		return err
	}
	if actor.IsAdmin() || actor.Owns(course) {
		return nil
	}
	return apperr.Authorization("you can only manage your own courses")
}

// CanViewCourse hides unpublished courses from everyone but their managers
func CanViewCourse(actor Actor, course *model.Course) error {
	if course.IsPublished || actor.IsAdmin() || actor.Owns(course) {
		return nil
	}
	return apperr.NotFound("course")
}

// CanModifyReview allows only the review's author
func CanModifyReview(actor Actor, review *model.Review) error {
	if review.UserID != actor.ID {
		return apperr.Authorization("you can only modify your own reviews")
	}
	return nil
}

// CanDeleteReview allows the author, the course's instructor and admins
func CanDeleteReview(actor Actor, review *model.Review, course *model.Course) error {
	if review.UserID == actor.ID || actor.Owns(course) || actor.IsAdmin() {
		return nil
	}
	return apperr.Authorization("you can only delete your own reviews")
}

// CanReview requires a paid-up enrollment and forbids reviewing one's own course
func CanReview(actor Actor, course *model.Course, enrollment *model.Enrollment) error {
	if actor.Owns(course) {
		return apperr.Authorization("instructors cannot review their own course")
	}
	if enrollment == nil || enrollment.UserID != actor.ID || !enrollment.HasAccess() {
		return apperr.Authorization("you must be enrolled in this course to review it")
	}
	return nil
}

// CanViewLessonContent reports whether the full lesson body may be returned.
// Preview lessons are public; the rest need ownership, admin or paid access.
func CanViewLessonContent(actor Actor, course *model.Course, lesson *model.Lesson, enrollment *model.Enrollment) bool {
	if lesson.IsPreview {
		return true
	}
	if actor.IsAnonymous() {
		return false
	}
	if actor.IsAdmin() || actor.Owns(course) {
		return true
	}
	return enrollment != nil && enrollment.UserID == actor.ID && enrollment.HasAccess()
}

// CanAccessEnrollment allows the enrolled user and admins
func CanAccessEnrollment(actor Actor, enrollment *model.Enrollment) error {
	if enrollment.UserID == actor.ID || actor.IsAdmin() {
		return nil
	}
	return apperr.Authorization("you can only access your own enrollments")
}

// CanEnroll rejects instructors enrolling in their own course
func CanEnroll(actor Actor, course *model.Course) error {
	if actor.Owns(course) {
		return apperr.Validation("instructors cannot enroll in their own course")
	}
	if !course.IsPublished {
		return apperr.Validation("course is not available for enrollment")
	}
	return nil
}
