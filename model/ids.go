package model

import (
	"strings"

	"github.com/sahilchouksey/course-market-api/utils/apperr"
)

// Identifiers are opaque tokens. The durable store mints UUIDs, the memory
// store mints decimal counters; callers only ever compare them for equality.
type (
	UserID       string
	CourseID     string
	LessonID     string
	EnrollmentID string
	ReviewID     string
)

func (id UserID) String() string       { return string(id) }
func (id CourseID) String() string     { return string(id) }
func (id LessonID) String() string     { return string(id) }
func (id EnrollmentID) String() string { return string(id) }
func (id ReviewID) String() string     { return string(id) }

func parseID(raw, entity string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.Validationf("invalid %s id", entity)
	}
	if len(raw) > 64 {
		return "", apperr.Validationf("invalid %s id", entity)
	}
	return raw, nil
}

// ParseUserID converts a raw path or token value into a UserID
func ParseUserID(raw string) (UserID, error) {
	id, err := parseID(raw, "user")
	return UserID(id), err
}

func ParseCourseID(raw string) (CourseID, error) {
	id, err := parseID(raw, "course")
	return CourseID(id), err
}

func ParseLessonID(raw string) (LessonID, error) {
	id, err := parseID(raw, "lesson")
	return LessonID(id), err
}

func ParseEnrollmentID(raw string) (EnrollmentID, error) {
	id, err := parseID(raw, "enrollment")
	return EnrollmentID(id), err
}

func ParseReviewID(raw string) (ReviewID, error) {
	id, err := parseID(raw, "review")
	return ReviewID(id), err
}
