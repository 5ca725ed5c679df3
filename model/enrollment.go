package model

import "time"

// PaymentStatus tracks the checkout state of an enrollment
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is allowed.
// completed is terminal; a failed checkout may be retried, which puts it back
// to pending. Same-state updates are accepted as no-ops.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	switch s {
	case PaymentPending:
		return next == PaymentCompleted || next == PaymentFailed
	case PaymentFailed:
		return next == PaymentPending
	}
	return false
}

// Enrollment grants a user access to a course and tracks progress
type Enrollment struct {
	ID             EnrollmentID  `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID         UserID        `gorm:"type:varchar(64);not null;uniqueIndex:idx_enrollments_user_course" json:"user_id"`
	CourseID       CourseID      `gorm:"type:varchar(64);not null;uniqueIndex:idx_enrollments_user_course;index" json:"course_id"`
	Progress       int           `gorm:"not null" json:"progress"`
	Completed      bool          `gorm:"not null" json:"completed"`
	PaymentStatus  PaymentStatus `gorm:"type:varchar(20);not null;index" json:"payment_status"`
	PaymentRef     string        `gorm:"type:varchar(255);index" json:"payment_ref,omitempty"`
	AmountPaid     float64       `gorm:"not null" json:"amount_paid"`
	EnrolledAt     time.Time     `gorm:"not null" json:"enrolled_at"`
	LastAccessedAt time.Time     `gorm:"not null" json:"last_accessed_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// TableName specifies the table name for Enrollment
func (Enrollment) TableName() string {
	return "enrollments"
}

// HasAccess reports whether the enrollment unlocks non-preview lessons
func (e Enrollment) HasAccess() bool {
	return e.PaymentStatus == PaymentCompleted
}

// EnrollmentDetail is an enrollment enriched for the "my courses" view
type EnrollmentDetail struct {
	Enrollment
	Course     CourseSummary `json:"course"`
	Instructor UserSummary   `json:"instructor"`
}
