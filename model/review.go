package model

import "time"

const MaxReviewCommentLength = 1000

// Review is a student's rating of a course, one per (user, course)
type Review struct {
	ID        ReviewID  `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    UserID    `gorm:"type:varchar(64);not null;uniqueIndex:idx_reviews_user_course" json:"user_id"`
	CourseID  CourseID  `gorm:"type:varchar(64);not null;uniqueIndex:idx_reviews_user_course;index" json:"course_id"`
	Rating    int       `gorm:"not null" json:"rating" validate:"gte=1,lte=5"`
	Comment   string    `gorm:"type:text;not null" json:"comment" validate:"required,max=1000"`
}

// TableName specifies the table name for Review
func (Review) TableName() string {
	return "reviews"
}

// ReviewDetail carries the author's summary for display
type ReviewDetail struct {
	Review
	Author UserSummary `json:"author"`
}

type ReviewPatch struct {
	Rating  *int
	Comment *string
}

// Apply copies the non-nil fields onto r
func (p ReviewPatch) Apply(r *Review) {
	if p.Rating != nil {
		r.Rating = *p.Rating
	}
	if p.Comment != nil {
		r.Comment = *p.Comment
	}
}
