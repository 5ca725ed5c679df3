package model

import "time"

// Lesson is a single unit of a course. Order is unique within the course and
// kept contiguous from 1 by the store.
type Lesson struct {
	ID          LessonID  `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CourseID    CourseID  `gorm:"type:varchar(64);not null;uniqueIndex:idx_lessons_course_order" json:"course_id"`
	Title       string    `gorm:"not null" json:"title" validate:"required,min=1,max=200"`
	Description string    `gorm:"type:text" json:"description" validate:"max=2000"`
	Content     string    `gorm:"type:text" json:"content,omitempty"`
	VideoURL    string    `gorm:"type:varchar(512)" json:"video_url,omitempty"`
	Duration    int       `gorm:"not null" json:"duration" validate:"gte=0"` // minutes
	Order       int       `gorm:"column:lesson_order;not null;uniqueIndex:idx_lessons_course_order" json:"order" validate:"gte=1"`
	IsPreview   bool      `gorm:"not null" json:"is_preview"`
}

// TableName specifies the table name for Lesson
func (Lesson) TableName() string {
	return "lessons"
}

// Outline strips the playable content, for callers without access
func (l Lesson) Outline() Lesson {
	l.Content = ""
	l.VideoURL = ""
	return l
}

type LessonPatch struct {
	Title       *string
	Description *string
	Content     *string
	VideoURL    *string
	Duration    *int
	Order       *int
	IsPreview   *bool
}

// Apply copies the non-nil fields onto l
func (p LessonPatch) Apply(l *Lesson) {
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.Content != nil {
		l.Content = *p.Content
	}
	if p.VideoURL != nil {
		l.VideoURL = *p.VideoURL
	}
	if p.Duration != nil {
		l.Duration = *p.Duration
	}
	if p.Order != nil {
		l.Order = *p.Order
	}
	if p.IsPreview != nil {
		l.IsPreview = *p.IsPreview
	}
}
