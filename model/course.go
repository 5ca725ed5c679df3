package model

import (
	"math"
	"time"
)

// Category is the closed set of marketplace categories
type Category string

const (
	CategoryDevelopment         Category = "development"
	CategoryBusiness            Category = "business"
	CategoryDesign              Category = "design"
	CategoryMarketing           Category = "marketing"
	CategoryITSoftware          Category = "it-software"
	CategoryPersonalDevelopment Category = "personal-development"
	CategoryPhotography         Category = "photography"
	CategoryMusic               Category = "music"
	CategoryHealthFitness       Category = "health-fitness"
	CategoryOther               Category = "other"
)

// Categories lists every accepted category
var Categories = []Category{
	CategoryDevelopment,
	CategoryBusiness,
	CategoryDesign,
	CategoryMarketing,
	CategoryITSoftware,
	CategoryPersonalDevelopment,
	CategoryPhotography,
	CategoryMusic,
	CategoryHealthFitness,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Level is the difficulty of a course
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// Course represents a course published by an instructor
type Course struct {
	ID           CourseID  `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Title        string    `gorm:"not null" json:"title" validate:"required,min=3,max=120"`
	Description  string    `gorm:"type:text" json:"description" validate:"max=5000"`
	Category     Category  `gorm:"type:varchar(40);not null;index" json:"category" validate:"required,course_category"`
	Price        float64   `gorm:"not null" json:"price" validate:"gte=0"`
	Level        Level     `gorm:"type:varchar(20);not null" json:"level" validate:"required,course_level"`
	Thumbnail    string    `gorm:"type:varchar(512)" json:"thumbnail"`
	InstructorID UserID    `gorm:"type:varchar(64);not null;index" json:"instructor_id" validate:"required"`
	IsPublished  bool      `gorm:"not null;index" json:"is_published"`

	// Aggregates maintained by the store
	TotalLessons  int     `gorm:"not null" json:"total_lessons"`
	TotalDuration int     `gorm:"not null" json:"total_duration"` // minutes
	AverageRating float64 `gorm:"not null" json:"average_rating"`
	NumReviews    int     `gorm:"not null" json:"num_reviews"`
	TotalStudents int     `gorm:"not null" json:"total_students"`
}

// TableName specifies the table name for Course
func (Course) TableName() string {
	return "courses"
}

// IsFree reports whether enrolling requires no payment. A price that rounds
// to zero cents cannot be charged, so it counts as free.
func (c Course) IsFree() bool {
	return c.PriceInCents() <= 0
}

// PriceInCents converts the price to the smallest currency unit
func (c Course) PriceInCents() int64 {
	if c.Price <= 0 {
		return 0
	}
	return int64(math.Round(c.Price * 100))
}

// RoundPrice rounds a price to whole cents
func RoundPrice(price float64) float64 {
	return math.Round(price*100) / 100
}

func (c Course) Summary() CourseSummary {
	return CourseSummary{
		ID:            c.ID,
		Title:         c.Title,
		Thumbnail:     c.Thumbnail,
		Category:      c.Category,
		Level:         c.Level,
		Price:         c.Price,
		TotalLessons:  c.TotalLessons,
		TotalDuration: c.TotalDuration,
		AverageRating: c.AverageRating,
	}
}

// CourseSummary is the denormalized course view attached to enrollments
type CourseSummary struct {
	ID            CourseID `json:"id"`
	Title         string   `json:"title"`
	Thumbnail     string   `json:"thumbnail"`
	Category      Category `json:"category"`
	Level         Level    `json:"level"`
	Price         float64  `json:"price"`
	TotalLessons  int      `json:"total_lessons"`
	TotalDuration int      `json:"total_duration"`
	AverageRating float64  `json:"average_rating"`
}

// CourseFilter narrows a course listing
type CourseFilter struct {
	Category      Category
	Level         Level
	Search        string
	InstructorID  UserID
	PublishedOnly bool
	Limit         int
	Offset        int
}

type CoursePatch struct {
	Title       *string
	Description *string
	Category    *Category
	Price       *float64
	Level       *Level
	Thumbnail   *string
	IsPublished *bool
}

// Apply copies the non-nil fields onto c
func (p CoursePatch) Apply(c *Course) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Category != nil {
		c.Category = *p.Category
	}
	if p.Price != nil {
		c.Price = *p.Price
	}
	if p.Level != nil {
		c.Level = *p.Level
	}
	if p.Thumbnail != nil {
		c.Thumbnail = *p.Thumbnail
	}
	if p.IsPublished != nil {
		c.IsPublished = *p.IsPublished
	}
}
