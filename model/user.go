package model

import (
	"time"

	"gorm.io/datatypes"
)

// Role is the access level of a user
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// CanAuthor reports whether the role may create and manage courses
func (r Role) CanAuthor() bool {
	return r == RoleInstructor || r == RoleAdmin
}

// Profile holds the public profile fields of a user
type Profile struct {
	Headline string `gorm:"type:varchar(120)" json:"headline"`
	Bio      string `gorm:"type:text" json:"bio"`
	Avatar   string `gorm:"type:varchar(512)" json:"avatar"`
	Website  string `gorm:"type:varchar(255)" json:"website"`
}

// User represents a registered user in the marketplace
type User struct {
	ID                 UserID                           `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CreatedAt          time.Time                        `json:"created_at"`
	UpdatedAt          time.Time                        `json:"updated_at"`
	Name               string                           `gorm:"not null" json:"name"`
	Email              string                           `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash       string                           `gorm:"not null" json:"-"` // Never expose password in JSON
	Role               Role                             `gorm:"type:varchar(20);not null" json:"role"`
	Profile            Profile                          `gorm:"embedded;embeddedPrefix:profile_" json:"profile"`
	Settings           datatypes.JSONType[UserSettings] `json:"settings"`
	PaymentCustomerRef string                           `gorm:"type:varchar(255)" json:"payment_customer_ref,omitempty"`
	IsActive           bool                             `gorm:"not null" json:"is_active"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// Summary returns the denormalized view embedded in enrollments and reviews
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		Name:     u.Name,
		Avatar:   u.Profile.Avatar,
		Headline: u.Profile.Headline,
	}
}

// UserSummary is a display-only projection of a user
type UserSummary struct {
	ID       UserID `json:"id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
	Headline string `json:"headline,omitempty"`
}

// NewUser carries registration data. Password may already be a bcrypt hash,
// in which case it is stored as-is.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     Role
	Profile  Profile
}

// UserPatch lists the user fields a caller may change; nil fields are left alone
type UserPatch struct {
	Name               *string
	Email              *string
	Password           *string
	Role               *Role
	Headline           *string
	Bio                *string
	Avatar             *string
	Website            *string
	PaymentCustomerRef *string
	IsActive           *bool
}

// Apply copies the non-nil fields onto u. Password is handled by the store
// because hashing depends on the backend.
func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = NormalizeEmail(*p.Email)
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Headline != nil {
		u.Profile.Headline = *p.Headline
	}
	if p.Bio != nil {
		u.Profile.Bio = *p.Bio
	}
	if p.Avatar != nil {
		u.Profile.Avatar = *p.Avatar
	}
	if p.Website != nil {
		u.Profile.Website = *p.Website
	}
	if p.PaymentCustomerRef != nil {
		u.PaymentCustomerRef = *p.PaymentCustomerRef
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
}
