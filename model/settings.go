package model

import "strings"

// NotificationSettings controls which emails a user receives
type NotificationSettings struct {
	Email         bool `json:"email"`
	Promotions    bool `json:"promotions"`
	CourseUpdates bool `json:"course_updates"`
}

// PrivacySettings controls what other users can see
type PrivacySettings struct {
	ShowProfile bool `json:"show_profile"`
	ShowCourses bool `json:"show_courses"`
}

// UserSettings is stored as a JSON column on the user row
type UserSettings struct {
	Notifications NotificationSettings `json:"notifications"`
	Privacy       PrivacySettings      `json:"privacy"`
}

// DefaultUserSettings returns the settings assigned at registration
func DefaultUserSettings() UserSettings {
	return UserSettings{
		Notifications: NotificationSettings{
			Email:         true,
			Promotions:    false,
			CourseUpdates: true,
		},
		Privacy: PrivacySettings{
			ShowProfile: true,
			ShowCourses: false,
		},
	}
}

type NotificationSettingsPatch struct {
	Email         *bool `json:"email"`
	Promotions    *bool `json:"promotions"`
	CourseUpdates *bool `json:"course_updates"`
}

// Apply updates only the provided notification flags
func (p NotificationSettingsPatch) Apply(s *NotificationSettings) {
	if p.Email != nil {
		s.Email = *p.Email
	}
	if p.Promotions != nil {
		s.Promotions = *p.Promotions
	}
	if p.CourseUpdates != nil {
		s.CourseUpdates = *p.CourseUpdates
	}
}

type PrivacySettingsPatch struct {
	ShowProfile *bool `json:"show_profile"`
	ShowCourses *bool `json:"show_courses"`
}

// Apply updates only the provided privacy flags
func (p PrivacySettingsPatch) Apply(s *PrivacySettings) {
	if p.ShowProfile != nil {
		s.ShowProfile = *p.ShowProfile
	}
	if p.ShowCourses != nil {
		s.ShowCourses = *p.ShowCourses
	}
}

// NormalizeEmail lower-cases and trims an address before storage or lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
