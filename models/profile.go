package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Display preferences for how an owner is named to finders
const (
	DisplayPreferenceUsername = "username"
	DisplayPreferenceFullName = "full_name"
)

// Profile represents a registered disc owner
type Profile struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Auth0ID           string         `gorm:"uniqueIndex;not null" json:"auth0_id"` // Auth0 user ID (from 'sub' claim)
	Email             string         `gorm:"uniqueIndex;not null" json:"email"`
	Username          *string        `gorm:"uniqueIndex" json:"username"`
	FullName          *string        `json:"full_name"`
	DisplayPreference string         `gorm:"not null;default:'username'" json:"display_preference"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Profile model
func (Profile) TableName() string {
	return "profiles"
}

// DisplayName is the name shown to finders, honoring the display preference.
// It never returns the full email address.
func (p Profile) DisplayName() string {
	if p.DisplayPreference == DisplayPreferenceFullName && p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	if p.Username != nil && *p.Username != "" {
		return *p.Username
	}
	if local, _, found := strings.Cut(p.Email, "@"); found && local != "" {
		return local
	}
	return "Anonymous"
}
