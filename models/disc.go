package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FlightNumbers are the four published flight ratings of a disc
type FlightNumbers struct {
	Speed int `gorm:"not null" json:"speed"`
	Glide int `gorm:"not null" json:"glide"`
	Turn  int `gorm:"not null" json:"turn"`
	Fade  int `gorm:"not null" json:"fade"`
}

// Published flight number ranges
const (
	MinSpeed = 1
	MaxSpeed = 14
	MinGlide = 1
	MaxGlide = 7
	MinTurn  = -5
	MaxTurn  = 1
	MinFade  = 0
	MaxFade  = 5
)

// Validate checks every rating against its published range
func (f FlightNumbers) Validate() error {
	checks := []struct {
		name     string
		value    int
		min, max int
	}{
		{"Speed", f.Speed, MinSpeed, MaxSpeed},
		{"Glide", f.Glide, MinGlide, MaxGlide},
		{"Turn", f.Turn, MinTurn, MaxTurn},
		{"Fade", f.Fade, MinFade, MaxFade},
	}
	for _, check := range checks {
		if check.value < check.min || check.value > check.max {
			return fmt.Errorf("%s must be between %d and %d", check.name, check.min, check.max)
		}
	}
	return nil
}

// Disc represents a tracked disc. A nil OwnerID means the disc is claimable.
type Disc struct {
	ID            string         `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID       *string        `gorm:"index" json:"owner_id"`
	Name          string         `gorm:"not null" json:"name"` // kept equal to Mold when a mold is set
	Manufacturer  *string        `json:"manufacturer"`
	Mold          *string        `json:"mold"`
	Plastic       *string        `json:"plastic"`
	Color         *string        `json:"color"`
	Weight        *int           `json:"weight"`
	FlightNumbers FlightNumbers  `gorm:"embedded;embeddedPrefix:flight_" json:"flight_numbers"`
	RewardAmount  *float64       `gorm:"type:decimal(10,2)" json:"reward_amount"`
	Notes         *string        `gorm:"type:text" json:"notes"`
	QRCodeID      *string        `gorm:"type:uuid;uniqueIndex" json:"qr_code_id"`
	QRCode        *QRCode        `gorm:"foreignKey:QRCodeID" json:"qr_code,omitempty"`
	Photos        []DiscPhoto    `gorm:"foreignKey:DiscID" json:"photos,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Disc model
func (Disc) TableName() string {
	return "discs"
}

// BeforeCreate assigns the identity
func (d *Disc) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// IsClaimable reports whether the disc has no owner
func (d Disc) IsClaimable() bool {
	return d.OwnerID == nil
}

// IsOwnedBy reports whether userID owns the disc
func (d Disc) IsOwnedBy(userID string) bool {
	return d.OwnerID != nil && *d.OwnerID == userID
}

// DiscPhoto is an uploaded image of a disc kept in object storage
type DiscPhoto struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	DiscID      string    `gorm:"type:uuid;not null;index" json:"disc_id"`
	StoragePath string    `gorm:"not null" json:"storage_path"`
	URL         *string   `gorm:"-" json:"url,omitempty"` // computed field, presigned URL
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for the DiscPhoto model
func (DiscPhoto) TableName() string {
	return "disc_photos"
}
