package models

import (
	"time"

	"gorm.io/gorm"
)

// RecoveryEvent records a finder reporting a disc and tracks it to closure
type RecoveryEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	DiscID      string         `gorm:"type:uuid;not null;index" json:"disc_id"`
	Disc        Disc           `gorm:"foreignKey:DiscID" json:"-"`
	FinderID    string         `gorm:"not null;index" json:"finder_id"`
	Status      RecoveryStatus `gorm:"type:varchar(32);not null;default:'found';index" json:"status"`
	Notes       *string        `gorm:"type:text" json:"notes"`
	FoundAt     time.Time      `gorm:"not null" json:"found_at"`
	RecoveredAt *time.Time     `json:"recovered_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the RecoveryEvent model
func (RecoveryEvent) TableName() string {
	return "recovery_events"
}
