package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QRCodeStatus is the lifecycle state of a printed short code
type QRCodeStatus string

const (
	QRCodeStatusGenerated   QRCodeStatus = "generated"
	QRCodeStatusAssigned    QRCodeStatus = "assigned"
	QRCodeStatusActive      QRCodeStatus = "active"
	QRCodeStatusDeactivated QRCodeStatus = "deactivated"
)

// Resolvable reports whether a lookup by this code should reach a disc
func (s QRCodeStatus) Resolvable() bool {
	return s == QRCodeStatusAssigned || s == QRCodeStatusActive
}

// QRCode is a globally unique short code printed on a sticker
type QRCode struct {
	ID         string       `gorm:"type:uuid;primaryKey" json:"id"`
	ShortCode  string       `gorm:"size:12;uniqueIndex;not null" json:"short_code"`
	Status     QRCodeStatus `gorm:"type:varchar(32);not null;default:'generated'" json:"status"`
	AssignedTo string       `gorm:"not null;index" json:"assigned_to"` // holder the batch was issued to
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// TableName specifies the table name for the QRCode model
func (QRCode) TableName() string {
	return "qr_codes"
}

// BeforeCreate assigns the identity
func (q *QRCode) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}
