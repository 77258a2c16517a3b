package models

import "time"

// ShippingAddress is where a sticker order is mailed
type ShippingAddress struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         string    `gorm:"not null;index" json:"user_id"`
	Name           string    `gorm:"not null" json:"name"`
	StreetAddress  string    `gorm:"not null" json:"street_address"`
	StreetAddress2 *string   `json:"street_address_2"`
	City           string    `gorm:"not null" json:"city"`
	State          string    `gorm:"not null" json:"state"`
	PostalCode     string    `gorm:"not null" json:"postal_code"`
	Country        string    `gorm:"not null;default:'US'" json:"country"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for the ShippingAddress model
func (ShippingAddress) TableName() string {
	return "shipping_addresses"
}
