package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StickerOrder is a purchased batch of QR code stickers
type StickerOrder struct {
	ID                      string             `gorm:"type:uuid;primaryKey" json:"id"`
	OrderNumber             string             `gorm:"uniqueIndex;not null" json:"order_number"`
	UserID                  string             `gorm:"not null;index" json:"user_id"` // Auth0 subject of the purchaser
	ShippingAddressID       *uint              `gorm:"index" json:"shipping_address_id"`
	ShippingAddress         *ShippingAddress   `gorm:"foreignKey:ShippingAddressID" json:"shipping_address,omitempty"`
	Quantity                int                `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPriceCents          int64              `gorm:"not null" json:"unit_price_cents"`
	TotalPriceCents         int64              `gorm:"not null" json:"total_price_cents"`
	Status                  OrderStatus        `gorm:"type:varchar(32);not null;default:'pending_payment';index" json:"status"`
	StripeCheckoutSessionID *string            `gorm:"index" json:"stripe_checkout_session_id,omitempty"`
	StripePaymentIntentID   *string            `json:"stripe_payment_intent_id,omitempty"`
	PrinterToken            string             `gorm:"uniqueIndex;not null" json:"-"` // capability credential for the printer, never serialized
	PDFStoragePath          *string            `json:"pdf_storage_path,omitempty"`
	TrackingNumber          *string            `json:"tracking_number"`
	PrintedAt               *time.Time         `json:"printed_at"`
	ShippedAt               *time.Time         `json:"shipped_at"`
	Items                   []StickerOrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt               time.Time          `json:"created_at"`
	UpdatedAt               time.Time          `json:"updated_at"`
	DeletedAt               gorm.DeletedAt     `gorm:"index" json:"-"`
}

// TableName specifies the table name for the StickerOrder model
func (StickerOrder) TableName() string {
	return "sticker_orders"
}

// BeforeCreate assigns the identity and printer token
func (o *StickerOrder) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.PrinterToken == "" {
		o.PrinterToken = uuid.NewString()
	}
	return nil
}

// StickerOrderItem links one order to one issued QR code
type StickerOrderItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   string    `gorm:"type:uuid;not null;index" json:"order_id"`
	QRCodeID  string    `gorm:"type:uuid;not null;uniqueIndex" json:"qr_code_id"`
	QRCode    *QRCode   `gorm:"foreignKey:QRCodeID" json:"qr_code,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the StickerOrderItem model
func (StickerOrderItem) TableName() string {
	return "sticker_order_items"
}
