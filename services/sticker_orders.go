package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/discr/discr-api/models"
	"github.com/discr/discr-api/utils"
	"gorm.io/gorm"
)

// ShippingAddressInput is a new address submitted with an order
type ShippingAddressInput struct {
	Name           string  `json:"name"`
	StreetAddress  string  `json:"street_address"`
	StreetAddress2 *string `json:"street_address_2"`
	City           string  `json:"city"`
	State          string  `json:"state"`
	PostalCode     string  `json:"postal_code"`
	Country        string  `json:"country"`
}

// missingField returns the first required field left blank, in form order
func (a ShippingAddressInput) missingField() string {
	required := []struct {
		name  string
		value string
	}{
		{"name", a.Name},
		{"street_address", a.StreetAddress},
		{"city", a.City},
		{"state", a.State},
		{"postal_code", a.PostalCode},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return field.name
		}
	}
	return ""
}

// NewStickerOrder is a purchase request. Either ShippingAddressID names one of
// the buyer's saved addresses or ShippingAddress carries a new one.
type NewStickerOrder struct {
	Quantity          *int                  `json:"quantity"`
	ShippingAddressID *uint                 `json:"shipping_address_id"`
	ShippingAddress   *ShippingAddressInput `json:"shipping_address"`
}

// CheckoutResult tells the client where to pay for a new order
type CheckoutResult struct {
	CheckoutURL string `json:"checkout_url"`
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
}

// StickerOrderService places sticker orders and opens their checkout sessions
type StickerOrderService struct {
	DB             *gorm.DB
	Payments       PaymentProvider
	UnitPriceCents int64
	Currency       string
	AppURL         string
}

// CreateOrder validates the request, stores a pending_payment order and opens a
// checkout session for it. If the session cannot be created the order is
// removed again so no unpayable order is left behind.
func (s *StickerOrderService) CreateOrder(ctx context.Context, userID, customerEmail string, req NewStickerOrder) (*CheckoutResult, error) {
	if userID == "" {
		return nil, NewUnauthorizedError("UNAUTHORIZED", "Could not extract user information")
	}
	if req.Quantity == nil {
		return nil, NewValidationError("VALIDATION_ERROR", "Missing required field: quantity")
	}
	if *req.Quantity < 1 {
		return nil, NewValidationError("VALIDATION_ERROR", "Quantity must be at least 1")
	}
	if req.ShippingAddressID == nil && req.ShippingAddress == nil {
		return nil, NewValidationError("VALIDATION_ERROR", "Missing required field: shipping_address")
	}
	if req.ShippingAddressID == nil {
		if field := req.ShippingAddress.missingField(); field != "" {
			return nil, NewValidationError("VALIDATION_ERROR", "Missing shipping address field: "+field)
		}
	}
	if s.Payments == nil {
		return nil, NewInternalError("PAYMENT_ERROR", "Payments are not configured", errors.New("payment provider not initialized"))
	}

	db := s.DB.WithContext(ctx)
	order := models.StickerOrder{
		OrderNumber:     utils.GenerateOrderNumber(now()),
		UserID:          userID,
		Quantity:        *req.Quantity,
		UnitPriceCents:  s.UnitPriceCents,
		TotalPriceCents: s.UnitPriceCents * int64(*req.Quantity),
		Status:          models.OrderStatusPendingPayment,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		addressID, err := resolveShippingAddress(tx, userID, req)
		if err != nil {
			return err
		}
		order.ShippingAddressID = &addressID
		if err := tx.Create(&order).Error; err != nil {
			return NewInternalError("DATABASE_ERROR", "Failed to create order", err)
		}
		return nil
	})
	if err != nil {
		if svcErr, ok := AsServiceError(err); ok {
			return nil, svcErr
		}
		return nil, NewInternalError("DATABASE_ERROR", "Failed to create order", err)
	}

	checkout, err := s.Payments.CreateCheckoutSession(ctx, CheckoutRequest{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		Quantity:       order.Quantity,
		UnitPriceCents: order.UnitPriceCents,
		Currency:       s.Currency,
		CustomerEmail:  customerEmail,
		SuccessURL:     s.AppURL + "/orders/" + order.ID + "?checkout=success",
		CancelURL:      s.AppURL + "/orders/" + order.ID + "?checkout=cancelled",
	})
	if err != nil {
		discardOrder(db, order.ID)
		return nil, NewInternalError("PAYMENT_ERROR", "Failed to create checkout session", err)
	}

	// Without the session reference the payment webhook can never match this order
	if err := db.Model(&models.StickerOrder{}).
		Where("id = ?", order.ID).
		Update("stripe_checkout_session_id", checkout.ID).Error; err != nil {
		discardOrder(db, order.ID)
		return nil, NewInternalError("DATABASE_ERROR", "Failed to record checkout session", err)
	}

	log.Printf("Sticker order %s created for %d codes", order.OrderNumber, order.Quantity)
	return &CheckoutResult{
		CheckoutURL: checkout.URL,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
	}, nil
}

// discardOrder removes an order whose checkout could not be set up
func discardOrder(db *gorm.DB, orderID string) {
	if err := db.Unscoped().Delete(&models.StickerOrder{}, "id = ?", orderID).Error; err != nil {
		log.Printf("Failed to remove order %s after checkout failure: %v", orderID, err)
	}
}

func resolveShippingAddress(tx *gorm.DB, userID string, req NewStickerOrder) (uint, error) {
	if req.ShippingAddressID != nil {
		var address models.ShippingAddress
		if err := tx.Where("id = ? AND user_id = ?", *req.ShippingAddressID, userID).First(&address).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, NewNotFoundError("ADDRESS_NOT_FOUND", "Shipping address not found")
			}
			return 0, NewInternalError("DATABASE_ERROR", "Failed to load shipping address", err)
		}
		return address.ID, nil
	}

	in := req.ShippingAddress
	country := strings.ToUpper(strings.TrimSpace(in.Country))
	if country == "" {
		country = "US"
	}
	address := models.ShippingAddress{
		UserID:         userID,
		Name:           strings.TrimSpace(in.Name),
		StreetAddress:  strings.TrimSpace(in.StreetAddress),
		StreetAddress2: in.StreetAddress2,
		City:           strings.TrimSpace(in.City),
		State:          strings.TrimSpace(in.State),
		PostalCode:     strings.TrimSpace(in.PostalCode),
		Country:        country,
	}
	if err := tx.Create(&address).Error; err != nil {
		return 0, NewInternalError("DATABASE_ERROR", "Failed to save shipping address", err)
	}
	return address.ID, nil
}
