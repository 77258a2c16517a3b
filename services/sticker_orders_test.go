package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/discr/discr-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestOrderService(db *gorm.DB, payments PaymentProvider) *StickerOrderService {
	return &StickerOrderService{
		DB:             db,
		Payments:       payments,
		UnitPriceCents: 150,
		Currency:       "usd",
		AppURL:         "https://app.discr.test",
	}
}

func testAddress() *ShippingAddressInput {
	return &ShippingAddressInput{
		Name:          "Test User",
		StreetAddress: "123 Fairway Dr",
		City:          "Emporia",
		State:         "KS",
		PostalCode:    "66801",
	}
}

func intPtr(i int) *int {
	return &i
}

func TestCreateOrder_Success(t *testing.T) {
	db := setupTestDB(t)
	payments := NewMockPaymentService()
	svc := newTestOrderService(db, payments)

	result, err := svc.CreateOrder(context.Background(), "auth0|buyer", "buyer@example.com", NewStickerOrder{
		Quantity:        intPtr(10),
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.OrderNumber, "ORD-"))
	assert.Equal(t, "https://checkout.stripe.test/pay/"+MockSessionID(result.OrderID), result.CheckoutURL)

	order := reloadOrder(t, db, result.OrderID)
	assert.Equal(t, models.OrderStatusPendingPayment, order.Status)
	assert.Equal(t, 10, order.Quantity)
	assert.Equal(t, int64(1500), order.TotalPriceCents)
	require.NotNil(t, order.StripeCheckoutSessionID)
	assert.Equal(t, MockSessionID(order.ID), *order.StripeCheckoutSessionID)
	assert.NotEmpty(t, order.PrinterToken)
	require.NotNil(t, order.ShippingAddressID)

	var address models.ShippingAddress
	require.NoError(t, db.First(&address, *order.ShippingAddressID).Error)
	assert.Equal(t, "US", address.Country)
	assert.Equal(t, "auth0|buyer", address.UserID)

	requests := payments.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, order.ID, requests[0].OrderID)
	assert.Equal(t, int64(150), requests[0].UnitPriceCents)
	assert.Equal(t, "buyer@example.com", requests[0].CustomerEmail)
	assert.Equal(t, "https://app.discr.test/orders/"+order.ID+"?checkout=success", requests[0].SuccessURL)
}

func TestCreateOrder_SavedAddress(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestOrderService(db, NewMockPaymentService())

	saved := models.ShippingAddress{UserID: "auth0|buyer", Name: "A", StreetAddress: "1 St", City: "C", State: "S", PostalCode: "1", Country: "US"}
	require.NoError(t, db.Create(&saved).Error)
	foreign := models.ShippingAddress{UserID: "auth0|other", Name: "B", StreetAddress: "2 St", City: "C", State: "S", PostalCode: "2", Country: "US"}
	require.NoError(t, db.Create(&foreign).Error)

	result, err := svc.CreateOrder(context.Background(), "auth0|buyer", "", NewStickerOrder{
		Quantity:          intPtr(5),
		ShippingAddressID: &saved.ID,
	})
	require.NoError(t, err)
	order := reloadOrder(t, db, result.OrderID)
	require.NotNil(t, order.ShippingAddressID)
	assert.Equal(t, saved.ID, *order.ShippingAddressID)

	_, err = svc.CreateOrder(context.Background(), "auth0|buyer", "", NewStickerOrder{
		Quantity:          intPtr(5),
		ShippingAddressID: &foreign.ID,
	})
	requireServiceError(t, err, http.StatusNotFound, "ADDRESS_NOT_FOUND")
}

func TestCreateOrder_Validation(t *testing.T) {
	incomplete := testAddress()
	incomplete.StreetAddress = ""

	tests := []struct {
		name    string
		req     NewStickerOrder
		message string
	}{
		{"missing quantity", NewStickerOrder{ShippingAddress: testAddress()}, "Missing required field: quantity"},
		{"zero quantity", NewStickerOrder{Quantity: intPtr(0), ShippingAddress: testAddress()}, "Quantity must be at least 1"},
		{"missing address", NewStickerOrder{Quantity: intPtr(10)}, "Missing required field: shipping_address"},
		{"incomplete address", NewStickerOrder{Quantity: intPtr(10), ShippingAddress: incomplete}, "Missing shipping address field: street_address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			payments := NewMockPaymentService()

			_, err := newTestOrderService(db, payments).CreateOrder(context.Background(), "auth0|buyer", "", tt.req)
			requireServiceError(t, err, http.StatusBadRequest, "VALIDATION_ERROR")
			assert.Equal(t, tt.message, err.Error())
			assert.Empty(t, payments.Requests())
			assert.Equal(t, int64(0), countRows(t, db, &models.StickerOrder{}))
		})
	}
}

func TestCreateOrder_CheckoutFailureRemovesOrder(t *testing.T) {
	db := setupTestDB(t)
	payments := NewMockPaymentService()
	payments.Err = errors.New("stripe unavailable")

	_, err := newTestOrderService(db, payments).CreateOrder(context.Background(), "auth0|buyer", "", NewStickerOrder{
		Quantity:        intPtr(10),
		ShippingAddress: testAddress(),
	})
	requireServiceError(t, err, http.StatusInternalServerError, "PAYMENT_ERROR")

	var remaining int64
	require.NoError(t, db.Unscoped().Model(&models.StickerOrder{}).Count(&remaining).Error)
	assert.Equal(t, int64(0), remaining)
}

func TestCreateOrder_SessionRecordFailureRemovesOrder(t *testing.T) {
	db := setupTestDB(t)
	// fail only the write that stores the checkout session on the order
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:fail_session_write", func(tx *gorm.DB) {
		if dest, ok := tx.Statement.Dest.(map[string]interface{}); ok {
			if _, ok := dest["stripe_checkout_session_id"]; ok {
				_ = tx.AddError(errors.New("disk full"))
			}
		}
	}))
	payments := NewMockPaymentService()

	_, err := newTestOrderService(db, payments).CreateOrder(context.Background(), "auth0|buyer", "", NewStickerOrder{
		Quantity:        intPtr(3),
		ShippingAddress: testAddress(),
	})
	requireServiceError(t, err, http.StatusInternalServerError, "DATABASE_ERROR")
	assert.Len(t, payments.Requests(), 1, "checkout was opened before the write failed")

	var remaining int64
	require.NoError(t, db.Unscoped().Model(&models.StickerOrder{}).Count(&remaining).Error)
	assert.Equal(t, int64(0), remaining)
}
