package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/discr/discr-api/models"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"
)

// ErrOrderNotMatched means no order carries the (order id, session id) pair of a payment event
var ErrOrderNotMatched = errors.New("order not found for checkout session")

// ErrInvalidSignature wraps any failure to authenticate a webhook payload
var ErrInvalidSignature = errors.New("invalid webhook signature")

// CheckoutEvent is the slice of a checkout session event the API acts on
type CheckoutEvent struct {
	Type            stripe.EventType
	SessionID       string
	OrderID         string
	PaymentIntentID string
}

// VerifyWebhookEvent authenticates payload against the Stripe-Signature header and
// decodes it. Checkout session events are unpacked into a CheckoutEvent; other
// event types come back with only Type set.
func VerifyWebhookEvent(payload []byte, signatureHeader, secret string) (*CheckoutEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &CheckoutEvent{Type: event.Type}
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionExpired:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("failed to decode checkout session: %w", err)
		}
		out.SessionID = sess.ID
		out.OrderID = sess.Metadata["order_id"]
		if sess.PaymentIntent != nil {
			out.PaymentIntentID = sess.PaymentIntent.ID
		}
	}
	return out, nil
}

// paymentSettlableStatuses are the statuses a completed checkout moves to paid
var paymentSettlableStatuses = []models.OrderStatus{
	models.OrderStatusPendingPayment,
	models.OrderStatusCancelled,
	models.OrderStatusPaid,
}

// MarkOrderPaid applies a completed checkout to its order.
//
// pending_payment, cancelled and paid rows are written: a payment that lands
// after its session expired still counts, and a replayed event leaves the order
// paid. Orders already in fulfillment keep their status.
func MarkOrderPaid(ctx context.Context, db *gorm.DB, orderID, sessionID, paymentIntentID string) error {
	db = db.WithContext(ctx)

	updates := map[string]interface{}{"status": models.OrderStatusPaid}
	if paymentIntentID != "" {
		updates["stripe_payment_intent_id"] = paymentIntentID
	}

	result := db.Model(&models.StickerOrder{}).
		Where("id = ? AND stripe_checkout_session_id = ?", orderID, sessionID).
		Where("status IN ?", paymentSettlableStatuses).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to mark order paid: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Printf("Order %s marked paid (session %s)", orderID, sessionID)
		return nil
	}

	var order models.StickerOrder
	err := db.Select("id", "status").
		Where("id = ? AND stripe_checkout_session_id = ?", orderID, sessionID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrderNotMatched
	}
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}

	log.Printf("Ignoring payment completion for order %s in status %s", orderID, order.Status)
	return nil
}

// CancelExpiredOrder cancels an order whose checkout session expired unpaid.
// Orders that already left pending_payment are untouched.
func CancelExpiredOrder(ctx context.Context, db *gorm.DB, orderID, sessionID string) error {
	result := db.WithContext(ctx).Model(&models.StickerOrder{}).
		Where("id = ? AND stripe_checkout_session_id = ? AND status = ?", orderID, sessionID, models.OrderStatusPendingPayment).
		Update("status", models.OrderStatusCancelled)
	if result.Error != nil {
		return fmt.Errorf("failed to cancel order: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Printf("Order %s cancelled after checkout expiry", orderID)
	}
	return nil
}
