package controllers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/discr/discr-api/config"
	"github.com/discr/discr-api/services"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
)

// maxWebhookBodyBytes bounds the payload read from the payment processor
const maxWebhookBodyBytes = int64(65536)

// StripeWebhook handles POST /api/v1/webhooks/stripe - applies checkout session events to orders
func StripeWebhook(c *gin.Context) {
	cfg := config.GetConfig()
	if cfg == nil || cfg.StripeWebhookSecret == "" {
		log.Printf("Stripe webhook received but STRIPE_WEBHOOK_SECRET is not configured")
		respondError(c, http.StatusInternalServerError, "CONFIGURATION_ERROR", "Webhook secret not configured")
		return
	}

	// Every event must be signed with the webhook secret
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		respondError(c, http.StatusBadRequest, "MISSING_SIGNATURE", "Missing stripe-signature header")
		return
	}

	// Read the raw body, the signature covers the exact bytes
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "Failed to read request body")
		return
	}

	// Verify the signature and decode the checkout session
	event, err := services.VerifyWebhookEvent(payload, signature, cfg.StripeWebhookSecret)
	if err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			log.Printf("Rejected Stripe webhook: %v", err)
			respondError(c, http.StatusBadRequest, "INVALID_SIGNATURE", "Invalid signature")
			return
		}
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "Invalid event payload")
		return
	}

	ctx := c.Request.Context()
	db := config.GetDB()

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		if event.OrderID == "" {
			respondError(c, http.StatusBadRequest, "MISSING_ORDER_ID", "Missing order_id in session metadata")
			return
		}
		if err := services.MarkOrderPaid(ctx, db, event.OrderID, event.SessionID, event.PaymentIntentID); err != nil {
			if errors.Is(err, services.ErrOrderNotMatched) {
				respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
				return
			}
			log.Printf("Failed to apply checkout completion for order %s: %v", event.OrderID, err)
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update order")
			return
		}

	case stripe.EventTypeCheckoutSessionExpired:
		if event.OrderID != "" {
			if err := services.CancelExpiredOrder(ctx, db, event.OrderID, event.SessionID); err != nil {
				log.Printf("Failed to cancel expired order %s: %v", event.OrderID, err)
				respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update order")
				return
			}
		}

	default:
		// Other event types are acknowledged so Stripe stops retrying
		log.Printf("Ignoring Stripe event %s", event.Type)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
