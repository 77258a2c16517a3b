package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	appConfig "github.com/discr/discr-api/config"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

// CheckoutRequest describes the hosted checkout session for one sticker order
type CheckoutRequest struct {
	OrderID        string
	OrderNumber    string
	Quantity       int
	UnitPriceCents int64
	Currency       string
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
}

// CheckoutSession is the part of the processor's session the API keeps
type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentProvider creates hosted checkout sessions
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// StripePaymentService implements PaymentProvider with Stripe Checkout
type StripePaymentService struct {
	secretKey string
}

var paymentServiceInstance PaymentProvider

// InitPaymentService initializes the Stripe-backed payment service
func InitPaymentService() (PaymentProvider, error) {
	cfg := appConfig.GetConfig()
	if cfg == nil || cfg.StripeSecretKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is not configured")
	}

	stripe.Key = cfg.StripeSecretKey
	paymentServiceInstance = &StripePaymentService{secretKey: cfg.StripeSecretKey}
	return paymentServiceInstance, nil
}

// GetPaymentService returns the initialized payment service instance
func GetPaymentService() PaymentProvider {
	return paymentServiceInstance
}

// SetPaymentService sets the payment service instance (primarily for testing)
func SetPaymentService(service PaymentProvider) {
	paymentServiceInstance = service
}

// CreateCheckoutSession creates a Stripe Checkout session whose metadata carries the order id
func (s *StripePaymentService) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.UnitPriceCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String("Discr QR Code Stickers"),
						Description: stripe.String(fmt.Sprintf("Order %s", req.OrderNumber)),
					},
				},
				Quantity: stripe.Int64(int64(req.Quantity)),
			},
		},
		Metadata: map[string]string{
			"order_id":     req.OrderID,
			"order_number": req.OrderNumber,
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		log.Printf("Stripe checkout session creation failed for order %s: %v", req.OrderID, err)
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// MockPaymentService is a mock implementation of PaymentProvider for testing
type MockPaymentService struct {
	Err      error
	requests []CheckoutRequest
	mu       sync.Mutex
}

// NewMockPaymentService creates a new mock payment service
func NewMockPaymentService() *MockPaymentService {
	return &MockPaymentService{}
}

// SetAsMockForTesting sets this mock as the global payment service instance for testing
func (m *MockPaymentService) SetAsMockForTesting() {
	SetPaymentService(m)
}

// CreateCheckoutSession records the request and returns a session derived from the order id
func (m *MockPaymentService) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return &CheckoutSession{
		ID:  MockSessionID(req.OrderID),
		URL: "https://checkout.stripe.test/pay/" + MockSessionID(req.OrderID),
	}, nil
}

// Requests returns the checkout requests seen so far
func (m *MockPaymentService) Requests() []CheckoutRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]CheckoutRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// MockSessionID is the session id the mock hands out for an order
func MockSessionID(orderID string) string {
	return "cs_test_" + orderID
}
