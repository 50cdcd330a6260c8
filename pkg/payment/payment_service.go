package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// ServiceInterface defines the contract for a payment processing service.
type ServiceInterface interface {
	ProcessPayment(ctx context.Context, userID string, amount float64, currency, paymentMethodID string) (string, error)
}

// StripeService charges senders through Stripe payment intents.
type StripeService struct{}

// NewStripeService sets the global Stripe key and returns the service.
func NewStripeService(apiKey string) *StripeService {
	stripe.Key = apiKey
	return &StripeService{}
}

// ProcessPayment creates and confirms a payment intent for the delivery
// amount. Amounts are in major currency units; Stripe wants minor units.
func (s *StripeService) ProcessPayment(ctx context.Context, userID string, amount float64, currency, paymentMethodID string) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("invalid payment amount: %.2f", amount)
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(int64(amount * 100)),
		Currency:      stripe.String(strings.ToLower(currency)),
		PaymentMethod: stripe.String(paymentMethodID),
		Confirm:       stripe.Bool(true),
	}
	params.Context = ctx
	params.AddMetadata("user_id", userID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe payment intent: %w", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return "", fmt.Errorf("payment not completed: status %s", pi.Status)
	}
	return pi.ID, nil
}
