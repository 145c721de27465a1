package services

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentProvider is the opaque payment boundary: an amount and plan go in,
// a redirect/session reference comes out. The exam core has zero coupling to
// this flow.
type PaymentProvider struct {
	log      *zap.Logger
	provider string
	currency string
}

func NewPaymentProvider(log *zap.Logger, provider, currency string) *PaymentProvider {
	return &PaymentProvider{log: log, provider: provider, currency: currency}
}

// CreateCheckout simulates opening a checkout session with the configured
// provider. In a real deployment this would call the gateway's session API
// and return its redirect URL.
func (p *PaymentProvider) CreateCheckout(amount float64, planID string) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("invalid checkout amount: %v", amount)
	}

	sessionRef := uuid.NewString()
	p.log.Info("Checkout session created",
		zap.String("provider", p.provider),
		zap.String("plan", planID),
		zap.Float64("amount", amount),
		zap.String("currency", p.currency),
		zap.String("session_ref", sessionRef),
	)
	return fmt.Sprintf("/checkout/%s/%s", p.provider, sessionRef), nil
}
