// Package payment hands paid registrations off to a hosted checkout and
// reads the provider's webhooks back.
package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutRequest describes the single ticket being paid for.
type CheckoutRequest struct {
	RegistrationID uuid.UUID
	EventTitle     string
	TicketType     string
	Amount         decimal.Decimal
	Currency       string
	CustomerEmail  string
	SuccessURL     string
	CancelURL      string
}

// CheckoutSession is a hosted payment page created for a registration.
type CheckoutSession struct {
	ID  string
	URL string
}

// WebhookKind classifies a verified provider notification.
type WebhookKind string

const (
	WebhookPaymentCompleted WebhookKind = "completed"
	WebhookPaymentExpired   WebhookKind = "expired"
	WebhookIgnored          WebhookKind = "ignored"
)

// WebhookEvent is a verified provider notification about a checkout session.
type WebhookEvent struct {
	ID             string
	Kind           WebhookKind
	SessionID      string
	RegistrationID string
}

// Gateway is a hosted payment provider.
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
