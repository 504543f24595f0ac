package billing

import (
	"time"

	"github.com/ManuelReschke/ColorCalm/internal/pkg/plans"
)

// CreateInput describes a subscription bought through checkout.
type CreateInput struct {
	UserID               uint
	Cadence              plans.Cadence
	StripeCustomerID     string
	StripeSubscriptionID string
	// StartDate defaults to now.
	StartDate *time.Time
	// PeriodEnd defaults to StartDate plus one billing cycle.
	PeriodEnd *time.Time
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}
