package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/subscription"

	"github.com/ManuelReschke/ColorCalm/internal/pkg/env"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/plans"
)

// StripeClient talks to the parts of the Stripe API the site needs.
type StripeClient struct {
	SecretKey    string
	APIBaseURL   string
	PriceMonthly string
	PriceAnnual  string
	SuccessURL   string
	CancelURL    string

	HTTPClient *http.Client
}

// CheckoutInput describes a checkout session for a Pro subscription.
type CheckoutInput struct {
	UserID     uint
	Email      string
	Cadence    plans.Cadence
	CustomerID string
}

// CheckoutSession is the part of Stripe's response the controller needs.
type CheckoutSession struct {
	ID  string
	URL string
}

func NewStripeClientFromEnv() *StripeClient {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	return &StripeClient{
		SecretKey:    strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		APIBaseURL:   strings.TrimSpace(env.GetEnv("STRIPE_API_BASE_URL", stripe.APIURL)),
		PriceMonthly: strings.TrimSpace(env.GetEnv("STRIPE_PRICE_MONTHLY", "")),
		PriceAnnual:  strings.TrimSpace(env.GetEnv("STRIPE_PRICE_ANNUAL", "")),
		SuccessURL:   base + "/account/subscription?checkout=success",
		CancelURL:    base + "/pricing?checkout=cancelled",
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Configured reports whether checkout can be offered.
func (c *StripeClient) Configured() bool {
	return c != nil && c.SecretKey != "" && c.PriceMonthly != "" && c.PriceAnnual != ""
}

// PriceID maps a cadence to the configured Stripe price.
func (c *StripeClient) PriceID(cadence plans.Cadence) (string, error) {
	var id string
	switch cadence {
	case plans.CadenceMonthly:
		id = c.PriceMonthly
	case plans.CadenceAnnual:
		id = c.PriceAnnual
	default:
		return "", ErrInvalidCadence
	}
	if id == "" {
		return "", fmt.Errorf("no Stripe price configured for %s", cadence)
	}
	return id, nil
}

func (c *StripeClient) backend() (stripe.Backend, error) {
	if strings.TrimSpace(c.SecretKey) == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is not configured")
	}
	cfg := &stripe.BackendConfig{HTTPClient: c.HTTPClient}
	if base := strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/"); base != "" {
		cfg.URL = stripe.String(base)
	}
	return stripe.GetBackendWithConfig(stripe.APIBackend, cfg), nil
}

// CreateCheckoutSession starts a hosted checkout for a Pro subscription.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutSession, error) {
	if in.UserID == 0 {
		return nil, errors.New("user_id is required")
	}
	priceID, err := c.PriceID(in.Cadence)
	if err != nil {
		return nil, err
	}
	backend, err := c.backend()
	if err != nil {
		return nil, err
	}
	userID := strconv.FormatUint(uint64(in.UserID), 10)

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:        stripe.String(c.SuccessURL),
		CancelURL:         stripe.String(c.CancelURL),
		ClientReferenceID: stripe.String(userID),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"user_id": userID,
				"cadence": string(in.Cadence),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", userID)
	params.AddMetadata("cadence", string(in.Cadence))
	if in.CustomerID != "" {
		params.Customer = stripe.String(in.CustomerID)
	} else if in.Email != "" {
		params.CustomerEmail = stripe.String(in.Email)
	}

	sessions := checkoutsession.Client{B: backend, Key: c.SecretKey}
	session, err := sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	if session.URL == "" {
		return nil, errors.New("stripe checkout session without url")
	}
	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// CancelAtPeriodEnd stops renewal of a Stripe subscription. Access stays
// until the paid period ends.
func (c *StripeClient) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	id := strings.TrimSpace(subscriptionID)
	if id == "" {
		return errors.New("subscription id is required")
	}
	backend, err := c.backend()
	if err != nil {
		return err
	}

	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
	params.Context = ctx
	subs := subscription.Client{B: backend, Key: c.SecretKey}
	if _, err := subs.Update(id, params); err != nil {
		return fmt.Errorf("stripe cancel subscription %s: %w", id, err)
	}
	return nil
}
