package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v82"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/plans"
)

// ErrEventNotApplicable marks an event that is valid but can never be applied
// to the local state. Retrying it changes nothing.
var ErrEventNotApplicable = errors.New("stripe event not applicable")

// Notifier is told about subscription changes that warrant a mail.
type Notifier interface {
	SubscriptionStarted(ctx context.Context, sub *models.Subscription)
	SubscriptionCancelled(ctx context.Context, sub *models.Subscription)
}

// ParseStripeEvent decodes a webhook body.
func ParseStripeEvent(payload []byte) (*stripe.Event, error) {
	var ev stripe.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode stripe event: %w", err)
	}
	if ev.ID == "" || ev.Type == "" {
		return nil, errors.New("stripe event without id or type")
	}
	if ev.Data == nil {
		return nil, fmt.Errorf("stripe event %s without data", ev.ID)
	}
	return &ev, nil
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func subscriptionID(s *stripe.Subscription) string {
	if s == nil {
		return ""
	}
	return s.ID
}

func invoiceSubscriptionID(inv *stripe.Invoice) string {
	if inv.Parent == nil || inv.Parent.SubscriptionDetails == nil {
		return ""
	}
	return subscriptionID(inv.Parent.SubscriptionDetails.Subscription)
}

// invoicePeriodEnd is the end of the service period the invoice paid for.
func invoicePeriodEnd(inv *stripe.Invoice) int64 {
	var end int64
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			if line != nil && line.Period != nil && line.Period.End > end {
				end = line.Period.End
			}
		}
	}
	if end == 0 {
		end = inv.PeriodEnd
	}
	return end
}

func subscriptionPeriodEnd(sub *stripe.Subscription) int64 {
	var end int64
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item != nil && item.CurrentPeriodEnd > end {
				end = item.CurrentPeriodEnd
			}
		}
	}
	return end
}

// WebhookProcessor applies Stripe events to local subscriptions.
type WebhookProcessor struct {
	service  *Service
	notifier Notifier
}

// NewWebhookProcessor creates a processor. notifier may be nil.
func NewWebhookProcessor(service *Service, notifier Notifier) *WebhookProcessor {
	return &WebhookProcessor{service: service, notifier: notifier}
}

// Handle dispatches one event. Unknown event types are ignored. Events that
// can never apply return an error wrapping ErrEventNotApplicable.
func (p *WebhookProcessor) Handle(ctx context.Context, ev *stripe.Event) error {
	switch ev.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		return p.handleCheckoutCompleted(ctx, ev)
	case stripe.EventTypeInvoicePaid:
		return p.handleInvoicePaid(ctx, ev)
	case stripe.EventTypeCustomerSubscriptionUpdated:
		return p.handleSubscriptionUpdated(ctx, ev)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		return p.handleSubscriptionDeleted(ctx, ev)
	default:
		log.Debugf("[Billing] Ignoring Stripe event %s (%s)", ev.ID, ev.Type)
		return nil
	}
}

func (p *WebhookProcessor) handleCheckoutCompleted(ctx context.Context, ev *stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &session); err != nil {
		return fmt.Errorf("decode checkout session: %w", err)
	}
	if session.Mode != stripe.CheckoutSessionModeSubscription {
		return nil
	}
	if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		log.Infof("[Billing] Checkout %s completed without payment, waiting for invoice", session.ID)
	}

	rawUserID := session.ClientReferenceID
	if rawUserID == "" {
		rawUserID = session.Metadata["user_id"]
	}
	userID, err := strconv.ParseUint(strings.TrimSpace(rawUserID), 10, 64)
	if err != nil || userID == 0 {
		return fmt.Errorf("checkout session %s without valid user reference", session.ID)
	}
	cadence, ok := plans.ParseCadence(session.Metadata["cadence"])
	if !ok {
		return fmt.Errorf("checkout session %s: %w", session.ID, ErrInvalidCadence)
	}

	stripeSubID := subscriptionID(session.Subscription)
	if stripeSubID != "" {
		if _, err := p.service.FindByStripeID(ctx, stripeSubID); err == nil {
			return nil
		}
	}

	var start *time.Time
	if ev.Created > 0 {
		t := time.Unix(ev.Created, 0).UTC()
		start = &t
	}
	sub, err := p.service.CreateSubscription(ctx, CreateInput{
		UserID:               uint(userID),
		Cadence:              cadence,
		StripeCustomerID:     customerID(session.Customer),
		StripeSubscriptionID: stripeSubID,
		StartDate:            start,
	})
	if err != nil {
		return err
	}
	if p.notifier != nil {
		p.notifier.SubscriptionStarted(ctx, sub)
	}
	return nil
}

func (p *WebhookProcessor) handleInvoicePaid(ctx context.Context, ev *stripe.Event) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(ev.Data.Raw, &inv); err != nil {
		return fmt.Errorf("decode invoice: %w", err)
	}
	subID := invoiceSubscriptionID(&inv)
	end := invoicePeriodEnd(&inv)
	if subID == "" || end == 0 {
		return nil
	}

	// the first invoice is paid during checkout, whose handler books the
	// first cycle; it may even arrive before the checkout event
	first := inv.BillingReason == stripe.InvoiceBillingReasonSubscriptionCreate
	_, err := p.service.Renew(ctx, subID, time.Unix(end, 0), !first)
	switch {
	case first && errors.Is(err, ErrSubscriptionNotFound):
		return nil
	case errors.Is(err, ErrInvalidTransition):
		log.Warnf("[Billing] Paid invoice %s for subscription %s not applied: %v", inv.ID, subID, err)
		return fmt.Errorf("%w: invoice %s: %v", ErrEventNotApplicable, inv.ID, err)
	}
	return err
}

func (p *WebhookProcessor) handleSubscriptionUpdated(ctx context.Context, ev *stripe.Event) error {
	var remote stripe.Subscription
	if err := json.Unmarshal(ev.Data.Raw, &remote); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}
	local, err := p.service.FindByStripeID(ctx, remote.ID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		log.Warnf("[Billing] Update for unknown Stripe subscription %s", remote.ID)
		return nil
	}
	if err != nil {
		return err
	}

	if local.Status == models.SubscriptionStatusActive {
		if end := subscriptionPeriodEnd(&remote); end > 0 {
			if _, err := p.service.Renew(ctx, remote.ID, time.Unix(end, 0), false); err != nil {
				return err
			}
		}
	}

	if !remote.CancelAtPeriodEnd && !stripeStatusCancels(remote.Status) {
		return nil
	}
	wasActive := local.Status == models.SubscriptionStatusActive
	sub, err := p.service.MarkCancelled(ctx, local.ID)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil
		}
		return err
	}
	if wasActive && p.notifier != nil {
		p.notifier.SubscriptionCancelled(ctx, sub)
	}
	return nil
}

func (p *WebhookProcessor) handleSubscriptionDeleted(ctx context.Context, ev *stripe.Event) error {
	var remote stripe.Subscription
	if err := json.Unmarshal(ev.Data.Raw, &remote); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}
	local, err := p.service.FindByStripeID(ctx, remote.ID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	// cancelled subscriptions run out on their own end date
	if local.Status != models.SubscriptionStatusActive {
		return nil
	}

	at := time.Now()
	if remote.EndedAt > 0 {
		at = time.Unix(remote.EndedAt, 0)
	}
	_, err = p.service.MarkExpired(ctx, local.ID, at)
	return err
}
