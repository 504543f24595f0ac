package billing

import (
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/plans"
)

func normalizeCadence(c plans.Cadence) (string, bool) {
	switch plans.Cadence(strings.ToLower(strings.TrimSpace(string(c)))) {
	case plans.CadenceMonthly:
		return models.SubscriptionPlanMonthly, true
	case plans.CadenceAnnual:
		return models.SubscriptionPlanAnnual, true
	default:
		return "", false
	}
}

// addCycle returns the end of one billing cycle starting at start.
func addCycle(start time.Time, cadence string) time.Time {
	if cadence == models.SubscriptionPlanAnnual {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

// stripeStatusCancels reports whether a Stripe subscription status ends the
// subscription for good. past_due and unpaid can still be settled by paying
// the open invoice, so they keep the subscription active.
func stripeStatusCancels(status stripe.SubscriptionStatus) bool {
	switch status {
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return true
	default:
		return false
	}
}
