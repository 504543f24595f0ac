package billing

import (
	"testing"
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/plans"
)

func TestNormalizeCadence(t *testing.T) {
	tests := []struct {
		in   plans.Cadence
		want string
		ok   bool
	}{
		{in: "monthly", want: models.SubscriptionPlanMonthly, ok: true},
		{in: " ANNUAL ", want: models.SubscriptionPlanAnnual, ok: true},
		{in: "weekly", ok: false},
	}

	for _, tt := range tests {
		got, ok := normalizeCadence(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("normalizeCadence(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAddCycle(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	if got := addCycle(start, models.SubscriptionPlanMonthly); !got.Equal(time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected monthly cycle end %v", got)
	}
	if got := addCycle(start, models.SubscriptionPlanAnnual); !got.Equal(time.Date(2027, 1, 15, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected annual cycle end %v", got)
	}
}

func TestStripeStatusCancels(t *testing.T) {
	for _, status := range []stripe.SubscriptionStatus{"canceled", "incomplete_expired"} {
		if !stripeStatusCancels(status) {
			t.Fatalf("expected status %q to cancel", status)
		}
	}
	for _, status := range []stripe.SubscriptionStatus{"active", "trialing", "past_due", "unpaid"} {
		if stripeStatusCancels(status) {
			t.Fatalf("expected status %q to keep the subscription", status)
		}
	}
}
