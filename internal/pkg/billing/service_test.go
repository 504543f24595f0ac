package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/credits"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/plans"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/testutil"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestService(t *testing.T) (*Service, *credits.Service, *testClock) {
	t.Helper()
	db := testutil.NewDB(t)
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	creditSvc := credits.NewServiceFromDB(db)
	svc := NewService(NewRepository(db), creditSvc).WithClock(clock.Now)
	return svc, creditSvc, clock
}

func TestCreateSubscription(t *testing.T) {
	svc, creditSvc, clock := newTestService(t)
	ctx := context.Background()

	sub, err := svc.CreateSubscription(ctx, CreateInput{
		UserID:               1,
		Cadence:              plans.CadenceMonthly,
		StripeCustomerID:     "cus_1",
		StripeSubscriptionID: "sub_1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, models.SubscriptionPlanMonthly, sub.Plan)
	assert.Equal(t, sub.Plan, sub.BillingCycle)
	assert.True(t, sub.StartDate.Equal(clock.now))
	require.NotNil(t, sub.EndDate)
	assert.True(t, sub.EndDate.Equal(clock.now.AddDate(0, 1, 0)))

	balance, err := creditSvc.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 200, balance)

	again, err := svc.CreateSubscription(ctx, CreateInput{UserID: 1, Cadence: plans.CadenceMonthly, StripeSubscriptionID: "sub_1"})
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)

	balance, err = creditSvc.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 200, balance, "duplicate checkout must not grant twice")
}

func TestCreateSubscriptionValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateSubscription(ctx, CreateInput{UserID: 1, Cadence: "weekly"})
	assert.ErrorIs(t, err, ErrInvalidCadence)

	_, err = svc.CreateSubscription(ctx, CreateInput{Cadence: plans.CadenceAnnual})
	assert.Error(t, err)
}

func TestCreateSubscriptionUsesProviderPeriodEnd(t *testing.T) {
	svc, _, clock := newTestService(t)
	end := clock.now.AddDate(1, 0, 2)

	sub, err := svc.CreateSubscription(context.Background(), CreateInput{UserID: 2, Cadence: plans.CadenceAnnual, PeriodEnd: &end})
	require.NoError(t, err)
	assert.True(t, sub.EndDate.Equal(end))
	assert.Equal(t, models.SubscriptionPlanAnnual, sub.BillingCycle)
}

func TestMarkCancelled(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	sub, err := svc.CreateSubscription(ctx, CreateInput{UserID: 1, Cadence: plans.CadenceMonthly})
	require.NoError(t, err)

	cancelled, err := svc.MarkCancelled(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.True(t, cancelled.CancelledAt.Equal(clock.now))

	again, err := svc.MarkCancelled(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusCancelled, again.Status)

	_, err = svc.MarkExpired(ctx, sub.ID, clock.now)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.MarkCancelled(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestMarkExpiredClampsEndDate(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	sub, err := svc.CreateSubscription(ctx, CreateInput{UserID: 1, Cadence: plans.CadenceAnnual})
	require.NoError(t, err)

	// a future expiry time is clamped to now
	expired, err := svc.MarkExpired(ctx, sub.ID, clock.now.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusExpired, expired.Status)
	require.NotNil(t, expired.EndDate)
	assert.False(t, expired.EndDate.After(clock.now))
	assert.True(t, expired.IsConsistent(clock.now))

	_, err = svc.MarkExpired(ctx, sub.ID, clock.now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.MarkCancelled(ctx, sub.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.MarkExpired(ctx, "missing", clock.now)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestActiveSubscriptionAndEffectivePlan(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	sub, err := svc.ActiveSubscription(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, sub)
	plan, err := svc.EffectivePlan(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, plans.KeyFree, plan)

	created, err := svc.CreateSubscription(ctx, CreateInput{UserID: 5, Cadence: plans.CadenceMonthly})
	require.NoError(t, err)

	sub, err = svc.ActiveSubscription(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, created.ID, sub.ID)

	// cancelled keeps the benefits until the end date
	_, err = svc.MarkCancelled(ctx, created.ID)
	require.NoError(t, err)
	plan, err = svc.EffectivePlan(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, plans.KeyPro, plan)

	clock.now = clock.now.AddDate(0, 2, 0)
	sub, err = svc.ActiveSubscription(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, sub)
	plan, err = svc.EffectivePlan(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, plans.KeyFree, plan)

	latest, err := svc.LatestSubscription(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, models.SubscriptionStatusCancelled, latest.Status)
}

func TestRenew(t *testing.T) {
	svc, creditSvc, clock := newTestService(t)
	ctx := context.Background()

	sub, err := svc.CreateSubscription(ctx, CreateInput{UserID: 3, Cadence: plans.CadenceMonthly, StripeSubscriptionID: "sub_r"})
	require.NoError(t, err)

	next := sub.EndDate.AddDate(0, 1, 0)
	renewed, err := svc.Renew(ctx, "sub_r", next, true)
	require.NoError(t, err)
	assert.True(t, renewed.EndDate.Equal(next))

	// the same period is booked once
	_, err = svc.Renew(ctx, "sub_r", next, true)
	require.NoError(t, err)
	balance, err := creditSvc.Balance(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 400, balance)

	// an older period end never shortens the subscription
	older, err := svc.Renew(ctx, "sub_r", clock.now, false)
	require.NoError(t, err)
	assert.True(t, older.EndDate.Equal(next))

	_, err = svc.Renew(ctx, "sub_unknown", next, true)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)

	_, err = svc.MarkCancelled(ctx, sub.ID)
	require.NoError(t, err)
	_, err = svc.Renew(ctx, "sub_r", next.AddDate(0, 1, 0), true)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestExpireDue(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	overdue, err := svc.CreateSubscription(ctx, CreateInput{UserID: 1, Cadence: plans.CadenceMonthly})
	require.NoError(t, err)
	clock.now = clock.now.AddDate(0, 0, 20)
	fresh, err := svc.CreateSubscription(ctx, CreateInput{UserID: 2, Cadence: plans.CadenceMonthly})
	require.NoError(t, err)

	// move past the first end date plus the grace period
	clock.now = overdue.EndDate.Add(DefaultGracePeriod + time.Hour)
	n, err := svc.ExpireDue(ctx, clock.now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := svc.find(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusExpired, got.Status)
	assert.True(t, got.EndDate.Equal(*overdue.EndDate))

	got, err = svc.find(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, got.Status)

	n, err = svc.ExpireDue(ctx, clock.now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecordWebhookEventDedup(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	in := WebhookEventInput{Provider: "Stripe", ProviderEventID: "evt_1", EventType: "invoice.paid", PayloadJSON: `{}`, SignatureValid: true}

	process, event, err := svc.RecordWebhookEvent(ctx, in)
	require.NoError(t, err)
	assert.True(t, process)
	assert.Equal(t, "stripe", event.Provider)

	// stored but not yet processed: a retry processes it
	process, _, err = svc.RecordWebhookEvent(ctx, in)
	require.NoError(t, err)
	assert.True(t, process)

	require.NoError(t, svc.MarkWebhookProcessed(ctx, event.ID, nil))
	process, _, err = svc.RecordWebhookEvent(ctx, in)
	require.NoError(t, err)
	assert.False(t, process)

	require.NoError(t, svc.MarkWebhookProcessed(ctx, event.ID, assert.AnError))
	process, stored, err := svc.RecordWebhookEvent(ctx, in)
	require.NoError(t, err)
	assert.True(t, process, "failed events are retried")
	assert.Equal(t, assert.AnError.Error(), stored.ProcessingError)
}

func TestWebhookEventCallsHonourContext(t *testing.T) {
	svc, _, _ := newTestService(t)
	in := WebhookEventInput{Provider: "stripe", ProviderEventID: "evt_ctx", EventType: "invoice.paid", PayloadJSON: `{}`}

	process, event, err := svc.RecordWebhookEvent(context.Background(), in)
	require.NoError(t, err)
	require.True(t, process)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = svc.RecordWebhookEvent(cancelled, WebhookEventInput{Provider: "stripe", ProviderEventID: "evt_ctx_2", PayloadJSON: `{}`})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, svc.MarkWebhookProcessed(cancelled, event.ID, nil), context.Canceled)

	// nothing was written through the cancelled context
	process, _, err = svc.RecordWebhookEvent(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, process)
}
