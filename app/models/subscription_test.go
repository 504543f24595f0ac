package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionCanTransitionTo(t *testing.T) {
	active := &Subscription{Status: SubscriptionStatusActive}
	assert.True(t, active.CanTransitionTo(SubscriptionStatusCancelled))
	assert.True(t, active.CanTransitionTo(SubscriptionStatusExpired))
	assert.False(t, active.CanTransitionTo(SubscriptionStatusActive))

	for _, status := range []string{SubscriptionStatusCancelled, SubscriptionStatusExpired} {
		sub := &Subscription{Status: status}
		assert.False(t, sub.CanTransitionTo(SubscriptionStatusActive), status)
		assert.False(t, sub.CanTransitionTo(SubscriptionStatusCancelled), status)
		assert.False(t, sub.CanTransitionTo(SubscriptionStatusExpired), status)
	}
}

func TestSubscriptionIsEntitling(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	past := now.Add(-time.Hour)

	assert.True(t, (&Subscription{Status: SubscriptionStatusActive}).IsEntitling(now))
	assert.True(t, (&Subscription{Status: SubscriptionStatusCancelled, EndDate: &future}).IsEntitling(now))
	assert.False(t, (&Subscription{Status: SubscriptionStatusCancelled, EndDate: &past}).IsEntitling(now))
	assert.False(t, (&Subscription{Status: SubscriptionStatusCancelled}).IsEntitling(now))
	assert.False(t, (&Subscription{Status: SubscriptionStatusExpired, EndDate: &past}).IsEntitling(now))
}

func TestSubscriptionBeforeSaveSyncsBillingCycle(t *testing.T) {
	sub := &Subscription{Plan: SubscriptionPlanAnnual, Status: SubscriptionStatusActive, BillingCycle: SubscriptionPlanMonthly}
	require.NoError(t, sub.BeforeSave(nil))
	assert.Equal(t, SubscriptionPlanAnnual, sub.BillingCycle)

	bad := &Subscription{Plan: "weekly", Status: SubscriptionStatusActive}
	assert.Error(t, bad.BeforeSave(nil))

	badStatus := &Subscription{Plan: SubscriptionPlanMonthly, Status: "paused"}
	assert.Error(t, badStatus.BeforeSave(nil))
}

func TestSubscriptionIsConsistent(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	assert.True(t, (&Subscription{Plan: SubscriptionPlanMonthly, BillingCycle: SubscriptionPlanMonthly, Status: SubscriptionStatusExpired, EndDate: &past}).IsConsistent(now))
	assert.False(t, (&Subscription{Plan: SubscriptionPlanMonthly, Status: SubscriptionStatusExpired}).IsConsistent(now))
	assert.False(t, (&Subscription{Plan: SubscriptionPlanMonthly, Status: SubscriptionStatusExpired, EndDate: &future}).IsConsistent(now))
	assert.False(t, (&Subscription{Plan: SubscriptionPlanMonthly, BillingCycle: SubscriptionPlanAnnual, Status: SubscriptionStatusActive}).IsConsistent(now))
}

func TestSubscriptionRenewalDate(t *testing.T) {
	end := time.Now().Add(24 * time.Hour)
	assert.Equal(t, &end, (&Subscription{Status: SubscriptionStatusActive, EndDate: &end}).RenewalDate())
	assert.Nil(t, (&Subscription{Status: SubscriptionStatusCancelled, EndDate: &end}).RenewalDate())
}

func TestCreateUser(t *testing.T) {
	u, err := CreateUser("  Maja  ", "Maja@Example.com ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "Maja", u.Name)
	assert.Equal(t, "maja@example.com", u.Email)
	assert.Equal(t, STATUS_ACTIVE, u.Status)
	assert.True(t, u.CheckPassword("secret123"))
	assert.False(t, u.CheckPassword("wrong"))

	_, err = CreateUser("ab", "not-an-email", "123")
	assert.Error(t, err)
}
