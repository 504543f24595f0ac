package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Billing cadences a subscription can be bought with.
const (
	SubscriptionPlanMonthly = "monthly"
	SubscriptionPlanAnnual  = "annual"
)

// Subscription lifecycle states.
const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusExpired   = "expired"
)

// Subscription is a user's billing relationship with Stripe. Rows are never
// deleted; cancelled and expired records stay for audit.
type Subscription struct {
	ID                   string     `gorm:"type:char(36);primaryKey" json:"id"`
	UserID               uint       `gorm:"not null;index:idx_subscriptions_user_status,priority:1" json:"user_id"`
	User                 *User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Plan                 string     `gorm:"type:varchar(16);not null" json:"plan"`
	Status               string     `gorm:"type:varchar(16);not null;default:'active';index:idx_subscriptions_user_status,priority:2;index:idx_subscriptions_status_end,priority:1" json:"status"`
	BillingCycle         string     `gorm:"type:varchar(16);not null" json:"billing_cycle"`
	StartDate            time.Time  `gorm:"type:timestamp;not null" json:"start_date"`
	EndDate              *time.Time `gorm:"type:timestamp;default:null;index:idx_subscriptions_status_end,priority:2" json:"end_date,omitempty"`
	CancelledAt          *time.Time `gorm:"type:timestamp;default:null" json:"cancelled_at,omitempty"`
	StripeCustomerID     string     `gorm:"type:varchar(191);index" json:"stripe_customer_id"`
	StripeSubscriptionID string     `gorm:"type:varchar(191);index" json:"stripe_subscription_id"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns a UUID when none was set.
func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// BeforeSave keeps BillingCycle equal to Plan and rejects unknown values.
func (s *Subscription) BeforeSave(tx *gorm.DB) error {
	if !IsValidSubscriptionPlan(s.Plan) {
		return fmt.Errorf("invalid subscription plan %q", s.Plan)
	}
	if !IsValidSubscriptionStatus(s.Status) {
		return fmt.Errorf("invalid subscription status %q", s.Status)
	}
	s.BillingCycle = s.Plan
	return nil
}

func IsValidSubscriptionPlan(plan string) bool {
	return plan == SubscriptionPlanMonthly || plan == SubscriptionPlanAnnual
}

func IsValidSubscriptionStatus(status string) bool {
	switch status {
	case SubscriptionStatusActive, SubscriptionStatusCancelled, SubscriptionStatusExpired:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
// Only active subscriptions move, either to cancelled or to expired.
func (s *Subscription) CanTransitionTo(next string) bool {
	if s.Status != SubscriptionStatusActive {
		return false
	}
	return next == SubscriptionStatusCancelled || next == SubscriptionStatusExpired
}

// IsEntitling reports whether the subscription still grants the paid plan at
// now. A cancelled subscription keeps its benefits until the paid period ends.
func (s *Subscription) IsEntitling(now time.Time) bool {
	switch s.Status {
	case SubscriptionStatusActive:
		return true
	case SubscriptionStatusCancelled:
		return s.EndDate != nil && s.EndDate.After(now)
	default:
		return false
	}
}

// RenewalDate is the date the next charge happens, nil unless active.
func (s *Subscription) RenewalDate() *time.Time {
	if s.Status != SubscriptionStatusActive {
		return nil
	}
	return s.EndDate
}

// IsConsistent checks the stored record against the lifecycle rules: an
// expired subscription must carry an end date that is not in the future.
func (s *Subscription) IsConsistent(now time.Time) bool {
	if s.BillingCycle != "" && s.BillingCycle != s.Plan {
		return false
	}
	if s.Status == SubscriptionStatusExpired {
		return s.EndDate != nil && !s.EndDate.After(now)
	}
	return true
}
