package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/credits"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/plans"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvalidTransition    = errors.New("invalid subscription status transition")
	ErrInvalidCadence       = errors.New("invalid billing cadence")
)

// DefaultGracePeriod is how long an active subscription may stay past its
// end date without a renewal before it is expired.
const DefaultGracePeriod = 72 * time.Hour

const expireBatchSize = 100

// CreditGranter books the credits that come with a paid billing cycle.
type CreditGranter interface {
	GrantCycle(ctx context.Context, userID uint, reference string) (int, error)
}

// Service owns the subscription lifecycle.
type Service struct {
	repo    Repository
	credits CreditGranter
	now     func() time.Time
	grace   time.Duration
}

// NewService creates a billing service from injected dependencies. granter
// may be nil, then no cycle credits are booked.
func NewService(repo Repository, granter CreditGranter) *Service {
	return &Service{
		repo:    repo,
		credits: granter,
		now:     time.Now,
		grace:   DefaultGracePeriod,
	}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), credits.NewServiceFromDB(db))
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithGracePeriod replaces the renewal grace period used by ExpireDue.
func (s *Service) WithGracePeriod(d time.Duration) *Service {
	s.grace = d
	return s
}

// CreateSubscription stores a new active subscription and books its first
// cycle of credits. Repeated calls for the same Stripe subscription return
// the stored record.
func (s *Service) CreateSubscription(ctx context.Context, in CreateInput) (*models.Subscription, error) {
	if in.UserID == 0 {
		return nil, errors.New("user_id is required")
	}
	cadence, ok := normalizeCadence(in.Cadence)
	if !ok {
		return nil, ErrInvalidCadence
	}

	stripeSubID := strings.TrimSpace(in.StripeSubscriptionID)
	if stripeSubID != "" {
		existing, err := s.repo.FindSubscriptionByStripeID(ctx, stripeSubID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	start := s.now().UTC()
	if in.StartDate != nil {
		start = in.StartDate.UTC()
	}
	end := addCycle(start, cadence)
	if in.PeriodEnd != nil && in.PeriodEnd.After(start) {
		end = in.PeriodEnd.UTC()
	}

	sub := &models.Subscription{
		UserID:               in.UserID,
		Plan:                 cadence,
		BillingCycle:         cadence,
		Status:               models.SubscriptionStatusActive,
		StartDate:            start,
		EndDate:              &end,
		StripeCustomerID:     strings.TrimSpace(in.StripeCustomerID),
		StripeSubscriptionID: stripeSubID,
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	log.Infof("[Billing] Subscription %s created for user %d (%s)", sub.ID, sub.UserID, sub.Plan)

	s.grantCycle(ctx, sub, end)
	return sub, nil
}

func (s *Service) grantCycle(ctx context.Context, sub *models.Subscription, periodEnd time.Time) {
	if s.credits == nil {
		return
	}
	ref := credits.CycleReference(sub.ID, periodEnd.Unix())
	if _, err := s.credits.GrantCycle(ctx, sub.UserID, ref); err != nil {
		log.Errorf("[Billing] Failed to grant cycle credits for subscription %s: %v", sub.ID, err)
	}
}

func (s *Service) find(ctx context.Context, id string) (*models.Subscription, error) {
	sub, err := s.repo.FindSubscription(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	return sub, err
}

// FindByStripeID resolves the local record of a Stripe subscription.
func (s *Service) FindByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	id := strings.TrimSpace(stripeSubscriptionID)
	if id == "" {
		return nil, ErrSubscriptionNotFound
	}
	sub, err := s.repo.FindSubscriptionByStripeID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	return sub, err
}

// MarkCancelled moves an active subscription to cancelled. Cancelling an
// already cancelled subscription is a no-op.
func (s *Service) MarkCancelled(ctx context.Context, id string) (*models.Subscription, error) {
	sub, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status == models.SubscriptionStatusCancelled {
		return sub, nil
	}
	if !sub.CanTransitionTo(models.SubscriptionStatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sub.Status, models.SubscriptionStatusCancelled)
	}

	now := s.now().UTC()
	ok, err := s.repo.TransitionSubscription(ctx, sub.ID, models.SubscriptionStatusActive, models.SubscriptionStatusCancelled,
		map[string]interface{}{"cancelled_at": now})
	if err != nil {
		return nil, err
	}
	if !ok {
		// lost a race; accept it if the winner cancelled too
		current, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status == models.SubscriptionStatusCancelled {
			return current, nil
		}
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, models.SubscriptionStatusCancelled)
	}

	log.Infof("[Billing] Subscription %s cancelled", sub.ID)
	return s.find(ctx, id)
}

// MarkExpired moves an active subscription to expired as of at. at is
// clamped to now, and the end date is pulled back to at when it is missing
// or later, so an expired record never ends in the future.
func (s *Service) MarkExpired(ctx context.Context, id string, at time.Time) (*models.Subscription, error) {
	sub, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sub.CanTransitionTo(models.SubscriptionStatusExpired) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sub.Status, models.SubscriptionStatusExpired)
	}

	now := s.now().UTC()
	if at.IsZero() || at.After(now) {
		at = now
	}
	updates := map[string]interface{}{}
	if sub.EndDate == nil || sub.EndDate.After(at) {
		updates["end_date"] = at.UTC()
	}

	ok, err := s.repo.TransitionSubscription(ctx, sub.ID, models.SubscriptionStatusActive, models.SubscriptionStatusExpired, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: subscription %s changed concurrently", ErrInvalidTransition, sub.ID)
	}

	log.Infof("[Billing] Subscription %s expired", sub.ID)
	return s.find(ctx, id)
}

// Renew extends an active subscription to periodEnd. With grantCredits a
// new cycle of credits is booked, at most once per period.
func (s *Service) Renew(ctx context.Context, stripeSubscriptionID string, periodEnd time.Time, grantCredits bool) (*models.Subscription, error) {
	sub, err := s.FindByStripeID(ctx, stripeSubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.SubscriptionStatusActive {
		return nil, fmt.Errorf("%w: cannot renew %s subscription", ErrInvalidTransition, sub.Status)
	}

	periodEnd = periodEnd.UTC()
	if sub.EndDate == nil || periodEnd.After(*sub.EndDate) {
		if err := s.repo.UpdateSubscriptionEndDate(ctx, sub.ID, periodEnd); err != nil {
			return nil, err
		}
		sub.EndDate = &periodEnd
	}
	if grantCredits {
		s.grantCycle(ctx, sub, periodEnd)
	}
	return sub, nil
}

// ActiveSubscription returns the subscription that currently entitles the
// user to the paid plan, or nil. The most recent one wins.
func (s *Service) ActiveSubscription(ctx context.Context, userID uint) (*models.Subscription, error) {
	subs, err := s.repo.ListSubscriptionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range subs {
		if subs[i].IsEntitling(now) {
			return &subs[i], nil
		}
	}
	return nil, nil
}

// LatestSubscription returns the newest subscription of any status, or nil.
func (s *Service) LatestSubscription(ctx context.Context, userID uint) (*models.Subscription, error) {
	subs, err := s.repo.ListSubscriptionsByUser(ctx, userID)
	if err != nil || len(subs) == 0 {
		return nil, err
	}
	return &subs[0], nil
}

// EffectivePlan returns the plan the user is entitled to right now.
func (s *Service) EffectivePlan(ctx context.Context, userID uint) (plans.Key, error) {
	sub, err := s.ActiveSubscription(ctx, userID)
	if err != nil {
		return plans.KeyFree, err
	}
	if sub != nil {
		return plans.KeyPro, nil
	}
	return plans.KeyFree, nil
}

// ExpireDue expires active subscriptions whose end date passed more than
// the grace period before now without a renewal. It returns the number
// expired.
func (s *Service) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.UTC().Add(-s.grace)
	subs, err := s.repo.ListOverdueSubscriptions(ctx, cutoff, expireBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, sub := range subs {
		if _, err := s.MarkExpired(ctx, sub.ID, *sub.EndDate); err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				continue
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// RecordWebhookEvent persists webhook payloads idempotently. The returned
// flag is true when the event still has to be processed.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	created, stored, err := s.repo.CreateWebhookEventIfNotExists(ctx, event)
	if err != nil {
		return false, nil, err
	}
	return created || stored.NeedsProcessing(), stored, nil
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(ctx, webhookEventID, errMsg)
}
