package billing

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/ColorCalm/app/models"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	FindSubscription(ctx context.Context, id string) (*models.Subscription, error)
	FindSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error)
	ListSubscriptionsByUser(ctx context.Context, userID uint) ([]models.Subscription, error)
	TransitionSubscription(ctx context.Context, id, from, to string, updates map[string]interface{}) (bool, error)
	UpdateSubscriptionEndDate(ctx context.Context, id string, endDate time.Time) error
	ListOverdueSubscriptions(ctx context.Context, endedBefore time.Time, limit int) ([]models.Subscription, error)
	CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// updates skips model hooks; partial column maps would fail validation.
func (r *gormRepository) updates(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Session(&gorm.Session{SkipHooks: true}).Model(&models.Subscription{})
}

func (r *gormRepository) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *gormRepository) FindSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) FindSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) ListSubscriptionsByUser(ctx context.Context, userID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_date DESC").
		Order("created_at DESC").
		Find(&subs).Error
	return subs, err
}

// TransitionSubscription moves a subscription from one status to another.
// The update is conditional on the current status, so concurrent webhook
// deliveries cannot both apply it; false means the row was not in from.
func (r *gormRepository) TransitionSubscription(ctx context.Context, id, from, to string, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := r.updates(ctx).Where("id = ? AND status = ?", id, from).Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *gormRepository) UpdateSubscriptionEndDate(ctx context.Context, id string, endDate time.Time) error {
	return r.updates(ctx).Where("id = ?", id).Update("end_date", endDate).Error
}

func (r *gormRepository) ListOverdueSubscriptions(ctx context.Context, endedBefore time.Time, limit int) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_date IS NOT NULL AND end_date < ?", models.SubscriptionStatusActive, endedBefore).
		Order("end_date ASC").
		Limit(limit).
		Find(&subs).Error
	return subs, err
}

func (r *gormRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	db := r.db.WithContext(ctx)
	tx := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
