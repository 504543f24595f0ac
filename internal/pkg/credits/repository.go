package credits

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/ColorCalm/app/models"
)

// Repository provides DB operations used by the credit service.
type Repository interface {
	Apply(ctx context.Context, userID uint, amount int, reason, reference string, requireFunds bool) (*models.CreditTransaction, error)
	Balance(ctx context.Context, userID uint) (int, error)
	History(ctx context.Context, userID uint, limit int) ([]models.CreditTransaction, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a credit repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// Apply books amount on the user's account and appends a ledger entry in one
// transaction. With requireFunds the decrement only happens when the balance
// covers it.
func (r *gormRepository) Apply(ctx context.Context, userID uint, amount int, reason, reference string, requireFunds bool) (*models.CreditTransaction, error) {
	var entry *models.CreditTransaction

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.CreditTransaction{}).Where("reference = ?", reference).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateReference
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&models.CreditAccount{UserID: userID}).Error; err != nil {
			return err
		}

		q := tx.Model(&models.CreditAccount{}).Where("user_id = ?", userID)
		if requireFunds && amount < 0 {
			q = q.Where("balance >= ?", -amount)
		}
		res := q.Update("balance", gorm.Expr("balance + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientCredits
		}

		var account models.CreditAccount
		if err := tx.Where("user_id = ?", userID).First(&account).Error; err != nil {
			return err
		}

		entry = &models.CreditTransaction{
			UserID:       userID,
			Amount:       amount,
			BalanceAfter: account.Balance,
			Reason:       reason,
			Reference:    reference,
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateReference) || errors.Is(err, ErrInsufficientCredits) {
			return nil, err
		}
		// a concurrent writer may have inserted the same reference
		if exists, lookupErr := r.ReferenceExists(ctx, reference); lookupErr == nil && exists {
			return nil, ErrDuplicateReference
		}
		return nil, err
	}
	return entry, nil
}

func (r *gormRepository) Balance(ctx context.Context, userID uint) (int, error) {
	var account models.CreditAccount
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

func (r *gormRepository) History(ctx context.Context, userID uint, limit int) ([]models.CreditTransaction, error) {
	var entries []models.CreditTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *gormRepository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.CreditTransaction{}).Where("reference = ?", reference).Count(&n).Error
	return n > 0, err
}
