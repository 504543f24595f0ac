package credits

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/plans"
)

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrDuplicateReference  = errors.New("credit reference already booked")
	ErrInvalidAmount       = errors.New("credit amount must be positive")
)

const defaultHistoryLimit = 20

// Service books credit grants and charges against user accounts.
type Service struct {
	repo Repository
}

// NewService creates a credit service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a credit service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// SignupReference is the ledger reference of the one-time signup grant.
func SignupReference(userID uint) string {
	return fmt.Sprintf("signup:%d", userID)
}

// CycleReference is the ledger reference of a billing cycle grant.
func CycleReference(subscriptionID string, periodEnd int64) string {
	return fmt.Sprintf("cycle:%s:%d", subscriptionID, periodEnd)
}

// GrantSignup books the free plan's credits once per user and returns the
// resulting balance.
func (s *Service) GrantSignup(ctx context.Context, userID uint) (int, error) {
	return s.grant(ctx, userID, plans.Get(plans.KeyFree).Credits, models.CreditReasonSignup, SignupReference(userID))
}

// GrantCycle books one Pro cycle of credits once per reference.
func (s *Service) GrantCycle(ctx context.Context, userID uint, reference string) (int, error) {
	return s.grant(ctx, userID, plans.Get(plans.KeyPro).Credits, models.CreditReasonCycle, reference)
}

// Refund gives back amount credits for a failed charge. A refund for the same
// reference is booked once.
func (s *Service) Refund(ctx context.Context, userID uint, amount int, reference string) (int, error) {
	return s.grant(ctx, userID, amount, models.CreditReasonRefund, "refund:"+reference)
}

func (s *Service) grant(ctx context.Context, userID uint, amount int, reason, reference string) (int, error) {
	if userID == 0 || strings.TrimSpace(reference) == "" {
		return 0, errors.New("user_id and reference are required")
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	entry, err := s.repo.Apply(ctx, userID, amount, reason, reference, false)
	if errors.Is(err, ErrDuplicateReference) {
		log.Debugf("[Credits] %s already booked for user %d", reference, userID)
		return s.repo.Balance(ctx, userID)
	}
	if err != nil {
		return 0, err
	}
	return entry.BalanceAfter, nil
}

// Consume charges amount credits. It fails with ErrInsufficientCredits when
// the balance is too low and with ErrDuplicateReference when the reference
// was charged before.
func (s *Service) Consume(ctx context.Context, userID uint, amount int, reference string) (int, error) {
	if userID == 0 || strings.TrimSpace(reference) == "" {
		return 0, errors.New("user_id and reference are required")
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	entry, err := s.repo.Apply(ctx, userID, -amount, models.CreditReasonGeneration, reference, true)
	if err != nil {
		return 0, err
	}
	return entry.BalanceAfter, nil
}

func (s *Service) Balance(ctx context.Context, userID uint) (int, error) {
	return s.repo.Balance(ctx, userID)
}

// History returns the newest ledger entries first.
func (s *Service) History(ctx context.Context, userID uint, limit int) ([]models.CreditTransaction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.repo.History(ctx, userID, limit)
}
