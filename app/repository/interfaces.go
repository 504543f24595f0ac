package repository

import (
	"time"

	"github.com/ManuelReschke/ColorCalm/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	UpdateLastLogin(id uint, at time.Time) error
	Count() (int64, error)
}

// ProviderAccountRepository links OAuth identities to local users
type ProviderAccountRepository interface {
	GetByProviderUserID(provider, providerUserID string) (*models.ProviderAccount, error)
	ListByUserID(userID uint) ([]models.ProviderAccount, error)
	Upsert(account *models.ProviderAccount) error
}

// Repositories holds all repository instances
type Repositories struct {
	User            UserRepository
	ProviderAccount ProviderAccountRepository
}
