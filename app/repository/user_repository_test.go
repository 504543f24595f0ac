package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/testutil"
)

func TestUserRepository(t *testing.T) {
	repos := NewFactory(testutil.NewDB(t)).GetRepositories()

	user, err := models.CreateUser("Luna", "Luna@Example.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, repos.User.Create(user))

	got, err := repos.User.GetByEmail(" LUNA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.True(t, got.CheckPassword("secret123"))

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, repos.User.UpdateLastLogin(user.ID, at))
	got, err = repos.User.GetByID(user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, got.LastLoginAt.Equal(at))

	count, err := repos.User.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestProviderAccountUpsert(t *testing.T) {
	repos := NewRepositories(testutil.NewDB(t))

	require.NoError(t, repos.ProviderAccount.Upsert(&models.ProviderAccount{UserID: 3, Provider: "google", ProviderUserID: "g-1", AccessToken: "old"}))
	require.NoError(t, repos.ProviderAccount.Upsert(&models.ProviderAccount{UserID: 3, Provider: "google", ProviderUserID: "g-1", AccessToken: "new"}))

	pa, err := repos.ProviderAccount.GetByProviderUserID("google", "g-1")
	require.NoError(t, err)
	assert.Equal(t, "new", pa.AccessToken)

	accounts, err := repos.ProviderAccount.ListByUserID(3)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}
