package controllers

import (
	"context"
	"testing"

	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/plans"
)

func TestProviderEmailVerified(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]interface{}
		want bool
	}{
		{name: "google", raw: map[string]interface{}{"verified_email": true}, want: true},
		{name: "openid", raw: map[string]interface{}{"email_verified": "true"}, want: true},
		{name: "discord", raw: map[string]interface{}{"verified": true}, want: true},
		{name: "discord unverified", raw: map[string]interface{}{"verified": false}},
		{name: "no claim", raw: map[string]interface{}{"email": "x@example.com"}},
		{name: "no raw data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, providerEmailVerified(goth.User{RawData: tt.raw}))
		})
	}
}

func TestLinkOAuthUserByVerifiedEmail(t *testing.T) {
	env := newTestEnv(t)
	existing := env.createUser(t, "owner@example.com")

	user, err := env.ac.linkOAuthUser(context.Background(), goth.User{
		Provider: "discord",
		UserID:   "d-1",
		Email:    "owner@example.com",
		RawData:  map[string]interface{}{"verified": true},
	})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)

	// the same identity resolves through the stored provider account
	again, err := env.ac.linkOAuthUser(context.Background(), goth.User{Provider: "discord", UserID: "d-1"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, again.ID)
}

func TestLinkOAuthUserUnverifiedEmailGetsOwnAccount(t *testing.T) {
	env := newTestEnv(t)
	existing := env.createUser(t, "owner@example.com")

	user, err := env.ac.linkOAuthUser(context.Background(), goth.User{
		Provider: "discord",
		UserID:   "d-2",
		Name:     "Intruder",
		Email:    "owner@example.com",
		RawData:  map[string]interface{}{"verified": false},
	})
	require.NoError(t, err)
	assert.NotEqual(t, existing.ID, user.ID)
	assert.Equal(t, "discord_d-2@discord.oauth.local", user.Email)

	var links int64
	require.NoError(t, env.db.Model(&models.ProviderAccount{}).Where("user_id = ?", existing.ID).Count(&links).Error)
	assert.Zero(t, links)

	balance, err := env.credits.Balance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, plans.Get(plans.KeyFree).Credits, balance)
}
