package controllers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	gothfiber "github.com/shareed2k/goth_fiber"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/constants"
)

// HandleOAuthBegin redirects to the provider if it is configured.
func (ac *AppController) HandleOAuthBegin(c *fiber.Ctx) error {
	if !slices.Contains(ac.oauthProviders, c.Params("provider")) {
		return redirectWithError(c, "flash.oauth_unavailable", constants.RouteLogin)
	}
	return gothfiber.BeginAuthHandler(c)
}

// HandleOAuthCallback completes the provider flow and logs the user in
func (ac *AppController) HandleOAuthCallback(c *fiber.Ctx) error {
	if !slices.Contains(ac.oauthProviders, c.Params("provider")) {
		return redirectWithError(c, "flash.oauth_unavailable", constants.RouteLogin)
	}

	gu, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		log.Warnf("[OAuth] Completing %s login failed: %v", c.Params("provider"), err)
		return redirectWithError(c, "flash.oauth_failed", constants.RouteLogin)
	}

	user, err := ac.linkOAuthUser(c.UserContext(), gu)
	if err != nil {
		log.Errorf("[OAuth] Linking %s account %s failed: %v", gu.Provider, gu.UserID, err)
		return redirectWithError(c, "flash.oauth_failed", constants.RouteLogin)
	}
	if !user.IsActive() {
		return redirectWithError(c, "flash.login_failed", constants.RouteLogin)
	}

	if err := ac.startSession(c, user); err != nil {
		log.Errorf("[OAuth] Failed to start session for user %d: %v", user.ID, err)
		return redirectWithError(c, "flash.session_failed", constants.RouteLogin)
	}
	return redirectWithSuccess(c, "flash.login_success", constants.RouteHome)
}

// providerEmailVerified reports whether the provider vouches for the email
// of gu. Google sends verified_email (email_verified on OpenID userinfo),
// Discord sends verified.
func providerEmailVerified(gu goth.User) bool {
	for _, key := range []string{"verified_email", "email_verified", "verified"} {
		switch v := gu.RawData[key].(type) {
		case bool:
			if v {
				return true
			}
		case string:
			if v == "true" {
				return true
			}
		}
	}
	return false
}

// linkOAuthUser finds the local user of a provider identity. Unknown
// identities are linked to the user with the same email when the provider
// verified that email, otherwise to a new user who then gets the signup
// credits.
func (ac *AppController) linkOAuthUser(ctx context.Context, gu goth.User) (*models.User, error) {
	if gu.Provider == "" || gu.UserID == "" {
		return nil, errors.New("provider identity incomplete")
	}

	var expiresAt *time.Time
	if !gu.ExpiresAt.IsZero() {
		t := gu.ExpiresAt
		expiresAt = &t
	}

	pa, err := ac.repos.ProviderAccount.GetByProviderUserID(gu.Provider, gu.UserID)
	switch {
	case err == nil:
		pa.AccessToken = gu.AccessToken
		pa.RefreshToken = gu.RefreshToken
		pa.ExpiresAt = expiresAt
		if err := ac.repos.ProviderAccount.Upsert(pa); err != nil {
			return nil, fmt.Errorf("update tokens: %w", err)
		}
		return ac.repos.User.GetByID(pa.UserID)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	email := strings.TrimSpace(gu.Email)
	if email != "" && !providerEmailVerified(gu) {
		log.Infof("[OAuth] %s account %s has an unverified email, not linking by email", gu.Provider, gu.UserID)
		email = ""
	}

	var user *models.User
	if email != "" {
		user, err = ac.repos.User.GetByEmail(email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	created := false
	if user == nil {
		if email == "" {
			// unique placeholder, the email column is unique
			email = fmt.Sprintf("%s_%s@%s.oauth.local", gu.Provider, gu.UserID, gu.Provider)
		}
		// random password nobody knows, login only works through the provider
		hash, err := models.HashPassword(uuid.NewString())
		if err != nil {
			return nil, err
		}
		user = &models.User{
			Name:      firstNonEmpty(gu.Name, gu.NickName, gu.FirstName, "User"),
			Email:     email,
			Password:  hash,
			AvatarURL: gu.AvatarURL,
			Role:      models.ROLE_USER,
			Status:    models.STATUS_ACTIVE,
		}
		if err := ac.repos.User.Create(user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		created = true
	}

	pa = &models.ProviderAccount{
		UserID:         user.ID,
		Provider:       gu.Provider,
		ProviderUserID: gu.UserID,
		AccessToken:    gu.AccessToken,
		RefreshToken:   gu.RefreshToken,
		ExpiresAt:      expiresAt,
	}
	if err := ac.repos.ProviderAccount.Upsert(pa); err != nil {
		return nil, fmt.Errorf("link provider: %w", err)
	}

	if created {
		ac.onboard(ctx, user)
	}
	return user, nil
}
