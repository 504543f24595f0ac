package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/constants"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/middleware"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/usercontext"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/viewmodel"
	"github.com/ManuelReschke/ColorCalm/views"
)

func (ac *AppController) HandleAuthLogin(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		if usercontext.IsLoggedIn(c) {
			return c.Redirect(constants.RouteHome, fiber.StatusSeeOther)
		}
		return render(c, views.Login(ac.page(c, tr(c, "login.title")), ac.oauthProviders))
	}

	// notice: do not tell the user which part of the login was wrong
	user, err := ac.repos.User.GetByEmail(c.FormValue("email"))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("[Auth] Failed to load user: %v", err)
		}
		return redirectWithError(c, "flash.login_failed", constants.RouteLogin)
	}
	if !user.CheckPassword(c.FormValue("password")) || !user.IsActive() {
		return redirectWithError(c, "flash.login_failed", constants.RouteLogin)
	}

	if err := ac.startSession(c, user); err != nil {
		log.Errorf("[Auth] Failed to start session for user %d: %v", user.ID, err)
		return redirectWithError(c, "flash.session_failed", constants.RouteLogin)
	}

	return redirectWithSuccess(c, "flash.login_success", constants.RouteHome)
}

func (ac *AppController) HandleAuthLogout(c *fiber.Ctx) error {
	sess, err := ac.sessions.Get(c)
	if err != nil {
		return redirectWithError(c, "flash.session_failed", constants.RouteLogin)
	}
	if err := sess.Destroy(); err != nil {
		log.Errorf("[Auth] Failed to destroy session: %v", err)
		return redirectWithError(c, "flash.session_failed", constants.RouteHome)
	}
	return redirectWithSuccess(c, "flash.logout", constants.RouteHome)
}

func (ac *AppController) HandleAuthRegister(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		p := ac.page(c, tr(c, "register.title"))
		return render(c, views.Register(p, viewmodel.Register{CaptchaSiteKey: ac.captchaSiteKey}))
	}

	ctx := c.UserContext()
	if ac.captcha != nil && ac.captcha.Enabled() {
		valid, err := ac.captcha.Verify(ctx, c.FormValue("h-captcha-response"))
		if err != nil || !valid {
			if err != nil {
				log.Warnf("[Auth] hCaptcha validation error: %v", err)
			}
			return redirectWithError(c, "flash.captcha_failed", constants.RouteRegister)
		}
	}

	user, err := models.CreateUser(c.FormValue("username"), c.FormValue("email"), c.FormValue("password"))
	if err != nil {
		return redirectWithError(c, "flash.register_invalid", constants.RouteRegister)
	}
	user.Locale = middleware.Messages(c).Locale()

	if _, err := ac.repos.User.GetByEmail(user.Email); err == nil {
		return redirectWithError(c, "flash.email_taken", constants.RouteRegister)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Errorf("[Auth] Failed to check email: %v", err)
		return redirectWithError(c, "flash.register_failed", constants.RouteRegister)
	}

	if err := ac.repos.User.Create(user); err != nil {
		log.Errorf("[Auth] Failed to create user: %v", err)
		return redirectWithError(c, "flash.register_failed", constants.RouteRegister)
	}
	ac.onboard(ctx, user)

	if err := ac.startSession(c, user); err != nil {
		log.Errorf("[Auth] Failed to start session for user %d: %v", user.ID, err)
		return redirectWithSuccess(c, "flash.register_success", constants.RouteLogin)
	}
	return redirectWithSuccess(c, "flash.register_success", constants.RouteCreateColoring)
}

// onboard books the signup credits of a new user and refreshes the counters.
func (ac *AppController) onboard(ctx context.Context, user *models.User) {
	if ac.credits != nil {
		if _, err := ac.credits.GrantSignup(ctx, user.ID); err != nil {
			log.Errorf("[Auth] Failed to grant signup credits to user %d: %v", user.ID, err)
		}
	}
	if ac.stats != nil {
		go func() {
			if err := ac.stats.Refresh(context.Background()); err != nil {
				log.Warnf("[Statistics] Refresh after signup failed: %v", err)
			}
		}()
	}
}

// startSession logs user in under a fresh session id.
func (ac *AppController) startSession(c *fiber.Ctx, user *models.User) error {
	sess, err := ac.sessions.Get(c)
	if err != nil {
		return err
	}
	if err := sess.Regenerate(); err != nil {
		return err
	}

	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyEmail, user.Email)
	sess.Set(usercontext.KeyIsAdmin, user.IsAdmin())
	if err := sess.Save(); err != nil {
		return err
	}

	if err := ac.repos.User.UpdateLastLogin(user.ID, ac.now()); err != nil {
		log.Warnf("[Auth] Failed to update last login of user %d: %v", user.ID, err)
	}
	return nil
}
