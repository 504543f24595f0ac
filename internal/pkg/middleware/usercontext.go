package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/ManuelReschke/ColorCalm/internal/pkg/plans"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/usercontext"
)

// PlanResolver answers which plan a user is entitled to right now.
type PlanResolver interface {
	EffectivePlan(ctx context.Context, userID uint) (plans.Key, error)
}

// NewUserContext resolves the session user once per request and stores a
// usercontext.UserContext in Locals. The plan is looked up on every request
// so a webhook that ends a subscription takes effect immediately.
func NewUserContext(store *session.Store, resolver PlanResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		anonymous := func() error {
			c.Locals(usercontext.LocalsKey, usercontext.UserContext{})
			c.Locals(usercontext.KeyFromProtected, false)
			c.Locals(usercontext.KeyIsAdmin, false)
			return c.Next()
		}

		// goth keeps its own session store on /auth/*
		if strings.HasPrefix(c.Path(), "/auth/") {
			return anonymous()
		}

		sess, err := store.Get(c)
		if err != nil {
			log.Warnf("[Session] Failed to load session: %v", err)
			return anonymous()
		}

		userID, ok := sess.Get(usercontext.KeyUserID).(uint)
		if !ok || userID == 0 {
			return anonymous()
		}

		username, _ := sess.Get(usercontext.KeyUsername).(string)
		email, _ := sess.Get(usercontext.KeyEmail).(string)
		isAdmin, _ := sess.Get(usercontext.KeyIsAdmin).(bool)

		plan := plans.KeyFree
		if resolver != nil {
			if key, err := resolver.EffectivePlan(c.UserContext(), userID); err != nil {
				log.Errorf("[Session] Failed to resolve plan for user %d: %v", userID, err)
			} else {
				plan = key
			}
		}

		userCtx := usercontext.UserContext{
			UserID:     userID,
			Username:   username,
			Email:      email,
			IsLoggedIn: true,
			IsAdmin:    isAdmin,
			Plan:       string(plan),
		}
		c.Locals(usercontext.LocalsKey, userCtx)
		c.Locals(usercontext.KeyFromProtected, true)
		c.Locals(usercontext.KeyUserID, userID)
		c.Locals(usercontext.KeyUsername, username)
		c.Locals(usercontext.KeyIsAdmin, isAdmin)

		return c.Next()
	}
}
