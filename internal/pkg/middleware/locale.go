package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ColorCalm/internal/pkg/env"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/i18n"
)

const messagesKey = "i18n_messages"

// NewLocale negotiates the request locale and stores its messages in Locals.
// An explicit ?lang= choice is remembered in a cookie for a year.
func NewLocale(bundle *i18n.Bundle) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("lang")
		locale := bundle.Negotiate(query, c.Cookies(i18n.CookieName), c.Get(fiber.HeaderAcceptLanguage))

		if query != "" && locale == strings.ToLower(strings.TrimSpace(query)) {
			c.Cookie(&fiber.Cookie{
				Name:     i18n.CookieName,
				Value:    locale,
				Path:     "/",
				Expires:  time.Now().AddDate(1, 0, 0),
				HTTPOnly: true,
				Secure:   !env.IsDev(),
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}

		c.Locals(messagesKey, bundle.Messages(locale))
		c.Set(fiber.HeaderContentLanguage, locale)
		return c.Next()
	}
}

// Messages returns the messages chosen by NewLocale, or the default locale
// when the middleware did not run.
func Messages(c *fiber.Ctx) *i18n.Messages {
	if m, ok := c.Locals(messagesKey).(*i18n.Messages); ok {
		return m
	}
	return i18n.Default().Messages(i18n.DefaultLocale)
}
