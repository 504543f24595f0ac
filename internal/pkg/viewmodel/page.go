package viewmodel

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ColorCalm/internal/pkg/i18n"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/plans"
)

// SessionUser is the logged-in user as far as views need to know.
type SessionUser struct {
	ID        uint
	Name      string
	Email     string
	AvatarURL string
}

// Flash is a one-shot message carried across a redirect.
type Flash struct {
	Type    string
	Message string
}

// Page carries the request-scoped data every view receives.
type Page struct {
	Title    string
	Path     string
	Messages *i18n.Messages
	User     *SessionUser
	Plan     plans.Key
	Flash    *Flash
	CSRF     string
	Locales  []string
	IsDev    bool
}

// T translates key in the page locale.
func (p Page) T(key string) string {
	return p.Messages.T(key)
}

func (p Page) LoggedIn() bool {
	return p.User != nil
}

// Locale of the page, "en" when no messages are attached.
func (p Page) Locale() string {
	if p.Messages == nil {
		return i18n.DefaultLocale
	}
	return p.Messages.Locale()
}

// FlashFromMap converts the map returned by flash.Get. Maps without a
// message yield nil.
func FlashFromMap(m fiber.Map) *Flash {
	msg, _ := m["message"].(string)
	if msg == "" {
		return nil
	}
	typ, _ := m["type"].(string)
	if typ == "" {
		typ = "info"
	}
	return &Flash{Type: typ, Message: msg}
}
