package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/ColorCalm/app/controllers"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/middleware"
)

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	ac := h.controller

	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !h.isDev,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
	}

	// Login and registration attempts per client address
	authLimiter := limiter.New(limiter.Config{
		Max:          10,
		Expiration:   time.Minute,
		KeyGenerator: controllers.ClientIP,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() != fiber.MethodPost
		},
	})

	group := app.Group("", cors.New(), csrf.New(csrfConf))
	group.Get("/", ac.HandleHome)
	group.Get("/pricing", ac.HandlePricing)
	group.Get("/license", ac.HandleLicense)

	// Generated pages, visible to everyone with the link
	group.Get("/coloring/:uuid", ac.HandleColoringResult)
	group.Get("/c/:slug", ac.HandleShareLink)

	// Auth
	group.Get("/login", ac.HandleAuthLogin)
	group.Post("/login", authLimiter, ac.HandleAuthLogin)
	group.Get("/register", ac.HandleAuthRegister)
	group.Post("/register", authLimiter, ac.HandleAuthRegister)
	group.Post("/logout", middleware.RequireAuth, ac.HandleAuthLogout)

	// Coloring generator
	group.Get("/create/coloring", middleware.RequireAuth, ac.HandleCreateColoringForm)
	group.Post("/create/coloring", middleware.RequireAuth, ac.HandleCreateColoring)

	// Account and billing
	group.Get("/account/subscription", middleware.RequireAuth, ac.HandleAccountSubscription)
	group.Post("/billing/checkout", middleware.RequireAuth, ac.HandleBillingCheckout)
	group.Post("/billing/cancel", middleware.RequireAuth, ac.HandleBillingCancel)
}
