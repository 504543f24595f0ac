package router

import (
	"github.com/gofiber/fiber/v2"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	ac := h.controller

	// Polled by the result page, no form posts here
	app.Get("/coloring/:uuid/status", ac.HandleColoringStatus)
	app.Get("/coloring/:uuid/download", ac.HandleColoringDownload)

	// Social OAuth
	app.Get("/auth/:provider", ac.HandleOAuthBegin)
	app.Get("/auth/:provider/callback", ac.HandleOAuthCallback)

	// Billing provider webhooks (no CSRF, signature-verified in controller)
	app.Post("/webhooks/stripe", ac.HandleStripeWebhook)
}
