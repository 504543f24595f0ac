package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/ManuelReschke/ColorCalm/app/controllers"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/i18n"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/middleware"
)

type HttpRouter struct {
	controller *controllers.AppController
	sessions   *session.Store
	plans      middleware.PlanResolver
	bundle     *i18n.Bundle
	isDev      bool
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Locale and user context are resolved once per request, before any route.
	app.Use(middleware.NewLocale(h.bundle))
	app.Use(middleware.NewUserContext(h.sessions, h.plans))

	h.registerPublicRoutes(app)
	h.registerCSRFProtectedRoutes(app)
}

func NewHttpRouter(deps Deps) *HttpRouter {
	bundle := deps.Bundle
	if bundle == nil {
		bundle = i18n.Default()
	}
	return &HttpRouter{
		controller: deps.Controller,
		sessions:   deps.Sessions,
		plans:      deps.Plans,
		bundle:     bundle,
		isDev:      deps.IsDev,
	}
}
