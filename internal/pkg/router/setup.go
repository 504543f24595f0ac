package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	apiv1 "github.com/ManuelReschke/ColorCalm/internal/api/v1"
	"github.com/ManuelReschke/ColorCalm/app/controllers"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/i18n"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/middleware"
)

// Router installs a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Deps carries what the routers need from main.
type Deps struct {
	Controller *controllers.AppController
	API        apiv1.ServerInterface
	Sessions   *session.Store
	Plans      middleware.PlanResolver
	Bundle     *i18n.Bundle
	IsDev      bool
}

func InstallRouter(app *fiber.App, deps Deps) {
	// HttpRouter installs the global locale and user context middleware that
	// the API routes rely on, so it goes first. The 404 handler goes last.
	setup(app, NewHttpRouter(deps), NewApiRouter(deps.API), notFoundRouter{deps.Controller})
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}

type notFoundRouter struct {
	controller *controllers.AppController
}

func (n notFoundRouter) InstallRouter(app *fiber.App) {
	app.Use(n.controller.HandleNotFound)
}
