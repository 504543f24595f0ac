package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	apiv1 "github.com/ManuelReschke/ColorCalm/internal/api/v1"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/middleware"
)

type ApiRouter struct {
	server apiv1.ServerInterface
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	apiv1.RegisterHandlers(v1, h.server, middleware.RequireAPISessionAuth)
}

func NewApiRouter(server apiv1.ServerInterface) *ApiRouter {
	return &ApiRouter{server: server}
}
