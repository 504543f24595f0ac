package apiv1

import (
	"github.com/gofiber/fiber/v2"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /ping)
	GetPing(c *fiber.Ctx) error
	// (GET /plans)
	GetPlans(c *fiber.Ctx) error
	// (GET /themes)
	GetThemes(c *fiber.Ctx) error
	// (GET /meditations)
	GetMeditations(c *fiber.Ctx) error
	// (GET /me/subscription)
	GetMySubscription(c *fiber.Ctx) error
	// (GET /coloring/{uuid}/status)
	GetColoringStatus(c *fiber.Ctx, uuid string) error
}

// ServerInterfaceWrapper converts fiber contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (w *ServerInterfaceWrapper) GetPing(c *fiber.Ctx) error {
	return w.Handler.GetPing(c)
}

func (w *ServerInterfaceWrapper) GetPlans(c *fiber.Ctx) error {
	return w.Handler.GetPlans(c)
}

func (w *ServerInterfaceWrapper) GetThemes(c *fiber.Ctx) error {
	return w.Handler.GetThemes(c)
}

func (w *ServerInterfaceWrapper) GetMeditations(c *fiber.Ctx) error {
	return w.Handler.GetMeditations(c)
}

func (w *ServerInterfaceWrapper) GetMySubscription(c *fiber.Ctx) error {
	return w.Handler.GetMySubscription(c)
}

func (w *ServerInterfaceWrapper) GetColoringStatus(c *fiber.Ctx) error {
	uuid := c.Params("uuid")
	if uuid == "" {
		return c.Status(fiber.StatusBadRequest).JSON(Error{Error: "bad_request", Message: "uuid missing"})
	}
	return w.Handler.GetColoringStatus(c, uuid)
}

// RegisterHandlers mounts the v1 routes on router. requireSession guards
// the routes that need a logged-in user.
func RegisterHandlers(router fiber.Router, si ServerInterface, requireSession fiber.Handler) {
	wrapper := ServerInterfaceWrapper{Handler: si}

	router.Get("/ping", wrapper.GetPing)
	router.Get("/plans", wrapper.GetPlans)
	router.Get("/themes", wrapper.GetThemes)
	router.Get("/meditations", wrapper.GetMeditations)
	router.Get("/me/subscription", requireSession, wrapper.GetMySubscription)
	router.Get("/coloring/:uuid/status", wrapper.GetColoringStatus)
}
