package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/ColorCalm/internal/pkg/plans"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/statistics"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/viewmodel"
	"github.com/ManuelReschke/ColorCalm/views"
)

func (ac *AppController) HandleHome(c *fiber.Ctx) error {
	p := ac.page(c, "")

	var stats statistics.StatisticsData
	if ac.stats != nil {
		stats = ac.stats.Get(c.UserContext())
	}

	vm := viewmodel.Home{
		Categories:  ac.catalog.Categories(),
		Meditations: ac.catalog.Meditations(),
		Plans:       plans.All(),
		Stats:       stats,
	}
	return render(c, views.Home(p, vm))
}

func (ac *AppController) HandlePricing(c *fiber.Ctx) error {
	p := ac.page(c, tr(c, "pricing.title"))
	vm := viewmodel.Pricing{
		Plans:           plans.All(),
		Current:         p.Plan,
		CheckoutEnabled: ac.checkout != nil && ac.checkout.Configured(),
	}
	return render(c, views.Pricing(p, vm))
}

func (ac *AppController) HandleLicense(c *fiber.Ctx) error {
	return render(c, views.License(ac.page(c, tr(c, "license.title"))))
}

// HandleNotFound renders the 404 page.
func (ac *AppController) HandleNotFound(c *fiber.Ctx) error {
	p := ac.page(c, tr(c, "error.not_found_title"))
	return render(c, views.NotFound(p), fiber.StatusNotFound)
}
