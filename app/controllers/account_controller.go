package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/constants"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/plans"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/usercontext"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/viewmodel"
	"github.com/ManuelReschke/ColorCalm/views"
)

const (
	historyLimit      = 10
	accountPagesLimit = 12
)

// HandleAccountSubscription shows the current plan, the subscription and
// the credit balance.
func (ac *AppController) HandleAccountSubscription(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := usercontext.GetUserID(c)
	p := ac.page(c, tr(c, "account.title"))

	sub, err := ac.billing.ActiveSubscription(ctx, userID)
	if err == nil && sub == nil {
		sub, err = ac.billing.LatestSubscription(ctx, userID)
	}
	if err != nil {
		log.Errorf("[Billing] Failed to load subscription of user %d: %v", userID, err)
		return redirectWithError(c, "flash.account_failed", constants.RouteHome)
	}

	vm := viewmodel.Subscription{
		PlanKey:         p.Plan,
		PlanName:        plans.Get(p.Plan).Name,
		CheckoutEnabled: ac.checkout != nil && ac.checkout.Configured(),
	}
	if sub != nil {
		start := sub.StartDate
		vm.HasSubscription = true
		vm.Status = sub.Status
		vm.Cadence = sub.Plan
		vm.StartDate = &start
		vm.RenewalDate = sub.RenewalDate()
		if sub.Status != models.SubscriptionStatusActive {
			vm.EndDate = sub.EndDate
		}
		vm.CanCancel = sub.Status == models.SubscriptionStatusActive
	}

	if vm.Balance, err = ac.credits.Balance(ctx, userID); err != nil {
		log.Errorf("[Credits] Failed to load balance of user %d: %v", userID, err)
	}
	history, err := ac.credits.History(ctx, userID, historyLimit)
	if err != nil {
		log.Errorf("[Credits] Failed to load history of user %d: %v", userID, err)
	}
	for _, tx := range history {
		vm.History = append(vm.History, viewmodel.CreditEntry{Amount: tx.Amount, Reason: tx.Reason, CreatedAt: tx.CreatedAt})
	}

	if ac.coloring != nil {
		pages, err := ac.coloring.ListByUser(ctx, userID, accountPagesLimit)
		if err != nil {
			log.Errorf("[Coloring] Failed to list pages of user %d: %v", userID, err)
		}
		for _, pg := range pages {
			card := viewmodel.ColoringCard{UUID: pg.UUID, Title: pg.Title, Status: pg.Status, CreatedAt: pg.CreatedAt}
			if pg.IsReady() && pg.ThumbnailPath != "" {
				card.ThumbnailURL = "/" + pg.ThumbnailPath
			}
			vm.Pages = append(vm.Pages, card)
		}
	}

	return render(c, views.AccountSubscription(p, vm))
}
