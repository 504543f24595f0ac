package apiv1

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/coloring"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/plans"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/themes"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/usercontext"
)

// SubscriptionReader is the part of the billing service the API reads.
type SubscriptionReader interface {
	ActiveSubscription(ctx context.Context, userID uint) (*models.Subscription, error)
	LatestSubscription(ctx context.Context, userID uint) (*models.Subscription, error)
}

// BalanceReader returns a user's credit balance.
type BalanceReader interface {
	Balance(ctx context.Context, userID uint) (int, error)
}

// StatusReader returns the processing state of a coloring page.
type StatusReader interface {
	Status(ctx context.Context, pageUUID string) (string, error)
}

// APIServer implements the ServerInterface
type APIServer struct {
	subscriptions SubscriptionReader
	credits       BalanceReader
	pages         StatusReader
	catalog       *themes.Catalog
}

// NewAPIServer creates a new API server instance
func NewAPIServer(subscriptions SubscriptionReader, credits BalanceReader, pages StatusReader, catalog *themes.Catalog) *APIServer {
	if catalog == nil {
		catalog = themes.Default()
	}
	return &APIServer{
		subscriptions: subscriptions,
		credits:       credits,
		pages:         pages,
		catalog:       catalog,
	}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}

func (s *APIServer) GetPlans(c *fiber.Ctx) error {
	all := plans.All()
	out := make([]Plan, 0, len(all))
	for _, p := range all {
		out = append(out, toPlan(p))
	}
	return c.JSON(out)
}

func toPlan(p plans.Plan) Plan {
	out := Plan{
		Key:      string(p.Key),
		Name:     p.Name,
		Credits:  p.Credits,
		Features: p.Features,
	}
	if p.MonthlyPrice.Valid {
		v := p.MonthlyPrice.Decimal.StringFixed(2)
		out.MonthlyPrice = &v
	}
	if p.YearlyPrice.Valid {
		v := p.YearlyPrice.Decimal.StringFixed(2)
		out.YearlyPrice = &v
	}
	return out
}

func (s *APIServer) GetThemes(c *fiber.Ctx) error {
	return c.JSON(s.catalog.Categories())
}

func (s *APIServer) GetMeditations(c *fiber.Ctx) error {
	if theme := c.Query("theme"); theme != "" {
		if _, ok := s.catalog.Theme(theme); !ok {
			return c.Status(fiber.StatusNotFound).JSON(Error{Error: "not_found", Message: "unknown theme"})
		}
		meditations := s.catalog.MeditationsForTheme(theme)
		if meditations == nil {
			meditations = []themes.Meditation{}
		}
		return c.JSON(meditations)
	}
	return c.JSON(s.catalog.Meditations())
}

// GetMySubscription returns plan, credits and the current (or most recent)
// subscription of the session user.
func (s *APIServer) GetMySubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(Error{Error: "unauthorized", Message: "login required"})
	}
	ctx := c.UserContext()

	out := MySubscription{Plan: string(plans.KeyFree)}
	sub, err := s.subscriptions.ActiveSubscription(ctx, userCtx.UserID)
	if err == nil && sub != nil {
		out.Plan = string(plans.KeyPro)
	}
	if err == nil && sub == nil {
		sub, err = s.subscriptions.LatestSubscription(ctx, userCtx.UserID)
	}
	if err != nil {
		log.Errorf("[API] Failed to load subscription of user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(Error{Error: "internal_error", Message: "subscription unavailable"})
	}
	balance, err := s.credits.Balance(ctx, userCtx.UserID)
	if err != nil {
		log.Errorf("[API] Failed to load balance of user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(Error{Error: "internal_error", Message: "credits unavailable"})
	}

	out.Credits = balance
	if sub != nil {
		out.Subscription = &Subscription{
			ID:           sub.ID,
			Plan:         sub.Plan,
			Status:       sub.Status,
			BillingCycle: sub.BillingCycle,
			StartDate:    sub.StartDate,
			EndDate:      sub.EndDate,
			RenewalDate:  sub.RenewalDate(),
			CancelledAt:  sub.CancelledAt,
		}
	}
	return c.JSON(out)
}

// GetColoringStatus returns processing status for a coloring page (JSON)
func (s *APIServer) GetColoringStatus(c *fiber.Ctx, uuid string) error {
	status, err := s.pages.Status(c.UserContext(), uuid)
	if err != nil {
		if errors.Is(err, coloring.ErrPageNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(Error{Error: "not_found", Message: "coloring page not found"})
		}
		log.Errorf("[API] Status lookup for %s failed: %v", uuid, err)
		return c.Status(fiber.StatusInternalServerError).JSON(Error{Error: "internal_error", Message: "status unavailable"})
	}
	return c.JSON(ColoringStatus{
		UUID:     uuid,
		Status:   status,
		Complete: status == models.ColoringStatusCompleted,
	})
}
