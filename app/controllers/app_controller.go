package controllers

import (
	"context"
	"time"

	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ColorCalm/app/repository"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/avatar"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/billing"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/coloring"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/credits"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/i18n"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/middleware"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/plans"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/statistics"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/themes"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/usercontext"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/viewmodel"
)

// CheckoutClient is the part of Stripe the billing pages use.
type CheckoutClient interface {
	Configured() bool
	CreateCheckoutSession(ctx context.Context, in billing.CheckoutInput) (*billing.CheckoutSession, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error
}

// CaptchaVerifier checks the registration captcha.
type CaptchaVerifier interface {
	Enabled() bool
	Verify(ctx context.Context, token string) (bool, error)
}

// DownloadCounter counts page downloads until they are flushed to the DB.
type DownloadCounter interface {
	AddPageDownload(ctx context.Context, pageID uint) error
	Pending(ctx context.Context, pageID uint) (int64, error)
}

// StatisticsSource provides the home page counters.
type StatisticsSource interface {
	Get(ctx context.Context) statistics.StatisticsData
	Refresh(ctx context.Context) error
}

// Config wires the AppController. Optional fields may be nil.
type Config struct {
	DB             *gorm.DB
	Sessions       *session.Store
	Repos          *repository.Repositories
	Credits        *credits.Service
	Billing        *billing.Service
	Webhooks       *billing.WebhookProcessor
	Checkout       CheckoutClient
	Notifier       billing.Notifier
	Coloring       *coloring.Service
	Counter        DownloadCounter
	Statistics     StatisticsSource
	Catalog        *themes.Catalog
	Bundle         *i18n.Bundle
	Captcha        CaptchaVerifier
	CaptchaSiteKey string
	OAuthProviders []string
	WebhookSecret  string
	BaseURL        string
	IsDev          bool
	Now            func() time.Time
}

// AppController handles the HTML pages and the billing webhook.
type AppController struct {
	db             *gorm.DB
	sessions       *session.Store
	repos          *repository.Repositories
	credits        *credits.Service
	billing        *billing.Service
	webhooks       *billing.WebhookProcessor
	checkout       CheckoutClient
	notifier       billing.Notifier
	coloring       *coloring.Service
	counter        DownloadCounter
	stats          StatisticsSource
	catalog        *themes.Catalog
	bundle         *i18n.Bundle
	captcha        CaptchaVerifier
	captchaSiteKey string
	oauthProviders []string
	webhookSecret  string
	baseURL        string
	isDev          bool
	now            func() time.Time
}

// NewAppController creates the controller from its dependencies
func NewAppController(cfg Config) *AppController {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = themes.Default()
	}
	bundle := cfg.Bundle
	if bundle == nil {
		bundle = i18n.Default()
	}
	repos := cfg.Repos
	if repos == nil && cfg.DB != nil {
		repos = repository.NewRepositories(cfg.DB)
	}
	return &AppController{
		db:             cfg.DB,
		sessions:       cfg.Sessions,
		repos:          repos,
		credits:        cfg.Credits,
		billing:        cfg.Billing,
		webhooks:       cfg.Webhooks,
		checkout:       cfg.Checkout,
		notifier:       cfg.Notifier,
		coloring:       cfg.Coloring,
		counter:        cfg.Counter,
		stats:          cfg.Statistics,
		catalog:        catalog,
		bundle:         bundle,
		captcha:        cfg.Captcha,
		captchaSiteKey: cfg.CaptchaSiteKey,
		oauthProviders: cfg.OAuthProviders,
		webhookSecret:  cfg.WebhookSecret,
		baseURL:        cfg.BaseURL,
		isDev:          cfg.IsDev,
		now:            now,
	}
}

// page builds the view model shared by every page.
func (ac *AppController) page(c *fiber.Ctx, title string) viewmodel.Page {
	userCtx := usercontext.GetUserContext(c)
	p := viewmodel.Page{
		Title:    title,
		Path:     c.Path(),
		Messages: middleware.Messages(c),
		Plan:     plans.KeyFree,
		Flash:    viewmodel.FlashFromMap(flash.Get(c)),
		Locales:  ac.bundle.Locales(),
		IsDev:    ac.isDev,
	}
	if token, ok := c.Locals("csrf").(string); ok {
		p.CSRF = token
	}
	if userCtx.IsLoggedIn {
		p.User = &viewmodel.SessionUser{
			ID:        userCtx.UserID,
			Name:      userCtx.Username,
			Email:     userCtx.Email,
			AvatarURL: avatar.GravatarURL(userCtx.Email, 64),
		}
		if key, ok := plans.ParseKey(userCtx.Plan); ok {
			p.Plan = key
		}
	}
	return p
}

func render(c *fiber.Ctx, component templ.Component, status ...int) error {
	var opts []func(*templ.ComponentHandler)
	if len(status) > 0 {
		opts = append(opts, templ.WithStatus(status[0]))
	}
	handler := adaptor.HTTPHandler(templ.Handler(component, opts...))
	return handler(c)
}

// redirectWithError flashes the translated message key and redirects.
func redirectWithError(c *fiber.Ctx, key, location string) error {
	fm := fiber.Map{
		"type":    "error",
		"message": middleware.Messages(c).T(key),
	}
	return flash.WithError(c, fm).Redirect(location, fiber.StatusSeeOther)
}

func redirectWithSuccess(c *fiber.Ctx, key, location string) error {
	fm := fiber.Map{
		"type":    "success",
		"message": middleware.Messages(c).T(key),
	}
	return flash.WithSuccess(c, fm).Redirect(location, fiber.StatusSeeOther)
}

// tr translates key in the request locale.
func tr(c *fiber.Ctx, key string) string {
	return middleware.Messages(c).T(key)
}
