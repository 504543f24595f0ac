package router

import (
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiv1 "github.com/ManuelReschke/ColorCalm/internal/api/v1"
	"github.com/ManuelReschke/ColorCalm/app/controllers"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/billing"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/coloring"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/credits"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/session"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/testutil"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)

	creditSvc := credits.NewServiceFromDB(db)
	billingSvc := billing.NewService(billing.NewRepository(db), creditSvc)
	coloringSvc := coloring.NewService(db, creditSvc, nil, coloring.NewStatusStore(rdb), nil, coloring.Options{Root: t.TempDir()})
	sessions := session.NewMemorySessionStore()

	ac := controllers.NewAppController(controllers.Config{
		DB:            db,
		Sessions:      sessions,
		Credits:       creditSvc,
		Billing:       billingSvc,
		Webhooks:      billing.NewWebhookProcessor(billingSvc, nil),
		Coloring:      coloringSvc,
		WebhookSecret: "whsec_router",
		IsDev:         true,
	})

	app := fiber.New()
	InstallRouter(app, Deps{
		Controller: ac,
		API:        apiv1.NewAPIServer(billingSvc, creditSvc, coloringSvc, nil),
		Sessions:   sessions,
		Plans:      billingSvc,
		IsDev:      true,
	})
	return app
}

func TestRoutes(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name     string
		method   string
		path     string
		wantCode int
		location string
	}{
		{name: "home", method: fiber.MethodGet, path: "/", wantCode: fiber.StatusOK},
		{name: "pricing", method: fiber.MethodGet, path: "/pricing", wantCode: fiber.StatusOK},
		{name: "license", method: fiber.MethodGet, path: "/license", wantCode: fiber.StatusOK},
		{name: "login form", method: fiber.MethodGet, path: "/login", wantCode: fiber.StatusOK},
		{name: "register form", method: fiber.MethodGet, path: "/register", wantCode: fiber.StatusOK},
		{name: "generator needs login", method: fiber.MethodGet, path: "/create/coloring", wantCode: fiber.StatusSeeOther, location: "/login"},
		{name: "account needs login", method: fiber.MethodGet, path: "/account/subscription", wantCode: fiber.StatusSeeOther, location: "/login"},
		{name: "unknown page", method: fiber.MethodGet, path: "/nope", wantCode: fiber.StatusNotFound},
		{name: "unknown coloring", method: fiber.MethodGet, path: "/coloring/unknown", wantCode: fiber.StatusNotFound},
		{name: "status of unknown coloring", method: fiber.MethodGet, path: "/coloring/unknown/status", wantCode: fiber.StatusNotFound},
		{name: "api ping", method: fiber.MethodGet, path: "/api/v1/ping", wantCode: fiber.StatusOK},
		{name: "api plans", method: fiber.MethodGet, path: "/api/v1/plans", wantCode: fiber.StatusOK},
		{name: "api subscription needs session", method: fiber.MethodGet, path: "/api/v1/me/subscription", wantCode: fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(tt.method, tt.path, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
			if tt.location != "" {
				assert.Equal(t, tt.location, resp.Header.Get("Location"))
			}
		})
	}
}

func TestFormPostsNeedCSRFToken(t *testing.T) {
	app := newTestApp(t)

	form := url.Values{"email": {"a@example.com"}, "password": {"secret-pw"}}
	req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestStripeWebhookSkipsCSRF(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(fiber.MethodPost, "/webhooks/stripe", strings.NewReader(`{"id":"evt_1","type":"invoice.paid"}`))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)

	// rejected by the signature check, not by CSRF
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "invalid_signature")
}
