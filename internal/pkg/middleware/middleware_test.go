package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ColorCalm/internal/pkg/i18n"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/plans"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/session"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/usercontext"
)

type staticPlan struct {
	key plans.Key
	err error
}

func (s staticPlan) EffectivePlan(ctx context.Context, userID uint) (plans.Key, error) {
	return s.key, s.err
}

func newUserContextApp(resolver PlanResolver) *fiber.App {
	store := session.NewMemorySessionStore()
	app := fiber.New()
	app.Use(NewUserContext(store, resolver))
	app.Get("/login-as/:name", func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return err
		}
		sess.Set(usercontext.KeyUserID, uint(7))
		sess.Set(usercontext.KeyUsername, c.Params("name"))
		sess.Set(usercontext.KeyEmail, "luna@example.com")
		return sess.Save()
	})
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.JSON(usercontext.GetUserContext(c))
	})
	app.Get("/private", RequireAuth, func(c *fiber.Ctx) error {
		return c.SendString("secret")
	})
	app.Get("/api/private", RequireAPISessionAuth, func(c *fiber.Ctx) error {
		return c.SendString("secret")
	})
	return app
}

func login(t *testing.T, app *fiber.App) *http.Cookie {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/login-as/luna", nil))
	require.NoError(t, err)
	for _, ck := range resp.Cookies() {
		if ck.Name == "session_id" {
			return ck
		}
	}
	t.Fatalf("no session cookie set")
	return nil
}

func TestUserContextAnonymous(t *testing.T) {
	app := newUserContextApp(staticPlan{key: plans.KeyPro})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"user_id":0,"username":"","email":"","is_logged_in":false,"is_admin":false,"plan":""}`, string(body))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/private", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/private", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"error":"unauthorized","message":"login required"}`, string(body))
}

func TestUserContextLoggedIn(t *testing.T) {
	app := newUserContextApp(staticPlan{key: plans.KeyPro})
	cookie := login(t, app)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"user_id":7,"username":"luna","email":"luna@example.com","is_logged_in":true,"is_admin":false,"plan":"pro"}`, string(body))

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestUserContextFallsBackToFreePlan(t *testing.T) {
	app := newUserContextApp(staticPlan{err: errors.New("db down")})
	cookie := login(t, app)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookie)
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"plan":"free"`)
}

func TestLocale(t *testing.T) {
	app := fiber.New()
	app.Use(NewLocale(i18n.Default()))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(Messages(c).Locale())
	})

	tests := []struct {
		name       string
		target     string
		cookie     string
		accept     string
		want       string
		wantCookie bool
	}{
		{name: "default", target: "/", want: "en"},
		{name: "accept language", target: "/", accept: "de-DE,de;q=0.9", want: "de"},
		{name: "cookie", target: "/", cookie: "de", accept: "en", want: "de"},
		{name: "query sets cookie", target: "/?lang=de", want: "de", wantCookie: true},
		{name: "unsupported query", target: "/?lang=fr", want: "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: i18n.CookieName, Value: tt.cookie})
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, tt.want, string(body))
			assert.Equal(t, tt.want, resp.Header.Get("Content-Language"))

			var found bool
			for _, ck := range resp.Cookies() {
				if ck.Name == i18n.CookieName {
					found = true
					assert.Equal(t, tt.want, ck.Value)
				}
			}
			assert.Equal(t, tt.wantCookie, found)
		})
	}
}

func TestMessagesWithoutMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(Messages(c).Locale())
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "en", string(body))
}
