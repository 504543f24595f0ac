package apiv1

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ColorCalm/app/models"
)

const specPath = "../../../public/docs/v1/openapi.yml"

func TestSpecIsValid(t *testing.T) {
	doc, err := LoadSpec(specPath)
	require.NoError(t, err)
	assert.Contains(t, doc.Paths.Map(), "/me/subscription")
}

func TestLoadSpecMissingFile(t *testing.T) {
	_, err := LoadSpec("does-not-exist.yml")
	assert.Error(t, err)
}

// Every documented route answers with a body that matches its schema.
func TestResponsesMatchSpec(t *testing.T) {
	doc, err := LoadSpec(specPath)
	require.NoError(t, err)
	doc.Servers = openapi3.Servers{{URL: "http://example.com/api/v1"}}
	router, err := gorillamux.NewRouter(doc)
	require.NoError(t, err)

	end := time.Now().Add(72 * time.Hour).UTC()
	subs := &fakeSubscriptions{active: &models.Subscription{
		ID:           "sub-1",
		Plan:         models.SubscriptionPlanAnnual,
		BillingCycle: models.SubscriptionPlanAnnual,
		Status:       models.SubscriptionStatusActive,
		StartDate:    end.Add(-365 * 24 * time.Hour),
		EndDate:      &end,
	}}

	tests := []struct {
		path     string
		loggedIn bool
		status   int
	}{
		{path: "/api/v1/ping", status: fiber.StatusOK},
		{path: "/api/v1/plans", status: fiber.StatusOK},
		{path: "/api/v1/themes", status: fiber.StatusOK},
		{path: "/api/v1/meditations", status: fiber.StatusOK},
		{path: "/api/v1/meditations?theme=missing", status: fiber.StatusNotFound},
		{path: "/api/v1/me/subscription", loggedIn: true, status: fiber.StatusOK},
		{path: "/api/v1/me/subscription", status: fiber.StatusUnauthorized},
		{path: "/api/v1/coloring/done/status", status: fiber.StatusOK},
		{path: "/api/v1/coloring/missing/status", status: fiber.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			app := newTestApp(subs, tt.loggedIn)
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, tt.path, nil))
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			require.Equal(t, tt.status, resp.StatusCode, string(body))

			req := httptest.NewRequest(fiber.MethodGet, "http://example.com"+tt.path, nil)
			route, params, err := router.FindRoute(req)
			require.NoError(t, err)

			input := &openapi3filter.ResponseValidationInput{
				RequestValidationInput: &openapi3filter.RequestValidationInput{
					Request:    req,
					PathParams: params,
					Route:      route,
				},
				Status: resp.StatusCode,
				Header: resp.Header,
				Body:   io.NopCloser(bytes.NewReader(body)),
			}
			assert.NoError(t, openapi3filter.ValidateResponse(context.Background(), input))
		})
	}
}
