package billing

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ColorCalm/internal/pkg/plans"
)

func newTestStripeClient(baseURL string) *StripeClient {
	return &StripeClient{
		SecretKey:    "sk_test_123",
		APIBaseURL:   baseURL,
		PriceMonthly: "price_monthly",
		PriceAnnual:  "price_annual",
		SuccessURL:   "https://colorcalm.test/account/subscription",
		CancelURL:    "https://colorcalm.test/pricing",
		HTTPClient:   http.DefaultClient,
	}
}

func TestCreateCheckoutSession(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`))
	}))
	defer srv.Close()

	c := newTestStripeClient(srv.URL)
	session, err := c.CreateCheckoutSession(context.Background(), CheckoutInput{
		UserID:  42,
		Email:   "maja@example.com",
		Cadence: plans.CadenceAnnual,
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", session.URL)

	assert.Equal(t, "subscription", form.Get("mode"))
	assert.Equal(t, "price_annual", form.Get("line_items[0][price]"))
	assert.Equal(t, "42", form.Get("client_reference_id"))
	assert.Equal(t, "annual", form.Get("metadata[cadence]"))
	assert.Equal(t, "42", form.Get("subscription_data[metadata][user_id]"))
	assert.Equal(t, "maja@example.com", form.Get("customer_email"))
}

func TestCreateCheckoutSessionStripeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such price"}}`))
	}))
	defer srv.Close()

	_, err := newTestStripeClient(srv.URL).CreateCheckoutSession(context.Background(), CheckoutInput{UserID: 1, Cadence: plans.CadenceMonthly})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No such price")
}

func TestCancelAtPeriodEnd(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, "/v1/subscriptions/sub_123", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "true", r.PostForm.Get("cancel_at_period_end"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"sub_123","cancel_at_period_end":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestStripeClient(srv.URL).CancelAtPeriodEnd(context.Background(), "sub_123"))
	assert.True(t, called)
}

func TestStripeClientConfiguration(t *testing.T) {
	c := newTestStripeClient("http://localhost")
	assert.True(t, c.Configured())

	_, err := c.PriceID("weekly")
	assert.ErrorIs(t, err, ErrInvalidCadence)

	c.SecretKey = ""
	assert.False(t, c.Configured())
	assert.Error(t, c.CancelAtPeriodEnd(context.Background(), "sub_1"))

	var nilClient *StripeClient
	assert.False(t, nilClient.Configured())
}
