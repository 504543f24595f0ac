package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/billing"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/constants"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/plans"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/usercontext"
)

const stripeCallTimeout = 20 * time.Second

var formValidator = validator.New()

type checkoutForm struct {
	Cadence string `validate:"required,oneof=monthly annual"`
}

// HandleBillingCheckout starts a Stripe checkout for the Pro plan.
func (ac *AppController) HandleBillingCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if ac.checkout == nil || !ac.checkout.Configured() {
		return redirectWithError(c, "flash.checkout_unavailable", constants.RoutePricing)
	}

	form := checkoutForm{Cadence: c.FormValue("cadence")}
	if err := formValidator.Struct(form); err != nil {
		return redirectWithError(c, "flash.invalid_cadence", constants.RoutePricing)
	}
	cadence, _ := plans.ParseCadence(form.Cadence)

	ctx, cancel := context.WithTimeout(c.UserContext(), stripeCallTimeout)
	defer cancel()

	active, err := ac.billing.ActiveSubscription(ctx, userCtx.UserID)
	if err != nil {
		log.Errorf("[Billing] Failed to load subscription of user %d: %v", userCtx.UserID, err)
		return redirectWithError(c, "flash.checkout_failed", constants.RoutePricing)
	}
	if active != nil {
		return redirectWithError(c, "flash.already_subscribed", constants.RouteAccountSubscription)
	}

	// reuse the Stripe customer of an earlier subscription
	var customerID string
	if latest, err := ac.billing.LatestSubscription(ctx, userCtx.UserID); err == nil && latest != nil {
		customerID = latest.StripeCustomerID
	}

	session, err := ac.checkout.CreateCheckoutSession(ctx, billing.CheckoutInput{
		UserID:     userCtx.UserID,
		Email:      userCtx.Email,
		Cadence:    cadence,
		CustomerID: customerID,
	})
	if err != nil {
		log.Errorf("[Billing] Checkout for user %d failed: %v", userCtx.UserID, err)
		return redirectWithError(c, "flash.checkout_failed", constants.RoutePricing)
	}
	return c.Redirect(session.URL, fiber.StatusSeeOther)
}

// HandleBillingCancel stops renewal at Stripe and cancels locally. Access
// stays until the paid period ends.
func (ac *AppController) HandleBillingCancel(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	ctx, cancel := context.WithTimeout(c.UserContext(), stripeCallTimeout)
	defer cancel()

	sub, err := ac.billing.ActiveSubscription(ctx, userID)
	if err != nil {
		log.Errorf("[Billing] Failed to load subscription of user %d: %v", userID, err)
		return redirectWithError(c, "flash.cancel_failed", constants.RouteAccountSubscription)
	}
	if sub == nil || sub.Status != models.SubscriptionStatusActive {
		return redirectWithError(c, "flash.no_subscription", constants.RouteAccountSubscription)
	}

	if sub.StripeSubscriptionID != "" {
		if ac.checkout == nil || !ac.checkout.Configured() {
			return redirectWithError(c, "flash.cancel_failed", constants.RouteAccountSubscription)
		}
		if err := ac.checkout.CancelAtPeriodEnd(ctx, sub.StripeSubscriptionID); err != nil {
			log.Errorf("[Billing] Stripe cancel of %s failed: %v", sub.StripeSubscriptionID, err)
			return redirectWithError(c, "flash.cancel_failed", constants.RouteAccountSubscription)
		}
	}

	cancelled, err := ac.billing.MarkCancelled(ctx, sub.ID)
	if err != nil {
		log.Errorf("[Billing] Cancel of subscription %s failed: %v", sub.ID, err)
		return redirectWithError(c, "flash.cancel_failed", constants.RouteAccountSubscription)
	}
	if ac.notifier != nil {
		ac.notifier.SubscriptionCancelled(ctx, cancelled)
	}
	return redirectWithSuccess(c, "flash.cancel_success", constants.RouteAccountSubscription)
}

// HandleStripeWebhook verifies, stores and applies a Stripe event. Stripe
// retries everything that is not answered with 2xx.
func (ac *AppController) HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	if err := billing.VerifyStripeSignature(rawBody, c.Get("Stripe-Signature"), ac.webhookSecret, billing.DefaultSignatureTolerance); err != nil {
		log.Warnf("[Billing] Rejected Stripe webhook: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
	}
	event, err := billing.ParseStripeEvent(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 15*time.Second)
	defer cancel()

	process, stored, err := ac.billing.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(rawBody),
		SignatureValid:  true,
	})
	if err != nil {
		log.Errorf("[Billing] Failed to store Stripe event %s: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !process {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}

	procErr := ac.webhooks.Handle(ctx, event)
	if err := ac.billing.MarkWebhookProcessed(ctx, stored.ID, procErr); err != nil {
		log.Errorf("[Billing] Failed to mark Stripe event %s processed: %v", event.ID, err)
	}
	if errors.Is(procErr, billing.ErrEventNotApplicable) {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "applied": false})
	}
	if procErr != nil {
		log.Errorf("[Billing] Processing Stripe event %s (%s) failed: %v", event.ID, event.Type, procErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
