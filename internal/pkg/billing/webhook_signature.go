package billing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
)

// DefaultSignatureTolerance is the maximum age of a signed webhook.
const DefaultSignatureTolerance = webhook.DefaultTolerance

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrSignatureExpired = errors.New("webhook signature timestamp outside tolerance")
)

// VerifyStripeSignature checks the Stripe-Signature header of payload.
// A tolerance of 0 skips the timestamp age check.
func VerifyStripeSignature(payload []byte, signatureHeader, webhookSecret string, tolerance time.Duration) error {
	secret := strings.TrimSpace(webhookSecret)
	if secret == "" || strings.TrimSpace(signatureHeader) == "" {
		return ErrInvalidSignature
	}

	var err error
	if tolerance > 0 {
		err = webhook.ValidatePayloadWithTolerance(payload, signatureHeader, secret, tolerance)
	} else {
		err = webhook.ValidatePayloadIgnoringTolerance(payload, signatureHeader, secret)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, webhook.ErrTooOld):
		return ErrSignatureExpired
	default:
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
}
