package billing

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
)

func signedHeader(payload []byte, secret string, at time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
	}).Header
}

func TestVerifyStripeSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice.paid"}`)
	secret := "whsec_test"

	header := signedHeader(payload, secret, time.Now())
	if err := VerifyStripeSignature(payload, header, secret, DefaultSignatureTolerance); err != nil {
		t.Fatalf("expected signature to validate, got %v", err)
	}

	// additional signatures from secret rotation are accepted
	rotated := header + ",v1=deadbeef,v0=cafebabe"
	if err := VerifyStripeSignature(payload, rotated, secret, DefaultSignatureTolerance); err != nil {
		t.Fatalf("expected rotated header to validate, got %v", err)
	}

	if err := VerifyStripeSignature([]byte(`{"id":"evt_2"}`), header, secret, DefaultSignatureTolerance); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected tampered payload to fail, got %v", err)
	}
	if err := VerifyStripeSignature(payload, header, "whsec_other", DefaultSignatureTolerance); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected wrong secret to fail, got %v", err)
	}
}

func TestVerifyStripeSignatureTolerance(t *testing.T) {
	payload := []byte(`{}`)
	secret := "whsec_test"
	header := signedHeader(payload, secret, time.Now().Add(-6*time.Minute))

	if err := VerifyStripeSignature(payload, header, secret, DefaultSignatureTolerance); !errors.Is(err, ErrSignatureExpired) {
		t.Fatalf("expected expired signature, got %v", err)
	}
	if err := VerifyStripeSignature(payload, header, secret, 0); err != nil {
		t.Fatalf("expected tolerance 0 to skip the age check, got %v", err)
	}
}

func TestVerifyStripeSignatureMalformed(t *testing.T) {
	payload := []byte(`{}`)
	now := time.Now()
	for _, header := range []string{
		"",
		"garbage",
		"t=abc,v1=00",
		fmt.Sprintf("t=%d", now.Unix()),
		"v1=00",
	} {
		if err := VerifyStripeSignature(payload, header, "whsec", DefaultSignatureTolerance); err == nil {
			t.Fatalf("expected header %q to fail", header)
		}
	}
	if err := VerifyStripeSignature(payload, signedHeader(payload, "whsec", now), "", DefaultSignatureTolerance); err == nil {
		t.Fatalf("expected empty secret to fail")
	}
}
