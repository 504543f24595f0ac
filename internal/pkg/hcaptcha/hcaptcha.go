package hcaptcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuelReschke/ColorCalm/internal/pkg/env"
)

const defaultEndpoint = "https://hcaptcha.com/siteverify"

var ErrEmptyToken = errors.New("hCaptcha token is empty")

type Response struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
}

// Verifier checks hCaptcha tokens against the siteverify endpoint.
type Verifier struct {
	SiteKey    string
	Secret     string
	Endpoint   string
	HTTPClient *http.Client
}

// NewVerifierFromEnv reads HCAPTCHA_SITEKEY and HCAPTCHA_SECRET.
func NewVerifierFromEnv() *Verifier {
	return &Verifier{
		SiteKey:    env.GetEnv("HCAPTCHA_SITEKEY", ""),
		Secret:     env.GetEnv("HCAPTCHA_SECRET", ""),
		Endpoint:   defaultEndpoint,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether forms must carry a captcha.
func (v *Verifier) Enabled() bool {
	return v != nil && v.Secret != ""
}

func (v *Verifier) Verify(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, ErrEmptyToken
	}
	if v.Secret == "" {
		return false, fmt.Errorf("hCaptcha secret is not set")
	}

	formData := url.Values{
		"secret":   {v.Secret},
		"response": {token},
	}
	if v.SiteKey != "" {
		formData.Set("sitekey", v.SiteKey)
	}

	endpoint := v.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(formData.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := v.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to send request to hCaptcha API: %w", err)
	}
	defer resp.Body.Close()

	var response Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return false, fmt.Errorf("failed to decode hCaptcha API response: %w", err)
	}

	if !response.Success {
		errorMsg := "hCaptcha validation failed"
		if len(response.ErrorCodes) > 0 {
			errorMsg = errorMsg + ": " + strings.Join(response.ErrorCodes, ", ")
		}
		return false, errors.New(errorMsg)
	}

	return true, nil
}
