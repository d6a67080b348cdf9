// Package verify checks Cloudflare Turnstile tokens before a chat session
// is created.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultEndpoint = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

var (
	// ErrTokenRequired means no token was supplied but verification is on.
	ErrTokenRequired = errors.New("verify: token required")
	// ErrRejected means Cloudflare judged the token invalid.
	ErrRejected = errors.New("verify: token rejected")
)

// Turnstile validates tokens against the siteverify endpoint. With an empty
// secret it is a no-op, so local development works without Cloudflare.
type Turnstile struct {
	secret     string
	endpoint   string
	httpClient *http.Client
}

// Opts holds Turnstile construction parameters. Endpoint is overridable for
// tests.
type Opts struct {
	Secret   string
	Endpoint string
	Timeout  time.Duration
}

// New creates a Turnstile verifier.
func New(opts Opts) *Turnstile {
	if opts.Endpoint == "" {
		opts.Endpoint = defaultEndpoint
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Turnstile{
		secret:     opts.Secret,
		endpoint:   opts.Endpoint,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

// Enabled reports whether a secret is configured.
func (t *Turnstile) Enabled() bool {
	return t.secret != ""
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify checks one token. remoteIP is forwarded to Cloudflare when known.
func (t *Turnstile) Verify(ctx context.Context, token, remoteIP string) error {
	if !t.Enabled() {
		return nil
	}
	if token == "" {
		return ErrTokenRequired
	}

	form := url.Values{}
	form.Set("secret", t.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("verify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("verify: call siteverify: %w", err)
	}
	defer resp.Body.Close()

	var out siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("verify: decode response: %w", err)
	}
	if !out.Success {
		return fmt.Errorf("%w: %s", ErrRejected, strings.Join(out.ErrorCodes, ", "))
	}
	return nil
}
