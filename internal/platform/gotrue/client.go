// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package gotrue is a minimal REST client for the Supabase Auth (GoTrue) API.

It covers exactly the calls the platform needs: password sign-in, sign-up,
token refresh, access-token verification, password recovery and sign-out.

Error Contract:

  - Transport failures, timeouts and 5xx answers are returned as plain errors.
    Callers treat them as "provider unavailable".
  - Definitive 4xx rejections are returned as [*sec.ProviderError].
  - Rejected access or refresh tokens additionally wrap [sec.ErrInvalidToken].
*/
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taibuivan/mulita/internal/platform/constants"
	"github.com/taibuivan/mulita/internal/platform/sec"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// # Construction

// Config captures runtime configuration for the client.
type Config struct {
	// BaseURL is the GoTrue root, e.g. https://<project>.supabase.co/auth/v1.
	BaseURL string
	// APIKey is the project's anon (public) key, sent as the "apikey" header.
	APIKey string
	// Timeout bounds each HTTP call when Client is nil.
	Timeout time.Duration
	// RedirectURL is where password recovery links land (optional).
	RedirectURL string
	// Verifier checks access tokens locally. When nil, tokens are verified
	// remotely with GET /user.
	Verifier sec.AccessTokenVerifier
	// Client overrides the HTTP client (tests).
	Client *http.Client
}

// Client talks to the GoTrue REST API.
type Client struct {
	baseURL     string
	apiKey      string
	redirectURL string
	verifier    sec.AccessTokenVerifier
	client      *http.Client
}

// NewClient validates cfg and returns a ready client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("gotrue: base URL is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("gotrue: invalid base URL: %w", err)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gotrue: api key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		redirectURL: cfg.RedirectURL,
		verifier:    cfg.Verifier,
		client:      httpClient,
	}, nil
}

// # Wire Types

type userPayload struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at"`
	ConfirmedAt      *time.Time `json:"confirmed_at"`
}

func (u userPayload) identity() sec.Identity {
	return sec.Identity{ID: u.ID, Email: u.Email}
}

func (u userPayload) confirmed() bool {
	return u.EmailConfirmedAt != nil || u.ConfirmedAt != nil
}

type sessionPayload struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         *userPayload `json:"user"`
}

func (p sessionPayload) session() (*sec.ProviderSession, error) {
	if p.AccessToken == "" || p.RefreshToken == "" || p.User == nil || p.User.ID == "" {
		return nil, errors.New("gotrue: incomplete session in response")
	}

	return &sec.ProviderSession{
		Tokens: sec.TokenPair{
			AccessToken:  p.AccessToken,
			RefreshToken: p.RefreshToken,
			ExpiresIn:    p.ExpiresIn,
			ExpiresAt:    p.ExpiresAt,
		},
		Identity:       p.User.identity(),
		EmailConfirmed: p.User.confirmed(),
	}, nil
}

// errorPayload covers both the OAuth-style ({error, error_description}) and
// the newer ({code, error_code, msg}) GoTrue error bodies.
type errorPayload struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (p errorPayload) providerError(status int) *sec.ProviderError {
	code := p.ErrorCode
	if code == "" {
		code = p.Error
	}

	message := p.Msg
	for _, candidate := range []string{p.ErrorDescription, p.Message} {
		if message == "" {
			message = candidate
		}
	}
	if message == "" {
		message = http.StatusText(status)
	}

	return &sec.ProviderError{Status: status, Code: code, Message: message}
}

// # Operations

// SignInWithPassword exchanges an email and password for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*sec.ProviderSession, error) {
	var payload sessionPayload
	body := map[string]string{"email": email, "password": password}

	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", body, &payload); err != nil {
		return nil, err
	}

	return payload.session()
}

// Refresh exchanges a refresh token for a new session. A rejected refresh
// token wraps [sec.ErrInvalidToken].
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*sec.ProviderSession, error) {
	var payload sessionPayload
	body := map[string]string{"refresh_token": refreshToken}

	err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", body, &payload)
	if err != nil {
		if _, rejected := sec.AsProviderError(err); rejected {
			return nil, fmt.Errorf("%w: %w", sec.ErrInvalidToken, err)
		}
		return nil, err
	}

	return payload.session()
}

// VerifyAccessToken resolves an access token to its identity.
//
// With a local verifier configured no network call is made. Otherwise the
// provider's GET /user endpoint is asked, and any 4xx answer wraps
// [sec.ErrInvalidToken].
func (c *Client) VerifyAccessToken(ctx context.Context, accessToken string) (*sec.Identity, error) {
	if c.verifier != nil {
		return c.verifier.VerifyAccessToken(ctx, accessToken)
	}

	var user userPayload
	err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &user)
	if err != nil {
		if _, rejected := sec.AsProviderError(err); rejected {
			return nil, fmt.Errorf("%w: %w", sec.ErrInvalidToken, err)
		}
		return nil, err
	}

	if user.ID == "" {
		return nil, fmt.Errorf("%w: user without id", sec.ErrInvalidToken)
	}

	identity := user.identity()
	return &identity, nil
}

// SignUp creates an identity. metadata is stored as the user's data blob.
//
// With email confirmation enabled the provider returns a bare user; with
// auto-confirm it returns a session. Both shapes are accepted.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*sec.Identity, error) {
	body := map[string]any{"email": email, "password": password}
	if len(metadata) > 0 {
		body["data"] = metadata
	}

	var payload struct {
		userPayload
		User *userPayload `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/signup", "", body, &payload); err != nil {
		return nil, err
	}

	user := payload.userPayload
	if payload.User != nil {
		user = *payload.User
	}
	if user.ID == "" {
		return nil, errors.New("gotrue: sign-up response without user id")
	}

	identity := user.identity()
	return &identity, nil
}

// SendPasswordReset asks the provider to email a recovery link.
func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	path := "/recover"
	if c.redirectURL != "" {
		path += "?redirect_to=" + url.QueryEscape(c.redirectURL)
	}

	return c.do(ctx, http.MethodPost, path, "", map[string]string{"email": email}, nil)
}

// SignOut revokes the refresh tokens of the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

// # Transport

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gotrue: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("gotrue: create request: %w", err)
	}

	request.Header.Set(constants.HeaderSupabaseAPIKey, c.apiKey)
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set(constants.HeaderContentType, "application/json")
	}
	if bearer != "" {
		request.Header.Set(constants.HeaderAuthorization, "Bearer "+bearer)
	}

	response, err := c.client.Do(request)
	if err != nil {
		return fmt.Errorf("gotrue: %s %s: %w", method, strings.SplitN(path, "?", 2)[0], err)
	}
	defer response.Body.Close()

	if response.StatusCode >= 400 {
		return c.handleErrorResponse(response)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}

	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("gotrue: decode response: %w", err)
	}

	return nil
}

func (c *Client) handleErrorResponse(response *http.Response) error {
	raw, readErr := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))

	// 5xx and throttling are provider-side conditions, never a verdict on the input.
	if response.StatusCode >= 500 || response.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("gotrue: upstream status %d", response.StatusCode)
	}

	var payload errorPayload
	if readErr == nil {
		_ = json.Unmarshal(raw, &payload)
	}

	return payload.providerError(response.StatusCode)
}
