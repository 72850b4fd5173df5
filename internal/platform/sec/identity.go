// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec holds the security primitives shared by every layer: the
// verified principal, the opaque token pair, the closed role set and the
// access-token verifiers.
//
// # Architecture
//
// Token cryptography is never implemented here. Verifiers delegate to
// golang-jwt (shared secret) or go-oidc (JWKS), and the remote mode asks the
// identity provider directly.
package sec

import (
	"context"
	"errors"
	"fmt"
)

// # Principal

// Identity is the minimal principal returned by a successful token verification.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// TokenPair is the opaque access/refresh pair issued by the identity provider.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
}

// ProviderSession is the result of a credential exchange or a refresh: a new
// token pair and the principal it belongs to.
type ProviderSession struct {
	Tokens   TokenPair
	Identity Identity

	// EmailConfirmed is false when the provider issued tokens for an account
	// whose address was never confirmed.
	EmailConfirmed bool
}

// # Verification Contract

// ErrInvalidToken marks a token the provider rejected (expired, malformed,
// revoked). Any other verification error means the provider could not be reached.
var ErrInvalidToken = errors.New("sec: invalid or expired token")

// AccessTokenVerifier turns an opaque access token into an [Identity].
//
// Implementations wrap [ErrInvalidToken] when the token itself is bad and
// return any other error for transport or key-fetch failures.
type AccessTokenVerifier interface {
	VerifyAccessToken(ctx context.Context, accessToken string) (*Identity, error)
}

// # Provider Rejections

// ProviderError is a definitive rejection returned by the identity provider
// (a 4xx answer with a message), as opposed to a transport failure.
type ProviderError struct {
	// Status is the HTTP status the provider answered with.
	Status int
	// Code is the provider's machine code (e.g. "invalid_credentials"), if any.
	Code string
	// Message is the provider's human-readable message.
	Message string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("identity provider rejected request (%d %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("identity provider rejected request (%d): %s", e.Status, e.Message)
}

// AsProviderError extracts a [*ProviderError] from err's chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr, true
	}
	return nil, false
}
