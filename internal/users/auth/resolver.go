// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/taibuivan/mulita/internal/platform/sec"
)

// # Session Resolution

// SessionInput is the token pair read from a request. Either side may be empty.
type SessionInput struct {
	AccessToken  string
	RefreshToken string
}

// IsEmpty reports whether neither token is present.
func (input SessionInput) IsEmpty() bool {
	return input.AccessToken == "" && input.RefreshToken == ""
}

// Resolution is a verified session.
//
// Tokens always holds the pair the client should keep. When Rotated is true
// the pair differs from the one presented and must be written back.
type Resolution struct {
	Identity sec.Identity
	Tokens   sec.TokenPair
	Rotated  bool
}

// Resolver turns a token pair into a verified identity.
//
// # States
//
//	NoToken ────────────────────────────────────────▶ NOT_AUTHENTICATED
//	HasAccessToken ─verify ok──────────────────────▶ Verified
//	HasAccessToken ─rejected─▶ RefreshAttempted ─ok─▶ Verified (rotated)
//	                                            └──▶ INVALID_SESSION
//
// It never reads profiles and never retries.
type Resolver struct {
	provider SessionProvider
	timeout  time.Duration
}

// NewResolver constructs a Resolver. A non-positive timeout uses [DefaultUpstreamTimeout].
func NewResolver(provider SessionProvider, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultUpstreamTimeout
	}
	return &Resolver{provider: provider, timeout: timeout}
}

/*
Resolve verifies input, refreshing it when the access token is missing or rejected.

Returns:
  - *Resolution: The verified identity and the pair to keep
  - error: ErrNotAuthenticated, ErrInvalidSession or ErrUpstreamUnavailable
*/
func (resolver *Resolver) Resolve(context context.Context, input SessionInput) (*Resolution, error) {

	// 1. Nothing presented is "not logged in", never "bad session"
	if input.IsEmpty() {
		return nil, ErrNotAuthenticated
	}

	// 2. Only a refresh token: go straight to rotation
	if input.AccessToken == "" {
		return resolver.refresh(context, input.RefreshToken)
	}

	// 3. Verify the access token as presented
	identity, err := resolver.verify(context, input.AccessToken)
	if err == nil {
		return &Resolution{
			Identity: *identity,
			Tokens:   sec.TokenPair{AccessToken: input.AccessToken, RefreshToken: input.RefreshToken},
		}, nil
	}

	if !errors.Is(err, sec.ErrInvalidToken) {
		return nil, upstream(err)
	}

	// 4. Rejected access token: recover through the refresh token if we have one
	if input.RefreshToken == "" {
		return nil, ErrInvalidSession.WithCause(err)
	}

	return resolver.refresh(context, input.RefreshToken)
}

func (resolver *Resolver) refresh(ctx context.Context, refreshToken string) (*Resolution, error) {
	callCtx, cancel := context.WithTimeout(ctx, resolver.timeout)
	session, err := resolver.provider.Refresh(callCtx, refreshToken)
	cancel()

	if err != nil {
		if errors.Is(err, sec.ErrInvalidToken) {
			return nil, ErrInvalidSession.WithCause(err)
		}
		return nil, upstream(err)
	}

	// The rotated access token is verified like any other before it is trusted.
	identity, err := resolver.verify(ctx, session.Tokens.AccessToken)
	if err != nil {
		if errors.Is(err, sec.ErrInvalidToken) {
			return nil, ErrInvalidSession.WithCause(err)
		}
		return nil, upstream(err)
	}

	return &Resolution{
		Identity: *identity,
		Tokens:   session.Tokens,
		Rotated:  true,
	}, nil
}

func (resolver *Resolver) verify(ctx context.Context, accessToken string) (*sec.Identity, error) {
	callCtx, cancel := context.WithTimeout(ctx, resolver.timeout)
	defer cancel()

	return resolver.provider.VerifyAccessToken(callCtx, accessToken)
}
