// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ProviderAudience is the audience the provider stamps on signed-in users' tokens.
const ProviderAudience = "authenticated"

// ProviderClaims represents the payload of a provider-issued access token.
//
// Only the subject and email are trusted by the platform. The role claim is the
// provider's own ("authenticated"), never the application role, which always
// comes from the profile store.
type ProviderClaims struct {
	jwt.RegisteredClaims

	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
}

// SecretVerifier validates HS256 access tokens signed with the project's shared JWT secret.
type SecretVerifier struct {
	secret []byte
	issuer string
}

// NewSecretVerifier creates a new SecretVerifier.
//
// issuer may be empty to skip the "iss" check (local development stacks).
func NewSecretVerifier(secret, issuer string) (*SecretVerifier, error) {
	if secret == "" {
		return nil, errors.New("sec: jwt secret is required")
	}

	return &SecretVerifier{
		secret: []byte(secret),
		issuer: issuer,
	}, nil
}

// VerifyAccessToken checks the signature, expiry, audience and issuer of a token.
func (verifier *SecretVerifier) VerifyAccessToken(_ context.Context, tokenString string) (*Identity, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(ProviderAudience),
		jwt.WithExpirationRequired(),
	}
	if verifier.issuer != "" {
		options = append(options, jwt.WithIssuer(verifier.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &ProviderClaims{}, func(token *jwt.Token) (interface{}, error) {
		return verifier.secret, nil
	}, options...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*ProviderClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &Identity{ID: claims.Subject, Email: claims.Email}, nil
}
