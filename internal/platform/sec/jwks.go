// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// JWKSVerifier validates asymmetric (RS256/ES256) access tokens against the
// provider's published key set. Keys are fetched lazily and cached by go-oidc.
type JWKSVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewJWKSVerifier builds a verifier for tokens issued by issuer and signed by
// a key from jwksURL. The context only scopes the HTTP client used for key fetches.
func NewJWKSVerifier(ctx context.Context, issuer, jwksURL string, httpClient *http.Client) *JWKSVerifier {
	if httpClient != nil {
		ctx = oidc.ClientContext(ctx, httpClient)
	}

	keySet := oidc.NewRemoteKeySet(ctx, jwksURL)
	verifier := oidc.NewVerifier(issuer, keySet, &oidc.Config{
		ClientID:             ProviderAudience,
		SupportedSigningAlgs: []string{oidc.RS256, oidc.ES256},
	})

	return &JWKSVerifier{verifier: verifier}
}

// VerifyAccessToken checks the token signature and standard claims.
func (verifier *JWKSVerifier) VerifyAccessToken(ctx context.Context, tokenString string) (*Identity, error) {
	token, err := verifier.verifier.Verify(ctx, tokenString)
	if err != nil {
		// go-oidc folds key-fetch failures into the signature error text.
		if strings.Contains(err.Error(), "fetching keys") && !isExpired(err) {
			return nil, fmt.Errorf("sec: jwks unavailable: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if token.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &Identity{ID: token.Subject, Email: claims.Email}, nil
}

func isExpired(err error) bool {
	var expired *oidc.TokenExpiredError
	return errors.As(err, &expired)
}
