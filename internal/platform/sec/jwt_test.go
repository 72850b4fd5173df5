// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mulita/internal/platform/sec"
)

const (
	testSecret = "super-secret-jwt-token-with-at-least-32-characters"
	testIssuer = "http://localhost:54321/auth/v1"
)

func signHS256(t *testing.T, secret string, claims sec.ProviderClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims(expiresIn time.Duration) sec.ProviderClaims {
	now := time.Now()
	return sec.ProviderClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "0b6f7c1e-6b2a-4f43-9c55-1d7a3c0f2a11",
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{sec.ProviderAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
		Email: "ana@example.com",
		Role:  "authenticated",
	}
}

/*
TestSecretVerifier_Valid verifies that a well-formed token yields the subject and email.
*/
func TestSecretVerifier_Valid(t *testing.T) {
	verifier, err := sec.NewSecretVerifier(testSecret, testIssuer)
	require.NoError(t, err)

	token := signHS256(t, testSecret, validClaims(time.Hour))

	identity, err := verifier.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "0b6f7c1e-6b2a-4f43-9c55-1d7a3c0f2a11", identity.ID)
	assert.Equal(t, "ana@example.com", identity.Email)
}

/*
TestSecretVerifier_Rejections verifies that every bad token maps to ErrInvalidToken.
*/
func TestSecretVerifier_Rejections(t *testing.T) {
	verifier, err := sec.NewSecretVerifier(testSecret, testIssuer)
	require.NoError(t, err)

	wrongAudience := validClaims(time.Hour)
	wrongAudience.Audience = jwt.ClaimStrings{"anon"}

	wrongIssuer := validClaims(time.Hour)
	wrongIssuer.Issuer = "https://evil.example.com/auth/v1"

	noExpiry := validClaims(time.Hour)
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{"expired", signHS256(t, testSecret, validClaims(-time.Minute))},
		{"wrong secret", signHS256(t, "another-secret-of-sufficient-length-123", validClaims(time.Hour))},
		{"wrong audience", signHS256(t, testSecret, wrongAudience)},
		{"wrong issuer", signHS256(t, testSecret, wrongIssuer)},
		{"missing expiry", signHS256(t, testSecret, noExpiry)},
		{"garbage", "not.a.jwt"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.VerifyAccessToken(context.Background(), tt.token)
			assert.ErrorIs(t, err, sec.ErrInvalidToken)
		})
	}
}

func TestSecretVerifier_RejectsNoneAlgorithm(t *testing.T) {
	verifier, err := sec.NewSecretVerifier(testSecret, "")
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims(time.Hour))
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = verifier.VerifyAccessToken(context.Background(), unsigned)
	assert.ErrorIs(t, err, sec.ErrInvalidToken)
}

func TestNewSecretVerifier_RequiresSecret(t *testing.T) {
	_, err := sec.NewSecretVerifier("", testIssuer)
	assert.Error(t, err)
}
