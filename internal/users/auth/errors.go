// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/taibuivan/mulita/internal/platform/apperr"
)

// # Error Taxonomy
//
// Sentinels are compared with errors.Is, which matches on Code. Call sites
// attach causes and details through WithCause and WithDetails.

var (
	// ErrNotAuthenticated means the request carried no session at all.
	ErrNotAuthenticated = apperr.New("NOT_AUTHENTICATED", "Authentication required", http.StatusUnauthorized)

	// ErrInvalidSession means tokens were present but neither verified nor refreshed.
	ErrInvalidSession = apperr.New("INVALID_SESSION", "Session is invalid or has expired", http.StatusUnauthorized)

	// ErrInvalidCredentials means the provider rejected the email/secret pair.
	ErrInvalidCredentials = apperr.New("INVALID_CREDENTIALS", "Invalid login credentials", http.StatusUnauthorized)

	// ErrEmailUnconfirmed means the account exists but its address was never confirmed.
	ErrEmailUnconfirmed = apperr.New("EMAIL_UNCONFIRMED", "Please confirm your email before signing in", http.StatusUnauthorized)

	// ErrAuthenticationFailed covers provider rejections with an unrecognised reason.
	ErrAuthenticationFailed = apperr.New("AUTHENTICATION_FAILED", "Authentication failed", http.StatusUnauthorized)

	// ErrEmailAlreadyRegistered is returned on duplicate sign-up.
	ErrEmailAlreadyRegistered = apperr.New("EMAIL_ALREADY_REGISTERED", "Email is already registered", http.StatusConflict)

	// ErrRegistrationIncomplete means the identity was created but its profile was not.
	ErrRegistrationIncomplete = apperr.New("REGISTRATION_INCOMPLETE", "Account was created but the profile could not be saved", http.StatusInternalServerError)

	// ErrProfileNotFound means a verified identity has no profile row.
	ErrProfileNotFound = apperr.New("PROFILE_NOT_FOUND", "User profile not found", http.StatusForbidden)

	// ErrAccountDisabled means the profile was soft-deleted.
	ErrAccountDisabled = apperr.New("ACCOUNT_DISABLED", "This account has been disabled", http.StatusForbidden)

	// ErrForbidden means the profile's role is outside the required set.
	ErrForbidden = apperr.Forbidden("You do not have permission to perform this action")

	// ErrUpstreamUnavailable means the provider or the profile store could not answer.
	ErrUpstreamUnavailable = apperr.New("UPSTREAM_UNAVAILABLE", "Authentication service unavailable", http.StatusInternalServerError)
)

// invalidCredentialsInput is the 400 variant raised before any provider call.
func invalidCredentialsInput(details []apperr.FieldError) *apperr.AppError {
	return apperr.New(ErrInvalidCredentials.Code, "Invalid login credentials", http.StatusBadRequest).WithDetails(details...)
}

// upstream wraps an infrastructure failure, keeping the cause for logs.
func upstream(cause error) *apperr.AppError {
	return ErrUpstreamUnavailable.WithCause(cause)
}
