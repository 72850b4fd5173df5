// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"

	"github.com/taibuivan/mulita/internal/platform/sec"
)

// # Identity Provider

// SessionProvider is the subset of the identity provider the Resolver needs.
type SessionProvider interface {

	/*
		VerifyAccessToken resolves an access token to its identity.

		Returns:
		  - error: wraps sec.ErrInvalidToken when the token is rejected;
		    any other error means the provider is unreachable
	*/
	VerifyAccessToken(context context.Context, accessToken string) (*sec.Identity, error)

	/*
		Refresh exchanges a refresh token for a rotated session.

		Returns:
		  - error: wraps sec.ErrInvalidToken when the refresh token is rejected
	*/
	Refresh(context context.Context, refreshToken string) (*sec.ProviderSession, error)
}

// IdentityProvider is the full capability set of the external identity service.
type IdentityProvider interface {
	SessionProvider

	/*
		SignInWithPassword exchanges credentials for a session.

		Returns:
		  - error: *sec.ProviderError for rejections, other errors for transport
	*/
	SignInWithPassword(context context.Context, email, password string) (*sec.ProviderSession, error)

	// SignUp creates a provider identity; metadata is stored with the user.
	SignUp(context context.Context, email, password string, metadata map[string]any) (*sec.Identity, error)

	// SendPasswordReset dispatches a recovery email.
	SendPasswordReset(context context.Context, email string) error

	// SignOut revokes the provider-side refresh tokens of a session.
	SignOut(context context.Context, accessToken string) error
}

// # Profile Data Access

// ProfileReader looks up profiles for authorization.
type ProfileReader interface {

	/*
		FindByID returns the profile of the given identity.

		Returns:
		  - error: dberr.ErrNotFound when no row exists, otherwise storage failures
	*/
	FindByID(context context.Context, id string) (*Profile, error)
}

// ProfileRepository is the profile store used by registration.
type ProfileRepository interface {
	ProfileReader

	// ExistsByEmail reports whether a profile already uses email (case-insensitive).
	ExistsByEmail(context context.Context, email string) (bool, error)

	/*
		Create inserts a profile and, when teacher is non-nil, its teacher
		extension in a single transaction.

		Returns:
		  - error: a unique violation on the email index when the address is taken
	*/
	Create(context context.Context, profile *Profile, teacher *Teacher) error
}

// TeacherReader looks up the docente extension.
type TeacherReader interface {

	/*
		FindByUserID returns the teacher record of a docente.

		Returns:
		  - error: dberr.ErrNotFound when the extension row is absent
	*/
	FindByUserID(context context.Context, userID string) (*Teacher, error)
}

// # Volatile Data Access

// LoginLimiter counts failed logins per email within a cooldown window.
type LoginLimiter interface {

	// Check returns a positive retry-after when the budget is exhausted.
	Check(context context.Context, email string) (time.Duration, error)

	// RecordFailure counts one rejected credential exchange.
	RecordFailure(context context.Context, email string) error

	// Reset clears the counter after a successful login.
	Reset(context context.Context, email string) error
}

// ResetThrottle spaces password recovery emails per address.
type ResetThrottle interface {

	// Allow reports whether a recovery email may be sent now, and reserves the slot.
	Allow(context context.Context, email string) (bool, error)
}
