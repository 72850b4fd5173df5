// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taibuivan/mulita/internal/platform/ctxutil"
	"github.com/taibuivan/mulita/internal/platform/respond"
	"github.com/taibuivan/mulita/internal/platform/sec"
)

// # Guard Middleware

// Guard is the single session-and-role check shared by every protected route.
//
// # Flow
//  1. Read the token pair from cookies (Bearer header as fallback).
//  2. Resolve it, writing rotated cookies before the handler runs.
//  3. Authorize the identity against the route's role set.
//  4. Store the [EnrichedContext] and a user-scoped logger in the request context.
type Guard struct {
	resolver *Resolver
	gate     *Gate
	cookies  CookiePolicy
}

// NewGuard constructs a Guard.
func NewGuard(resolver *Resolver, gate *Gate, cookies CookiePolicy) *Guard {
	return &Guard{resolver: resolver, gate: gate, cookies: cookies}
}

/*
Authenticate runs resolution and authorization for one request.

Rotated tokens are written to writer as soon as resolution succeeds, even if
authorization then fails, so the client never keeps a consumed refresh token.
*/
func (guard *Guard) Authenticate(writer http.ResponseWriter, request *http.Request, roles sec.RoleSet) (*EnrichedContext, error) {
	ctx := request.Context()

	resolution, err := guard.resolver.Resolve(ctx, ReadSession(request))
	if err != nil {
		return nil, err
	}

	if resolution.Rotated {
		guard.cookies.SetSession(writer, resolution.Tokens)
		ctxutil.GetLogger(ctx).DebugContext(ctx, "auth_session_rotated", slog.String("user_id", resolution.Identity.ID))
	}

	return guard.gate.Authorize(ctx, resolution.Identity, roles)
}

// Require rejects requests without a session whose profile role is in roles.
// No roles means any authenticated profile.
func (guard *Guard) Require(roles ...sec.UserRole) func(http.Handler) http.Handler {
	required := sec.Roles(roles...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			enriched, err := guard.Authenticate(writer, request, required)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			next.ServeHTTP(writer, request.WithContext(withPrincipal(request, enriched)))
		})
	}
}

// RequireAdmin is Require(admin, superAdmin).
func (guard *Guard) RequireAdmin() func(http.Handler) http.Handler {
	return guard.Require(sec.AdminRoles...)
}

// RequireCommunity admits authenticated profiles whose community access is enabled.
func (guard *Guard) RequireCommunity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return guard.Require()(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if err := RequireCommunityAccess(FromContext(request.Context())); err != nil {
				respond.Error(writer, request, err)
				return
			}
			next.ServeHTTP(writer, request)
		}))
	}
}

// Optional attaches the session when one resolves and otherwise lets the
// request through anonymously. It never writes an error.
func (guard *Guard) Optional() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			enriched, err := guard.Authenticate(writer, request, nil)
			if err != nil {
				ctxutil.GetLogger(request.Context()).DebugContext(request.Context(), "auth_optional_anonymous", slog.String("reason", err.Error()))
				next.ServeHTTP(writer, request)
				return
			}

			next.ServeHTTP(writer, request.WithContext(withPrincipal(request, enriched)))
		})
	}
}

// withPrincipal stores the session and a logger tagged with the user.
func withPrincipal(request *http.Request, enriched *EnrichedContext) context.Context {
	ctx := WithSession(request.Context(), enriched)
	logger := ctxutil.GetLogger(ctx).With(
		slog.String("user_id", enriched.UserID()),
		slog.String("role", string(enriched.Role())),
	)
	return ctxutil.WithLogger(ctx, logger)
}
