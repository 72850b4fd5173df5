// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/taibuivan/mulita/internal/platform/constants"
	requestutil "github.com/taibuivan/mulita/internal/platform/request"
	"github.com/taibuivan/mulita/internal/platform/sec"
)

// # Session Cookies

// CookiePolicy writes and clears the two session cookies.
type CookiePolicy struct {
	// Secure marks cookies HTTPS-only (production).
	Secure bool
}

// SetSession writes both tokens as HTTP-only, SameSite=Lax cookies.
func (policy CookiePolicy) SetSession(writer http.ResponseWriter, tokens sec.TokenPair) {
	maxAge := int(constants.SessionCookieMaxAge.Seconds())

	http.SetCookie(writer, policy.cookie(constants.AccessTokenCookieName, tokens.AccessToken, maxAge))
	if tokens.RefreshToken != "" {
		http.SetCookie(writer, policy.cookie(constants.RefreshTokenCookieName, tokens.RefreshToken, maxAge))
	}
}

// Clear expires both cookies.
func (policy CookiePolicy) Clear(writer http.ResponseWriter) {
	http.SetCookie(writer, policy.cookie(constants.AccessTokenCookieName, "", -1))
	http.SetCookie(writer, policy.cookie(constants.RefreshTokenCookieName, "", -1))
}

func (policy CookiePolicy) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     constants.SessionCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   policy.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ReadSession extracts the token pair from the request cookies. The access
// token falls back to an "Authorization: Bearer" header for non-browser clients.
func ReadSession(request *http.Request) SessionInput {
	input := SessionInput{
		AccessToken:  requestutil.CookieValue(request, constants.AccessTokenCookieName),
		RefreshToken: requestutil.CookieValue(request, constants.RefreshTokenCookieName),
	}

	if input.AccessToken == "" {
		input.AccessToken = requestutil.BearerToken(request)
	}

	return input
}
