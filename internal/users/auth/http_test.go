// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mulita/internal/platform/constants"
	"github.com/taibuivan/mulita/internal/platform/ctxutil"
	"github.com/taibuivan/mulita/internal/platform/sec"
	"github.com/taibuivan/mulita/internal/users/auth"
)

func newRouter(f *fixture) (http.Handler, *auth.Guard) {
	cookies := auth.CookiePolicy{Secure: true}
	guard := auth.NewGuard(f.resolver, f.gate, cookies)
	handler := auth.NewHandler(f.authenticator, f.resolver, f.gate, guard, cookies)

	router := chi.NewRouter()
	router.Mount("/api/v1/auth", handler.Routes())
	return router, guard
}

func do(t *testing.T, router http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var request *http.Request
	if body == "" {
		request = httptest.NewRequest(method, path, nil)
	} else {
		request = httptest.NewRequest(method, path, strings.NewReader(body))
		request.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func cookieNamed(recorder *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func accessCookie(value string) *http.Cookie {
	return &http.Cookie{Name: constants.AccessTokenCookieName, Value: value}
}

func refreshCookie(value string) *http.Cookie {
	return &http.Cookie{Name: constants.RefreshTokenCookieName, Value: value}
}

// # Login

func TestLoginEndpoint(t *testing.T) {
	f := newFixture()
	router, _ := newRouter(f)
	f.store.put(profileFor(anaID, sec.RoleDocente), &auth.Teacher{UsuarioID: anaID, Institucion: "Escuela 12"})
	f.provider.On("SignInWithPassword", anaEmail, "secreto").Return(sessionFor(anaID, "access-1", "refresh-1"), nil)

	recorder := do(t, router, http.MethodPost, "/api/v1/auth/login", `{"email":"ana@mulita.com.ar","contrasena":"secreto"}`)

	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, true, body["success"])

	user := body["user"].(map[string]any)
	assert.Equal(t, anaID, user["id"])
	assert.Equal(t, "docente", user["role"])
	assert.Equal(t, "Escuela 12", user["docente"].(map[string]any)["institucion"])
	assert.Contains(t, user, "telefono")
	assert.Equal(t, "", user["telefono"])

	session := body["session"].(map[string]any)
	assert.Equal(t, "access-1", session["access_token"])

	// Both cookies carry the production attributes.
	access := cookieNamed(recorder, constants.AccessTokenCookieName)
	require.NotNil(t, access)
	assert.Equal(t, "access-1", access.Value)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, http.SameSiteLaxMode, access.SameSite)
	assert.Equal(t, "/", access.Path)
	assert.Equal(t, 30*24*60*60, access.MaxAge)
	assert.NotNil(t, cookieNamed(recorder, constants.RefreshTokenCookieName))
}

func TestLoginEndpoint_Failures(t *testing.T) {
	f := newFixture()
	router, _ := newRouter(f)

	// 1. Short secret is a 400 and the provider is never called
	recorder := do(t, router, http.MethodPost, "/api/v1/auth/login", `{"email":"a@b.com","secret":"short"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	body := decodeBody(t, recorder)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "INVALID_CREDENTIALS", body["code"])
	assert.NotEmpty(t, body["message"])

	// 2. Malformed JSON
	recorder = do(t, router, http.MethodPost, "/api/v1/auth/login", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	f.provider.AssertNumberOfCalls(t, "SignInWithPassword", 0)
	assert.Nil(t, cookieNamed(recorder, constants.AccessTokenCookieName))
}

func TestLoginEndpoint_LogsClientIP(t *testing.T) {
	f := newFixture()
	router, _ := newRouter(f)
	f.provider.On("SignInWithPassword", anaEmail, "secreto").
		Return(nil, &sec.ProviderError{Status: http.StatusBadRequest, Code: "invalid_grant", Message: "Invalid login credentials"})

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	withLogger := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		router.ServeHTTP(w, r.WithContext(ctxutil.WithLogger(r.Context(), logger)))
	})

	request := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"ana@mulita.com.ar","secret":"secreto"}`))
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set(constants.HeaderXForwardedFor, "203.0.113.7, 10.0.0.1")
	request.RemoteAddr = "10.0.0.1:51234"

	recorder := httptest.NewRecorder()
	withLogger.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, logs.String(), `"ip":"203.0.113.7"`)
	assert.NotContains(t, logs.String(), "51234")
}

// # Validate Token

func TestValidateTokenEndpoint(t *testing.T) {
	t.Run("missing access token is 400", func(t *testing.T) {
		router, _ := newRouter(newFixture())

		recorder := do(t, router, http.MethodPost, "/api/v1/auth/validate-token", `{"refresh_token":"r"}`)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("invalid token is 401", func(t *testing.T) {
		f := newFixture()
		router, _ := newRouter(f)
		f.provider.On("VerifyAccessToken", "garbage").Return(nil, fmt.Errorf("malformed: %w", sec.ErrInvalidToken))

		recorder := do(t, router, http.MethodPost, "/api/v1/auth/validate-token", `{"access_token":"garbage"}`)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Equal(t, "INVALID_SESSION", decodeBody(t, recorder)["code"])
	})

	t.Run("valid token sets cookies", func(t *testing.T) {
		f := newFixture()
		router, _ := newRouter(f)
		f.store.put(profileFor(anaID, sec.RoleUsuario), nil)
		f.provider.On("VerifyAccessToken", "access-1").Return(&sec.Identity{ID: anaID, Email: anaEmail}, nil)

		recorder := do(t, router, http.MethodPost, "/api/v1/auth/validate-token", `{"access_token":"access-1","refresh_token":"refresh-1"}`)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, anaID, decodeBody(t, recorder)["user"].(map[string]any)["id"])
		assert.Equal(t, "refresh-1", cookieNamed(recorder, constants.RefreshTokenCookieName).Value)
	})
}

// # Current Identity

/*
TestMeEndpoint_NeverErrors verifies that /me answers 200 {user: null} for
every failed resolution, including a garbage cookie without refresh token.
*/
func TestMeEndpoint_NeverErrors(t *testing.T) {
	tests := []struct {
		name    string
		cookies []*http.Cookie
		setup   func(f *fixture)
	}{
		{
			name: "no cookies",
		},
		{
			name:    "garbage access token without refresh",
			cookies: []*http.Cookie{accessCookie("garbage")},
			setup: func(f *fixture) {
				f.provider.On("VerifyAccessToken", "garbage").Return(nil, fmt.Errorf("bad: %w", sec.ErrInvalidToken))
			},
		},
		{
			name:    "provider down",
			cookies: []*http.Cookie{accessCookie("access-1")},
			setup: func(f *fixture) {
				f.provider.On("VerifyAccessToken", "access-1").Return(nil, errTransport)
			},
		},
		{
			name:    "profile missing",
			cookies: []*http.Cookie{accessCookie("access-1")},
			setup: func(f *fixture) {
				f.provider.On("VerifyAccessToken", "access-1").Return(&sec.Identity{ID: anaID}, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.setup != nil {
				tt.setup(f)
			}
			router, _ := newRouter(f)

			recorder := do(t, router, http.MethodGet, "/api/v1/auth/me", "", tt.cookies...)

			assert.Equal(t, http.StatusOK, recorder.Code)
			body := decodeBody(t, recorder)
			assert.Contains(t, body, "user")
			assert.Nil(t, body["user"])
		})
	}
}

func TestMeEndpoint_RotatesExpiredSession(t *testing.T) {
	f := newFixture()
	router, _ := newRouter(f)
	f.store.put(profileFor(anaID, sec.RoleUsuario), nil)
	f.provider.On("VerifyAccessToken", "access-old").Return(nil, fmt.Errorf("expired: %w", sec.ErrInvalidToken))
	f.provider.On("Refresh", "refresh-old").Return(sessionFor(anaID, "access-new", "refresh-new"), nil)
	f.provider.On("VerifyAccessToken", "access-new").Return(&sec.Identity{ID: anaID, Email: anaEmail}, nil)

	recorder := do(t, router, http.MethodGet, "/api/v1/auth/me", "", accessCookie("access-old"), refreshCookie("refresh-old"))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, anaID, decodeBody(t, recorder)["user"].(map[string]any)["id"])
	assert.Equal(t, "access-new", cookieNamed(recorder, constants.AccessTokenCookieName).Value)
	assert.Equal(t, "refresh-new", cookieNamed(recorder, constants.RefreshTokenCookieName).Value)
}

// # Logout

func TestLogoutEndpoint_Idempotent(t *testing.T) {
	f := newFixture()
	router, _ := newRouter(f)
	f.provider.On("SignOut", "access-1").Return(errTransport)

	for _, cookies := range [][]*http.Cookie{{accessCookie("access-1")}, nil} {
		recorder := do(t, router, http.MethodPost, "/api/v1/auth/logout", "", cookies...)

		require.Equal(t, http.StatusOK, recorder.Code)
		access := cookieNamed(recorder, constants.AccessTokenCookieName)
		require.NotNil(t, access)
		assert.Empty(t, access.Value)
		assert.Negative(t, access.MaxAge)
		assert.Negative(t, cookieNamed(recorder, constants.RefreshTokenCookieName).MaxAge)
	}

	f.provider.AssertNumberOfCalls(t, "SignOut", 1)
}

// # Registration

func TestRegisterEndpoint(t *testing.T) {
	f := newFixture()
	router, _ := newRouter(f)
	f.provider.On("SignUp", anaEmail, "secreto", mock.Anything).Return(&sec.Identity{ID: anaID, Email: anaEmail}, nil).Once()

	payload := `{"nombre":"Ana","apellido":"Pérez","email":"ana@mulita.com.ar","contrasena":"secreto","rol":"usuario"}`

	recorder := do(t, router, http.MethodPost, "/api/v1/auth/register", payload)
	require.Equal(t, http.StatusCreated, recorder.Code)
	user := decodeBody(t, recorder)["user"].(map[string]any)
	assert.Equal(t, anaID, user["id"])
	assert.Equal(t, "usuario", user["role"])

	recorder = do(t, router, http.MethodPost, "/api/v1/auth/register", payload)
	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.Equal(t, "EMAIL_ALREADY_REGISTERED", decodeBody(t, recorder)["code"])
}

func TestForgotPasswordEndpoint(t *testing.T) {
	f := newFixture()
	router, _ := newRouter(f)
	f.provider.On("SendPasswordReset", anaEmail).Return(nil)

	recorder := do(t, router, http.MethodPost, "/api/v1/auth/forgot-password", `{"email":"ana@mulita.com.ar"}`)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, true, decodeBody(t, recorder)["success"])

	recorder = do(t, router, http.MethodPost, "/api/v1/auth/forgot-password", `{"email":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

// # Guard

func TestGuard_Require(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		enriched := auth.FromContext(r.Context())
		w.Header().Set("X-User", enriched.UserID())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name    string
		role    sec.UserRole
		cookies []*http.Cookie
		want    int
	}{
		{name: "no session", want: http.StatusUnauthorized},
		{name: "usuario on admin route", role: sec.RoleUsuario, cookies: []*http.Cookie{accessCookie("access-1")}, want: http.StatusForbidden},
		{name: "superAdmin on admin route", role: sec.RoleSuperAdmin, cookies: []*http.Cookie{accessCookie("access-1")}, want: http.StatusNoContent},
		{name: "admin on admin route", role: sec.RoleAdmin, cookies: []*http.Cookie{accessCookie("access-1")}, want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, guard := newRouter(f)
			if tt.role != "" {
				f.store.put(profileFor(anaID, tt.role), nil)
			}
			f.provider.On("VerifyAccessToken", "access-1").Return(&sec.Identity{ID: anaID}, nil)

			recorder := do(t, guard.RequireAdmin()(ok), http.MethodGet, "/", "", tt.cookies...)

			assert.Equal(t, tt.want, recorder.Code)
			if tt.want == http.StatusNoContent {
				assert.Equal(t, anaID, recorder.Header().Get("X-User"))
			}
		})
	}
}

func TestGuard_BearerFallback(t *testing.T) {
	f := newFixture()
	_, guard := newRouter(f)
	f.store.put(profileFor(anaID, sec.RoleUsuario), nil)
	f.provider.On("VerifyAccessToken", "header-token").Return(&sec.Identity{ID: anaID}, nil)

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Authorization", "Bearer header-token")
	recorder := httptest.NewRecorder()

	guard.Require()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestGuard_RequireCommunity(t *testing.T) {
	f := newFixture()
	_, guard := newRouter(f)
	profile := profileFor(anaID, sec.RoleUsuario)
	profile.AccesoComunidad = false
	f.store.put(profile, nil)
	f.provider.On("VerifyAccessToken", "access-1").Return(&sec.Identity{ID: anaID}, nil)

	recorder := do(t, guard.RequireCommunity()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})), http.MethodGet, "/", "", accessCookie("access-1"))

	assert.Equal(t, http.StatusForbidden, recorder.Code)
}
