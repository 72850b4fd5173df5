// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mulita/internal/platform/apperr"
	"github.com/taibuivan/mulita/internal/platform/ctxutil"
	"github.com/taibuivan/mulita/internal/platform/middleware"
	requestutil "github.com/taibuivan/mulita/internal/platform/request"
	"github.com/taibuivan/mulita/internal/platform/respond"
	"github.com/taibuivan/mulita/internal/platform/sec"
)

// # Definitions & Constructors

// Handler implements the session endpoints mounted under /api/v1/auth.
//
// # Scope
//
// This is the only place where a missing session is not an error: GET /me
// answers {user: null} instead of 401 so clients can probe login state.
type Handler struct {
	authenticator *Authenticator
	resolver      *Resolver
	gate          *Gate
	guard         *Guard
	cookies       CookiePolicy
}

// NewHandler constructs a [Handler].
func NewHandler(authenticator *Authenticator, resolver *Resolver, gate *Gate, guard *Guard, cookies CookiePolicy) *Handler {
	return &Handler{
		authenticator: authenticator,
		resolver:      resolver,
		gate:          gate,
		guard:         guard,
		cookies:       cookies,
	}
}

// Routes returns a [chi.Router] with the session endpoints.
//
// # Endpoints
//   - POST /login           : Credentials to cookies and enriched user.
//   - POST /validate-token  : Externally obtained tokens to cookies.
//   - GET  /me              : Current user or null, never an error.
//   - POST /logout          : Clears cookies, idempotent.
//   - POST /register        : Creates identity and profile.
//   - POST /forgot-password : Sends a recovery email.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/login", handler.login)
	router.Post("/validate-token", handler.validateToken)
	router.Get("/me", handler.me)
	router.Post("/logout", handler.logout)
	router.Post("/register", handler.register)
	router.Post("/forgot-password", handler.forgotPassword)

	return router
}

// # Request Payloads

type loginRequest struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`

	// Contrasena is accepted for older clients.
	Contrasena string `json:"contrasena"`
}

type validateTokenRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type registerRequest struct {
	Nombre      string `json:"nombre"`
	Apellido    string `json:"apellido"`
	Email       string `json:"email"`
	Secret      string `json:"secret"`
	Contrasena  string `json:"contrasena"`
	Telefono    string `json:"telefono"`
	Rol         string `json:"rol"`
	Institucion string `json:"institucion"`
	Pais        string `json:"pais"`
	Provincia   string `json:"provincia"`
	Ciudad      string `json:"ciudad"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// # Response Payloads

type sessionResponse struct {
	Success bool           `json:"success"`
	User    *EnrichedUser  `json:"user"`
	Session *sec.TokenPair `json:"session,omitempty"`
}

type meResponse struct {
	User *EnrichedUser `json:"user"`
}

type registerResponse struct {
	Success bool            `json:"success"`
	User    *RegisterResult `json:"user"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// firstNonEmpty picks the canonical field over its legacy alias.
func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

/*
Login exchanges credentials for a session.

POST /api/v1/auth/login

Request:
  - Body: loginRequest (email, secret or contrasena)

Response:
  - 200: {success, user, session} and both session cookies
  - 400: INVALID_CREDENTIALS: Malformed email or short secret
  - 401: INVALID_CREDENTIALS, EMAIL_UNCONFIRMED or AUTHENTICATION_FAILED
  - 403: PROFILE_NOT_FOUND or ACCOUNT_DISABLED
  - 429: RATE_LIMITED
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authenticator.Login(request.Context(), LoginInput{
		Email:     input.Email,
		Secret:    firstNonEmpty(input.Secret, input.Contrasena),
		IPAddress: middleware.RealIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cookies.SetSession(writer, result.Tokens)
	respond.JSON(writer, http.StatusOK, sessionResponse{
		Success: true,
		User:    result.Context.View(),
		Session: &result.Tokens,
	})
}

/*
ValidateToken adopts a token pair obtained outside the login endpoint (for
example after an email confirmation redirect) and turns it into cookies.

POST /api/v1/auth/validate-token

Response:
  - 200: {success, user} and both session cookies
  - 400: VALIDATION_ERROR: access_token missing
  - 401: INVALID_SESSION
*/
func (handler *Handler) validateToken(writer http.ResponseWriter, request *http.Request) {
	var input validateTokenRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if input.AccessToken == "" {
		respond.Error(writer, request, apperr.ValidationError("Access token is required", apperr.FieldError{
			Field:   FieldAccessToken,
			Message: "This field is required",
		}))
		return
	}

	ctx := request.Context()

	resolution, err := handler.resolver.Resolve(ctx, SessionInput{
		AccessToken:  input.AccessToken,
		RefreshToken: input.RefreshToken,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	enriched, err := handler.gate.Authorize(ctx, resolution.Identity, nil)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cookies.SetSession(writer, resolution.Tokens)
	respond.JSON(writer, http.StatusOK, sessionResponse{Success: true, User: enriched.View()})
}

/*
Me reports the current user.

GET /api/v1/auth/me

Response:
  - 200: {user: EnrichedUser} or {user: null}. Never an error status.
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	enriched, err := handler.guard.Authenticate(writer, request, nil)
	if err != nil {
		ctx := request.Context()
		ctxutil.GetLogger(ctx).DebugContext(ctx, "auth_me_anonymous", slog.String("reason", err.Error()))
		respond.JSON(writer, http.StatusOK, meResponse{User: nil})
		return
	}

	respond.JSON(writer, http.StatusOK, meResponse{User: enriched.View()})
}

/*
Logout ends the session.

POST /api/v1/auth/logout

Response:
  - 200: {success: true}, both cookies expired, with or without a session
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	handler.authenticator.Logout(request.Context(), ReadSession(request).AccessToken)
	handler.cookies.Clear(writer)

	respond.JSON(writer, http.StatusOK, messageResponse{Success: true})
}

/*
Register creates an account.

POST /api/v1/auth/register

Response:
  - 201: {success, user: {id, email, role}}
  - 400: VALIDATION_ERROR
  - 409: EMAIL_ALREADY_REGISTERED
  - 500: REGISTRATION_INCOMPLETE: identity created, profile not saved
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authenticator.Register(request.Context(), RegisterInput{
		Nombre:      input.Nombre,
		Apellido:    input.Apellido,
		Email:       input.Email,
		Secret:      firstNonEmpty(input.Secret, input.Contrasena),
		Telefono:    input.Telefono,
		Rol:         input.Rol,
		Institucion: input.Institucion,
		Pais:        input.Pais,
		Provincia:   input.Provincia,
		Ciudad:      input.Ciudad,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusCreated, registerResponse{Success: true, User: result})
}

/*
ForgotPassword requests a recovery email.

POST /api/v1/auth/forgot-password

Response:
  - 200: Same answer whether or not the account exists
  - 400: VALIDATION_ERROR: Malformed email
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authenticator.RequestPasswordReset(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusOK, messageResponse{
		Success: true,
		Message: "If the address is registered, a recovery email is on its way",
	})
}
