// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/mulita/internal/platform/apperr"
	"github.com/taibuivan/mulita/internal/platform/ctxutil"
	"github.com/taibuivan/mulita/internal/platform/dberr"
	"github.com/taibuivan/mulita/internal/platform/database/schema"
	"github.com/taibuivan/mulita/internal/platform/sec"
	"github.com/taibuivan/mulita/internal/platform/validate"
	"github.com/taibuivan/mulita/pkg/textnorm"
)

// # Contracts & Types

// Dependencies groups the collaborators of an [Authenticator].
type Dependencies struct {
	Provider IdentityProvider
	Profiles ProfileRepository
	Gate     *Gate
	Limiter  LoginLimiter
	Throttle ResetThrottle

	// Timeout bounds each provider or store call.
	Timeout time.Duration
}

// Authenticator implements the credential use cases: login, registration,
// password recovery and logout.
type Authenticator struct {
	provider IdentityProvider
	profiles ProfileRepository
	gate     *Gate
	limiter  LoginLimiter
	throttle ResetThrottle
	timeout  time.Duration
}

// NewAuthenticator constructs an [Authenticator].
func NewAuthenticator(deps Dependencies) *Authenticator {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = DefaultUpstreamTimeout
	}

	return &Authenticator{
		provider: deps.Provider,
		profiles: deps.Profiles,
		gate:     deps.Gate,
		limiter:  deps.Limiter,
		throttle: deps.Throttle,
		timeout:  timeout,
	}
}

// # Authentication Flow

// LoginInput holds the credentials of one login attempt.
type LoginInput struct {
	Email     string
	Secret    string
	IPAddress string
}

// LoginResult is a successful login: the authorized principal and its tokens.
type LoginResult struct {
	Context *EnrichedContext
	Tokens  sec.TokenPair
}

/*
Login exchanges credentials for a token pair and loads the caller's profile.

Description: Input shape is checked before any side effect. A malformed email
or a secret under six characters never reaches the limiter or the provider.

Returns:
  - *LoginResult: Enriched principal and the pair to persist in cookies
  - error: INVALID_CREDENTIALS (400 or 401), EMAIL_UNCONFIRMED, AUTHENTICATION_FAILED,
    RATE_LIMITED, PROFILE_NOT_FOUND, ACCOUNT_DISABLED or UPSTREAM_UNAVAILABLE
*/
func (service *Authenticator) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	logger := ctxutil.GetLogger(ctx)
	email := textnorm.Email(input.Email)

	// 1. Shape check, no side effects
	validator := &validate.Validator{}
	validator.Email(FieldEmail, email).Secret(FieldSecret, input.Secret)
	if validator.HasErrors() {
		return nil, invalidCredentialsInput(validator.Details())
	}

	// 2. Failed-attempt budget. A limiter outage does not block logins.
	if retryAfter, err := service.limiter.Check(ctx, email); err != nil {
		logger.WarnContext(ctx, "auth_login_limiter_unavailable", slog.Any("error", err))
	} else if retryAfter > 0 {
		return nil, apperr.RateLimited(int(retryAfter.Seconds()) + 1)
	}

	// 3. Credential exchange
	callCtx, cancel := context.WithTimeout(ctx, service.timeout)
	session, err := service.provider.SignInWithPassword(callCtx, email, input.Secret)
	cancel()

	if err != nil {
		providerErr, rejected := sec.AsProviderError(err)
		if !rejected {
			return nil, upstream(err)
		}

		mapped := classifyLoginRejection(providerErr)
		if errors.Is(mapped, ErrInvalidCredentials) {
			if err := service.limiter.RecordFailure(ctx, email); err != nil {
				logger.WarnContext(ctx, "auth_login_limiter_record_failed", slog.Any("error", err))
			}
		}

		logger.InfoContext(ctx, "auth_login_rejected",
			slog.String("code", mapped.Code),
			slog.String("provider_code", providerErr.Code),
			slog.String("ip", input.IPAddress),
		)
		return nil, mapped.WithCause(err)
	}

	if !session.EmailConfirmed {
		return nil, ErrEmailUnconfirmed
	}

	if err := service.limiter.Reset(ctx, email); err != nil {
		logger.WarnContext(ctx, "auth_login_limiter_reset_failed", slog.Any("error", err))
	}

	// 4. Profile, without role restriction
	enriched, err := service.gate.Authorize(ctx, session.Identity, nil)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "auth_login_succeeded",
		slog.String("user_id", enriched.UserID()),
		slog.String("role", string(enriched.Role())),
	)

	return &LoginResult{Context: enriched, Tokens: session.Tokens}, nil
}

// classifyLoginRejection maps a provider rejection onto the taxonomy. The
// unconfirmed check runs first: older providers report it as invalid_grant.
func classifyLoginRejection(providerErr *sec.ProviderError) *apperr.AppError {
	code := strings.ToLower(providerErr.Code)
	message := strings.ToLower(providerErr.Message)

	switch {
	case code == "email_not_confirmed" || strings.Contains(message, "email not confirmed"):
		return ErrEmailUnconfirmed
	case code == "invalid_credentials" || code == "invalid_grant" || strings.Contains(message, "invalid login credentials"):
		return ErrInvalidCredentials
	default:
		return ErrAuthenticationFailed
	}
}

/*
Logout revokes the provider session behind accessToken. It is best effort:
cookies are cleared by the caller whatever happens here.
*/
func (service *Authenticator) Logout(ctx context.Context, accessToken string) {
	if accessToken == "" {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, service.timeout)
	defer cancel()

	if err := service.provider.SignOut(callCtx, accessToken); err != nil {
		ctxutil.GetLogger(ctx).InfoContext(ctx, "auth_logout_provider_failed", slog.Any("error", err))
	}
}

// # Registration Flow

// RegisterInput holds the sign-up form.
type RegisterInput struct {
	Nombre      string
	Apellido    string
	Email       string
	Secret      string
	Telefono    string
	Rol         string
	Institucion string
	Pais        string
	Provincia   string
	Ciudad      string
}

// RegisterResult identifies the created account.
type RegisterResult struct {
	ID    string       `json:"id"`
	Email string       `json:"email"`
	Role  sec.UserRole `json:"role"`
}

/*
Register creates a provider identity, then its profile (and teacher extension).

Description: Duplicate emails are rejected against the profile store before
the provider is called. If the provider succeeds but the profile insert fails,
the identity is left in place and REGISTRATION_INCOMPLETE carries its ID for
reconciliation.

Returns:
  - *RegisterResult: The new account's id, email and role
  - error: VALIDATION_ERROR, EMAIL_ALREADY_REGISTERED, REGISTRATION_INCOMPLETE
    or UPSTREAM_UNAVAILABLE
*/
func (service *Authenticator) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	logger := ctxutil.GetLogger(ctx)

	input = normaliseRegistration(input)
	if err := validateRegistration(input); err != nil {
		return nil, err
	}

	// 1. Uniqueness against our own store
	exists, err := service.emailTaken(ctx, input.Email)
	if err != nil {
		return nil, upstream(err)
	}
	if exists {
		return nil, ErrEmailAlreadyRegistered
	}

	// 2. Provider identity
	callCtx, cancel := context.WithTimeout(ctx, service.timeout)
	identity, err := service.provider.SignUp(callCtx, input.Email, input.Secret, map[string]any{
		FieldNombre:   input.Nombre,
		FieldApellido: input.Apellido,
		FieldRol:      input.Rol,
	})
	cancel()

	if err != nil {
		return nil, mapSignUpError(err)
	}

	// 3. Profile (+ teacher) in one transaction
	profile := &Profile{
		ID:              identity.ID,
		Role:            sec.UserRole(input.Rol),
		Nombre:          input.Nombre,
		Apellido:        input.Apellido,
		Telefono:        input.Telefono,
		Email:           input.Email,
		AccesoComunidad: true,
	}

	var teacher *Teacher
	if profile.Role == sec.RoleDocente {
		teacher = &Teacher{
			UsuarioID:   identity.ID,
			Institucion: input.Institucion,
			Pais:        input.Pais,
			Provincia:   input.Provincia,
			Ciudad:      input.Ciudad,
		}
	}

	storeCtx, cancel := context.WithTimeout(ctx, service.timeout)
	err = service.profiles.Create(storeCtx, profile, teacher)
	cancel()

	if err != nil {
		if dberr.IsUniqueViolation(err, schema.Usuario.EmailUniqueIndex) {
			return nil, ErrEmailAlreadyRegistered.WithCause(err)
		}

		logger.ErrorContext(ctx, "auth_registration_incomplete",
			slog.String("identity_id", identity.ID),
			slog.String("email", input.Email),
			slog.Any("error", err),
		)
		return nil, ErrRegistrationIncomplete.WithCause(err).WithDetails(apperr.FieldError{
			Field:   "identity_id",
			Message: identity.ID,
		})
	}

	logger.InfoContext(ctx, "auth_registration_succeeded",
		slog.String("user_id", identity.ID),
		slog.String("role", input.Rol),
	)

	return &RegisterResult{ID: identity.ID, Email: input.Email, Role: profile.Role}, nil
}

func (service *Authenticator) emailTaken(ctx context.Context, email string) (bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, service.timeout)
	defer cancel()

	return service.profiles.ExistsByEmail(callCtx, email)
}

func normaliseRegistration(input RegisterInput) RegisterInput {
	input.Nombre = textnorm.Name(input.Nombre)
	input.Apellido = textnorm.Name(input.Apellido)
	input.Email = textnorm.Email(input.Email)
	input.Telefono = strings.TrimSpace(input.Telefono)
	input.Rol = strings.TrimSpace(input.Rol)
	input.Institucion = textnorm.Name(input.Institucion)
	input.Pais = textnorm.Name(input.Pais)
	input.Provincia = textnorm.Name(input.Provincia)
	input.Ciudad = textnorm.Name(input.Ciudad)
	return input
}

func validateRegistration(input RegisterInput) error {
	isDocente := input.Rol == string(sec.RoleDocente)

	validator := &validate.Validator{}
	validator.
		Required(FieldNombre, input.Nombre).
		MaxLen(FieldNombre, input.Nombre, MaxNameLength).
		Required(FieldApellido, input.Apellido).
		MaxLen(FieldApellido, input.Apellido, MaxNameLength).
		Email(FieldEmail, input.Email).
		Secret(FieldSecret, input.Secret).
		Phone(FieldTelefono, input.Telefono).
		OneOf(FieldRol, input.Rol, sec.SelfRegistrableRoles.Strings()...).
		Custom(FieldInstitucion, isDocente && input.Institucion == "", "This field is required for teachers").
		MaxLen(FieldInstitucion, input.Institucion, MaxInstitucionLength)

	return validator.Err()
}

// mapSignUpError keeps "already registered" distinct from other rejections.
func mapSignUpError(err error) error {
	providerErr, rejected := sec.AsProviderError(err)
	if !rejected {
		return upstream(err)
	}

	code := strings.ToLower(providerErr.Code)
	message := strings.ToLower(providerErr.Message)

	switch {
	case code == "user_already_exists" || code == "email_exists" || strings.Contains(message, "already registered"):
		return ErrEmailAlreadyRegistered.WithCause(err)
	case providerErr.Status == 429:
		return upstream(err)
	default:
		return apperr.ValidationError(providerErr.Message).WithCause(err)
	}
}

// # Recovery Flow

/*
RequestPasswordReset sends a recovery email when the address is well formed.

Description: The outcome never depends on whether the account exists. Throttled
or failed dispatches are logged and still reported as success.

Returns:
  - error: VALIDATION_ERROR for a malformed email only
*/
func (service *Authenticator) RequestPasswordReset(ctx context.Context, rawEmail string) error {
	logger := ctxutil.GetLogger(ctx)
	email := textnorm.Email(rawEmail)

	if err := (&validate.Validator{}).Email(FieldEmail, email).Err(); err != nil {
		return err
	}

	allowed, err := service.throttle.Allow(ctx, email)
	if err != nil {
		logger.WarnContext(ctx, "auth_reset_throttle_unavailable", slog.Any("error", err))
		allowed = true
	}
	if !allowed {
		logger.InfoContext(ctx, "auth_reset_throttled")
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, service.timeout)
	defer cancel()

	if err := service.provider.SendPasswordReset(callCtx, email); err != nil {
		logger.WarnContext(ctx, "auth_reset_dispatch_failed", slog.Any("error", err))
	}

	return nil
}
