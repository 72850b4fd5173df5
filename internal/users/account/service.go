// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"log/slog"
	"strings"

	"github.com/taibuivan/mulita/internal/platform/apperr"
	"github.com/taibuivan/mulita/internal/platform/ctxutil"
	"github.com/taibuivan/mulita/internal/platform/dberr"
	"github.com/taibuivan/mulita/internal/platform/sec"
	"github.com/taibuivan/mulita/internal/platform/validate"
	"github.com/taibuivan/mulita/internal/users/auth"
	"github.com/taibuivan/mulita/pkg/slice"
	"github.com/taibuivan/mulita/pkg/textnorm"
)

// # Service Layer

// Service implements profile administration and self-service edits.
//
// Callers are already authorized by the Guard; the service only enforces
// data rules (closed role set, field limits, self-demotion).
type Service struct {
	repository Repository
}

// NewService constructs a [Service].
func NewService(repository Repository) *Service {
	return &Service{repository: repository}
}

// # Administration

/*
ListUsers returns one page of users matching filter.

Description: Unknown role names in the filter are dropped rather than
rejected, so a stale client link still lists something sensible.
*/
func (service *Service) ListUsers(ctx context.Context, filter Filter) ([]*UserSummary, int, error) {
	filter.Roles = knownRoles(filter.Roles)

	users, total, err := service.repository.List(ctx, filter)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list users")
	}
	if users == nil {
		users = []*UserSummary{}
	}
	return users, total, nil
}

// ExportUsers returns every non-deleted user with one of roles, unpaginated.
func (service *Service) ExportUsers(ctx context.Context, roles []string) ([]*UserSummary, error) {
	users, err := service.repository.Export(ctx, knownRoles(roles))
	if err != nil {
		return nil, dberr.Wrap(err, "export users")
	}
	if users == nil {
		users = []*UserSummary{}
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "account_users_exported", slog.Int("count", len(users)))
	return users, nil
}

/*
ChangeRole assigns a role from the closed set to a user.

Returns:
  - error: VALIDATION_ERROR for a malformed id or unknown role, FORBIDDEN when
    an admin demotes themselves, NOT_FOUND when the user does not exist
*/
func (service *Service) ChangeRole(ctx context.Context, actor *auth.EnrichedContext, targetID, rawRole string) error {
	role := sec.UserRole(strings.TrimSpace(rawRole))

	validator := &validate.Validator{}
	validator.UUID("id", targetID).OneOf(auth.FieldRol, string(role), sec.AllRoles.Strings()...)
	if err := validator.Err(); err != nil {
		return err
	}

	// The last admin session must not lock itself out.
	if actor.UserID() == targetID && !role.IsAdmin() {
		return apperr.Forbidden("Administrators cannot remove their own admin role")
	}

	if err := service.repository.UpdateRole(ctx, targetID, role); err != nil {
		return notFoundAs(err, "change role")
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "account_role_changed",
		slog.String("target_id", targetID),
		slog.String("role", string(role)),
	)
	return nil
}

// SetCommunityAccess enables or revokes a user's access to the community area.
func (service *Service) SetCommunityAccess(ctx context.Context, targetID string, enabled bool) error {
	if err := (&validate.Validator{}).UUID("id", targetID).Err(); err != nil {
		return err
	}

	if err := service.repository.UpdateCommunityAccess(ctx, targetID, enabled); err != nil {
		return notFoundAs(err, "update community access")
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "account_community_access_changed",
		slog.String("target_id", targetID),
		slog.Bool("enabled", enabled),
	)
	return nil
}

/*
DeleteUser soft-deletes a user. The profile row stays and the Gate rejects
its sessions with ACCOUNT_DISABLED.

Returns:
  - error: VALIDATION_ERROR for a malformed id, FORBIDDEN when an admin
    deletes themselves, NOT_FOUND when absent or already deleted
*/
func (service *Service) DeleteUser(ctx context.Context, actor *auth.EnrichedContext, targetID string) error {
	if err := (&validate.Validator{}).UUID("id", targetID).Err(); err != nil {
		return err
	}

	if actor.UserID() == targetID {
		return apperr.Forbidden("Administrators cannot delete their own account")
	}

	if err := service.repository.SoftDelete(ctx, targetID); err != nil {
		return notFoundAs(err, "delete user")
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "account_user_deleted", slog.String("target_id", targetID))
	return nil
}

// # Profiles

/*
GetPublicProfile returns the public subset of a user's profile.

Description: viewer may be nil for anonymous requests. The email is kept only
when the viewer owns the profile or is an administrator.
*/
func (service *Service) GetPublicProfile(ctx context.Context, viewer *auth.EnrichedContext, id string) (*PublicProfile, error) {
	if err := (&validate.Validator{}).UUID("id", id).Err(); err != nil {
		return nil, apperr.NotFound("User")
	}

	profile, err := service.repository.FindPublic(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "read profile")
	}

	if viewer == nil || (viewer.UserID() != id && !viewer.Role().IsAdmin()) {
		profile.Email = ""
	}
	return profile, nil
}

/*
UpdateOwnProfile applies changes to the caller's profile.

Returns:
  - *auth.Profile: The stored profile after the update
  - error: VALIDATION_ERROR for empty or oversized names or a malformed phone
*/
func (service *Service) UpdateOwnProfile(ctx context.Context, userID string, changes ProfileChanges) (*auth.Profile, error) {
	changes = normaliseChanges(changes)

	validator := &validate.Validator{}
	validator.Custom("body", changes.IsEmpty(), "At least one field is required")
	if changes.Nombre != nil {
		validator.Required(auth.FieldNombre, *changes.Nombre).MaxLen(auth.FieldNombre, *changes.Nombre, auth.MaxNameLength)
	}
	if changes.Apellido != nil {
		validator.Required(auth.FieldApellido, *changes.Apellido).MaxLen(auth.FieldApellido, *changes.Apellido, auth.MaxNameLength)
	}
	if changes.Telefono != nil {
		validator.Phone(auth.FieldTelefono, *changes.Telefono)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	profile, err := service.repository.UpdateProfile(ctx, userID, changes)
	if err != nil {
		return nil, notFoundAs(err, "update profile")
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "account_profile_updated", slog.String("user_id", userID))
	return profile, nil
}

func normaliseChanges(changes ProfileChanges) ProfileChanges {
	if changes.Nombre != nil {
		nombre := textnorm.Name(*changes.Nombre)
		changes.Nombre = &nombre
	}
	if changes.Apellido != nil {
		apellido := textnorm.Name(*changes.Apellido)
		changes.Apellido = &apellido
	}
	if changes.Telefono != nil {
		telefono := strings.TrimSpace(*changes.Telefono)
		changes.Telefono = &telefono
	}
	return changes
}

// knownRoles drops role names outside the closed set.
func knownRoles(roles []string) []string {
	return slice.Filter(roles, func(role string) bool {
		return sec.UserRole(role).IsValid()
	})
}

// notFoundAs turns dberr.ErrNotFound into a 404 and classifies everything else.
func notFoundAs(err error, action string) error {
	if dberr.IsNotFound(err) {
		return apperr.NotFound("User")
	}
	return dberr.Wrap(err, action)
}
