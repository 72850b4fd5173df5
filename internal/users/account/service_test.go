// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mulita/internal/platform/apperr"
	"github.com/taibuivan/mulita/internal/platform/dberr"
	"github.com/taibuivan/mulita/internal/platform/sec"
	"github.com/taibuivan/mulita/internal/users/account"
	"github.com/taibuivan/mulita/internal/users/auth"
	"github.com/taibuivan/mulita/pkg/pagination"
)

const (
	adminID = "0b6f5a3c-1d2e-4f70-8a9b-0c1d2e3f4a5b"
	userID  = "7c8d9e0f-1a2b-4c3d-8e4f-5a6b7c8d9e0f"
)

// fakeRepository keeps profiles in memory and records the last filter.
type fakeRepository struct {
	profiles   map[string]*auth.Profile
	lastFilter account.Filter
	err        error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{profiles: map[string]*auth.Profile{
		adminID: {ID: adminID, Role: sec.RoleAdmin, Nombre: "Admin", Apellido: "Mulita", Email: "admin@mulita.com.ar", AccesoComunidad: true},
		userID:  {ID: userID, Role: sec.RoleUsuario, Nombre: "Ana", Apellido: "Pérez", Email: "ana@mulita.com.ar", AccesoComunidad: true},
	}}
}

// FindByID and FindByUserID let the fake back the auth Gate as well.
func (r *fakeRepository) FindByID(_ context.Context, id string) (*auth.Profile, error) {
	profile, ok := r.profiles[id]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	clone := *profile
	return &clone, nil
}

func (r *fakeRepository) FindByUserID(context.Context, string) (*auth.Teacher, error) {
	return nil, dberr.ErrNotFound
}

func (r *fakeRepository) List(_ context.Context, filter account.Filter) ([]*account.UserSummary, int, error) {
	r.lastFilter = filter
	if r.err != nil {
		return nil, 0, r.err
	}

	users := r.summaries(filter.Roles)
	return users, len(users), nil
}

func (r *fakeRepository) Export(_ context.Context, roles []string) ([]*account.UserSummary, error) {
	r.lastFilter = account.Filter{Roles: roles}
	if r.err != nil {
		return nil, r.err
	}
	return r.summaries(roles), nil
}

func (r *fakeRepository) summaries(roles []string) []*account.UserSummary {
	var users []*account.UserSummary
	for _, profile := range r.profiles {
		if profile.Eliminado {
			continue
		}
		if len(roles) > 0 && !slices.Contains(roles, string(profile.Role)) {
			continue
		}
		users = append(users, &account.UserSummary{ID: profile.ID, Nombre: profile.Nombre, Role: profile.Role})
	}
	return users
}

func (r *fakeRepository) SoftDelete(_ context.Context, id string) error {
	if r.err != nil {
		return r.err
	}
	profile, ok := r.profiles[id]
	if !ok || profile.Eliminado {
		return dberr.ErrNotFound
	}
	profile.Eliminado = true
	return nil
}

func (r *fakeRepository) FindPublic(_ context.Context, id string) (*account.PublicProfile, error) {
	profile, ok := r.profiles[id]
	if !ok || profile.Eliminado {
		return nil, dberr.ErrNotFound
	}
	return &account.PublicProfile{ID: profile.ID, Nombre: profile.Nombre, Apellido: profile.Apellido, Email: profile.Email, CreatedAt: time.Now()}, nil
}

func (r *fakeRepository) UpdateRole(_ context.Context, id string, role sec.UserRole) error {
	if r.err != nil {
		return r.err
	}
	profile, ok := r.profiles[id]
	if !ok {
		return dberr.ErrNotFound
	}
	profile.Role = role
	return nil
}

func (r *fakeRepository) UpdateCommunityAccess(_ context.Context, id string, enabled bool) error {
	profile, ok := r.profiles[id]
	if !ok {
		return dberr.ErrNotFound
	}
	profile.AccesoComunidad = enabled
	return nil
}

func (r *fakeRepository) UpdateProfile(_ context.Context, id string, changes account.ProfileChanges) (*auth.Profile, error) {
	profile, ok := r.profiles[id]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	if changes.Nombre != nil {
		profile.Nombre = *changes.Nombre
	}
	if changes.Apellido != nil {
		profile.Apellido = *changes.Apellido
	}
	if changes.Telefono != nil {
		profile.Telefono = *changes.Telefono
	}
	clone := *profile
	return &clone, nil
}

func actor(id string, role sec.UserRole) *auth.EnrichedContext {
	return &auth.EnrichedContext{Identity: sec.Identity{ID: id}, Profile: &auth.Profile{ID: id, Role: role}}
}

func strPtr(value string) *string { return &value }

// # Administration

func TestListUsers_DropsUnknownRoles(t *testing.T) {
	repository := newFakeRepository()
	service := account.NewService(repository)

	users, total, err := service.ListUsers(context.Background(), account.Filter{
		Params: pagination.Params{Page: 1, Limit: 20},
		Roles:  []string{"docente", "super_admin", "superAdmin"},
	})

	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, 2, total)
	assert.Equal(t, []string{"docente", "superAdmin"}, repository.lastFilter.Roles)
}

func TestListUsers_StoreFailure(t *testing.T) {
	repository := newFakeRepository()
	repository.err = errors.New("connection refused")

	_, _, err := account.NewService(repository).ListUsers(context.Background(), account.Filter{})

	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperr.As(err).HTTPStatus)
}

func TestChangeRole(t *testing.T) {
	t.Run("assigns role from closed set", func(t *testing.T) {
		repository := newFakeRepository()
		service := account.NewService(repository)

		require.NoError(t, service.ChangeRole(context.Background(), actor(adminID, sec.RoleAdmin), userID, "docente"))
		assert.Equal(t, sec.RoleDocente, repository.profiles[userID].Role)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		service := account.NewService(newFakeRepository())

		err := service.ChangeRole(context.Background(), actor(adminID, sec.RoleAdmin), userID, "super_admin")
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
	})

	t.Run("rejects self demotion", func(t *testing.T) {
		service := account.NewService(newFakeRepository())

		err := service.ChangeRole(context.Background(), actor(adminID, sec.RoleAdmin), adminID, "usuario")
		assert.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("unknown user", func(t *testing.T) {
		service := account.NewService(newFakeRepository())

		err := service.ChangeRole(context.Background(), actor(adminID, sec.RoleAdmin), "9d1f7a2e-8c0b-4d1e-9a3f-2b6c7d8e9f01", "admin")
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, apperr.As(err).HTTPStatus)
	})
}

func TestExportUsers(t *testing.T) {
	repository := newFakeRepository()
	repository.profiles[adminID].Eliminado = true
	service := account.NewService(repository)

	users, err := service.ExportUsers(context.Background(), []string{"usuario", "admin", "super_admin"})

	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, userID, users[0].ID)
	assert.Equal(t, []string{"usuario", "admin"}, repository.lastFilter.Roles)

	users, err = service.ExportUsers(context.Background(), []string{"docente"})
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestDeleteUser(t *testing.T) {
	t.Run("marks the profile as deleted", func(t *testing.T) {
		repository := newFakeRepository()
		service := account.NewService(repository)

		require.NoError(t, service.DeleteUser(context.Background(), actor(adminID, sec.RoleAdmin), userID))
		assert.True(t, repository.profiles[userID].Eliminado)

		err := service.DeleteUser(context.Background(), actor(adminID, sec.RoleAdmin), userID)
		assert.Equal(t, http.StatusNotFound, apperr.As(err).HTTPStatus)
	})

	t.Run("rejects self delete", func(t *testing.T) {
		repository := newFakeRepository()
		service := account.NewService(repository)

		err := service.DeleteUser(context.Background(), actor(adminID, sec.RoleSuperAdmin), adminID)
		assert.ErrorIs(t, err, auth.ErrForbidden)
		assert.False(t, repository.profiles[adminID].Eliminado)
	})

	t.Run("rejects malformed id", func(t *testing.T) {
		err := account.NewService(newFakeRepository()).DeleteUser(context.Background(), actor(adminID, sec.RoleAdmin), "42")
		assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
	})

	t.Run("store failure", func(t *testing.T) {
		repository := newFakeRepository()
		repository.err = errors.New("connection refused")

		err := account.NewService(repository).DeleteUser(context.Background(), actor(adminID, sec.RoleAdmin), userID)
		assert.Equal(t, http.StatusInternalServerError, apperr.As(err).HTTPStatus)
	})
}

func TestSetCommunityAccess(t *testing.T) {
	repository := newFakeRepository()
	service := account.NewService(repository)

	require.NoError(t, service.SetCommunityAccess(context.Background(), userID, false))
	assert.False(t, repository.profiles[userID].AccesoComunidad)

	err := service.SetCommunityAccess(context.Background(), "not-a-uuid", true)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
}

// # Profiles

func TestGetPublicProfile(t *testing.T) {
	service := account.NewService(newFakeRepository())

	tests := []struct {
		name      string
		viewer    *auth.EnrichedContext
		wantEmail string
	}{
		{name: "anonymous", viewer: nil, wantEmail: ""},
		{name: "another user", viewer: actor("5e6f7a8b-9c0d-4e1f-8a2b-3c4d5e6f7a8b", sec.RoleUsuario), wantEmail: ""},
		{name: "owner", viewer: actor(userID, sec.RoleUsuario), wantEmail: "ana@mulita.com.ar"},
		{name: "admin", viewer: actor(adminID, sec.RoleAdmin), wantEmail: "ana@mulita.com.ar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, err := service.GetPublicProfile(context.Background(), tt.viewer, userID)
			require.NoError(t, err)
			assert.Equal(t, "Ana", profile.Nombre)
			assert.Equal(t, tt.wantEmail, profile.Email)
		})
	}

	_, err := service.GetPublicProfile(context.Background(), nil, "garbage")
	assert.Equal(t, http.StatusNotFound, apperr.As(err).HTTPStatus)
}

func TestUpdateOwnProfile(t *testing.T) {
	t.Run("normalises and stores", func(t *testing.T) {
		service := account.NewService(newFakeRepository())

		profile, err := service.UpdateOwnProfile(context.Background(), userID, account.ProfileChanges{
			Nombre:   strPtr("  Ana   María "),
			Telefono: strPtr(" +54 11 5555-0000 "),
		})

		require.NoError(t, err)
		assert.Equal(t, "Ana María", profile.Nombre)
		assert.Equal(t, "Pérez", profile.Apellido)
		assert.Equal(t, "+54 11 5555-0000", profile.Telefono)
	})

	t.Run("empty body", func(t *testing.T) {
		service := account.NewService(newFakeRepository())

		_, err := service.UpdateOwnProfile(context.Background(), userID, account.ProfileChanges{})
		assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
	})

	t.Run("blank name", func(t *testing.T) {
		service := account.NewService(newFakeRepository())

		_, err := service.UpdateOwnProfile(context.Background(), userID, account.ProfileChanges{Nombre: strPtr("   ")})
		assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
	})
}
