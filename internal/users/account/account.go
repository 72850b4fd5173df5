// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account handles profile administration and self-service profile edits.

Every route here sits behind the auth Guard. Admin operations require the
{admin, superAdmin} set; self-service routes act on the caller's own profile
taken from the session, never from the URL.

# Architecture

  - Entities: UserSummary (admin listing), PublicProfile (public subset).
  - Domain: Reads and writes the same usuario/docente tables the auth package
    authorizes against, so a role change takes effect on the next request.
*/
package account

import (
	"context"
	"time"

	"github.com/taibuivan/mulita/internal/platform/sec"
	"github.com/taibuivan/mulita/internal/users/auth"
	"github.com/taibuivan/mulita/pkg/pagination"
)

// # Domain Entities

// UserSummary is one row of the admin user listing, with the docente
// extension flattened in. Extension fields are empty for other roles.
type UserSummary struct {
	ID              string       `json:"id"`
	Nombre          string       `json:"nombre"`
	Apellido        string       `json:"apellido"`
	Email           string       `json:"email"`
	Role            sec.UserRole `json:"rol"`
	AccesoComunidad bool         `json:"acceso_comunidad"`
	CreatedAt       time.Time    `json:"created_at"`
	Institucion     string       `json:"institucion"`
	Pais            string       `json:"pais"`
	Provincia       string       `json:"provincia"`
	Ciudad          string       `json:"ciudad"`
}

// PublicProfile is what anyone may see about a user. Email is only filled in
// for the profile's owner and for administrators.
type PublicProfile struct {
	ID        string    `json:"id"`
	Nombre    string    `json:"nombre"`
	Apellido  string    `json:"apellido"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter narrows the admin listing.
type Filter struct {
	pagination.Params

	// Roles restricts the listing to these roles. Empty means all.
	Roles []string
}

// ProfileChanges is a partial update of the caller's own profile.
// Nil fields are left untouched.
type ProfileChanges struct {
	Nombre   *string
	Apellido *string
	Telefono *string
}

// IsEmpty reports whether no field was supplied.
func (changes ProfileChanges) IsEmpty() bool {
	return changes.Nombre == nil && changes.Apellido == nil && changes.Telefono == nil
}

// # Repository Contracts

// Repository is the persistence contract for profile administration.
type Repository interface {

	/*
		List returns one page of non-deleted users and the total match count.

		Returns:
		  - []*UserSummary: Newest first
		  - int: Total rows matching the filter, ignoring pagination
	*/
	List(context context.Context, filter Filter) ([]*UserSummary, int, error)

	// Export returns every non-deleted user with one of roles (all when empty), newest first.
	Export(context context.Context, roles []string) ([]*UserSummary, error)

	/*
		FindPublic returns the public subset of a non-deleted profile.

		Returns:
		  - error: dberr.ErrNotFound when absent or deleted
	*/
	FindPublic(context context.Context, id string) (*PublicProfile, error)

	// UpdateRole sets the role of a profile. dberr.ErrNotFound when no row matched.
	UpdateRole(context context.Context, id string, role sec.UserRole) error

	// UpdateCommunityAccess toggles acceso_comunidad. dberr.ErrNotFound when no row matched.
	UpdateCommunityAccess(context context.Context, id string, enabled bool) error

	// SoftDelete marks a profile as eliminado. dberr.ErrNotFound when absent or already deleted.
	SoftDelete(context context.Context, id string) error

	/*
		UpdateProfile applies changes and returns the stored profile.

		Returns:
		  - error: dberr.ErrNotFound when no row matched
	*/
	UpdateProfile(context context.Context, id string, changes ProfileChanges) (*auth.Profile, error)
}
