// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements session and authorization resolution for Mulita.

It turns credentials into provider-issued token pairs, turns cookie-held token
pairs back into verified identities (refreshing them when they expire), and
decides whether an identity's profile may perform a role-gated operation.

# Architecture

  - Authenticator: login, registration and password recovery.
  - Resolver: token pair to verified identity, with refresh-on-expiry.
  - Gate: identity to enriched profile, enforcing the required role set.
  - Guard: chi middleware composing Resolver and Gate for every protected route.

Passwords and token cryptography never pass through this package. They belong
to the identity provider, reached through [IdentityProvider].
*/
package auth

import (
	"time"

	"github.com/taibuivan/mulita/internal/platform/sec"
)

// # Domain Entities

// Profile is the application-owned record of a user (table usuario).
// Its Role is the only source of authorization decisions.
type Profile struct {
	ID              string       `json:"id"`
	Role            sec.UserRole `json:"role"`
	Nombre          string       `json:"nombre"`
	Apellido        string       `json:"apellido"`
	Telefono        string       `json:"telefono"`
	Email           string       `json:"email"`
	AccesoComunidad bool         `json:"acceso_comunidad"`
	Eliminado       bool         `json:"-"`
	CreatedAt       time.Time    `json:"created_at"`
}

// Teacher is the role extension carried by docente profiles (table docente).
type Teacher struct {
	UsuarioID   string `json:"-"`
	Institucion string `json:"institucion"`
	Pais        string `json:"pais,omitempty"`
	Provincia   string `json:"provincia,omitempty"`
	Ciudad      string `json:"ciudad,omitempty"`
}

// EnrichedContext is what an authorized caller knows about the principal.
// Teacher is nil for every role except docente, and may be nil for docente too.
type EnrichedContext struct {
	Identity sec.Identity
	Profile  *Profile
	Teacher  *Teacher
}

// UserID returns the verified identity's ID.
func (ec *EnrichedContext) UserID() string {
	return ec.Identity.ID
}

// Role returns the profile's role.
func (ec *EnrichedContext) Role() sec.UserRole {
	return ec.Profile.Role
}

// # Presentation

// EnrichedUser is the JSON shape of the current user returned by the auth endpoints.
type EnrichedUser struct {
	ID              string       `json:"id"`
	Email           string       `json:"email"`
	Role            sec.UserRole `json:"role"`
	Nombre          string       `json:"nombre"`
	Apellido        string       `json:"apellido"`
	Telefono        string       `json:"telefono"`
	AccesoComunidad bool         `json:"acceso_comunidad"`
	Docente         *Teacher     `json:"docente"`
}

// View flattens the context into its JSON representation.
func (ec *EnrichedContext) View() *EnrichedUser {
	email := ec.Identity.Email
	if email == "" {
		email = ec.Profile.Email
	}

	return &EnrichedUser{
		ID:              ec.Identity.ID,
		Email:           email,
		Role:            ec.Profile.Role,
		Nombre:          ec.Profile.Nombre,
		Apellido:        ec.Profile.Apellido,
		Telefono:        ec.Profile.Telefono,
		AccesoComunidad: ec.Profile.AccesoComunidad,
		Docente:         ec.Teacher,
	}
}

// # Field Identifiers

// JSON field names used in validation details.
const (
	FieldEmail        = "email"
	FieldSecret       = "secret"
	FieldNombre       = "nombre"
	FieldApellido     = "apellido"
	FieldTelefono     = "telefono"
	FieldRol          = "rol"
	FieldInstitucion  = "institucion"
	FieldAccessToken  = "access_token"
	FieldRefreshToken = "refresh_token"
)
