// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import "github.com/taibuivan/mulita/pkg/slice"

// # User Roles

// UserRole represents the authorization level granted to an account.
//
// Values are compared as exact, case-sensitive strings against the closed set
// below. Anything else (including "super_admin") is not a role.
type UserRole string

const (
	// Default role for registered community members
	RoleUsuario UserRole = "usuario"

	// Teachers; carry an extra institutional record
	RoleDocente UserRole = "docente"

	// Manages landing content, store and users
	RoleAdmin UserRole = "admin"

	// Same privileges as admin for every gated operation
	RoleSuperAdmin UserRole = "superAdmin"
)

// IsValid reports whether r belongs to the closed role set.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleUsuario, RoleDocente, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// IsAdmin reports whether r is admin or superAdmin.
func (r UserRole) IsAdmin() bool {
	return AdminRoles.Contains(r)
}

// # Role Sets

// RoleSet is the set of roles allowed through an authorization check.
// An empty set means "any authenticated profile".
type RoleSet []UserRole

var (
	// AdminRoles gates every dashboard operation.
	AdminRoles = RoleSet{RoleAdmin, RoleSuperAdmin}

	// SelfRegistrableRoles are the roles a visitor may pick at sign-up.
	SelfRegistrableRoles = RoleSet{RoleUsuario, RoleDocente}

	// AllRoles lists the full closed set.
	AllRoles = RoleSet{RoleUsuario, RoleDocente, RoleAdmin, RoleSuperAdmin}
)

// Roles builds a RoleSet from individual roles.
func Roles(roles ...UserRole) RoleSet {
	return RoleSet(roles)
}

// Contains reports whether role is a member of the set.
func (s RoleSet) Contains(role UserRole) bool {
	for _, candidate := range s {
		if candidate == role {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the set imposes no role restriction.
func (s RoleSet) IsEmpty() bool {
	return len(s) == 0
}

// Strings returns the set as plain strings (for validation messages).
func (s RoleSet) Strings() []string {
	return slice.Map(s, func(role UserRole) string { return string(role) })
}
