// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns used by the SQL repositories,
// so queries are assembled from one definition instead of string literals.
package schema

// UsuarioTable represents the 'usuario' (profile) table.
type UsuarioTable struct {
	Table           string
	ID              string
	Nombre          string
	Apellido        string
	Email           string
	Telefono        string
	Rol             string
	AccesoComunidad string
	Eliminado       string
	CreatedAt       string
	UpdatedAt       string

	// EmailUniqueIndex is the constraint raised on duplicate emails.
	EmailUniqueIndex string
}

// Usuario is the schema definition for usuario.
var Usuario = UsuarioTable{
	Table:            "usuario",
	ID:               "id",
	Nombre:           "nombre",
	Apellido:         "apellido",
	Email:            "email",
	Telefono:         "telefono",
	Rol:              "rol",
	AccesoComunidad:  "acceso_comunidad",
	Eliminado:        "eliminado",
	CreatedAt:        "created_at",
	UpdatedAt:        "updated_at",
	EmailUniqueIndex: "usuario_email_key",
}

// Columns returns the columns scanned into a profile, in scan order.
func (t UsuarioTable) Columns() []string {
	return []string{
		t.ID, t.Nombre, t.Apellido, t.Email, t.Telefono, t.Rol,
		t.AccesoComunidad, t.Eliminado, t.CreatedAt,
	}
}
