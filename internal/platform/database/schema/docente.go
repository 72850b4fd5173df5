// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// DocenteTable represents the 'docente' table (teacher extension of usuario).
type DocenteTable struct {
	Table       string
	UsuarioID   string
	Institucion string
	Pais        string
	Provincia   string
	Ciudad      string
}

// Docente is the schema definition for docente.
var Docente = DocenteTable{
	Table:       "docente",
	UsuarioID:   "id_usuario",
	Institucion: "institucion",
	Pais:        "pais",
	Provincia:   "provincia",
	Ciudad:      "ciudad",
}

// Columns returns the columns scanned into a teacher record, in scan order.
func (t DocenteTable) Columns() []string {
	return []string{t.UsuarioID, t.Institucion, t.Pais, t.Provincia, t.Ciudad}
}
