// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/mulita/internal/platform/database/schema"
	"github.com/taibuivan/mulita/internal/platform/dberr"
	"github.com/taibuivan/mulita/internal/platform/sec"
	"github.com/taibuivan/mulita/pkg/pointer"
)

// # Profile Repository

// PostgresProfileRepository implements ProfileRepository using pgx.
type PostgresProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new PostgreSQL implementation of ProfileRepository.
func NewProfileRepository(pool *pgxpool.Pool) *PostgresProfileRepository {
	return &PostgresProfileRepository{pool: pool}
}

var (
	selectProfileByID = fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		strings.Join(schema.Usuario.Columns(), ", "), schema.Usuario.Table, schema.Usuario.ID)

	existsProfileByEmail = fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE lower(%s) = lower($1))`,
		schema.Usuario.Table, schema.Usuario.Email)

	insertProfile = fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		schema.Usuario.Table,
		schema.Usuario.ID, schema.Usuario.Nombre, schema.Usuario.Apellido, schema.Usuario.Email,
		schema.Usuario.Telefono, schema.Usuario.Rol, schema.Usuario.CreatedAt)

	insertTeacher = fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5)`,
		schema.Docente.Table, strings.Join(schema.Docente.Columns(), ", "))

	selectTeacherByUserID = fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		strings.Join(schema.Docente.Columns(), ", "), schema.Docente.Table, schema.Docente.UsuarioID)
)

// ScanProfile reads one usuario row in [schema.UsuarioTable.Columns] order.
func ScanProfile(row pgx.Row) (*Profile, error) {
	var (
		profile  Profile
		telefono *string
		role     string
	)

	err := row.Scan(
		&profile.ID,
		&profile.Nombre,
		&profile.Apellido,
		&profile.Email,
		&telefono,
		&role,
		&profile.AccesoComunidad,
		&profile.Eliminado,
		&profile.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	profile.Telefono = pointer.Val(telefono)
	profile.Role = sec.UserRole(role)

	return &profile, nil
}

/*
FindByID retrieves a profile by the identity provider's user ID.

Returns:
  - *Profile: Hydrated profile, including soft-deleted ones
  - error: dberr.ErrNotFound or storage errors
*/
func (repository *PostgresProfileRepository) FindByID(context context.Context, id string) (*Profile, error) {
	profile, err := ScanProfile(repository.pool.QueryRow(context, selectProfileByID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, dberr.ErrNotFound
		}
		return nil, fmt.Errorf("postgres_profile_find_failed: %w", err)
	}

	return profile, nil
}

// ExistsByEmail reports whether email is already used by a profile.
func (repository *PostgresProfileRepository) ExistsByEmail(context context.Context, email string) (bool, error) {
	var exists bool
	if err := repository.pool.QueryRow(context, existsProfileByEmail, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres_profile_exists_failed: %w", err)
	}
	return exists, nil
}

/*
Create inserts the profile and the optional teacher row atomically.

Returns:
  - error: the raw pgx error (callers inspect unique violations)
*/
func (repository *PostgresProfileRepository) Create(context context.Context, profile *Profile, teacher *Teacher) error {
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}

	return pgx.BeginFunc(context, repository.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(context, insertProfile,
			profile.ID,
			profile.Nombre,
			profile.Apellido,
			profile.Email,
			pointer.NilIfZero(profile.Telefono),
			string(profile.Role),
			profile.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("postgres_profile_insert_failed: %w", err)
		}

		if teacher == nil {
			return nil
		}

		_, err = tx.Exec(context, insertTeacher,
			profile.ID,
			teacher.Institucion,
			pointer.NilIfZero(teacher.Pais),
			pointer.NilIfZero(teacher.Provincia),
			pointer.NilIfZero(teacher.Ciudad),
		)
		if err != nil {
			return fmt.Errorf("postgres_teacher_insert_failed: %w", err)
		}

		return nil
	})
}

// # Teacher Repository

// PostgresTeacherRepository implements TeacherReader using pgx.
type PostgresTeacherRepository struct {
	pool *pgxpool.Pool
}

// NewTeacherRepository creates a new PostgreSQL implementation of TeacherReader.
func NewTeacherRepository(pool *pgxpool.Pool) *PostgresTeacherRepository {
	return &PostgresTeacherRepository{pool: pool}
}

// FindByUserID returns the docente row of userID, or dberr.ErrNotFound.
func (repository *PostgresTeacherRepository) FindByUserID(context context.Context, userID string) (*Teacher, error) {
	var teacher Teacher
	var pais, provincia, ciudad *string

	err := repository.pool.QueryRow(context, selectTeacherByUserID, userID).Scan(
		&teacher.UsuarioID,
		&teacher.Institucion,
		&pais,
		&provincia,
		&ciudad,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, dberr.ErrNotFound
		}
		return nil, fmt.Errorf("postgres_teacher_find_failed: %w", err)
	}

	teacher.Pais = pointer.Val(pais)
	teacher.Provincia = pointer.Val(provincia)
	teacher.Ciudad = pointer.Val(ciudad)

	return &teacher, nil
}
