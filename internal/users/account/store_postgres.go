// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
PostgreSQL implementation of the account [Repository].

  - Window Functions: The listing computes its total with COUNT(*) OVER()
    instead of a second query.
  - Soft Delete: Rows with eliminado = true never appear in listings or public
    profiles, but admin updates still reach them.
*/
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/mulita/internal/platform/database/schema"
	"github.com/taibuivan/mulita/internal/platform/dberr"
	"github.com/taibuivan/mulita/internal/platform/sec"
	"github.com/taibuivan/mulita/internal/users/auth"
	"github.com/taibuivan/mulita/pkg/pointer"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL backed account store.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

var (
	usuario = schema.Usuario
	docente = schema.Docente
)

var softDelete = fmt.Sprintf(`UPDATE %s SET %s = true, %s = NOW() WHERE %s = $1 AND %s = false`,
	usuario.Table, usuario.Eliminado, usuario.UpdatedAt, usuario.ID, usuario.Eliminado)

// selectSummaries reads UserSummary rows with the docente extension flattened.
// Callers append filters to the WHERE clause.
var selectSummaries = fmt.Sprintf(`
	SELECT
		usr.%s, usr.%s, usr.%s, usr.%s, usr.%s, usr.%s, usr.%s,
		COALESCE(doc.%s, ''), COALESCE(doc.%s, ''), COALESCE(doc.%s, ''), COALESCE(doc.%s, '')%%s
	FROM %s usr
	LEFT JOIN %s doc ON doc.%s = usr.%s
	WHERE usr.%s = false`,
	usuario.ID, usuario.Nombre, usuario.Apellido, usuario.Email, usuario.Rol, usuario.AccesoComunidad, usuario.CreatedAt,
	docente.Institucion, docente.Pais, docente.Provincia, docente.Ciudad,
	usuario.Table, docente.Table, docente.UsuarioID, usuario.ID, usuario.Eliminado,
)

var selectPublicProfile = fmt.Sprintf(`SELECT %s, %s, %s, %s, %s FROM %s WHERE %s = $1 AND %s = false`,
	usuario.ID, usuario.Nombre, usuario.Apellido, usuario.Email, usuario.CreatedAt, usuario.Table, usuario.ID, usuario.Eliminado)

var updateRole = fmt.Sprintf(`UPDATE %s SET %s = $2, %s = NOW() WHERE %s = $1`,
	usuario.Table, usuario.Rol, usuario.UpdatedAt, usuario.ID)

var updateCommunityAccess = fmt.Sprintf(`UPDATE %s SET %s = $2, %s = NOW() WHERE %s = $1`,
	usuario.Table, usuario.AccesoComunidad, usuario.UpdatedAt, usuario.ID)

var updateProfile = fmt.Sprintf(`
	UPDATE %[1]s SET
		%[2]s = COALESCE($2, %[2]s),
		%[3]s = COALESCE($3, %[3]s),
		%[4]s = CASE WHEN $4::boolean THEN $5 ELSE %[4]s END,
		%[5]s = NOW()
	WHERE %[6]s = $1 AND %[7]s = false
	RETURNING %[8]s`,
	usuario.Table, usuario.Nombre, usuario.Apellido, usuario.Telefono, usuario.UpdatedAt, usuario.ID, usuario.Eliminado,
	strings.Join(usuario.Columns(), ", "))

/*
List returns one page of users, newest first.

Description: Builds the WHERE clause incrementally, numbering placeholders as
filters are added. The docente extension is LEFT JOINed so other roles still
appear with empty extension fields.
*/
func (repository *PostgresRepository) List(context context.Context, filter Filter) ([]*UserSummary, int, error) {
	var queryBuilder strings.Builder
	var args []any
	argID := 1

	queryBuilder.WriteString(fmt.Sprintf(selectSummaries, ", COUNT(*) OVER() AS total_count"))

	// Search on nombre, case-insensitive literal substring
	if filter.Search != "" {
		queryBuilder.WriteString(fmt.Sprintf(` AND usr.%s ILIKE '%%' || $%d || '%%' ESCAPE '\'`, usuario.Nombre, argID))
		args = append(args, escapeLike(filter.Search))
		argID++
	}

	// Role filtering
	if len(filter.Roles) > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" AND usr.%s = ANY($%d)", usuario.Rol, argID))
		args = append(args, filter.Roles)
		argID++
	}

	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY usr.%s DESC, usr.%s LIMIT $%d OFFSET $%d", usuario.CreatedAt, usuario.ID, argID, argID+1))
	args = append(args, filter.Limit, filter.Offset())

	rows, err := repository.pool.Query(context, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_account_list_failed: %w", err)
	}
	defer rows.Close()

	var (
		users []*UserSummary
		total int
	)

	for rows.Next() {
		user, err := scanSummary(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres_account_list_scan_failed: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_account_list_rows_failed: %w", err)
	}

	return users, total, nil
}

// Export returns every matching user without pagination, for spreadsheet downloads.
func (repository *PostgresRepository) Export(context context.Context, roles []string) ([]*UserSummary, error) {
	query := fmt.Sprintf(selectSummaries, "")
	var args []any

	if len(roles) > 0 {
		query += fmt.Sprintf(" AND usr.%s = ANY($1)", usuario.Rol)
		args = append(args, roles)
	}
	query += fmt.Sprintf(" ORDER BY usr.%s DESC, usr.%s", usuario.CreatedAt, usuario.ID)

	rows, err := repository.pool.Query(context, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres_account_export_failed: %w", err)
	}
	defer rows.Close()

	var users []*UserSummary
	for rows.Next() {
		user, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres_account_export_scan_failed: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_account_export_rows_failed: %w", err)
	}

	return users, nil
}

// scanSummary reads one selectSummaries row; extra receives trailing columns.
func scanSummary(row pgx.Row, extra ...any) (*UserSummary, error) {
	var user UserSummary
	var role string

	dest := []any{
		&user.ID, &user.Nombre, &user.Apellido, &user.Email, &role, &user.AccesoComunidad, &user.CreatedAt,
		&user.Institucion, &user.Pais, &user.Provincia, &user.Ciudad,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	user.Role = sec.UserRole(role)
	return &user, nil
}

// FindPublic returns the public subset of a non-deleted profile, email included.
func (repository *PostgresRepository) FindPublic(context context.Context, id string) (*PublicProfile, error) {
	var profile PublicProfile

	err := repository.pool.QueryRow(context, selectPublicProfile, id).Scan(
		&profile.ID, &profile.Nombre, &profile.Apellido, &profile.Email, &profile.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, dberr.ErrNotFound
		}
		return nil, fmt.Errorf("postgres_account_find_public_failed: %w", err)
	}

	return &profile, nil
}

// UpdateRole sets the role column. The CHECK constraint rejects unknown roles.
func (repository *PostgresRepository) UpdateRole(context context.Context, id string, role sec.UserRole) error {
	return repository.execOne(context, updateRole, id, string(role))
}

// UpdateCommunityAccess sets acceso_comunidad.
func (repository *PostgresRepository) UpdateCommunityAccess(context context.Context, id string, enabled bool) error {
	return repository.execOne(context, updateCommunityAccess, id, enabled)
}

// SoftDelete sets eliminado. The row stays so the Gate can report ACCOUNT_DISABLED.
func (repository *PostgresRepository) SoftDelete(context context.Context, id string) error {
	return repository.execOne(context, softDelete, id)
}

/*
UpdateProfile applies a partial update in one statement.

Description: COALESCE keeps columns whose change is nil. Telefono uses an
explicit flag because an empty value clears it to NULL.
*/
func (repository *PostgresRepository) UpdateProfile(context context.Context, id string, changes ProfileChanges) (*auth.Profile, error) {
	setTelefono := changes.Telefono != nil

	profile, err := auth.ScanProfile(repository.pool.QueryRow(context, updateProfile,
		id,
		changes.Nombre,
		changes.Apellido,
		setTelefono,
		pointer.NilIfZero(pointer.Val(changes.Telefono)),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, dberr.ErrNotFound
		}
		return nil, fmt.Errorf("postgres_account_update_profile_failed: %w", err)
	}

	return profile, nil
}

func (repository *PostgresRepository) execOne(context context.Context, query string, args ...any) error {
	tag, err := repository.pool.Exec(context, query, args...)
	if err != nil {
		return fmt.Errorf("postgres_account_update_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

// escapeLike neutralises LIKE wildcards in user input.
func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
