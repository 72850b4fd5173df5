// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/mulita/internal/platform/request"
	"github.com/taibuivan/mulita/internal/platform/respond"
	"github.com/taibuivan/mulita/internal/platform/validate"
	"github.com/taibuivan/mulita/internal/users/auth"
	"github.com/taibuivan/mulita/pkg/pagination"
	"github.com/taibuivan/mulita/pkg/query"
)

// # Definitions & Constructors

// Handler implements the user administration, profile and community endpoints.
type Handler struct {
	accountService *Service
	guard          *auth.Guard
}

// NewHandler constructs a [Handler]. Route groups install their own Guard checks.
func NewHandler(service *Service, guard *auth.Guard) *Handler {
	return &Handler{accountService: service, guard: guard}
}

// AdminRoutes is mounted at /api/v1/usuarios. Every route requires {admin, superAdmin}.
//
// # Endpoints
//   - GET    /                       : Paginated listing (page, limit, search, rol)
//   - GET    /export                 : Unpaginated listing (rol)
//   - DELETE /{id}                   : Soft delete
//   - PATCH  /{id}/rol               : Change role
//   - PATCH  /{id}/acceso-comunidad  : Toggle community access
func (handler *Handler) AdminRoutes() chi.Router {
	router := chi.NewRouter()
	router.Use(handler.guard.RequireAdmin())

	router.Get("/", handler.listUsers)
	router.Get("/export", handler.exportUsers)
	router.Delete("/{id}", handler.deleteUser)
	router.Patch("/{id}/rol", handler.changeRole)
	router.Patch("/{id}/acceso-comunidad", handler.setCommunityAccess)

	return router
}

// ProfileRoutes is mounted at /api/v1/perfil.
//
// # Endpoints
//   - GET   /{id} : Public profile, session optional
//   - PATCH /     : Edit own profile
func (handler *Handler) ProfileRoutes() chi.Router {
	router := chi.NewRouter()

	router.With(handler.guard.Optional()).Get("/{id}", handler.getPublicProfile)

	router.Group(func(r chi.Router) {
		r.Use(handler.guard.Require())
		r.Patch("/", handler.updateOwnProfile)
	})

	return router
}

// CommunityRoutes is mounted at /api/v1/comunidad.
//
// # Endpoints
//   - GET /acceso : 200 when the caller may use the community area
func (handler *Handler) CommunityRoutes() chi.Router {
	router := chi.NewRouter()
	router.Use(handler.guard.RequireCommunity())

	router.Get("/acceso", handler.communityAccess)

	return router
}

// # Request Payloads

type changeRoleRequest struct {
	Rol string `json:"rol"`
}

type communityAccessRequest struct {
	AccesoComunidad *bool `json:"acceso_comunidad"`
}

type updateProfileRequest struct {
	Nombre   *string `json:"nombre"`
	Apellido *string `json:"apellido"`
	Telefono *string `json:"telefono"`
}

// # Administration Endpoints

/*
GET /api/v1/usuarios.

Request:
  - page, limit, search: see pagination.FromRequest
  - rol: comma-separated role filter

Response:
  - 200: []UserSummary with pagination meta
  - 401/403: Guard rejection
*/
func (handler *Handler) listUsers(writer http.ResponseWriter, request *http.Request) {
	filter := Filter{
		Params: pagination.FromRequest(request),
		Roles:  query.StringSlice(request.URL.Query()["rol"]),
	}

	users, total, err := handler.accountService.ListUsers(request.Context(), filter)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, users, pagination.NewMeta(filter.Params, total))
}

/*
GET /api/v1/usuarios/export.

Description: Every non-deleted user with docente fields flattened, for the
dashboard's spreadsheet download.

Response:
  - 200: []UserSummary
*/
func (handler *Handler) exportUsers(writer http.ResponseWriter, request *http.Request) {
	users, err := handler.accountService.ExportUsers(request.Context(), query.StringSlice(request.URL.Query()["rol"]))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, users)
}

/*
DELETE /api/v1/usuarios/{id}.

Response:
  - 204: User marked as eliminado
  - 403: FORBIDDEN: Self delete
  - 404: NOT_FOUND
*/
func (handler *Handler) deleteUser(writer http.ResponseWriter, request *http.Request) {
	actor, err := auth.RequiredSession(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.DeleteUser(request.Context(), actor, requestutil.Param(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
PATCH /api/v1/usuarios/{id}/rol.

Response:
  - 204: Role changed
  - 400: VALIDATION_ERROR: Unknown role
  - 404: NOT_FOUND
*/
func (handler *Handler) changeRole(writer http.ResponseWriter, request *http.Request) {
	actor, err := auth.RequiredSession(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changeRoleRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.ChangeRole(request.Context(), actor, requestutil.Param(request, "id"), input.Rol); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
PATCH /api/v1/usuarios/{id}/acceso-comunidad.

Request:
  - Body: {"acceso_comunidad": bool}, or ?enabled=true|false

Response:
  - 204: Flag updated
  - 400: VALIDATION_ERROR: Missing flag
*/
func (handler *Handler) setCommunityAccess(writer http.ResponseWriter, request *http.Request) {
	enabled, ok := query.Bool(request.URL.Query().Get("enabled"))
	if !ok {
		var input communityAccessRequest
		if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
			respond.Error(writer, request, err)
			return
		}

		if input.AccesoComunidad == nil {
			respond.Error(writer, request, (&validate.Validator{}).Required("acceso_comunidad", "").Err())
			return
		}
		enabled = *input.AccesoComunidad
	}

	if err := handler.accountService.SetCommunityAccess(request.Context(), requestutil.Param(request, "id"), enabled); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Profile Endpoints

/*
GET /api/v1/perfil/{id}.

Response:
  - 200: PublicProfile, with email for the owner or an admin
  - 404: NOT_FOUND: Unknown or deleted user
*/
func (handler *Handler) getPublicProfile(writer http.ResponseWriter, request *http.Request) {
	viewer := auth.FromContext(request.Context())

	profile, err := handler.accountService.GetPublicProfile(request.Context(), viewer, requestutil.Param(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

/*
PATCH /api/v1/perfil.

Description: Edits the caller's own nombre, apellido and telefono. The target
is always the session's user.

Response:
  - 200: auth.Profile
  - 400: VALIDATION_ERROR
*/
func (handler *Handler) updateOwnProfile(writer http.ResponseWriter, request *http.Request) {
	session, err := auth.RequiredSession(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateProfileRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.accountService.UpdateOwnProfile(request.Context(), session.UserID(), ProfileChanges{
		Nombre:   input.Nombre,
		Apellido: input.Apellido,
		Telefono: input.Telefono,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

// # Community Endpoints

// communityAccess answers 200 once the Guard has admitted the caller.
func (handler *Handler) communityAccess(writer http.ResponseWriter, request *http.Request) {
	session, err := auth.RequiredSession(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"acceso":  true,
		"user_id": session.UserID(),
		"rol":     session.Role(),
	})
}
