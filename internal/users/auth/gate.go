// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/taibuivan/mulita/internal/platform/ctxutil"
	"github.com/taibuivan/mulita/internal/platform/dberr"
	"github.com/taibuivan/mulita/internal/platform/sec"
)

// # Authorization

// Gate decides whether a verified identity may act, based on its profile.
//
// # Fail Closed
//
// Every ambiguous state denies. Nothing degrades to a default role.
type Gate struct {
	profiles ProfileReader
	teachers TeacherReader
	timeout  time.Duration
}

// NewGate constructs a Gate. A non-positive timeout uses [DefaultUpstreamTimeout].
func NewGate(profiles ProfileReader, teachers TeacherReader, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = DefaultUpstreamTimeout
	}
	return &Gate{profiles: profiles, teachers: teachers, timeout: timeout}
}

/*
Authorize loads the profile of identity and checks it against roles.

An empty role set admits any profile with a valid role.

Returns:
  - *EnrichedContext: Identity, profile and (for docente) teacher extension
  - error: ErrProfileNotFound, ErrAccountDisabled, ErrForbidden or ErrUpstreamUnavailable
*/
func (gate *Gate) Authorize(ctx context.Context, identity sec.Identity, roles sec.RoleSet) (*EnrichedContext, error) {
	logger := ctxutil.GetLogger(ctx)

	// 1. Profile lookup
	profile, err := gate.findProfile(ctx, identity.ID)
	if err != nil {
		if dberr.IsNotFound(err) {
			logger.WarnContext(ctx, "auth_profile_missing", slog.String("user_id", identity.ID))
			return nil, ErrProfileNotFound
		}
		return nil, upstream(err)
	}

	// 2. Soft-deleted accounts keep their row but lose access
	if profile.Eliminado {
		return nil, ErrAccountDisabled
	}

	// 3. Role membership, exact string match against the closed set
	if !profile.Role.IsValid() {
		logger.WarnContext(ctx, "auth_unknown_role",
			slog.String("user_id", identity.ID),
			slog.String("role", string(profile.Role)),
		)
		return nil, ErrForbidden
	}

	if !roles.IsEmpty() && !roles.Contains(profile.Role) {
		return nil, ErrForbidden
	}

	enriched := &EnrichedContext{Identity: identity, Profile: profile}

	// 4. Role extension; its absence is a valid state
	if profile.Role == sec.RoleDocente {
		teacher, err := gate.findTeacher(ctx, identity.ID)
		switch {
		case err == nil:
			enriched.Teacher = teacher
		case dberr.IsNotFound(err):
			logger.DebugContext(ctx, "auth_teacher_extension_missing", slog.String("user_id", identity.ID))
		default:
			return nil, upstream(err)
		}
	}

	return enriched, nil
}

// RequireCommunityAccess denies profiles whose community access was revoked.
func RequireCommunityAccess(enriched *EnrichedContext) error {
	if enriched == nil || enriched.Profile == nil || !enriched.Profile.AccesoComunidad {
		return ErrForbidden
	}
	return nil
}

func (gate *Gate) findProfile(ctx context.Context, id string) (*Profile, error) {
	callCtx, cancel := context.WithTimeout(ctx, gate.timeout)
	defer cancel()

	return gate.profiles.FindByID(callCtx, id)
}

func (gate *Gate) findTeacher(ctx context.Context, id string) (*Teacher, error) {
	callCtx, cancel := context.WithTimeout(ctx, gate.timeout)
	defer cancel()

	return gate.teachers.FindByUserID(callCtx, id)
}
