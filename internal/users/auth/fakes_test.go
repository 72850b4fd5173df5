// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/taibuivan/mulita/internal/platform/database/schema"
	"github.com/taibuivan/mulita/internal/platform/dberr"
	"github.com/taibuivan/mulita/internal/platform/sec"
	"github.com/taibuivan/mulita/internal/users/auth"
)

// # Identity Provider Mock

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) VerifyAccessToken(_ context.Context, token string) (*sec.Identity, error) {
	args := m.Called(token)
	identity, _ := args.Get(0).(*sec.Identity)
	return identity, args.Error(1)
}

func (m *mockProvider) Refresh(_ context.Context, refreshToken string) (*sec.ProviderSession, error) {
	args := m.Called(refreshToken)
	session, _ := args.Get(0).(*sec.ProviderSession)
	return session, args.Error(1)
}

func (m *mockProvider) SignInWithPassword(_ context.Context, email, password string) (*sec.ProviderSession, error) {
	args := m.Called(email, password)
	session, _ := args.Get(0).(*sec.ProviderSession)
	return session, args.Error(1)
}

func (m *mockProvider) SignUp(_ context.Context, email, password string, metadata map[string]any) (*sec.Identity, error) {
	args := m.Called(email, password, metadata)
	identity, _ := args.Get(0).(*sec.Identity)
	return identity, args.Error(1)
}

func (m *mockProvider) SendPasswordReset(_ context.Context, email string) error {
	return m.Called(email).Error(0)
}

func (m *mockProvider) SignOut(_ context.Context, accessToken string) error {
	return m.Called(accessToken).Error(0)
}

// # In-Memory Profile Store

// memoryStore behaves like the usuario/docente tables, including the unique
// index on lower(email).
type memoryStore struct {
	mu       sync.Mutex
	profiles map[string]*auth.Profile
	teachers map[string]*auth.Teacher

	// failWith makes every call return this error.
	failWith error
	// failCreate makes only Create fail.
	failCreate error
	// staleExists makes ExistsByEmail miss rows, as a concurrent insert would.
	staleExists bool

	creates int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		profiles: map[string]*auth.Profile{},
		teachers: map[string]*auth.Teacher{},
	}
}

func (s *memoryStore) put(profile *auth.Profile, teacher *auth.Teacher) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[profile.ID] = profile
	if teacher != nil {
		s.teachers[profile.ID] = teacher
	}
}

func (s *memoryStore) rowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles)
}

func (s *memoryStore) FindByID(_ context.Context, id string) (*auth.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return nil, s.failWith
	}
	profile, ok := s.profiles[id]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	clone := *profile
	return &clone, nil
}

func (s *memoryStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return false, s.failWith
	}
	if s.staleExists {
		return false, nil
	}
	return s.emailTakenLocked(email), nil
}

func (s *memoryStore) Create(_ context.Context, profile *auth.Profile, teacher *auth.Teacher) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creates++
	if s.failWith != nil {
		return s.failWith
	}
	if s.failCreate != nil {
		return s.failCreate
	}
	if s.emailTakenLocked(profile.Email) {
		return &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: schema.Usuario.EmailUniqueIndex}
	}

	clone := *profile
	clone.CreatedAt = time.Now()
	s.profiles[profile.ID] = &clone
	if teacher != nil {
		extension := *teacher
		s.teachers[profile.ID] = &extension
	}
	return nil
}

func (s *memoryStore) FindByUserID(_ context.Context, userID string) (*auth.Teacher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return nil, s.failWith
	}
	teacher, ok := s.teachers[userID]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	return teacher, nil
}

func (s *memoryStore) emailTakenLocked(email string) bool {
	for _, profile := range s.profiles {
		if strings.EqualFold(profile.Email, email) {
			return true
		}
	}
	return false
}

// # Limiter Stubs

type stubLimiter struct {
	retryAfter time.Duration
	err        error
	failures   int
	resets     int
	checks     int
}

func (l *stubLimiter) Check(context.Context, string) (time.Duration, error) {
	l.checks++
	return l.retryAfter, l.err
}

func (l *stubLimiter) RecordFailure(context.Context, string) error {
	l.failures++
	return nil
}

func (l *stubLimiter) Reset(context.Context, string) error {
	l.resets++
	return nil
}

type stubThrottle struct {
	allowed bool
	err     error
	calls   int
}

func (t *stubThrottle) Allow(context.Context, string) (bool, error) {
	t.calls++
	return t.allowed, t.err
}

// # Fixtures

const (
	anaID    = "3f1c2a9e-6b7d-4e8f-9a0b-1c2d3e4f5a6b"
	anaEmail = "ana@mulita.com.ar"
)

func profileFor(id string, role sec.UserRole) *auth.Profile {
	return &auth.Profile{
		ID:              id,
		Role:            role,
		Nombre:          "Ana",
		Apellido:        "Pérez",
		Email:           anaEmail,
		AccesoComunidad: true,
	}
}

func sessionFor(id, access, refresh string) *sec.ProviderSession {
	return &sec.ProviderSession{
		Tokens:         sec.TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: 3600},
		Identity:       sec.Identity{ID: id, Email: anaEmail},
		EmailConfirmed: true,
	}
}

type fixture struct {
	provider      *mockProvider
	store         *memoryStore
	limiter       *stubLimiter
	throttle      *stubThrottle
	resolver      *auth.Resolver
	gate          *auth.Gate
	authenticator *auth.Authenticator
}

func newFixture() *fixture {
	f := &fixture{
		provider: &mockProvider{},
		store:    newMemoryStore(),
		limiter:  &stubLimiter{},
		throttle: &stubThrottle{allowed: true},
	}

	f.resolver = auth.NewResolver(f.provider, time.Second)
	f.gate = auth.NewGate(f.store, f.store, time.Second)
	f.authenticator = auth.NewAuthenticator(auth.Dependencies{
		Provider: f.provider,
		Profiles: f.store,
		Gate:     f.gate,
		Limiter:  f.limiter,
		Throttle: f.throttle,
		Timeout:  time.Second,
	})
	return f
}
