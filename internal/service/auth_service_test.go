package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-sla/internal/auth"
	"github.com/spec-kit/maintenance-sla/internal/config"
	"github.com/spec-kit/maintenance-sla/internal/domain"
	"github.com/spec-kit/maintenance-sla/internal/repository/memstore"
	"github.com/spec-kit/maintenance-sla/internal/service"
)

func newAuthService(store *memstore.Store) *service.AuthService {
	return service.NewAuthService(config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: 4}, store.Users(), nil)
}

func TestEnsureAdminThenLogin(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := newAuthService(store)

	admin, err := svc.EnsureAdmin(ctx, "Root", " Admin@Example.com ", "s3cret-pass")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, domain.UserRoleAdmin, admin.Role)
	assert.Equal(t, "admin@example.com", admin.Email)

	again, err := svc.EnsureAdmin(ctx, "Root", "admin@example.com", "other")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	user, token, exp, err := svc.Login(ctx, "ADMIN@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, user.ID)
	assert.False(t, exp.IsZero())

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.UserID)
	assert.Equal(t, domain.UserRoleAdmin, claims.Role)
}

func TestEnsureAdminSkippedWithoutCredentials(t *testing.T) {
	admin, err := newAuthService(memstore.New()).EnsureAdmin(context.Background(), "Root", "", "")
	require.NoError(t, err)
	assert.Nil(t, admin)
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := newAuthService(store)

	hash, err := auth.HashPassword("right-pass", 4)
	require.NoError(t, err)
	require.NoError(t, store.Users().Create(ctx, &domain.User{Email: "tech@example.com", PasswordHash: hash, Role: domain.UserRoleTechnician, Active: true}))
	require.NoError(t, store.Users().Create(ctx, &domain.User{Email: "gone@example.com", PasswordHash: hash, Role: domain.UserRoleTechnician}))

	_, _, _, err = svc.Login(ctx, "tech@example.com", "wrong-pass")
	requireDomainError(t, err, "UNAUTHORIZED")
	_, _, _, err = svc.Login(ctx, "nobody@example.com", "right-pass")
	requireDomainError(t, err, "UNAUTHORIZED")
	_, _, _, err = svc.Login(ctx, "gone@example.com", "right-pass")
	requireDomainError(t, err, "UNAUTHORIZED")
}
