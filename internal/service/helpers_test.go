package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/maintenance-sla/internal/domain"
	"github.com/spec-kit/maintenance-sla/internal/repository/memstore"
	apperrors "github.com/spec-kit/maintenance-sla/pkg/util/errorutil"
)

var t0 = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func addUser(t *testing.T, store *memstore.Store, email string, role domain.UserRole, active bool) *domain.User {
	t.Helper()
	user := &domain.User{Name: email, Email: email, Role: role, Active: active}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user
}

func requireDomainError(t *testing.T, err error, code string) *apperrors.DomainError {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "expected DomainError, got %v", err)
	require.Equal(t, code, domainErr.Code)
	return domainErr
}
