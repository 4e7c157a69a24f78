package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/teachhub/teachhub-api/internal/models"
	"github.com/teachhub/teachhub-api/pkg/config"
	appErrors "github.com/teachhub/teachhub-api/pkg/errors"
)

func TestRegisterCreatesStudent(t *testing.T) {
	repo := newUserStoreMock()
	svc := NewUserService(repo, nil, nil)

	user, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName: "Jane Doe",
		Email:    "Jane.Doe@Example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.True(t, user.Active)
	assert.Equal(t, "jane.doe@example.com", user.Email)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newUserStoreMock()
	repo.emailTaken = true
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName: "Jane Doe",
		Email:    "jane@example.com",
		Password: "secret1",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
}

func TestRegisterShortPassword(t *testing.T) {
	svc := NewUserService(newUserStoreMock(), nil, nil)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName: "Jane Doe",
		Email:    "jane@example.com",
		Password: "abc",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestUserGetNotFound(t *testing.T) {
	svc := NewUserService(newUserStoreMock(), nil, nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestEnsureAdminBootstraps(t *testing.T) {
	repo := newUserStoreMock()
	svc := NewUserService(repo, nil, nil)

	err := svc.EnsureAdmin(context.Background(), config.AdminConfig{
		Email:    "Admin@TeachHub.io",
		Password: "changeme",
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	admin := repo.created[0]
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Equal(t, "admin@teachhub.io", admin.Email)
	assert.Equal(t, "Administrator", admin.FullName)
	assert.True(t, admin.Active)
}

func TestEnsureAdminIdempotent(t *testing.T) {
	repo := newUserStoreMock()
	repo.adminExists = true
	svc := NewUserService(repo, nil, nil)

	require.NoError(t, svc.EnsureAdmin(context.Background(), config.AdminConfig{
		Email:    "admin@teachhub.io",
		Password: "changeme",
	}))
	assert.Empty(t, repo.created)
}

func TestEnsureAdminSkipsWithoutCredentials(t *testing.T) {
	repo := newUserStoreMock()
	svc := NewUserService(repo, nil, nil)

	require.NoError(t, svc.EnsureAdmin(context.Background(), config.AdminConfig{}))
	assert.Empty(t, repo.created)
}
