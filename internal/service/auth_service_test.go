package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/teachhub/teachhub-api/internal/models"
	"github.com/teachhub/teachhub-api/pkg/config"
	appErrors "github.com/teachhub/teachhub-api/pkg/errors"
)

func authFixture(t *testing.T, active bool) (*AuthService, *userStoreMock) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	require.NoError(t, err)

	repo := newUserStoreMock()
	repo.byEmail["user@example.com"] = &models.User{
		ID:           "u1",
		Email:        "user@example.com",
		PasswordHash: string(hash),
		FullName:     "Jane Doe",
		Role:         models.RoleStudent,
		Active:       active,
	}
	svc := NewAuthService(repo, config.JWTConfig{
		Secret:     "test_secret",
		Expiration: time.Hour,
		Issuer:     "teachhub",
	}, nil, nil)
	return svc, repo
}

func TestAuthLoginSuccess(t *testing.T) {
	svc, _ := authFixture(t, true)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, "u1", res.User.ID)
	assert.Equal(t, models.RoleStudent, res.User.Role)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	svc, _ := authFixture(t, true)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginUnknownEmail(t *testing.T) {
	svc, _ := authFixture(t, true)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	svc, _ := authFixture(t, false)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthValidateTokenRoundTrip(t *testing.T) {
	svc, _ := authFixture(t, true)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "teachhub", claims.Issuer)
}

func TestAuthValidateTokenWrongSecret(t *testing.T) {
	svc, repo := authFixture(t, true)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)

	other := NewAuthService(repo, config.JWTConfig{Secret: "different", Expiration: time.Hour}, nil, nil)
	_, err = other.ValidateToken(res.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthValidateTokenGarbage(t *testing.T) {
	svc, _ := authFixture(t, true)

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
}
