package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teachhub/teachhub-api/internal/models"
)

func TestUserRepositoryFindByEmailCaseInsensitive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "active", "created_at", "updated_at"}).
		AddRow("u1", "jane@example.com", "hash", "Jane Doe", models.RoleStudent, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, full_name, role, active, created_at, updated_at FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("Jane@Example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "Jane@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryExistsByRole(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	query := regexp.QuoteMeta("SELECT 1 FROM users WHERE role = $1 LIMIT 1")

	mock.ExpectQuery(query).
		WithArgs(models.RoleAdmin).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))
	exists, err := repo.ExistsByRole(context.Background(), models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(query).
		WithArgs(models.RoleAdmin).
		WillReturnError(sql.ErrNoRows)
	exists, err = repo.ExistsByRole(context.Background(), models.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user := &models.User{Email: "jane@example.com", FullName: "Jane Doe", Role: models.RoleStudent, Active: true}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
