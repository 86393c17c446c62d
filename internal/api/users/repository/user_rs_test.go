package usersRepository

import (
	"context"
	"testing"
	"time"

	"FaceVision/database/postgres"
	"FaceVision/internal/api/users"
	"FaceVision/internal/entity"
	"FaceVision/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) Repository {
	t.Helper()
	db, err := postgres.New(postgres.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, log.NewDiscard())
}

func testUser(id, email string) entity.User {
	now := time.Now().UTC().Truncate(time.Second)
	return entity.User{
		ID:        id,
		Email:     email,
		Name:      "Ann",
		Password:  "hash",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateAndGetUser(t *testing.T) {
	repo := newTestRepository(t)
	client, err := repo.NewClient(false)
	require.NoError(t, err)
	ctx := context.Background()

	u := testUser("01A", "ann@example.com")
	require.NoError(t, client.Users.CreateUser(ctx, u))

	byID, err := client.Users.GetByID(ctx, "01A")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", byID.Email)
	assert.Equal(t, "hash", byID.Password)
	assert.True(t, u.CreatedAt.Equal(byID.CreatedAt))

	byEmail, err := client.Users.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "01A", byEmail.ID)

	_, err = client.Users.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, users.ErrUserNotFound)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo := newTestRepository(t)
	client, err := repo.NewClient(false)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, client.Users.CreateUser(ctx, testUser("01A", "ann@example.com")))
	err = client.Users.CreateUser(ctx, testUser("01B", "ann@example.com"))
	assert.ErrorIs(t, err, users.ErrEmailAlreadyExists)
}

func TestUpdateUserInTransaction(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	client, err := repo.NewClient(false)
	require.NoError(t, err)
	require.NoError(t, client.Users.CreateUser(ctx, testUser("01A", "ann@example.com")))

	tx, err := repo.NewClient(true)
	require.NoError(t, err)
	u, err := tx.Users.GetByID(ctx, "01A")
	require.NoError(t, err)
	u.Name = "Annie"
	u.UpdatedAt = time.Now().UTC()
	require.NoError(t, tx.Users.UpdateUser(ctx, u))
	require.NoError(t, tx.Commit())

	got, err := client.Users.GetByID(ctx, "01A")
	require.NoError(t, err)
	assert.Equal(t, "Annie", got.Name)

	tx, err = repo.NewClient(true)
	require.NoError(t, err)
	err = tx.Users.UpdateUser(ctx, testUser("missing", "x@example.com"))
	assert.ErrorIs(t, err, users.ErrUserNotFound)
	require.NoError(t, tx.Rollback())
}
