package usersService

import (
	"context"
	"testing"

	"FaceVision/database/postgres"
	"FaceVision/internal/api/users"
	usersRepository "FaceVision/internal/api/users/repository"
	"FaceVision/internal/entity"
	"FaceVision/pkg/bcrypt"
	jwtPkg "FaceVision/pkg/jwt"
	"FaceVision/pkg/log"
	"FaceVision/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) UsersService {
	t.Helper()
	t.Setenv(jwtPkg.SecretEnvKey, "test-secret")

	db, err := postgres.New(postgres.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := log.NewDiscard()
	repo := usersRepository.New(db, logger)
	return New(logger, repo, bcrypt.NewWithCost(bcrypt.MinCost), utils.New())
}

func register(t *testing.T, svc UsersService, email, password, name string) users.AuthResponse {
	t.Helper()
	res, err := svc.Auth().Register(context.Background(), users.RegisterRequest{
		Email: email, Password: password, Name: name,
	})
	require.NoError(t, err)
	return res
}

func TestRegisterIssuesToken(t *testing.T) {
	svc := newTestService(t)

	res := register(t, svc, "  Ann@Example.com ", "secret1", "Ann")
	assert.NotEmpty(t, res.User.ID)
	assert.Equal(t, "ann@example.com", res.User.Email)
	assert.Equal(t, "Ann", res.User.Name)

	token, err := jwtPkg.Verify(res.Token)
	require.NoError(t, err)
	claims, err := jwtPkg.ClaimsUser(token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.ID)
}

func TestRegisterRejects(t *testing.T) {
	svc := newTestService(t)
	register(t, svc, "ann@example.com", "secret1", "Ann")

	_, err := svc.Auth().Register(context.Background(), users.RegisterRequest{Email: "ANN@example.com", Password: "other12"})
	assert.ErrorIs(t, err, users.ErrEmailAlreadyExists)

	_, err = svc.Auth().Register(context.Background(), users.RegisterRequest{Email: "bob@example.com"})
	assert.ErrorIs(t, err, users.ErrCredentialsRequired)
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)
	reg := register(t, svc, "ann@example.com", "secret1", "Ann")

	res, err := svc.Auth().Login(context.Background(), users.LoginRequest{Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, reg.User, res.User)
	assert.NotEmpty(t, res.Token)

	_, err = svc.Auth().Login(context.Background(), users.LoginRequest{Email: "ann@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)

	_, err = svc.Auth().Login(context.Background(), users.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)

	_, err = svc.Auth().Login(context.Background(), users.LoginRequest{Email: "ann@example.com"})
	assert.ErrorIs(t, err, users.ErrCredentialsRequired)
}

func TestProfileUpdate(t *testing.T) {
	svc := newTestService(t)
	reg := register(t, svc, "ann@example.com", "secret1", "Ann")
	me := entity.UserLoginData{ID: reg.User.ID, Email: reg.User.Email, Name: reg.User.Name}
	ctx := context.Background()

	name := "Annie"
	password := "newpass1"
	updated, err := svc.Profile().Update(ctx, me, users.UpdateProfileRequest{Name: &name, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, "Annie", updated.Name)

	got, err := svc.Profile().Get(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, "Annie", got.Name)

	_, err = svc.Auth().Login(ctx, users.LoginRequest{Email: "ann@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)
	_, err = svc.Auth().Login(ctx, users.LoginRequest{Email: "ann@example.com", Password: "newpass1"})
	assert.NoError(t, err)

	unchanged, err := svc.Profile().Update(ctx, me, users.UpdateProfileRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Annie", unchanged.Name)
}

func TestProfileForDeletedUser(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Profile().Get(context.Background(), entity.UserLoginData{ID: "gone"})
	assert.ErrorIs(t, err, users.ErrUnauthenticated)
}
