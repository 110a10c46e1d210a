package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/isp-support/internal/auth"
	"github.com/spec-kit/isp-support/internal/config"
	"github.com/spec-kit/isp-support/internal/domain"
	apperrors "github.com/spec-kit/isp-support/pkg/util/errorutil"
)

func newUserServices(db *memDB) (*UserService, *AuthService) {
	c := &clock{now: start}
	users := NewUserService(UserDependencies{UserRepo: db.repos().Users, BcryptCost: bcrypt.MinCost, Clock: c.Now})
	authSvc := NewAuthService(
		config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 60, BcryptCost: bcrypt.MinCost},
		AuthDependencies{UserRepo: db.repos().Users, Clock: c.Now},
	)
	return users, authSvc
}

func TestCreateUser(t *testing.T) {
	users, _ := newUserServices(newMemDB())
	ctx := context.Background()

	user, err := users.Create(ctx, UserInput{Name: " Amina ", Email: "Amina@ISP.test", Password: "supersecret"})
	require.NoError(t, err)
	assert.Equal(t, "Amina", user.Name)
	assert.Equal(t, "amina@isp.test", user.Email)
	assert.Equal(t, domain.UserRoleAgent, user.Role)
	assert.Equal(t, domain.UserStatusActive, user.Status)
	assert.NotEqual(t, "supersecret", user.PasswordHash)
	assert.NoError(t, auth.ComparePassword(user.PasswordHash, "supersecret"))

	_, err = users.Create(ctx, UserInput{Name: "Other", Email: "amina@isp.test", Password: "supersecret"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = users.Create(ctx, UserInput{Name: "", Email: "x@isp.test", Password: "short", Role: "root"})
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	details := apperrors.ToDomainError(err).Details
	assert.Contains(t, details, "name")
	assert.Contains(t, details, "password")
	assert.Contains(t, details, "role")
}

func TestListAndUpdateUsers(t *testing.T) {
	db := newMemDB()
	users, _ := newUserServices(db)
	ctx := context.Background()

	require.NoError(t, db.repos().Users.Create(ctx, &domain.User{Name: "Root", Email: "root@isp.test", Role: domain.UserRoleSuperAdmin, Status: domain.UserStatusActive}))
	tech, err := users.Create(ctx, UserInput{Name: "Tariq", Email: "tariq@isp.test", Password: "supersecret", Role: domain.UserRoleTechnician})
	require.NoError(t, err)

	list, err := users.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Tariq", list[0].Name)

	inactive := domain.UserStatusInactive
	updated, err := users.Update(ctx, tech.ID, UserPatch{Status: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive())

	_, err = users.Update(ctx, 999, UserPatch{Status: &inactive})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	bogus := domain.UserRole("owner")
	_, err = users.Update(ctx, tech.ID, UserPatch{Role: &bogus})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	db := newMemDB()
	users, _ := newUserServices(db)
	ctx := context.Background()

	created, err := users.EnsureAdmin(ctx, "Administrator", "admin@isp.test", "change-me-now")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = users.EnsureAdmin(ctx, "Administrator", "ADMIN@isp.test", "change-me-now")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, db.users, 1)
}

func TestLogin(t *testing.T) {
	db := newMemDB()
	users, authSvc := newUserServices(db)
	ctx := context.Background()

	user, err := users.Create(ctx, UserInput{Name: "Amina", Email: "amina@isp.test", Password: "supersecret"})
	require.NoError(t, err)

	result, err := authSvc.Login(ctx, " AMINA@isp.test", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.NotEmpty(t, result.AccessToken)

	claims, err := authSvc.TokenManager().ParseToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, domain.UserRoleAgent, claims.Role)

	_, err = authSvc.Login(ctx, "amina@isp.test", "wrong-password")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	_, err = authSvc.Login(ctx, "nobody@isp.test", "supersecret")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	inactive := domain.UserStatusInactive
	_, err = users.Update(ctx, user.ID, UserPatch{Status: &inactive})
	require.NoError(t, err)
	_, err = authSvc.Login(ctx, "amina@isp.test", "supersecret")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestChangePassword(t *testing.T) {
	db := newMemDB()
	users, authSvc := newUserServices(db)
	ctx := context.Background()

	user, err := users.Create(ctx, UserInput{Name: "Amina", Email: "amina@isp.test", Password: "supersecret"})
	require.NoError(t, err)

	err = authSvc.ChangePassword(ctx, user.ID, "not-it", "brand-new-pass")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	err = authSvc.ChangePassword(ctx, user.ID, "supersecret", "short")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	require.NoError(t, authSvc.ChangePassword(ctx, user.ID, "supersecret", "brand-new-pass"))
	_, err = authSvc.Login(ctx, "amina@isp.test", "brand-new-pass")
	assert.NoError(t, err)
}
