package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/qaforum/config"
	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/testutil"
	"github.com/cppla/qaforum/utils"
)

func TestRegisterLoginRefresh(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAuthService(db, NewSettingsService(db, nil, time.Minute, nil, "QA"))
	ctx := context.Background()

	pair, err := svc.Register(ctx, RegisterInput{Username: "gopher", Email: "Gopher@Example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Equal(t, "gopher@example.com", pair.User.Email)
	assert.Equal(t, models.RoleSet{models.RoleUser}, pair.User.Roles)

	claims, err := utils.ParseToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, pair.User.ID, claims.UserID)

	_, err = svc.Register(ctx, RegisterInput{Username: "gopher", Email: "other@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, utils.ErrConflict)

	_, err = svc.Login(ctx, "gopher", "wrong password")
	assert.ErrorIs(t, err, utils.ErrUnauthenticated)

	logged, err := svc.Login(ctx, "gopher@example.com", "correct horse")
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, logged.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, logged.RefreshToken, rotated.RefreshToken)

	_, err = svc.Refresh(ctx, logged.RefreshToken)
	assert.ErrorIs(t, err, utils.ErrUnauthenticated)
}

func TestRegisterValidation(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAuthService(db, nil)
	ctx := context.Background()

	cases := []RegisterInput{
		{Username: "ab", Email: "a@b.io", Password: "longenough"},
		{Username: "has space", Email: "a@b.io", Password: "longenough"},
		{Username: "valid", Email: "not-an-email", Password: "longenough"},
		{Username: "valid", Email: "a@b.io", Password: "short"},
	}
	for _, in := range cases {
		_, err := svc.Register(ctx, in)
		assert.ErrorIs(t, err, utils.ErrValidation, "%+v", in)
	}
}

func TestRegisterBootstrapsAdmin(t *testing.T) {
	db := testutil.NewDB(t)
	cfg := config.Get()
	cfg.AdminUsernames = []string{"Root"}
	config.Set(cfg)

	pair, err := NewAuthService(db, nil).Register(context.Background(), RegisterInput{Username: "root", Email: "root@example.com", Password: "supersecret"})
	require.NoError(t, err)
	assert.True(t, pair.User.Roles.Has(models.RoleAdmin))
}

func TestRegisterClosed(t *testing.T) {
	db := testutil.NewDB(t)
	settings := NewSettingsService(db, nil, time.Minute, nil, "QA")
	closed := false
	_, err := settings.UpdateSettings(context.Background(), 1, SettingsInput{AllowRegistration: &closed})
	require.NoError(t, err)

	_, err = NewAuthService(db, settings).Register(context.Background(), RegisterInput{Username: "late", Email: "late@example.com", Password: "supersecret"})
	assert.ErrorIs(t, err, utils.ErrForbidden)
}

func TestLoginBannedUser(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAuthService(db, nil)
	ctx := context.Background()
	pair, err := svc.Register(ctx, RegisterInput{Username: "banned", Email: "banned@example.com", Password: "supersecret"})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", pair.User.ID).Update("is_active", false).Error)

	_, err = svc.Login(ctx, "banned", "supersecret")
	assert.ErrorIs(t, err, utils.ErrForbidden)
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, utils.ErrForbidden)
}

func TestLogoutRevokesTokens(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAuthService(db, nil)
	ctx := context.Background()
	pair, err := svc.Register(ctx, RegisterInput{Username: "leaver", Email: "leaver@example.com", Password: "supersecret"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, pair.User.ID, pair.RefreshToken, pair.AccessToken, pair.AccessExpiresAt))
	assert.True(t, utils.IsTokenBlacklisted(pair.AccessToken))
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, utils.ErrUnauthenticated)
}
