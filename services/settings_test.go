package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/testutil"
	"github.com/cppla/qaforum/utils"
)

func TestMaintenanceCreatedOnFirstRead(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewSettingsService(db, nil, time.Minute, []models.Role{models.RoleAdmin}, "QA")

	m, err := svc.Maintenance(context.Background())
	require.NoError(t, err)
	assert.False(t, m.Enabled)
	assert.Equal(t, models.RoleSet{models.RoleAdmin}, m.AllowedRoles)
	assert.Equal(t, int64(1), countRows(t, db, &models.MaintenanceMode{}, ""))

	_, err = svc.Maintenance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), countRows(t, db, &models.MaintenanceMode{}, ""))
}

func TestSetMaintenanceInvalidatesLocalCache(t *testing.T) {
	db := testutil.NewDB(t)
	local, err := utils.NewLocalCache(1, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = local.Close() })
	svc := NewSettingsService(db, local, time.Minute, []models.Role{models.RoleAdmin}, "QA")
	admin := testutil.CreateUser(t, db, "root", models.RoleAdmin)
	ctx := context.Background()

	before, err := svc.Maintenance(ctx)
	require.NoError(t, err)
	require.False(t, before.Enabled)

	on, msg := true, "upgrading"
	updated, err := svc.SetMaintenance(ctx, admin.ID, MaintenanceInput{
		Enabled: &on, Message: &msg, AllowedRoles: []string{"admin", "moderator"},
	})
	require.NoError(t, err)
	assert.True(t, updated.Enabled)

	after, err := svc.Maintenance(ctx)
	require.NoError(t, err)
	assert.True(t, after.Enabled)
	assert.Equal(t, "upgrading", after.Message)
	assert.ElementsMatch(t, []models.Role{models.RoleAdmin, models.RoleModerator}, svc.AllowedDuringMaintenance(after))

	off := false
	_, err = svc.SetMaintenance(ctx, admin.ID, MaintenanceInput{Enabled: &off})
	require.NoError(t, err)
	after, err = svc.Maintenance(ctx)
	require.NoError(t, err)
	assert.False(t, after.Enabled)
	assert.Equal(t, "upgrading", after.Message)
}

func TestSetMaintenanceRejectsUnknownRole(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewSettingsService(db, nil, time.Minute, nil, "QA")

	_, err := svc.SetMaintenance(context.Background(), 1, MaintenanceInput{AllowedRoles: []string{"ADMIN", "GOD"}})
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestSettingsConcurrentReads(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewSettingsService(db, nil, time.Minute, nil, "QA")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := svc.Settings(context.Background())
			if err == nil && !s.AllowRegistration {
				t.Errorf("registration should default to open")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), countRows(t, db, &models.Settings{}, ""))
}

func TestUpdateSettings(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewSettingsService(db, nil, time.Minute, nil, "QA")
	ctx := context.Background()

	closed, perPage := false, 500
	_, err := svc.UpdateSettings(ctx, 1, SettingsInput{PostsPerPage: &perPage})
	assert.ErrorIs(t, err, utils.ErrValidation)

	s, err := svc.UpdateSettings(ctx, 1, SettingsInput{AllowRegistration: &closed})
	require.NoError(t, err)
	assert.False(t, s.AllowRegistration)
	assert.Equal(t, "QA", s.SiteName)

	got, err := svc.Settings(ctx)
	require.NoError(t, err)
	assert.False(t, got.AllowRegistration)
}
