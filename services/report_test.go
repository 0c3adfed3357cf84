package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/testutil"
	"github.com/cppla/qaforum/utils"
)

func TestCreateReport(t *testing.T) {
	db := testutil.NewDB(t)
	author := testutil.CreateUser(t, db, "author")
	reporter := testutil.CreateUser(t, db, "reporter")
	post := testutil.CreatePost(t, db, author, "p")
	settings := NewSettingsService(db, nil, time.Minute, []models.Role{models.RoleAdmin}, "QA")
	svc := NewReportService(db, settings)
	ctx := context.Background()

	r, err := svc.CreateReport(ctx, reporter.ID, ReportInput{
		TargetType: models.TargetPost, TargetID: post.ID, Reason: "  <b>spam</b> ",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportPending, r.Status)
	assert.Equal(t, "spam", r.Reason)

	_, err = svc.CreateReport(ctx, reporter.ID, ReportInput{TargetType: models.TargetPost, TargetID: post.ID, Reason: "again"})
	assert.True(t, errors.Is(err, utils.ErrConflict))

	_, err = svc.CreateReport(ctx, author.ID, ReportInput{TargetType: models.TargetPost, TargetID: post.ID, Reason: "mine"})
	assert.True(t, errors.Is(err, utils.ErrValidation))

	_, err = svc.CreateReport(ctx, reporter.ID, ReportInput{TargetType: models.TargetComment, TargetID: 55, Reason: "x"})
	assert.True(t, errors.Is(err, utils.ErrNotFound))

	_, err = svc.CreateReport(ctx, reporter.ID, ReportInput{TargetType: models.TargetUser, TargetID: author.ID, Reason: "x"})
	assert.True(t, errors.Is(err, utils.ErrValidation))

	_, err = svc.CreateReport(ctx, reporter.ID, ReportInput{TargetType: models.TargetPost, TargetID: post.ID, Reason: "   "})
	assert.True(t, errors.Is(err, utils.ErrValidation))
}

func TestCreateReportRequiresReputation(t *testing.T) {
	db := testutil.NewDB(t)
	author := testutil.CreateUser(t, db, "author")
	reporter := testutil.CreateUser(t, db, "reporter")
	post := testutil.CreatePost(t, db, author, "p")
	settings := NewSettingsService(db, nil, time.Minute, nil, "QA")
	threshold := 15
	_, err := settings.UpdateSettings(context.Background(), author.ID, SettingsInput{MinReputationToReport: &threshold})
	require.NoError(t, err)

	svc := NewReportService(db, settings)
	_, err = svc.CreateReport(context.Background(), reporter.ID, ReportInput{TargetType: models.TargetPost, TargetID: post.ID, Reason: "spam"})
	assert.True(t, errors.Is(err, utils.ErrForbidden))

	testutil.SetReputation(t, db, reporter.ID, 20)
	_, err = svc.CreateReport(context.Background(), reporter.ID, ReportInput{TargetType: models.TargetPost, TargetID: post.ID, Reason: "spam"})
	assert.NoError(t, err)
}

func TestCreateReportOnHiddenContentIsNotFound(t *testing.T) {
	db := testutil.NewDB(t)
	author := testutil.CreateUser(t, db, "author")
	reporter := testutil.CreateUser(t, db, "reporter")
	post := testutil.CreatePost(t, db, author, "p")
	c := testutil.CreateComment(t, db, post, author, "c")
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", post.ID).Update("is_hidden", true).Error)
	require.NoError(t, db.Model(&models.Comment{}).Where("id = ?", c.ID).Update("is_hidden", true).Error)
	svc := NewReportService(db, nil)
	ctx := context.Background()

	_, err := svc.CreateReport(ctx, reporter.ID, ReportInput{TargetType: models.TargetPost, TargetID: post.ID, Reason: "spam"})
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = svc.CreateReport(ctx, reporter.ID, ReportInput{TargetType: models.TargetComment, TargetID: c.ID, Reason: "spam"})
	assert.ErrorIs(t, err, utils.ErrNotFound)

	var n int64
	require.NoError(t, db.Model(&models.Report{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestResolveReport(t *testing.T) {
	db := testutil.NewDB(t)
	author := testutil.CreateUser(t, db, "author")
	reporter := testutil.CreateUser(t, db, "reporter")
	mod := testutil.CreateUser(t, db, "mod", models.RoleModerator)
	post := testutil.CreatePost(t, db, author, "p")
	r := testutil.CreateReport(t, db, reporter, models.TargetPost, post.ID, "meh")
	svc := NewReportService(db, nil)
	ctx := context.Background()

	_, err := svc.ResolveReport(ctx, mod.ID, r.ID, models.ReportPending, "")
	assert.True(t, errors.Is(err, utils.ErrValidation))

	got, err := svc.ResolveReport(ctx, mod.ID, r.ID, models.ReportRejected, "not a violation")
	require.NoError(t, err)
	assert.Equal(t, models.ReportRejected, got.Status)
	require.NotNil(t, got.ResolvedByID)
	assert.Equal(t, mod.ID, *got.ResolvedByID)

	_, err = svc.ResolveReport(ctx, mod.ID, r.ID, models.ReportResolved, "")
	assert.True(t, errors.Is(err, utils.ErrConflict))

	mine, total, err := svc.ListMyReports(ctx, reporter.ID, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, models.ReportRejected, mine[0].Status)
}
