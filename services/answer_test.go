package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/testutil"
	"github.com/cppla/qaforum/utils"
)

func TestAcceptAnswerSwitchesAcceptedComment(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	asker := testutil.CreateUser(t, db, "asker")
	first := testutil.CreateUser(t, db, "first")
	second := testutil.CreateUser(t, db, "second")
	post := testutil.CreatePost(t, db, asker, "Why is my map nil?")
	a := testutil.CreateComment(t, db, post, first, "initialize it with make")
	b := testutil.CreateComment(t, db, post, second, "use a composite literal")
	svc := NewAnswerService(db, NewNotificationService(db))

	got, err := svc.AcceptAnswer(ctx, asker.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAccepted)
	assert.Equal(t, 15, testutil.Reload[models.User](t, db, first.ID).Reputation)
	assert.Equal(t, 2, testutil.Reload[models.User](t, db, asker.ID).Reputation)

	_, err = svc.AcceptAnswer(ctx, asker.ID, b.ID)
	require.NoError(t, err)

	var accepted []uint
	require.NoError(t, db.Model(&models.Comment{}).
		Where("post_id = ? AND is_accepted = ?", post.ID, true).Pluck("id", &accepted).Error)
	assert.Equal(t, []uint{b.ID}, accepted)
	assert.Equal(t, 0, testutil.Reload[models.User](t, db, first.ID).Reputation)
	assert.Equal(t, 15, testutil.Reload[models.User](t, db, second.ID).Reputation)
	assert.Equal(t, 2, testutil.Reload[models.User](t, db, asker.ID).Reputation)
}

func TestAcceptAnswerIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	asker := testutil.CreateUser(t, db, "asker")
	helper := testutil.CreateUser(t, db, "helper")
	post := testutil.CreatePost(t, db, asker, "q")
	c := testutil.CreateComment(t, db, post, helper, "a")
	svc := NewAnswerService(db, nil)

	_, err := svc.AcceptAnswer(ctx, asker.ID, c.ID)
	require.NoError(t, err)
	_, err = svc.AcceptAnswer(ctx, asker.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, testutil.Reload[models.User](t, db, helper.ID).Reputation)
}

func TestAcceptAnswerGuards(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	asker := testutil.CreateUser(t, db, "asker")
	other := testutil.CreateUser(t, db, "other")
	post := testutil.CreatePost(t, db, asker, "q")
	own := testutil.CreateComment(t, db, post, asker, "answering myself")
	theirs := testutil.CreateComment(t, db, post, other, "a real answer")
	svc := NewAnswerService(db, nil)

	_, err := svc.AcceptAnswer(ctx, other.ID, theirs.ID)
	assert.True(t, errors.Is(err, utils.ErrForbidden))

	_, err = svc.AcceptAnswer(ctx, asker.ID, own.ID)
	assert.True(t, errors.Is(err, utils.ErrValidation))

	_, err = svc.AcceptAnswer(ctx, asker.ID, 9999)
	assert.True(t, errors.Is(err, utils.ErrNotFound))
}

func TestUnacceptAnswerRevertsBonuses(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	asker := testutil.CreateUser(t, db, "asker")
	helper := testutil.CreateUser(t, db, "helper")
	post := testutil.CreatePost(t, db, asker, "q")
	c := testutil.CreateComment(t, db, post, helper, "a")
	svc := NewAnswerService(db, nil)

	_, err := svc.AcceptAnswer(ctx, asker.ID, c.ID)
	require.NoError(t, err)
	got, err := svc.UnacceptAnswer(ctx, asker.ID, c.ID)
	require.NoError(t, err)

	assert.False(t, got.IsAccepted)
	assert.False(t, testutil.Reload[models.Comment](t, db, c.ID).IsAccepted)
	assert.Equal(t, 0, testutil.Reload[models.User](t, db, helper.ID).Reputation)
	assert.Equal(t, 0, testutil.Reload[models.User](t, db, asker.ID).Reputation)
}
