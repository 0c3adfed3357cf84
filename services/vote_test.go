package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/testutil"
	"github.com/cppla/qaforum/utils"
)

func newVoteFixture(t *testing.T) (*gorm.DB, *VoteService, *models.User, *models.User, *models.Post) {
	t.Helper()
	db := testutil.NewDB(t)
	author := testutil.CreateUser(t, db, "author")
	voter := testutil.CreateUser(t, db, "voter")
	post := testutil.CreatePost(t, db, author, "How do channels work?")
	return db, NewVoteService(db, NewNotificationService(db)), author, voter, post
}

func TestVoteUpThenSwitchDown(t *testing.T) {
	db, svc, author, voter, post := newVoteFixture(t)
	ctx := context.Background()

	res, err := svc.Vote(ctx, voter.ID, models.TargetPost, post.ID, models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1, res.VoteCount)
	assert.Equal(t, VoteCreated, res.Outcome)
	require.NotNil(t, res.UserVote)
	assert.Equal(t, models.VoteUp, *res.UserVote)
	assert.Equal(t, 10, testutil.Reload[models.User](t, db, author.ID).Reputation)

	testutil.SetReputation(t, db, author.ID, 100)
	res, err = svc.Vote(ctx, voter.ID, models.TargetPost, post.ID, models.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, -1, res.VoteCount)
	assert.Equal(t, VoteSwitched, res.Outcome)
	// -2 for the downvote, -10 for the upvote it replaced
	assert.Equal(t, 88, testutil.Reload[models.User](t, db, author.ID).Reputation)
	assert.Equal(t, -1, testutil.Reload[models.Post](t, db, post.ID).VoteCount)

	var n int64
	db.Model(&models.Vote{}).Count(&n)
	assert.Equal(t, int64(1), n)
}

func TestVoteToggleRoundTrip(t *testing.T) {
	db, svc, author, voter, post := newVoteFixture(t)
	ctx := context.Background()
	testutil.SetReputation(t, db, author.ID, 100)

	_, err := svc.Vote(ctx, voter.ID, models.TargetPost, post.ID, models.VoteDown)
	require.NoError(t, err)
	res, err := svc.Vote(ctx, voter.ID, models.TargetPost, post.ID, models.VoteDown)
	require.NoError(t, err)

	assert.Equal(t, VoteToggledOff, res.Outcome)
	assert.Nil(t, res.UserVote)
	assert.Equal(t, 0, res.VoteCount)
	assert.Equal(t, 100, testutil.Reload[models.User](t, db, author.ID).Reputation)

	var n int64
	db.Model(&models.Vote{}).Count(&n)
	assert.Zero(t, n)
}

func TestVoteOnOwnContentRejected(t *testing.T) {
	db, svc, author, _, post := newVoteFixture(t)

	_, err := svc.Vote(context.Background(), author.ID, models.TargetPost, post.ID, models.VoteUp)
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrForbidden))
	assert.Equal(t, 0, testutil.Reload[models.Post](t, db, post.ID).VoteCount)
}

func TestVoteOnCommentUsesCommentPoints(t *testing.T) {
	db, svc, author, voter, post := newVoteFixture(t)
	answer := testutil.CreateComment(t, db, post, voter, "use make(chan T)")

	res, err := svc.Vote(context.Background(), author.ID, models.TargetComment, answer.ID, models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1, res.VoteCount)
	assert.Equal(t, 5, testutil.Reload[models.User](t, db, voter.ID).Reputation)
}

func TestVoteMissingTarget(t *testing.T) {
	_, svc, _, voter, _ := newVoteFixture(t)

	_, err := svc.Vote(context.Background(), voter.ID, models.TargetComment, 4242, models.VoteUp)
	assert.True(t, errors.Is(err, utils.ErrNotFound))
}

func TestVoteRejectsBadInput(t *testing.T) {
	_, svc, _, voter, post := newVoteFixture(t)

	_, err := svc.Vote(context.Background(), voter.ID, models.TargetPost, post.ID, "SIDEWAYS")
	assert.True(t, errors.Is(err, utils.ErrValidation))
	_, err = svc.Vote(context.Background(), voter.ID, models.TargetUser, post.ID, models.VoteUp)
	assert.True(t, errors.Is(err, utils.ErrValidation))
}

func TestVoteRollsBackWhenReputationFails(t *testing.T) {
	db, svc, author, voter, post := newVoteFixture(t)
	// Author vanishes: the vote row and tally must not survive the failed transaction.
	require.NoError(t, db.Delete(&models.User{}, author.ID).Error)

	_, err := svc.Vote(context.Background(), voter.ID, models.TargetPost, post.ID, models.VoteUp)
	assert.True(t, errors.Is(err, utils.ErrNotFound))

	var n int64
	db.Model(&models.Vote{}).Count(&n)
	assert.Zero(t, n)
	assert.Equal(t, 0, testutil.Reload[models.Post](t, db, post.ID).VoteCount)
}

func TestRemoveVote(t *testing.T) {
	db, svc, author, voter, post := newVoteFixture(t)
	ctx := context.Background()

	res, err := svc.RemoveVote(ctx, voter.ID, models.TargetPost, post.ID)
	require.NoError(t, err)
	assert.Equal(t, VoteUnchanged, res.Outcome)
	assert.Equal(t, 0, res.VoteCount)
	assert.Zero(t, testutil.Reload[models.User](t, db, author.ID).Reputation)

	_, err = svc.Vote(ctx, voter.ID, models.TargetPost, post.ID, models.VoteUp)
	require.NoError(t, err)
	res, err = svc.RemoveVote(ctx, voter.ID, models.TargetPost, post.ID)
	require.NoError(t, err)
	assert.Equal(t, VoteRemoved, res.Outcome)
	assert.Equal(t, 0, res.VoteCount)
	assert.Equal(t, 0, testutil.Reload[models.User](t, db, author.ID).Reputation)
}

func TestVoteHiddenContentNotFound(t *testing.T) {
	db, svc, _, voter, post := newVoteFixture(t)
	require.NoError(t, db.Model(post).Update("is_hidden", true).Error)

	_, err := svc.Vote(context.Background(), voter.ID, models.TargetPost, post.ID, models.VoteUp)
	assert.True(t, errors.Is(err, utils.ErrNotFound))
}

func TestVoteNotifiesAuthor(t *testing.T) {
	db, svc, author, voter, post := newVoteFixture(t)
	testutil.SetReputation(t, db, author.ID, 45)

	_, err := svc.Vote(context.Background(), voter.ID, models.TargetPost, post.ID, models.VoteUp)
	require.NoError(t, err)

	var types []models.NotificationType
	require.NoError(t, db.Model(&models.Notification{}).Where("user_id = ?", author.ID).
		Order("id").Pluck("type", &types).Error)
	assert.Equal(t, []models.NotificationType{models.NotifyVote, models.NotifyLevelChanged}, types)
}

func TestConcurrentFirstVoteIsConflict(t *testing.T) {
	db, svc, author, voter, post := newVoteFixture(t)

	// A competing first vote commits between the lookup and the insert.
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:vote_race", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "votes" {
			_ = tx.AddError(gorm.ErrDuplicatedKey)
		}
	}))
	defer func() { _ = db.Callback().Create().Remove("test:vote_race") }()

	_, err := svc.Vote(context.Background(), voter.ID, models.TargetPost, post.ID, models.VoteUp)
	assert.ErrorIs(t, err, utils.ErrConflict)
	assert.Zero(t, testutil.Reload[models.Post](t, db, post.ID).VoteCount)
	assert.Zero(t, testutil.Reload[models.User](t, db, author.ID).Reputation)
}
