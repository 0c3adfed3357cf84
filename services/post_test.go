package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/testutil"
	"github.com/cppla/qaforum/utils"
)

func newPostService(db *gorm.DB) *PostService {
	notifier := NewNotificationService(db)
	return NewPostService(db, NewVoteService(db, notifier), NewModerationService(db, notifier), notifier)
}

func TestCreateAndListPosts(t *testing.T) {
	db := testutil.NewDB(t)
	author := testutil.CreateUser(t, db, "author")
	svc := newPostService(db)
	ctx := context.Background()

	created, err := svc.CreatePost(ctx, author, PostInput{
		Title: "Goroutine leak?", Content: "<p>help</p><script>alert(1)</script>", Tags: []string{"Go", "concurrency", "go"},
	})
	require.NoError(t, err)
	assert.Equal(t, "<p>help</p>", created.Content)
	require.Len(t, created.Tags, 2)

	_, err = svc.CreatePost(ctx, author, PostInput{Title: "other", Content: "x", Tags: []string{"go"}})
	require.NoError(t, err)

	items, total, err := svc.ListPosts(ctx, nil, PostQuery{Tag: "concurrency"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "author", items[0].Author.Username)

	tags, err := svc.ListTags(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, tags)
	assert.Equal(t, "go", tags[0].Name)
	assert.Equal(t, 2, tags[0].PostCount)

	_, err = svc.CreatePost(ctx, author, PostInput{Title: " ", Content: "x"})
	assert.ErrorIs(t, err, utils.ErrValidation)
	_, err = svc.CreatePost(ctx, author, PostInput{Title: "t", Content: "x", Tags: []string{"bad tag!"}})
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestHiddenPostVisibility(t *testing.T) {
	db := testutil.NewDB(t)
	author := testutil.CreateUser(t, db, "author")
	reader := testutil.CreateUser(t, db, "reader")
	mod := testutil.CreateUser(t, db, "mod", models.RoleModerator)
	post := testutil.CreatePost(t, db, author, "hidden")
	require.NoError(t, db.Model(post).Update("is_hidden", true).Error)
	svc := newPostService(db)
	ctx := context.Background()

	_, err := svc.GetPost(ctx, reader, post.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = svc.GetPost(ctx, nil, post.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = svc.GetPost(ctx, mod, post.ID)
	assert.NoError(t, err)
	_, err = svc.GetPost(ctx, author, post.ID)
	assert.NoError(t, err)

	_, total, err := svc.ListPosts(ctx, reader, PostQuery{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCommentRules(t *testing.T) {
	db := testutil.NewDB(t)
	author := testutil.CreateUser(t, db, "author")
	other := testutil.CreateUser(t, db, "other")
	stranger := testutil.CreateUser(t, db, "stranger")
	post := testutil.CreatePost(t, db, author, "q")
	svc := newPostService(db)
	ctx := context.Background()

	c, err := svc.CreateComment(ctx, other, post.ID, "an answer")
	require.NoError(t, err)
	assert.Equal(t, 1, testutil.Reload[models.Post](t, db, post.ID).CommentCount)
	assert.Equal(t, int64(1), countRows(t, db, &models.Notification{}, "user_id = ? AND type = ?", author.ID, models.NotifyComment))

	err = svc.DeleteComment(ctx, stranger, c.ID)
	assert.ErrorIs(t, err, utils.ErrForbidden)
	assert.Equal(t, int64(1), countRows(t, db, &models.Comment{}, ""))

	_, err = svc.UpdateComment(ctx, stranger, c.ID, "hijack")
	assert.ErrorIs(t, err, utils.ErrForbidden)

	require.NoError(t, db.Model(post).Update("is_locked", true).Error)
	_, err = svc.CreateComment(ctx, other, post.ID, "late answer")
	assert.ErrorIs(t, err, utils.ErrForbidden)

	require.NoError(t, svc.DeleteComment(ctx, other, c.ID))
	assert.Zero(t, countRows(t, db, &models.Comment{}, ""))
	assert.Equal(t, 0, testutil.Reload[models.Post](t, db, post.ID).CommentCount)
}

func TestDeletingAcceptedAnswerRevertsBonuses(t *testing.T) {
	db := testutil.NewDB(t)
	asker := testutil.CreateUser(t, db, "asker")
	helper := testutil.CreateUser(t, db, "helper")
	post := testutil.CreatePost(t, db, asker, "q")
	c := testutil.CreateComment(t, db, post, helper, "a")
	ctx := context.Background()

	_, err := NewAnswerService(db, nil).AcceptAnswer(ctx, asker.ID, c.ID)
	require.NoError(t, err)
	require.NoError(t, newPostService(db).DeleteComment(ctx, helper, c.ID))

	assert.Equal(t, 0, testutil.Reload[models.User](t, db, helper.ID).Reputation)
	assert.Equal(t, 0, testutil.Reload[models.User](t, db, asker.ID).Reputation)
}

func TestDeletingPostRevertsAcceptedAnswer(t *testing.T) {
	db := testutil.NewDB(t)
	asker := testutil.CreateUser(t, db, "asker")
	helper := testutil.CreateUser(t, db, "helper")
	post := testutil.CreatePost(t, db, asker, "q")
	c := testutil.CreateComment(t, db, post, helper, "a")
	testutil.SetReputation(t, db, helper.ID, 60)
	ctx := context.Background()

	_, err := NewAnswerService(db, nil).AcceptAnswer(ctx, asker.ID, c.ID)
	require.NoError(t, err)
	require.NoError(t, newPostService(db).DeletePost(ctx, asker, post.ID))

	got := testutil.Reload[models.User](t, db, helper.ID)
	assert.Equal(t, 60, got.Reputation)
	assert.Equal(t, models.LevelMember, got.Level)
	assert.Equal(t, 0, testutil.Reload[models.User](t, db, asker.ID).Reputation)
	assert.Zero(t, countRows(t, db, &models.Comment{}, ""))
}

func TestStaffDeleteIsAudited(t *testing.T) {
	db := testutil.NewDB(t)
	author := testutil.CreateUser(t, db, "author")
	mod := testutil.CreateUser(t, db, "mod", models.RoleModerator)
	post := testutil.CreatePost(t, db, author, "q")
	reportTimes(t, db, 2, models.TargetPost, post.ID, "r")

	require.NoError(t, newPostService(db).DeletePost(context.Background(), mod, post.ID))

	assert.Zero(t, countRows(t, db, &models.Post{}, ""))
	assert.Equal(t, int64(1), countRows(t, db, &models.ModeratorAction{}, "action_type = ?", models.ActionDeletePost))
	assert.Equal(t, int64(2), countRows(t, db, &models.Report{}, "status = ?", models.ReportResolved))
}

func TestUpdatePostReplacesTags(t *testing.T) {
	db := testutil.NewDB(t)
	author := testutil.CreateUser(t, db, "author")
	other := testutil.CreateUser(t, db, "other")
	svc := newPostService(db)
	ctx := context.Background()

	created, err := svc.CreatePost(ctx, author, PostInput{Title: "t", Content: "c", Tags: []string{"go"}})
	require.NoError(t, err)

	title := "new title"
	_, err = svc.UpdatePost(ctx, other, created.ID, PostUpdateInput{Title: &title})
	assert.ErrorIs(t, err, utils.ErrForbidden)

	updated, err := svc.UpdatePost(ctx, author, created.ID, PostUpdateInput{Title: &title, Tags: []string{"rust"}})
	require.NoError(t, err)
	assert.Equal(t, "new title", updated.Title)
	require.Len(t, updated.Tags, 1)
	assert.Equal(t, "rust", updated.Tags[0].Name)

	var goTag models.Tag
	require.NoError(t, db.Where("name = ?", "go").First(&goTag).Error)
	assert.Equal(t, 0, goTag.PostCount)
}

func TestPublicProfile(t *testing.T) {
	db := testutil.NewDB(t)
	author := testutil.CreateUser(t, db, "author")
	testutil.CreatePost(t, db, author, "one")
	testutil.CreatePost(t, db, author, "two")

	profile, err := newPostService(db).PublicProfile(context.Background(), author.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), profile.PostCount)
	assert.Equal(t, "author", profile.Username)

	_, err = newPostService(db).PublicProfile(context.Background(), 404)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}
