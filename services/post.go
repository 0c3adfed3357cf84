package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/utils"
)

const (
	maxTitleLength = 255
	maxTagsPerPost = 5
	postCacheTTL   = 2 * time.Minute
)

var tagPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9+#.\-]{0,31}$`)

// PostInput creates a post.
type PostInput struct {
	Title   string   `json:"title" binding:"required"`
	Content string   `json:"content" binding:"required"`
	Tags    []string `json:"tags"`
}

// PostUpdateInput edits a post; nil fields are unchanged and a nil Tags keeps the tags.
type PostUpdateInput struct {
	Title   *string  `json:"title"`
	Content *string  `json:"content"`
	Tags    []string `json:"tags"`
}

// PostQuery selects a page of posts.
type PostQuery struct {
	Page     int
	Limit    int
	Tag      string
	AuthorID uint
	Sort     string // "newest" (default), "votes" or "active"
}

// PostView is a post with its author snapshot and the viewer's vote.
type PostView struct {
	models.Post
	Author   models.PublicUser `json:"author"`
	UserVote *models.VoteValue `json:"user_vote,omitempty"`
}

// CommentView is a comment with its author snapshot and the viewer's vote.
type CommentView struct {
	models.Comment
	Author   models.PublicUser `json:"author"`
	UserVote *models.VoteValue `json:"user_vote,omitempty"`
}

// PostDetail is a post with its visible comments, accepted answer first.
type PostDetail struct {
	PostView
	Comments []CommentView `json:"comments"`
}

// UserProfile is the public view of an account.
type UserProfile struct {
	models.PublicUser
	Bio          string    `json:"bio"`
	CreatedAt    time.Time `json:"created_at"`
	PostCount    int64     `json:"post_count"`
	CommentCount int64     `json:"comment_count"`
}

type cachedPostPage struct {
	Items []PostView `json:"items"`
	Total int64      `json:"total"`
}

// PostService is the CRUD surface for posts, comments and tags.
type PostService struct {
	db         *gorm.DB
	votes      *VoteService
	moderation *ModerationService
	notifier   *NotificationService
}

func NewPostService(db *gorm.DB, votes *VoteService, moderation *ModerationService, notifier *NotificationService) *PostService {
	return &PostService{db: db, votes: votes, moderation: moderation, notifier: notifier}
}

func isStaff(u *models.User) bool {
	return u != nil && utils.IsStaff(u.Roles)
}

func viewerID(u *models.User) uint {
	if u == nil {
		return 0
	}
	return u.ID
}

// canSee reports whether viewer may see hidden content written by authorID.
func canSee(viewer *models.User, hidden bool, authorID uint) bool {
	return !hidden || isStaff(viewer) || viewerID(viewer) == authorID
}

func normalizeTags(raw []string) ([]string, error) {
	seen := map[string]bool{}
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		if !tagPattern.MatchString(t) {
			return nil, utils.NewValidationError("invalid tag %q", t)
		}
		seen[t] = true
		tags = append(tags, t)
	}
	if len(tags) > maxTagsPerPost {
		return nil, utils.NewValidationError("a post can have at most %d tags", maxTagsPerPost)
	}
	return tags, nil
}

func cleanTitle(title string) (string, error) {
	title = utils.SanitizeText(title)
	if title == "" {
		return "", utils.NewValidationError("title is required")
	}
	if len([]rune(title)) > maxTitleLength {
		return "", utils.NewValidationError("title must be at most %d characters", maxTitleLength)
	}
	return title, nil
}

func cleanBody(body, field string) (string, error) {
	body = strings.TrimSpace(utils.Sanitize(body))
	if body == "" {
		return "", utils.NewValidationError("%s is required", field)
	}
	return body, nil
}

// upsertTags returns tag rows for names, creating missing ones, and bumps their counters.
func upsertTags(tx *gorm.DB, names []string, delta int) ([]models.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows := make([]models.Tag, 0, len(names))
	for _, n := range names {
		rows = append(rows, models.Tag{Name: n})
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return nil, err
	}
	var tags []models.Tag
	if err := tx.Where("name IN ?", names).Find(&tags).Error; err != nil {
		return nil, err
	}
	if delta != 0 {
		if err := tx.Model(&models.Tag{}).Where("name IN ?", names).
			UpdateColumn("post_count", gorm.Expr("post_count + ?", delta)).Error; err != nil {
			return nil, err
		}
	}
	return tags, nil
}

// CreatePost stores a new post with its tags.
func (s *PostService) CreatePost(ctx context.Context, author *models.User, in PostInput) (*PostView, error) {
	title, err := cleanTitle(in.Title)
	if err != nil {
		return nil, err
	}
	content, err := cleanBody(in.Content, "content")
	if err != nil {
		return nil, err
	}
	tagNames, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	post := &models.Post{UserID: author.ID, Title: title, Content: content}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		tags, err := upsertTags(tx, tagNames, 1)
		if err != nil {
			return err
		}
		if len(tags) > 0 {
			if err := tx.Model(post).Association("Tags").Append(tags); err != nil {
				return err
			}
		}
		post.Tags = tags
		return nil
	})
	if err != nil {
		return nil, err
	}
	utils.InvalidateByPrefix(utils.CachePostListPrefix)
	utils.InvalidateByPrefix(utils.CacheTagListKey)
	if post.Tags == nil {
		post.Tags = []models.Tag{}
	}
	return &PostView{Post: *post, Author: author.Public()}, nil
}

// UpdatePost lets the author edit title, content and tags.
func (s *PostService) UpdatePost(ctx context.Context, actor *models.User, postID uint, in PostUpdateInput) (*PostView, error) {
	updates := map[string]interface{}{}
	if in.Title != nil {
		title, err := cleanTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		updates["title"] = title
	}
	if in.Content != nil {
		content, err := cleanBody(*in.Content, "content")
		if err != nil {
			return nil, err
		}
		updates["content"] = content
	}
	var tagNames []string
	if in.Tags != nil {
		var err error
		if tagNames, err = normalizeTags(in.Tags); err != nil {
			return nil, err
		}
	}

	var post models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Tags").First(&post, postID).Error; err != nil {
			return notFoundOr(err, "post")
		}
		if post.UserID != actor.ID {
			return utils.NewAuthorizationError("only the author can edit this post")
		}
		if post.IsLocked && !isStaff(actor) {
			return utils.NewAuthorizationError("post is locked")
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		if in.Tags == nil {
			return tx.Preload("Tags").First(&post, post.ID).Error
		}
		old := make([]string, 0, len(post.Tags))
		for _, t := range post.Tags {
			old = append(old, t.Name)
		}
		if _, err := upsertTags(tx, old, -1); err != nil {
			return err
		}
		tags, err := upsertTags(tx, tagNames, 1)
		if err != nil {
			return err
		}
		if tags == nil {
			tags = []models.Tag{}
		}
		if err := tx.Model(&post).Association("Tags").Replace(tags); err != nil {
			return err
		}
		return tx.Preload("Tags").First(&post, post.ID).Error
	})
	if err != nil {
		return nil, err
	}
	invalidatePostCaches(post.ID)
	utils.InvalidateByPrefix(utils.CacheTagListKey)
	return &PostView{Post: post, Author: actor.Public()}, nil
}

// DeletePost removes a post. Authors delete their own; staff deleting someone else's
// post go through the moderation executor so the action is audited.
func (s *PostService) DeletePost(ctx context.Context, actor *models.User, postID uint) error {
	var post models.Post
	if err := s.db.WithContext(ctx).Select("id", "user_id").First(&post, postID).Error; err != nil {
		return notFoundOr(err, "post")
	}
	if post.UserID != actor.ID {
		if !isStaff(actor) {
			return utils.NewAuthorizationError("you cannot delete this post")
		}
		_, err := s.moderation.TakeAction(ctx, actor.ID, ActionInput{
			TargetID: post.ID, TargetType: models.TargetPost, ActionType: models.ActionDeletePost,
		})
		return err
	}
	var changes []*ReputationChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentIDs, revoked, err := deletePostTx(tx, post.ID)
		if err != nil {
			return err
		}
		changes = revoked
		if _, err := settleReports(tx, actor.ID, models.ReportResolved, "deleted by author", models.TargetPost, []uint{post.ID}); err != nil {
			return err
		}
		if len(commentIDs) > 0 {
			_, err = settleReports(tx, actor.ID, models.ReportResolved, "deleted by author", models.TargetComment, commentIDs)
		}
		return err
	})
	if err != nil {
		return err
	}
	s.notifier.NotifyLevelChanges(ctx, changes...)
	invalidatePostCaches(post.ID)
	utils.InvalidateByPrefix(utils.CacheTagListKey)
	return nil
}

// GetPost returns a post and its comments as the viewer may see them.
func (s *PostService) GetPost(ctx context.Context, viewer *models.User, postID uint) (*PostDetail, error) {
	db := s.db.WithContext(ctx)
	var post models.Post
	if err := db.Preload("User").Preload("Tags").First(&post, postID).Error; err != nil {
		return nil, notFoundOr(err, "post")
	}
	if !canSee(viewer, post.IsHidden, post.UserID) {
		return nil, utils.NewNotFoundError("post")
	}

	q := db.Preload("User").Where("post_id = ?", post.ID)
	if !isStaff(viewer) {
		q = q.Where("is_hidden = ? OR user_id = ?", false, viewerID(viewer))
	}
	var comments []models.Comment
	if err := q.Order("is_accepted DESC, vote_count DESC, id ASC").Find(&comments).Error; err != nil {
		return nil, err
	}

	detail := &PostDetail{
		PostView: PostView{Post: post, Author: post.User.Public()},
		Comments: make([]CommentView, 0, len(comments)),
	}
	commentIDs := make([]uint, 0, len(comments))
	for _, c := range comments {
		commentIDs = append(commentIDs, c.ID)
	}
	postVotes, err := s.votes.UserVotes(ctx, viewerID(viewer), models.TargetPost, []uint{post.ID})
	if err != nil {
		return nil, err
	}
	commentVotes, err := s.votes.UserVotes(ctx, viewerID(viewer), models.TargetComment, commentIDs)
	if err != nil {
		return nil, err
	}
	if v, ok := postVotes[post.ID]; ok {
		detail.UserVote = &v
	}
	for _, c := range comments {
		cv := CommentView{Comment: c, Author: c.User.Public()}
		if v, ok := commentVotes[c.ID]; ok {
			cv.UserVote = &v
		}
		detail.Comments = append(detail.Comments, cv)
	}
	return detail, nil
}

// ListPosts pages visible posts. Anonymous listings are cached in Redis.
func (s *PostService) ListPosts(ctx context.Context, viewer *models.User, q PostQuery) ([]PostView, int64, error) {
	page := Page{Page: q.Page, Limit: q.Limit}.Normalize()
	q.Tag = strings.ToLower(strings.TrimSpace(q.Tag))

	cacheKey := fmt.Sprintf("%s%d:%d:%s:%d:%s", utils.CachePostListPrefix, page.Page, page.Limit, q.Tag, q.AuthorID, q.Sort)
	if viewer == nil {
		var cached cachedPostPage
		if utils.CacheGetJSON(cacheKey, &cached) {
			return cached.Items, cached.Total, nil
		}
	}

	tx := s.db.WithContext(ctx).Model(&models.Post{})
	if !isStaff(viewer) {
		tx = tx.Where("posts.is_hidden = ? OR posts.user_id = ?", false, viewerID(viewer))
	}
	if q.AuthorID != 0 {
		tx = tx.Where("posts.user_id = ?", q.AuthorID)
	}
	if q.Tag != "" {
		tx = tx.Joins("JOIN post_tags ON post_tags.post_id = posts.id").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where("tags.name = ?", q.Tag)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "posts.created_at DESC, posts.id DESC"
	switch q.Sort {
	case "votes":
		order = "posts.vote_count DESC, posts.id DESC"
	case "active":
		order = "posts.updated_at DESC, posts.id DESC"
	}
	var posts []models.Post
	if err := tx.Preload("User").Preload("Tags").
		Order(order).Offset(page.Offset()).Limit(page.Limit).
		Find(&posts).Error; err != nil {
		return nil, 0, err
	}

	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	votes, err := s.votes.UserVotes(ctx, viewerID(viewer), models.TargetPost, ids)
	if err != nil {
		return nil, 0, err
	}
	items := make([]PostView, 0, len(posts))
	for _, p := range posts {
		pv := PostView{Post: p, Author: p.User.Public()}
		if v, ok := votes[p.ID]; ok {
			pv.UserVote = &v
		}
		items = append(items, pv)
	}

	if viewer == nil {
		utils.CacheSetJSON(cacheKey, cachedPostPage{Items: items, Total: total}, postCacheTTL)
	}
	return items, total, nil
}

// CreateComment answers a post. Locked and hidden posts take no new comments.
func (s *PostService) CreateComment(ctx context.Context, author *models.User, postID uint, content string) (*CommentView, error) {
	body, err := cleanBody(content, "content")
	if err != nil {
		return nil, err
	}
	var post models.Post
	comment := &models.Comment{PostID: postID, UserID: author.ID, Content: body}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, postID).Error; err != nil {
			return notFoundOr(err, "post")
		}
		if post.IsHidden && !isStaff(author) {
			return utils.NewNotFoundError("post")
		}
		if post.IsLocked {
			return utils.NewAuthorizationError("post is locked")
		}
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}
	if post.UserID != author.ID {
		s.notifier.Notify(ctx, post.UserID, models.NotifyComment,
			fmt.Sprintf("%s answered your question", author.Username),
			contentLink(models.TargetComment, comment.ID, post.ID))
	}
	invalidatePostCaches(post.ID)
	return &CommentView{Comment: *comment, Author: author.Public()}, nil
}

// UpdateComment lets the author edit their comment.
func (s *PostService) UpdateComment(ctx context.Context, actor *models.User, commentID uint, content string) (*CommentView, error) {
	body, err := cleanBody(content, "content")
	if err != nil {
		return nil, err
	}
	var comment models.Comment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&comment, commentID).Error; err != nil {
			return notFoundOr(err, "comment")
		}
		if comment.UserID != actor.ID {
			return utils.NewAuthorizationError("only the author can edit this comment")
		}
		comment.Content = body
		return tx.Model(&models.Comment{}).Where("id = ?", comment.ID).Update("content", body).Error
	})
	if err != nil {
		return nil, err
	}
	invalidatePostCaches(comment.PostID)
	return &CommentView{Comment: comment, Author: actor.Public()}, nil
}

// DeleteComment removes a comment. Authors delete their own; staff go through the
// moderation executor; anyone else is refused without touching anything.
func (s *PostService) DeleteComment(ctx context.Context, actor *models.User, commentID uint) error {
	var comment models.Comment
	if err := s.db.WithContext(ctx).Select("id", "user_id", "post_id").First(&comment, commentID).Error; err != nil {
		return notFoundOr(err, "comment")
	}
	if comment.UserID != actor.ID {
		if !isStaff(actor) {
			return utils.NewAuthorizationError("you cannot delete this comment")
		}
		_, err := s.moderation.TakeAction(ctx, actor.ID, ActionInput{
			TargetID: comment.ID, TargetType: models.TargetComment, ActionType: models.ActionDeleteComment,
		})
		return err
	}

	var changes []*ReputationChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if changes, err = deleteCommentTx(tx, comment.ID); err != nil {
			return err
		}
		_, err = settleReports(tx, actor.ID, models.ReportResolved, "deleted by author", models.TargetComment, []uint{comment.ID})
		return err
	})
	if err != nil {
		return err
	}
	s.notifier.NotifyLevelChanges(ctx, changes...)
	invalidatePostCaches(comment.PostID)
	return nil
}

// ListTags returns the most used tags.
func (s *PostService) ListTags(ctx context.Context, limit int) ([]models.Tag, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	key := fmt.Sprintf("%s:%d", utils.CacheTagListKey, limit)
	var tags []models.Tag
	if utils.CacheGetJSON(key, &tags) {
		return tags, nil
	}
	tags = make([]models.Tag, 0, limit)
	if err := s.db.WithContext(ctx).Where("post_count > 0").
		Order("post_count DESC, name ASC").Limit(limit).Find(&tags).Error; err != nil {
		return nil, err
	}
	utils.CacheSetJSON(key, tags, postCacheTTL)
	return tags, nil
}

// PublicProfile returns a user's public card with activity counts.
func (s *PostService) PublicProfile(ctx context.Context, userID uint) (*UserProfile, error) {
	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	profile := &UserProfile{PublicUser: user.Public(), Bio: user.Bio, CreatedAt: user.CreatedAt}
	if err := db.Model(&models.Post{}).Where("user_id = ? AND is_hidden = ?", userID, false).Count(&profile.PostCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Comment{}).Where("user_id = ? AND is_hidden = ?", userID, false).Count(&profile.CommentCount).Error; err != nil {
		return nil, err
	}
	return profile, nil
}
