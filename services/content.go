package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/utils"
)

// contentRef is the part of a post or comment that voting, reporting and moderation
// care about.
type contentRef struct {
	Type      models.TargetType
	ID        uint
	AuthorID  uint
	PostID    uint // the post itself, or the parent of a comment
	Hidden    bool
	Locked    bool
	Accepted  bool
	Title     string
	Body      string
	CreatedAt time.Time

	// Filled in by delete effects.
	childComments []uint
	changes       []*ReputationChange
}

func targetEntity(t models.TargetType) string {
	switch t {
	case models.TargetPost:
		return "post"
	case models.TargetComment:
		return "comment"
	case models.TargetUser:
		return "user"
	}
	return "target"
}

// loadContent locks and returns a post or comment. Missing rows are NotFound.
func loadContent(tx *gorm.DB, t models.TargetType, id uint) (*contentRef, error) {
	locked := tx.Clauses(clause.Locking{Strength: "UPDATE"})
	switch t {
	case models.TargetPost:
		var p models.Post
		if err := locked.First(&p, id).Error; err != nil {
			return nil, notFoundOr(err, "post")
		}
		return &contentRef{
			Type: t, ID: p.ID, AuthorID: p.UserID, PostID: p.ID,
			Hidden: p.IsHidden, Locked: p.IsLocked,
			Title: p.Title, Body: p.Content, CreatedAt: p.CreatedAt,
		}, nil
	case models.TargetComment:
		var c models.Comment
		if err := locked.First(&c, id).Error; err != nil {
			return nil, notFoundOr(err, "comment")
		}
		return &contentRef{
			Type: t, ID: c.ID, AuthorID: c.UserID, PostID: c.PostID,
			Hidden: c.IsHidden, Accepted: c.IsAccepted,
			Body: c.Content, CreatedAt: c.CreatedAt,
		}, nil
	}
	return nil, utils.NewValidationError("unsupported target type %q", t)
}

func notFoundOr(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NewNotFoundError(entity)
	}
	return err
}

func contentLink(t models.TargetType, id, postID uint) string {
	if t == models.TargetComment {
		return fmt.Sprintf("/posts/%d#comment-%d", postID, id)
	}
	return fmt.Sprintf("/posts/%d", id)
}

// revokeAcceptance clears the accepted flag on c and takes back both bonuses.
func revokeAcceptance(tx *gorm.DB, c *models.Comment, postAuthorID uint) ([]*ReputationChange, error) {
	if err := tx.Model(&models.Comment{}).Where("id = ?", c.ID).Update("is_accepted", false).Error; err != nil {
		return nil, err
	}
	c.IsAccepted = false
	answerer, err := ApplyDelta(tx, c.UserID, -PointsFor(KindAnswerAccepted))
	if err != nil {
		return nil, err
	}
	asker, err := ApplyDelta(tx, postAuthorID, -PointsFor(KindAcceptedAnswer))
	if err != nil {
		return nil, err
	}
	return []*ReputationChange{answerer, asker}, nil
}

// deleteCommentTx removes a comment with its votes and keeps the parent counter right.
// An accepted comment gives back its bonuses first.
func deleteCommentTx(tx *gorm.DB, commentID uint) ([]*ReputationChange, error) {
	var c models.Comment
	if err := tx.First(&c, commentID).Error; err != nil {
		return nil, notFoundOr(err, "comment")
	}
	var changes []*ReputationChange
	if c.IsAccepted {
		var post models.Post
		if err := tx.Select("id", "user_id").First(&post, c.PostID).Error; err != nil {
			return nil, notFoundOr(err, "post")
		}
		var err error
		if changes, err = revokeAcceptance(tx, &c, post.UserID); err != nil {
			return nil, err
		}
	}
	if err := tx.Where("target_type = ? AND target_id = ?", models.TargetComment, c.ID).
		Delete(&models.Vote{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Delete(&models.Comment{}, c.ID).Error; err != nil {
		return nil, err
	}
	err := tx.Model(&models.Post{}).Where("id = ? AND comment_count > 0", c.PostID).
		UpdateColumn("comment_count", gorm.Expr("comment_count - 1")).Error
	return changes, err
}

// deletePostTx removes a post together with its comments, votes and tag links. The ids
// of the removed comments are returned so the caller can close their reports, along with
// the reputation changes from taking back an accepted answer's bonuses.
func deletePostTx(tx *gorm.DB, postID uint) ([]uint, []*ReputationChange, error) {
	var post models.Post
	if err := tx.Preload("Tags").First(&post, postID).Error; err != nil {
		return nil, nil, notFoundOr(err, "post")
	}
	var changes []*ReputationChange
	var accepted models.Comment
	err := tx.Where("post_id = ? AND is_accepted = ?", post.ID, true).Limit(1).Find(&accepted).Error
	if err != nil {
		return nil, nil, err
	}
	if accepted.ID != 0 {
		if changes, err = revokeAcceptance(tx, &accepted, post.UserID); err != nil {
			return nil, nil, err
		}
	}
	var commentIDs []uint
	if err := tx.Model(&models.Comment{}).Where("post_id = ?", post.ID).Pluck("id", &commentIDs).Error; err != nil {
		return nil, nil, err
	}
	if len(commentIDs) > 0 {
		if err := tx.Where("target_type = ? AND target_id IN ?", models.TargetComment, commentIDs).
			Delete(&models.Vote{}).Error; err != nil {
			return nil, nil, err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return nil, nil, err
		}
	}
	if err := tx.Where("target_type = ? AND target_id = ?", models.TargetPost, post.ID).
		Delete(&models.Vote{}).Error; err != nil {
		return nil, nil, err
	}
	if len(post.Tags) > 0 {
		tagIDs := make([]uint, 0, len(post.Tags))
		for _, t := range post.Tags {
			tagIDs = append(tagIDs, t.ID)
		}
		if err := tx.Model(&models.Tag{}).Where("id IN ? AND post_count > 0", tagIDs).
			UpdateColumn("post_count", gorm.Expr("post_count - 1")).Error; err != nil {
			return nil, nil, err
		}
		if err := tx.Model(&post).Association("Tags").Clear(); err != nil {
			return nil, nil, err
		}
	}
	if err := tx.Delete(&models.Post{}, post.ID).Error; err != nil {
		return nil, nil, err
	}
	return commentIDs, changes, nil
}

func invalidatePostCaches(postIDs ...uint) {
	postIDs = utils.UniqueUint(postIDs)
	keys := make([]string, 0, len(postIDs))
	for _, id := range postIDs {
		keys = append(keys, fmt.Sprintf("%s%d", utils.CachePostDetailPrefix, id))
	}
	utils.CacheDelete(keys...)
	utils.InvalidateByPrefix(utils.CachePostListPrefix)
}
