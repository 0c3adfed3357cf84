package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/utils"
)

// AnswerService maintains the one-accepted-answer-per-post rule.
type AnswerService struct {
	db       *gorm.DB
	notifier *NotificationService
}

func NewAnswerService(db *gorm.DB, notifier *NotificationService) *AnswerService {
	return &AnswerService{db: db, notifier: notifier}
}

// AcceptAnswer marks commentID as the accepted answer of its post. Only the post author
// may accept, never their own comment. A previously accepted comment is unaccepted and
// its bonuses reverted in the same transaction. Accepting the current answer again is a
// no-op.
func (s *AnswerService) AcceptAnswer(ctx context.Context, userID, commentID uint) (*models.Comment, error) {
	var comment models.Comment
	var changes []*ReputationChange
	var newlyAccepted bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := s.lockParent(tx, commentID, &comment)
		if err != nil {
			return err
		}
		if post.UserID != userID {
			return utils.NewAuthorizationError("only the question author can accept an answer")
		}
		if comment.UserID == userID {
			return utils.NewValidationError("you cannot accept your own answer")
		}
		if comment.IsHidden {
			return utils.NewValidationError("hidden answers cannot be accepted")
		}
		if comment.IsAccepted {
			return nil
		}

		var previous models.Comment
		err = tx.Where("post_id = ? AND is_accepted = ?", post.ID, true).First(&previous).Error
		switch {
		case err == nil:
			reverted, err := revokeAcceptance(tx, &previous, post.UserID)
			if err != nil {
				return err
			}
			changes = append(changes, reverted...)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		if err := tx.Model(&models.Comment{}).Where("id = ?", comment.ID).Update("is_accepted", true).Error; err != nil {
			return err
		}
		comment.IsAccepted = true
		answerer, err := ApplyDelta(tx, comment.UserID, PointsFor(KindAnswerAccepted))
		if err != nil {
			return err
		}
		asker, err := ApplyDelta(tx, post.UserID, PointsFor(KindAcceptedAnswer))
		if err != nil {
			return err
		}
		changes = append(changes, answerer, asker)
		newlyAccepted = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if newlyAccepted {
		s.notifier.Notify(ctx, comment.UserID, models.NotifyAnswerAccepted,
			"Your answer was accepted", contentLink(models.TargetComment, comment.ID, comment.PostID))
		s.notifier.NotifyLevelChanges(ctx, changes...)
		invalidatePostCaches(comment.PostID)
	}
	return &comment, nil
}

// UnacceptAnswer clears the accepted flag and reverts both bonuses. Clearing a comment
// that is not accepted is a no-op.
func (s *AnswerService) UnacceptAnswer(ctx context.Context, userID, commentID uint) (*models.Comment, error) {
	var comment models.Comment
	var changes []*ReputationChange

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := s.lockParent(tx, commentID, &comment)
		if err != nil {
			return err
		}
		if post.UserID != userID {
			return utils.NewAuthorizationError("only the question author can unaccept an answer")
		}
		if !comment.IsAccepted {
			return nil
		}
		changes, err = revokeAcceptance(tx, &comment, post.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(changes) > 0 {
		s.notifier.NotifyLevelChanges(ctx, changes...)
		invalidatePostCaches(comment.PostID)
	}
	return &comment, nil
}

// lockParent loads the comment and locks its post row, serializing acceptance per post.
func (s *AnswerService) lockParent(tx *gorm.DB, commentID uint, comment *models.Comment) (*models.Post, error) {
	if err := tx.First(comment, commentID).Error; err != nil {
		return nil, notFoundOr(err, "comment")
	}
	var post models.Post
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "user_id", "is_hidden").First(&post, comment.PostID).Error; err != nil {
		return nil, notFoundOr(err, "post")
	}
	// Re-read under the post lock; another accept may have landed in between.
	if err := tx.First(comment, commentID).Error; err != nil {
		return nil, notFoundOr(err, "comment")
	}
	return &post, nil
}
