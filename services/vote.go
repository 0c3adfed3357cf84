package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/utils"
)

// Vote transition outcomes, also used as the metrics label.
const (
	VoteCreated    = "created"
	VoteToggledOff = "toggled_off"
	VoteSwitched   = "switched"
	VoteRemoved    = "removed"
	VoteUnchanged  = "unchanged"
)

// VoteResult is the state of a target after a vote transition.
type VoteResult struct {
	TargetType models.TargetType `json:"target_type"`
	TargetID   uint              `json:"target_id"`
	VoteCount  int               `json:"vote_count"`
	UserVote   *models.VoteValue `json:"user_vote"`
	Outcome    string            `json:"outcome"`
}

// VoteService runs the per-user vote state machine and its reputation side effects.
type VoteService struct {
	db       *gorm.DB
	notifier *NotificationService
}

func NewVoteService(db *gorm.DB, notifier *NotificationService) *VoteService {
	return &VoteService{db: db, notifier: notifier}
}

// Vote applies value to the target for voterID:
//
//	no vote        -> create, tally += delta, author += points(value)
//	same value     -> delete (toggle off), tally -= delta, author -= points(value)
//	opposite value -> update, tally += 2*delta, author += points(new) - points(old)
//
// Tally, vote row and reputation change commit together or not at all.
func (s *VoteService) Vote(ctx context.Context, voterID uint, targetType models.TargetType, targetID uint, value models.VoteValue) (*VoteResult, error) {
	if value != models.VoteUp && value != models.VoteDown {
		return nil, utils.NewValidationError("vote value must be UP or DOWN")
	}
	if targetType != models.TargetPost && targetType != models.TargetComment {
		return nil, utils.NewValidationError("only posts and comments can be voted on")
	}

	result := &VoteResult{TargetType: targetType, TargetID: targetID}
	var change *ReputationChange
	var target *contentRef

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if target, err = loadContent(tx, targetType, targetID); err != nil {
			return err
		}
		if target.Hidden {
			return utils.NewNotFoundError(targetEntity(targetType))
		}
		if target.AuthorID == voterID {
			return utils.NewAuthorizationError("you cannot vote on your own content")
		}

		existing, err := findVote(tx, voterID, targetType, targetID)
		if err != nil {
			return err
		}

		var tallyDelta, repDelta int
		switch {
		case existing == nil:
			if err := tx.Create(&models.Vote{
				UserID: voterID, TargetType: targetType, TargetID: targetID, Value: value,
			}).Error; err != nil {
				return err
			}
			tallyDelta = value.Delta()
			repDelta = PointsFor(voteKind(targetType, value))
			result.Outcome = VoteCreated
			result.UserVote = &value
		case existing.Value == value:
			if err := tx.Delete(&models.Vote{}, existing.ID).Error; err != nil {
				return err
			}
			tallyDelta = -value.Delta()
			repDelta = -PointsFor(voteKind(targetType, value))
			result.Outcome = VoteToggledOff
		default:
			if err := tx.Model(&models.Vote{}).Where("id = ?", existing.ID).Update("value", value).Error; err != nil {
				return err
			}
			tallyDelta = 2 * value.Delta()
			repDelta = PointsFor(voteKind(targetType, value)) - PointsFor(voteKind(targetType, existing.Value))
			result.Outcome = VoteSwitched
			result.UserVote = &value
		}

		if result.VoteCount, err = adjustTally(tx, targetType, targetID, tallyDelta); err != nil {
			return err
		}
		change, err = ApplyDelta(tx, target.AuthorID, repDelta)
		return err
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, utils.NewConflictError("a vote on this " + targetEntity(targetType) + " is already being recorded")
	}
	if err != nil {
		return nil, err
	}

	utils.VotesCast.WithLabelValues(string(targetType), result.Outcome).Inc()
	if result.Outcome != VoteToggledOff {
		s.notifier.Notify(ctx, target.AuthorID, models.NotifyVote,
			fmt.Sprintf("Your %s received a vote", targetEntity(targetType)),
			contentLink(targetType, targetID, target.PostID))
	}
	s.notifier.NotifyLevelChanges(ctx, change)
	invalidatePostCaches(target.PostID)
	return result, nil
}

// RemoveVote deletes the voter's vote on the target and reverses its effects. Having no
// vote to remove changes nothing and reports the current tally.
func (s *VoteService) RemoveVote(ctx context.Context, voterID uint, targetType models.TargetType, targetID uint) (*VoteResult, error) {
	if targetType != models.TargetPost && targetType != models.TargetComment {
		return nil, utils.NewValidationError("only posts and comments can be voted on")
	}
	result := &VoteResult{TargetType: targetType, TargetID: targetID, Outcome: VoteRemoved}
	var change *ReputationChange
	var target *contentRef

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if target, err = loadContent(tx, targetType, targetID); err != nil {
			return err
		}
		existing, err := findVote(tx, voterID, targetType, targetID)
		if err != nil {
			return err
		}
		if existing == nil {
			result.Outcome = VoteUnchanged
			result.VoteCount, err = readTally(tx, targetType, targetID)
			return err
		}
		if err := tx.Delete(&models.Vote{}, existing.ID).Error; err != nil {
			return err
		}
		if result.VoteCount, err = adjustTally(tx, targetType, targetID, -existing.Value.Delta()); err != nil {
			return err
		}
		change, err = ApplyDelta(tx, target.AuthorID, -PointsFor(voteKind(targetType, existing.Value)))
		return err
	})
	if err != nil {
		return nil, err
	}

	if result.Outcome == VoteUnchanged {
		return result, nil
	}
	utils.VotesCast.WithLabelValues(string(targetType), result.Outcome).Inc()
	s.notifier.NotifyLevelChanges(ctx, change)
	invalidatePostCaches(target.PostID)
	return result, nil
}

// UserVotes returns the viewer's votes on the given targets keyed by target id.
func (s *VoteService) UserVotes(ctx context.Context, voterID uint, targetType models.TargetType, targetIDs []uint) (map[uint]models.VoteValue, error) {
	out := make(map[uint]models.VoteValue, len(targetIDs))
	if voterID == 0 || len(targetIDs) == 0 {
		return out, nil
	}
	var votes []models.Vote
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND target_type = ? AND target_id IN ?", voterID, targetType, targetIDs).
		Find(&votes).Error
	for _, v := range votes {
		out[v.TargetID] = v.Value
	}
	return out, err
}

func findVote(tx *gorm.DB, voterID uint, targetType models.TargetType, targetID uint) (*models.Vote, error) {
	var v models.Vote
	err := tx.Where("user_id = ? AND target_type = ? AND target_id = ?", voterID, targetType, targetID).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// adjustTally moves the cached vote_count and returns the new value.
func tallyModel(targetType models.TargetType) interface{} {
	if targetType == models.TargetComment {
		return &models.Comment{}
	}
	return &models.Post{}
}

func adjustTally(tx *gorm.DB, targetType models.TargetType, targetID uint, delta int) (int, error) {
	if err := tx.Model(tallyModel(targetType)).Where("id = ?", targetID).
		UpdateColumn("vote_count", gorm.Expr("vote_count + ?", delta)).Error; err != nil {
		return 0, err
	}
	return readTally(tx, targetType, targetID)
}

func readTally(tx *gorm.DB, targetType models.TargetType, targetID uint) (int, error) {
	var count int
	err := tx.Model(tallyModel(targetType)).Where("id = ?", targetID).Select("vote_count").Scan(&count).Error
	return count, err
}
