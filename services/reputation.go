package services

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/utils"
)

// ActionKind is an event that moves reputation.
type ActionKind string

const (
	KindPostUpvoted      ActionKind = "POST_UPVOTED"
	KindPostDownvoted    ActionKind = "POST_DOWNVOTED"
	KindCommentUpvoted   ActionKind = "COMMENT_UPVOTED"
	KindCommentDownvoted ActionKind = "COMMENT_DOWNVOTED"
	// KindAnswerAccepted is credited to the author of the accepted comment.
	KindAnswerAccepted ActionKind = "ANSWER_ACCEPTED"
	// KindAcceptedAnswer is credited to the post author who accepted it.
	KindAcceptedAnswer ActionKind = "ACCEPTED_ANSWER"
)

var reputationPoints = map[ActionKind]int{
	KindPostUpvoted:      10,
	KindPostDownvoted:    -2,
	KindCommentUpvoted:   5,
	KindCommentDownvoted: -2,
	KindAnswerAccepted:   15,
	KindAcceptedAnswer:   2,
}

// PointsFor returns the fixed reputation delta for kind. Unknown kinds are worth 0.
func PointsFor(kind ActionKind) int {
	return reputationPoints[kind]
}

// voteKind maps a vote on a target to its reputation event.
func voteKind(target models.TargetType, value models.VoteValue) ActionKind {
	switch {
	case target == models.TargetPost && value == models.VoteUp:
		return KindPostUpvoted
	case target == models.TargetPost:
		return KindPostDownvoted
	case value == models.VoteUp:
		return KindCommentUpvoted
	default:
		return KindCommentDownvoted
	}
}

// Ordered highest first; the first threshold reached wins.
var levelThresholds = []struct {
	min   int
	level models.Level
}{
	{5000, models.LevelExpert},
	{1000, models.LevelTrusted},
	{200, models.LevelContributor},
	{50, models.LevelMember},
	{0, models.LevelNewcomer},
}

// LevelFor derives the tier for a reputation score.
func LevelFor(reputation int) models.Level {
	for _, t := range levelThresholds {
		if reputation >= t.min {
			return t.level
		}
	}
	return models.LevelNewcomer
}

// ReputationChange describes the outcome of ApplyDelta.
type ReputationChange struct {
	UserID        uint
	Reputation    int
	Level         models.Level
	PreviousLevel models.Level
}

// LevelChanged reports whether the tier moved.
func (c *ReputationChange) LevelChanged() bool {
	return c != nil && c.Level != c.PreviousLevel
}

// ApplyDelta adds delta to the user's reputation, clamping at zero, and recomputes the
// level. It must run inside the caller's transaction. A missing user is a NotFound error
// so the enclosing transaction rolls back.
func ApplyDelta(tx *gorm.DB, userID uint, delta int) (*ReputationChange, error) {
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "reputation", "level").
		First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.L(tx.Statement.Context).Warnw("reputation target missing", "user_id", userID, "delta", delta)
		return nil, utils.NewNotFoundError("user")
	}
	if err != nil {
		return nil, err
	}

	change := &ReputationChange{
		UserID:        userID,
		Reputation:    user.Reputation + delta,
		PreviousLevel: user.Level,
	}
	if change.Reputation < 0 {
		change.Reputation = 0
	}
	change.Level = LevelFor(change.Reputation)

	if change.Reputation == user.Reputation && change.Level == user.Level {
		return change, nil
	}
	updates := map[string]interface{}{"reputation": change.Reputation}
	if change.Level != user.Level {
		updates["level"] = change.Level
	}
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		return nil, err
	}
	return change, nil
}
