package models

import "time"

// TargetType names the kind of entity a vote, report or moderator action points at.
type TargetType string

const (
	TargetPost    TargetType = "POST"
	TargetComment TargetType = "COMMENT"
	TargetUser    TargetType = "USER"
)

// VoteValue is the direction of a vote.
type VoteValue string

const (
	VoteUp   VoteValue = "UP"
	VoteDown VoteValue = "DOWN"
)

// Delta is the tally contribution of a single vote.
func (v VoteValue) Delta() int {
	if v == VoteUp {
		return 1
	}
	return -1
}

// Vote is unique per (user, target).
type Vote struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;uniqueIndex:idx_vote_user_target" json:"user_id"`
	TargetType TargetType `gorm:"size:16;not null;uniqueIndex:idx_vote_user_target;index:idx_vote_target" json:"target_type"`
	TargetID   uint       `gorm:"not null;uniqueIndex:idx_vote_user_target;index:idx_vote_target" json:"target_id"`
	Value      VoteValue  `gorm:"size:8;not null" json:"value"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
