package models

import "time"

// ActionType enumerates the decisions a moderator can record.
type ActionType string

const (
	ActionHidePost       ActionType = "HIDE_POST"
	ActionUnhidePost     ActionType = "UNHIDE_POST"
	ActionLockPost       ActionType = "LOCK_POST"
	ActionUnlockPost     ActionType = "UNLOCK_POST"
	ActionDeletePost     ActionType = "DELETE_POST"
	ActionHideComment    ActionType = "HIDE_COMMENT"
	ActionUnhideComment  ActionType = "UNHIDE_COMMENT"
	ActionDeleteComment  ActionType = "DELETE_COMMENT"
	ActionWarnUser       ActionType = "WARN_USER"
	ActionBanUser        ActionType = "BAN_USER"
	ActionUnbanUser      ActionType = "UNBAN_USER"
	ActionDismissReports ActionType = "DISMISS_REPORTS"
)

// ModeratorAction is an append-only audit record. Nothing updates or deletes it.
type ModeratorAction struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ModeratorID uint       `gorm:"index;not null" json:"moderator_id"`
	ActionType  ActionType `gorm:"size:32;not null;index" json:"action_type"`
	TargetType  TargetType `gorm:"size:16;not null;index:idx_action_target" json:"target_type"`
	TargetID    uint       `gorm:"not null;index:idx_action_target" json:"target_id"`
	Reason      string     `gorm:"size:255" json:"reason,omitempty"`
	Notes       string     `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
}
