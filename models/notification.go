package models

import "time"

// NotificationType classifies user notifications.
type NotificationType string

const (
	NotifyVote           NotificationType = "VOTE"
	NotifyComment        NotificationType = "COMMENT"
	NotifyAnswerAccepted NotificationType = "ANSWER_ACCEPTED"
	NotifyLevelChanged   NotificationType = "LEVEL_CHANGED"
	NotifyModeration     NotificationType = "MODERATION"
	NotifyWarning        NotificationType = "WARNING"
)

// Notification is an in-app message for a single user.
type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"index;not null" json:"user_id"`
	Type      NotificationType `gorm:"size:32;not null" json:"type"`
	Message   string           `gorm:"size:512;not null" json:"message"`
	Link      string           `gorm:"size:255" json:"link,omitempty"`
	IsRead    bool             `gorm:"not null;default:false;index" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
