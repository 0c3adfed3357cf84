package models

import "time"

// Post represents a question created by a user.
type Post struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index;not null" json:"user_id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	VoteCount    int       `gorm:"not null;default:0" json:"vote_count"`
	CommentCount int       `gorm:"not null;default:0" json:"comment_count"`
	IsHidden     bool      `gorm:"not null;default:false;index" json:"is_hidden"`
	IsLocked     bool      `gorm:"not null;default:false" json:"is_locked"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	User         User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Tags         []Tag     `gorm:"many2many:post_tags;" json:"tags"`
	Comments     []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments,omitempty"`
}
