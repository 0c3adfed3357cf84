package models

import (
	"time"

	"gorm.io/gorm"
)

// Level is the reputation tier of a user. It is derived from reputation and stored
// alongside it so listings can filter on it without recomputing.
type Level string

const (
	LevelNewcomer    Level = "NEWCOMER"
	LevelMember      Level = "MEMBER"
	LevelContributor Level = "CONTRIBUTOR"
	LevelTrusted     Level = "TRUSTED"
	LevelExpert      Level = "EXPERT"
)

// User represents a forum user. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email,omitempty"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	AvatarURL    string    `gorm:"size:512" json:"avatar_url"`
	Bio          string    `gorm:"size:512" json:"bio"`
	Reputation   int       `gorm:"not null;default:0" json:"reputation"`
	Level        Level     `gorm:"size:16;not null;default:'NEWCOMER'" json:"level"`
	Roles        RoleSet   `gorm:"type:varchar(64);not null" json:"roles"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Comments     []Comment `json:"-"`
	Posts        []Post    `json:"-"`
}

// BeforeCreate makes sure every account starts with the USER role and a level.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if len(u.Roles) == 0 {
		u.Roles = RoleSet{RoleUser}
	}
	if u.Level == "" {
		u.Level = LevelNewcomer
	}
	return nil
}

// PublicUser is the author snapshot embedded in listings.
type PublicUser struct {
	ID         uint   `json:"id"`
	Username   string `json:"username"`
	AvatarURL  string `json:"avatar_url"`
	Reputation int    `json:"reputation"`
	Level      Level  `json:"level"`
}

// Public strips private fields from the user.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		AvatarURL:  u.AvatarURL,
		Reputation: u.Reputation,
		Level:      u.Level,
	}
}
