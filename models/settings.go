package models

import "time"

// SingletonID is the primary key of every single-row configuration table.
const SingletonID = 1

// MaintenanceMode is the global maintenance switch. Exactly one row exists.
type MaintenanceMode struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	Enabled      bool      `gorm:"not null;default:false" json:"enabled"`
	Message      string    `gorm:"size:512" json:"message"`
	AllowedRoles RoleSet   `gorm:"type:varchar(64)" json:"allowed_roles"`
	UpdatedByID  *uint     `json:"updated_by_id,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Settings holds site-wide tunables. Exactly one row exists.
type Settings struct {
	ID                    uint      `gorm:"primaryKey" json:"-"`
	SiteName              string    `gorm:"size:64" json:"site_name"`
	AllowRegistration     bool      `gorm:"not null;default:true" json:"allow_registration"`
	PostsPerPage          int       `gorm:"not null;default:20" json:"posts_per_page"`
	MinReputationToReport int       `gorm:"not null;default:0" json:"min_reputation_to_report"`
	UpdatedByID           *uint     `json:"updated_by_id,omitempty"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// All lists every model for migrations.
func All() []interface{} {
	return []interface{}{
		&User{}, &Post{}, &Comment{}, &Tag{}, &Vote{}, &Report{}, &ModeratorAction{},
		&Notification{}, &RefreshToken{}, &MaintenanceMode{}, &Settings{},
	}
}
