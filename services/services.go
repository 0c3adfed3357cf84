// Package services holds the forum's domain logic. Controllers stay thin and call into
// these types; every multi-row mutation runs inside a single gorm transaction.
package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/cppla/qaforum/config"
	"github.com/cppla/qaforum/utils"
)

// Services bundles every service wired to one database.
type Services struct {
	Auth          *AuthService
	Posts         *PostService
	Votes         *VoteService
	Answers       *AnswerService
	Reports       *ReportService
	Queue         *QueueService
	Moderation    *ModerationService
	Settings      *SettingsService
	Notifications *NotificationService
	Admin         *AdminService
}

// New wires the services. local may be nil.
func New(db *gorm.DB, local *utils.LocalCache, cfg config.AppConfig) *Services {
	notifier := NewNotificationService(db)
	settings := NewSettingsService(db, local,
		time.Duration(cfg.SettingsCacheTTLSeconds)*time.Second,
		utils.ParseRoles(cfg.MaintenanceAllowedRoles), cfg.AppName)
	votes := NewVoteService(db, notifier)
	moderation := NewModerationService(db, notifier)

	return &Services{
		Auth:          NewAuthService(db, settings),
		Posts:         NewPostService(db, votes, moderation, notifier),
		Votes:         votes,
		Answers:       NewAnswerService(db, notifier),
		Reports:       NewReportService(db, settings),
		Queue:         NewQueueService(db),
		Moderation:    moderation,
		Settings:      settings,
		Notifications: notifier,
		Admin:         NewAdminService(db, moderation, settings),
	}
}
