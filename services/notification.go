package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/utils"
)

// NotificationService stores in-app notifications. Delivery is best-effort: callers
// never fail because a notification could not be written.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// Notify records a notification for userID. Errors are logged and swallowed.
func (s *NotificationService) Notify(ctx context.Context, userID uint, typ models.NotificationType, message, link string) {
	if s == nil || userID == 0 {
		return
	}
	n := models.Notification{UserID: userID, Type: typ, Message: message, Link: link}
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		utils.L(ctx).Warnw("notification dropped", "user_id", userID, "type", typ, "err", err)
	}
}

// NotifyLevelChanges tells users whose tier moved.
func (s *NotificationService) NotifyLevelChanges(ctx context.Context, changes ...*ReputationChange) {
	for _, c := range changes {
		if !c.LevelChanged() {
			continue
		}
		s.Notify(ctx, c.UserID, models.NotifyLevelChanged,
			fmt.Sprintf("Your level changed from %s to %s", c.PreviousLevel, c.Level), "")
	}
}

// Mail sends an email to the user when SMTP is configured. Failures are logged only.
func (s *NotificationService) Mail(ctx context.Context, userID uint, subject, body string) {
	if s == nil || !utils.MailConfigured() {
		return
	}
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "email").First(&user, userID).Error; err != nil || user.Email == "" {
		return
	}
	if err := utils.SendMail(user.Email, subject, body); err != nil {
		utils.L(ctx).Warnw("mail not delivered", "user_id", userID, "subject", subject, "err", err)
	}
}

// List returns a page of the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, page Page) ([]models.Notification, int64, error) {
	page = page.Normalize()
	q := s.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items := make([]models.Notification, 0, page.Limit)
	err := q.Order("id DESC").Offset(page.Offset()).Limit(page.Limit).Find(&items).Error
	return items, total, err
}

// MarkRead flags one notification as read. Other users' notifications are NotFound.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		s.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ? AND user_id = ?", id, userID).Count(&n)
		if n == 0 {
			return utils.NewNotFoundError("notification")
		}
	}
	return nil
}

// MarkAllRead flags every unread notification and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
