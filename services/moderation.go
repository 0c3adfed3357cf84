package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/utils"
)

// ActionInput is a moderator's decision about one target.
type ActionInput struct {
	TargetID   uint              `json:"target_id" binding:"required"`
	TargetType models.TargetType `json:"target_type" binding:"required"`
	ActionType models.ActionType `json:"action_type" binding:"required"`
	Reason     string            `json:"reason"`
	Notes      string            `json:"notes"`
}

// actionTarget is what an effect operates on. Exactly one of content or user is set.
type actionTarget struct {
	content *contentRef
	user    *models.User
}

func (t *actionTarget) ownerID() uint {
	if t.user != nil {
		return t.user.ID
	}
	return t.content.AuthorID
}

type actionRule struct {
	targets []models.TargetType
	// outcome is the status pending reports on the target move to; empty for user actions.
	outcome models.ReportStatus
	apply   func(tx *gorm.DB, t *actionTarget) error
	message string
}

func (r actionRule) accepts(t models.TargetType) bool {
	for _, want := range r.targets {
		if want == t {
			return true
		}
	}
	return false
}

func setFlag(model interface{}, column string, value bool) func(*gorm.DB, *actionTarget) error {
	return func(tx *gorm.DB, t *actionTarget) error {
		return tx.Model(model).Where("id = ?", t.content.ID).Update(column, value).Error
	}
}

func noEffect(*gorm.DB, *actionTarget) error { return nil }

var (
	postOnly    = []models.TargetType{models.TargetPost}
	commentOnly = []models.TargetType{models.TargetComment}
	userOnly    = []models.TargetType{models.TargetUser}
	anyContent  = []models.TargetType{models.TargetPost, models.TargetComment}
)

var actionRules = map[models.ActionType]actionRule{
	models.ActionHidePost: {
		targets: postOnly, outcome: models.ReportResolved,
		apply: setFlag(&models.Post{}, "is_hidden", true), message: "Your post was hidden by a moderator",
	},
	models.ActionUnhidePost: {
		targets: postOnly, outcome: models.ReportResolved,
		apply: setFlag(&models.Post{}, "is_hidden", false), message: "Your post is visible again",
	},
	models.ActionLockPost: {
		targets: postOnly, outcome: models.ReportResolved,
		apply: setFlag(&models.Post{}, "is_locked", true), message: "Your post was locked by a moderator",
	},
	models.ActionUnlockPost: {
		targets: postOnly, outcome: models.ReportResolved,
		apply: setFlag(&models.Post{}, "is_locked", false), message: "Your post was unlocked",
	},
	models.ActionDeletePost: {
		targets: postOnly, outcome: models.ReportResolved,
		apply: deletePostEffect, message: "Your post was removed by a moderator",
	},
	models.ActionHideComment: {
		targets: commentOnly, outcome: models.ReportResolved,
		apply: setFlag(&models.Comment{}, "is_hidden", true), message: "Your comment was hidden by a moderator",
	},
	models.ActionUnhideComment: {
		targets: commentOnly, outcome: models.ReportResolved,
		apply: setFlag(&models.Comment{}, "is_hidden", false), message: "Your comment is visible again",
	},
	models.ActionDeleteComment: {
		targets: commentOnly, outcome: models.ReportResolved,
		apply: deleteCommentEffect, message: "Your comment was removed by a moderator",
	},
	models.ActionWarnUser: {
		targets: userOnly, apply: noEffect, message: "You received a warning from the moderators",
	},
	models.ActionBanUser: {
		targets: userOnly, apply: banEffect(false), message: "Your account has been suspended",
	},
	models.ActionUnbanUser: {
		targets: userOnly, apply: banEffect(true), message: "Your account has been reinstated",
	},
	models.ActionDismissReports: {
		targets: anyContent, outcome: models.ReportRejected, apply: noEffect,
	},
}

func deletePostEffect(tx *gorm.DB, t *actionTarget) error {
	commentIDs, changes, err := deletePostTx(tx, t.content.ID)
	if err != nil {
		return err
	}
	t.content.changes = changes
	if len(commentIDs) > 0 {
		t.content.childComments = commentIDs
	}
	return nil
}

func deleteCommentEffect(tx *gorm.DB, t *actionTarget) error {
	changes, err := deleteCommentTx(tx, t.content.ID)
	t.content.changes = changes
	return err
}

func banEffect(active bool) func(*gorm.DB, *actionTarget) error {
	return func(tx *gorm.DB, t *actionTarget) error {
		if err := tx.Model(&models.User{}).Where("id = ?", t.user.ID).Update("is_active", active).Error; err != nil {
			return err
		}
		if active {
			return nil
		}
		return tx.Model(&models.RefreshToken{}).
			Where("user_id = ? AND revoked_at IS NULL", t.user.ID).
			Update("revoked_at", time.Now()).Error
	}
}

// ModerationService executes moderator actions. Each action writes an audit row,
// applies its effect and settles the target's open reports in one transaction.
type ModerationService struct {
	db       *gorm.DB
	notifier *NotificationService
}

func NewModerationService(db *gorm.DB, notifier *NotificationService) *ModerationService {
	return &ModerationService{db: db, notifier: notifier}
}

// TakeAction validates and executes in on behalf of moderatorID.
func (s *ModerationService) TakeAction(ctx context.Context, moderatorID uint, in ActionInput) (*models.ModeratorAction, error) {
	rule, ok := actionRules[in.ActionType]
	if !ok {
		return nil, utils.NewValidationError("unknown action type %q", in.ActionType)
	}
	if !rule.accepts(in.TargetType) {
		return nil, utils.NewValidationError("%s cannot be applied to a %s", in.ActionType, targetEntity(in.TargetType))
	}

	action := &models.ModeratorAction{
		ModeratorID: moderatorID,
		ActionType:  in.ActionType,
		TargetType:  in.TargetType,
		TargetID:    in.TargetID,
		Reason:      utils.SanitizeText(in.Reason),
		Notes:       utils.SanitizeText(in.Notes),
	}
	target := &actionTarget{}
	var settled int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.loadTarget(tx, moderatorID, in, target); err != nil {
			return err
		}
		if err := tx.Create(action).Error; err != nil {
			return err
		}
		if err := rule.apply(tx, target); err != nil {
			return err
		}
		if rule.outcome == "" {
			return nil
		}
		var err error
		settled, err = settleReports(tx, moderatorID, rule.outcome, action.Notes, in.TargetType, []uint{in.TargetID})
		if err != nil {
			return err
		}
		if target.content != nil && len(target.content.childComments) > 0 {
			n, err := settleReports(tx, moderatorID, rule.outcome, action.Notes, models.TargetComment, target.content.childComments)
			settled += n
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.ModerationActions.WithLabelValues(string(in.ActionType)).Inc()
	if settled > 0 {
		utils.ReportsResolved.WithLabelValues(string(rule.outcome)).Add(float64(settled))
	}
	utils.L(ctx).Infow("moderator action",
		"action_id", action.ID, "moderator_id", moderatorID, "action", in.ActionType,
		"target_type", in.TargetType, "target_id", in.TargetID, "reports_settled", settled)
	s.afterCommit(ctx, rule, in, target)
	return action, nil
}

// loadTarget resolves and locks the target, enforcing the user-action guard rails.
func (s *ModerationService) loadTarget(tx *gorm.DB, moderatorID uint, in ActionInput, target *actionTarget) error {
	if in.TargetType != models.TargetUser {
		ref, err := loadContent(tx, in.TargetType, in.TargetID)
		target.content = ref
		return err
	}
	var user models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, in.TargetID).Error; err != nil {
		return notFoundOr(err, "user")
	}
	if user.ID == moderatorID {
		return utils.NewAuthorizationError("you cannot moderate your own account")
	}
	var moderator models.User
	if err := tx.Select("id", "roles").First(&moderator, moderatorID).Error; err != nil {
		return notFoundOr(err, "moderator")
	}
	if user.Roles.Has(models.RoleAdmin) && !moderator.Roles.Has(models.RoleAdmin) {
		return utils.NewAuthorizationError("moderators cannot act on administrators")
	}
	target.user = &user
	return nil
}

// settleReports moves every open report on the targets to outcome.
func settleReports(tx *gorm.DB, moderatorID uint, outcome models.ReportStatus, notes string, targetType models.TargetType, targetIDs []uint) (int64, error) {
	res := tx.Model(&models.Report{}).
		Where("target_type = ? AND target_id IN ? AND status IN ?", targetType, targetIDs,
			[]models.ReportStatus{models.ReportPending, models.ReportReviewing}).
		Updates(map[string]interface{}{
			"status":           outcome,
			"resolved_by_id":   moderatorID,
			"resolved_at":      time.Now(),
			"resolution_notes": notes,
		})
	return res.RowsAffected, res.Error
}

func (s *ModerationService) afterCommit(ctx context.Context, rule actionRule, in ActionInput, target *actionTarget) {
	if target.content != nil {
		s.notifier.NotifyLevelChanges(ctx, target.content.changes...)
		invalidatePostCaches(target.content.PostID)
	}
	if rule.message == "" {
		return
	}
	link := ""
	if target.content != nil && in.ActionType != models.ActionDeletePost && in.ActionType != models.ActionDeleteComment {
		link = contentLink(in.TargetType, in.TargetID, target.content.PostID)
	}
	message := rule.message
	if in.Reason != "" {
		message = fmt.Sprintf("%s: %s", rule.message, utils.SanitizeText(in.Reason))
	}
	typ := models.NotifyModeration
	if in.ActionType == models.ActionWarnUser {
		typ = models.NotifyWarning
	}
	s.notifier.Notify(ctx, target.ownerID(), typ, message, link)
	if in.ActionType == models.ActionWarnUser || in.ActionType == models.ActionBanUser {
		s.notifier.Mail(ctx, target.ownerID(), rule.message, message)
	}
}

// ActionFilter narrows ListActions.
type ActionFilter struct {
	ModeratorID uint
	ActionType  models.ActionType
	TargetType  models.TargetType
	TargetID    uint
}

// ListActions pages the audit log, newest first.
func (s *ModerationService) ListActions(ctx context.Context, f ActionFilter, page Page) ([]models.ModeratorAction, int64, error) {
	page = page.Normalize()
	q := s.db.WithContext(ctx).Model(&models.ModeratorAction{})
	if f.ModeratorID != 0 {
		q = q.Where("moderator_id = ?", f.ModeratorID)
	}
	if f.ActionType != "" {
		q = q.Where("action_type = ?", f.ActionType)
	}
	if f.TargetType != "" {
		q = q.Where("target_type = ?", f.TargetType)
	}
	if f.TargetID != 0 {
		q = q.Where("target_id = ?", f.TargetID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	actions := make([]models.ModeratorAction, 0, page.Limit)
	err := q.Order("id DESC").Offset(page.Offset()).Limit(page.Limit).Find(&actions).Error
	return actions, total, err
}
