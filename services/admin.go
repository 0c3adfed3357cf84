package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/utils"
)

// UserQuery filters the admin user listing.
type UserQuery struct {
	Page   int
	Limit  int
	Search string
	Role   models.Role
	Banned *bool
}

// Stats is the admin dashboard summary.
type Stats struct {
	UserCount       int64 `json:"user_count"`
	BannedCount     int64 `json:"banned_count"`
	PostCount       int64 `json:"post_count"`
	CommentCount    int64 `json:"comment_count"`
	PendingReports  int64 `json:"pending_reports"`
	ActionsLast24h  int64 `json:"actions_last_24h"`
	MaintenanceMode bool  `json:"maintenance_mode"`
}

// AdminService backs the admin panel.
type AdminService struct {
	db         *gorm.DB
	moderation *ModerationService
	settings   *SettingsService
}

func NewAdminService(db *gorm.DB, moderation *ModerationService, settings *SettingsService) *AdminService {
	return &AdminService{db: db, moderation: moderation, settings: settings}
}

// ListUsers pages accounts, newest first.
func (s *AdminService) ListUsers(ctx context.Context, q UserQuery) ([]models.User, int64, error) {
	page := Page{Page: q.Page, Limit: q.Limit}.Normalize()
	tx := s.db.WithContext(ctx).Model(&models.User{})
	if term := strings.TrimSpace(q.Search); term != "" {
		like := "%" + term + "%"
		tx = tx.Where("username LIKE ? OR email LIKE ?", like, like)
	}
	if q.Role != "" {
		// roles are stored comma separated
		if s.db.Dialector.Name() == "mysql" {
			tx = tx.Where("FIND_IN_SET(?, roles) > 0", q.Role)
		} else {
			tx = tx.Where("(',' || roles || ',') LIKE ?", "%,"+string(q.Role)+",%")
		}
	}
	if q.Banned != nil {
		tx = tx.Where("is_active = ?", !*q.Banned)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	users := make([]models.User, 0, page.Limit)
	err := tx.Order("id DESC").Offset(page.Offset()).Limit(page.Limit).Find(&users).Error
	return users, total, err
}

// SetRoles replaces a user's roles. USER is always kept and an admin cannot drop their
// own ADMIN role.
func (s *AdminService) SetRoles(ctx context.Context, adminID, userID uint, names []string) (*models.User, error) {
	roles := models.RoleSet(utils.ParseRoles(names))
	if len(roles) != len(names) {
		return nil, utils.NewValidationError("unknown role in %s", strings.Join(names, ","))
	}
	roles = roles.Normalize()
	if adminID == userID && !roles.Has(models.RoleAdmin) {
		return nil, utils.NewValidationError("you cannot remove your own admin role")
	}
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, userID).Error; err != nil {
			return notFoundOr(err, "user")
		}
		if err := tx.Model(&user).Update("roles", roles).Error; err != nil {
			return err
		}
		user.Roles = roles
		return nil
	})
	if err != nil {
		return nil, err
	}
	utils.L(ctx).Infow("roles changed", "admin_id", adminID, "user_id", userID, "roles", roles)
	return &user, nil
}

// Ban suspends a user through the moderation executor.
func (s *AdminService) Ban(ctx context.Context, adminID, userID uint, reason string) (*models.ModeratorAction, error) {
	return s.moderation.TakeAction(ctx, adminID, ActionInput{
		TargetID: userID, TargetType: models.TargetUser, ActionType: models.ActionBanUser, Reason: reason,
	})
}

// Unban reinstates a user through the moderation executor.
func (s *AdminService) Unban(ctx context.Context, adminID, userID uint, reason string) (*models.ModeratorAction, error) {
	return s.moderation.TakeAction(ctx, adminID, ActionInput{
		TargetID: userID, TargetType: models.TargetUser, ActionType: models.ActionUnbanUser, Reason: reason,
	})
}

// DeleteUser hard deletes an account with everything it wrote. Audit rows stay.
func (s *AdminService) DeleteUser(ctx context.Context, adminID, userID uint) error {
	if adminID == userID {
		return utils.NewValidationError("you cannot delete your own account")
	}
	var postIDs []uint
	var changes []*ReputationChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return notFoundOr(err, "user")
		}
		if err := tx.Model(&models.Post{}).Where("user_id = ?", userID).Pluck("id", &postIDs).Error; err != nil {
			return err
		}
		var removedComments []uint
		for _, id := range postIDs {
			children, revoked, err := deletePostTx(tx, id)
			if err != nil {
				return err
			}
			removedComments = append(removedComments, children...)
			changes = append(changes, revoked...)
		}
		var commentIDs []uint
		if err := tx.Model(&models.Comment{}).Where("user_id = ?", userID).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		for _, id := range commentIDs {
			revoked, err := deleteCommentTx(tx, id)
			if err != nil {
				return err
			}
			changes = append(changes, revoked...)
		}
		removedComments = append(removedComments, commentIDs...)
		if len(postIDs) > 0 {
			if _, err := settleReports(tx, adminID, models.ReportResolved, "author deleted", models.TargetPost, postIDs); err != nil {
				return err
			}
		}
		if len(removedComments) > 0 {
			if _, err := settleReports(tx, adminID, models.ReportResolved, "author deleted", models.TargetComment, removedComments); err != nil {
				return err
			}
		}
		// Votes cast by the user are dropped without replaying tallies or reputation.
		for _, stmt := range []struct {
			model interface{}
			where string
		}{
			{&models.Vote{}, "user_id = ?"},
			{&models.Report{}, "reporter_id = ?"},
			{&models.Notification{}, "user_id = ?"},
			{&models.RefreshToken{}, "user_id = ?"},
		} {
			if err := tx.Where(stmt.where, userID).Delete(stmt.model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.User{}, userID).Error
	})
	if err != nil {
		return err
	}
	var survivors []*ReputationChange
	for _, c := range changes {
		if c != nil && c.UserID != userID {
			survivors = append(survivors, c)
		}
	}
	s.moderation.notifier.NotifyLevelChanges(ctx, survivors...)
	invalidatePostCaches(postIDs...)
	utils.InvalidateByPrefix(utils.CacheTagListKey)
	utils.L(ctx).Warnw("user deleted", "admin_id", adminID, "user_id", userID, "posts", len(postIDs))
	return nil
}

// Stats summarizes the site.
func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	db := s.db.WithContext(ctx)
	st := &Stats{}
	counts := []struct {
		model interface{}
		where string
		args  []interface{}
		out   *int64
	}{
		{&models.User{}, "", nil, &st.UserCount},
		{&models.User{}, "is_active = ?", []interface{}{false}, &st.BannedCount},
		{&models.Post{}, "", nil, &st.PostCount},
		{&models.Comment{}, "", nil, &st.CommentCount},
		{&models.Report{}, "status = ?", []interface{}{models.ReportPending}, &st.PendingReports},
		{&models.ModeratorAction{}, "created_at >= ?", []interface{}{time.Now().Add(-24 * time.Hour)}, &st.ActionsLast24h},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where, c.args...)
		}
		if err := q.Count(c.out).Error; err != nil {
			return nil, err
		}
	}
	if s.settings != nil {
		if m, err := s.settings.Maintenance(ctx); err == nil {
			st.MaintenanceMode = m.Enabled
		}
	}
	return st, nil
}
