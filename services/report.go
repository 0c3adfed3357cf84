package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/utils"
)

const maxReasonLength = 255

// ReportInput is a user's complaint about one post or comment.
type ReportInput struct {
	TargetType models.TargetType `json:"target_type" binding:"required"`
	TargetID   uint              `json:"target_id" binding:"required"`
	Reason     string            `json:"reason" binding:"required"`
	Details    string            `json:"details"`
}

// ReportService lets users raise reports and moderators settle them one by one.
type ReportService struct {
	db       *gorm.DB
	settings *SettingsService
}

func NewReportService(db *gorm.DB, settings *SettingsService) *ReportService {
	return &ReportService{db: db, settings: settings}
}

// CreateReport files a PENDING report. The target must exist and belong to someone
// else, and a reporter holds at most one report per target.
func (s *ReportService) CreateReport(ctx context.Context, reporterID uint, in ReportInput) (*models.Report, error) {
	if in.TargetType != models.TargetPost && in.TargetType != models.TargetComment {
		return nil, utils.NewValidationError("target_type must be POST or COMMENT")
	}
	reason := utils.SanitizeText(in.Reason)
	if reason == "" {
		return nil, utils.NewValidationError("reason is required")
	}
	if len(reason) > maxReasonLength {
		return nil, utils.NewValidationError("reason must be at most %d characters", maxReasonLength)
	}

	if s.settings != nil {
		site, err := s.settings.Settings(ctx)
		if err != nil {
			return nil, err
		}
		if site.MinReputationToReport > 0 {
			var reporter models.User
			if err := s.db.WithContext(ctx).Select("id", "reputation").First(&reporter, reporterID).Error; err != nil {
				return nil, notFoundOr(err, "user")
			}
			if reporter.Reputation < site.MinReputationToReport {
				return nil, utils.NewAuthorizationError("not enough reputation to report content")
			}
		}
	}

	report := &models.Report{
		ReporterID: reporterID,
		TargetType: in.TargetType,
		TargetID:   in.TargetID,
		Reason:     reason,
		Details:    utils.SanitizeText(in.Details),
		Status:     models.ReportPending,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := loadContent(tx, in.TargetType, in.TargetID)
		if err != nil {
			return err
		}
		if target.Hidden {
			return utils.NewNotFoundError(targetEntity(in.TargetType))
		}
		if target.AuthorID == reporterID {
			return utils.NewValidationError("you cannot report your own content")
		}
		var n int64
		if err := tx.Model(&models.Report{}).
			Where("reporter_id = ? AND target_type = ? AND target_id = ?", reporterID, in.TargetType, in.TargetID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return utils.NewConflictError("you have already reported this " + targetEntity(in.TargetType))
		}
		return tx.Create(report).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, utils.NewConflictError("you have already reported this " + targetEntity(in.TargetType))
	}
	if err != nil {
		return nil, err
	}
	utils.ReportsCreated.WithLabelValues(string(in.TargetType)).Inc()
	return report, nil
}

// ResolveReport settles a single report as RESOLVED or REJECTED. Terminal reports are
// a conflict.
func (s *ReportService) ResolveReport(ctx context.Context, moderatorID, reportID uint, status models.ReportStatus, notes string) (*models.Report, error) {
	if !status.Terminal() {
		return nil, utils.NewValidationError("status must be RESOLVED or REJECTED")
	}
	var report models.Report
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&report, reportID).Error; err != nil {
			return notFoundOr(err, "report")
		}
		if report.Status.Terminal() {
			return utils.NewConflictError("report is already " + string(report.Status))
		}
		now := time.Now()
		res := tx.Model(&models.Report{}).
			Where("id = ? AND status IN ?", report.ID, []models.ReportStatus{models.ReportPending, models.ReportReviewing}).
			Updates(map[string]interface{}{
				"status":           status,
				"resolved_by_id":   moderatorID,
				"resolved_at":      now,
				"resolution_notes": utils.SanitizeText(notes),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.NewConflictError("report was settled concurrently")
		}
		return tx.First(&report, reportID).Error
	})
	if err != nil {
		return nil, err
	}
	utils.ReportsResolved.WithLabelValues(string(status)).Inc()
	return &report, nil
}

// ListMyReports pages the reporter's own reports, newest first.
func (s *ReportService) ListMyReports(ctx context.Context, reporterID uint, page Page) ([]models.Report, int64, error) {
	page = page.Normalize()
	q := s.db.WithContext(ctx).Model(&models.Report{}).Where("reporter_id = ?", reporterID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	reports := make([]models.Report, 0, page.Limit)
	err := q.Order("id DESC").Offset(page.Offset()).Limit(page.Limit).Find(&reports).Error
	return reports, total, err
}
