package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/utils"
)

// Priority buckets a target by how many pending reports it has.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Report-count thresholds for the buckets above.
const (
	urgentReports = 5
	highReports   = 3
	mediumReports = 2
)

// PriorityFor buckets a pending report count.
func PriorityFor(count int64) Priority {
	switch {
	case count >= urgentReports:
		return PriorityUrgent
	case count >= highReports:
		return PriorityHigh
	case count >= mediumReports:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Valid reports whether p is a known bucket.
func (p Priority) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

var (
	priorityRankSQL = fmt.Sprintf(
		"CASE WHEN COUNT(*) >= %d THEN 0 WHEN COUNT(*) >= %d THEN 1 WHEN COUNT(*) >= %d THEN 2 ELSE 3 END",
		urgentReports, highReports, mediumReports)

	priorityHavingSQL = map[Priority]string{
		PriorityUrgent: fmt.Sprintf("COUNT(*) >= %d", urgentReports),
		PriorityHigh:   fmt.Sprintf("COUNT(*) >= %d AND COUNT(*) < %d", highReports, urgentReports),
		PriorityMedium: fmt.Sprintf("COUNT(*) >= %d AND COUNT(*) < %d", mediumReports, highReports),
		PriorityLow:    fmt.Sprintf("COUNT(*) < %d", mediumReports),
	}
)

// QueueQuery selects a page of the moderation queue.
type QueueQuery struct {
	Page       int
	Limit      int
	Priority   Priority
	TargetType models.TargetType
}

// QueueItem is one reported target with its pending-report aggregate.
type QueueItem struct {
	TargetType       models.TargetType  `json:"target_type"`
	TargetID         uint               `json:"target_id"`
	PostID           uint               `json:"post_id,omitempty"`
	Title            string             `json:"title,omitempty"`
	Body             string             `json:"body"`
	Author           *models.PublicUser `json:"author,omitempty"`
	IsHidden         bool               `json:"is_hidden"`
	ContentMissing   bool               `json:"content_missing,omitempty"`
	ReportCount      int64              `json:"report_count"`
	LatestReason     string             `json:"latest_reason"`
	Priority         Priority           `json:"priority"`
	LatestReportAt   time.Time          `json:"latest_report_at"`
	ContentCreatedAt *time.Time         `json:"content_created_at,omitempty"`
}

// QueuePage is a page of queue items plus paging metadata.
type QueuePage struct {
	Items []QueueItem `json:"items"`
	Meta  *utils.Meta `json:"meta"`
}

// ReportFilter narrows ListReports.
type ReportFilter struct {
	Status     models.ReportStatus
	TargetType models.TargetType
	TargetID   uint
}

// QueueService aggregates pending reports into the moderation queue.
type QueueService struct {
	db *gorm.DB
}

func NewQueueService(db *gorm.DB) *QueueService {
	return &QueueService{db: db}
}

type queueGroup struct {
	TargetType   models.TargetType
	TargetID     uint
	ReportCount  int64
	LatestID     uint
	PriorityRank int
}

// grouped builds the per-target aggregate over every PENDING report.
func (s *QueueService) grouped(ctx context.Context, q QueueQuery) *gorm.DB {
	tx := s.db.WithContext(ctx).Model(&models.Report{}).
		Select("target_type, target_id, COUNT(*) AS report_count, MAX(id) AS latest_id, " + priorityRankSQL + " AS priority_rank").
		Where("status = ?", models.ReportPending)
	if q.TargetType != "" {
		tx = tx.Where("target_type = ?", q.TargetType)
	}
	tx = tx.Group("target_type, target_id")
	if q.Priority != "" {
		tx = tx.Having(priorityHavingSQL[q.Priority])
	}
	return tx
}

// Queue groups PENDING reports by target across the whole table, then pages the groups
// ordered by priority (urgent first) and most recent report.
func (s *QueueService) Queue(ctx context.Context, q QueueQuery) (*QueuePage, error) {
	if q.Priority != "" && !q.Priority.Valid() {
		return nil, utils.NewValidationError("unknown priority %q", q.Priority)
	}
	if q.TargetType != "" && q.TargetType != models.TargetPost && q.TargetType != models.TargetComment {
		return nil, utils.NewValidationError("unknown target type %q", q.TargetType)
	}
	page := Page{Page: q.Page, Limit: q.Limit}.Normalize()

	var total int64
	if err := s.db.WithContext(ctx).Table("(?) AS grouped", s.grouped(ctx, q)).Count(&total).Error; err != nil {
		return nil, err
	}

	var groups []queueGroup
	if err := s.grouped(ctx, q).
		Order("priority_rank ASC, latest_id DESC").
		Offset(page.Offset()).Limit(page.Limit).
		Scan(&groups).Error; err != nil {
		return nil, err
	}

	items, err := s.hydrate(ctx, groups)
	if err != nil {
		return nil, err
	}
	return &QueuePage{Items: items, Meta: utils.NewMeta(page.Page, page.Limit, total)}, nil
}

// hydrate attaches the latest report and a content snapshot to each group.
func (s *QueueService) hydrate(ctx context.Context, groups []queueGroup) ([]QueueItem, error) {
	items := make([]QueueItem, 0, len(groups))
	if len(groups) == 0 {
		return items, nil
	}
	db := s.db.WithContext(ctx)

	latestIDs := make([]uint, 0, len(groups))
	var postIDs, commentIDs []uint
	for _, g := range groups {
		latestIDs = append(latestIDs, g.LatestID)
		if g.TargetType == models.TargetPost {
			postIDs = append(postIDs, g.TargetID)
		} else {
			commentIDs = append(commentIDs, g.TargetID)
		}
	}

	var latest []models.Report
	if err := db.Where("id IN ?", latestIDs).Find(&latest).Error; err != nil {
		return nil, err
	}
	latestByID := make(map[uint]models.Report, len(latest))
	for _, r := range latest {
		latestByID[r.ID] = r
	}

	posts := map[uint]models.Post{}
	if len(postIDs) > 0 {
		var rows []models.Post
		if err := db.Preload("User").Where("id IN ?", postIDs).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, p := range rows {
			posts[p.ID] = p
		}
	}
	comments := map[uint]models.Comment{}
	if len(commentIDs) > 0 {
		var rows []models.Comment
		if err := db.Preload("User").Where("id IN ?", commentIDs).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, c := range rows {
			comments[c.ID] = c
		}
	}

	for _, g := range groups {
		item := QueueItem{
			TargetType:  g.TargetType,
			TargetID:    g.TargetID,
			ReportCount: g.ReportCount,
			Priority:    PriorityFor(g.ReportCount),
		}
		if r, ok := latestByID[g.LatestID]; ok {
			item.LatestReason = r.Reason
			item.LatestReportAt = r.CreatedAt
		}
		switch g.TargetType {
		case models.TargetPost:
			if p, ok := posts[g.TargetID]; ok {
				author := p.User.Public()
				created := p.CreatedAt
				item.PostID, item.Title, item.Body = p.ID, p.Title, p.Content
				item.Author, item.IsHidden, item.ContentCreatedAt = &author, p.IsHidden, &created
			} else {
				item.ContentMissing = true
			}
		case models.TargetComment:
			if c, ok := comments[g.TargetID]; ok {
				author := c.User.Public()
				created := c.CreatedAt
				item.PostID, item.Body = c.PostID, c.Content
				item.Author, item.IsHidden, item.ContentCreatedAt = &author, c.IsHidden, &created
			} else {
				item.ContentMissing = true
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// ListReports pages individual reports, newest first.
func (s *QueueService) ListReports(ctx context.Context, f ReportFilter, page Page) ([]models.Report, int64, error) {
	page = page.Normalize()
	q := s.db.WithContext(ctx).Model(&models.Report{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
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
	reports := make([]models.Report, 0, page.Limit)
	err := q.Order("id DESC").Offset(page.Offset()).Limit(page.Limit).Find(&reports).Error
	return reports, total, err
}

// ReportsForTarget returns every report ever raised against one target.
func (s *QueueService) ReportsForTarget(ctx context.Context, targetType models.TargetType, targetID uint) ([]models.Report, error) {
	if targetType != models.TargetPost && targetType != models.TargetComment {
		return nil, utils.NewValidationError("unknown target type %q", targetType)
	}
	var reports []models.Report
	err := s.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("id DESC").Find(&reports).Error
	return reports, err
}

// MarkReviewing claims a target's PENDING reports for review. It returns how many moved.
func (s *QueueService) MarkReviewing(ctx context.Context, moderatorID uint, targetType models.TargetType, targetID uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("target_type = ? AND target_id = ? AND status = ?", targetType, targetID, models.ReportPending).
		Update("status", models.ReportReviewing)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, utils.NewNotFoundError("pending report")
	}
	utils.L(ctx).Infow("reports claimed", "moderator_id", moderatorID,
		"target_type", targetType, "target_id", targetID, "count", res.RowsAffected)
	return res.RowsAffected, nil
}
