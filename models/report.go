package models

import "time"

// ReportStatus is the lifecycle state of a report.
type ReportStatus string

const (
	ReportPending   ReportStatus = "PENDING"
	ReportReviewing ReportStatus = "REVIEWING"
	ReportResolved  ReportStatus = "RESOLVED"
	ReportRejected  ReportStatus = "REJECTED"
)

// Terminal reports whether no further transition is allowed.
func (s ReportStatus) Terminal() bool {
	return s == ReportResolved || s == ReportRejected
}

// Report is a complaint against exactly one post or comment. A reporter may hold at
// most one report per target.
type Report struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	ReporterID      uint         `gorm:"not null;uniqueIndex:idx_report_reporter_target" json:"reporter_id"`
	TargetType      TargetType   `gorm:"size:16;not null;uniqueIndex:idx_report_reporter_target;index:idx_report_target_status" json:"target_type"`
	TargetID        uint         `gorm:"not null;uniqueIndex:idx_report_reporter_target;index:idx_report_target_status" json:"target_id"`
	Reason          string       `gorm:"size:255;not null" json:"reason"`
	Details         string       `gorm:"type:text" json:"details,omitempty"`
	Status          ReportStatus `gorm:"size:16;not null;default:'PENDING';index:idx_report_target_status" json:"status"`
	ResolvedByID    *uint        `json:"resolved_by_id,omitempty"`
	ResolvedAt      *time.Time   `json:"resolved_at,omitempty"`
	ResolutionNotes string       `gorm:"size:1024" json:"resolution_notes,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}
