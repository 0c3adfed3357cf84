package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/qaforum/middleware"
	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/services"
	"github.com/cppla/qaforum/utils"
)

// ModeratorController serves the moderation queue and the action executor.
type ModeratorController struct {
	queue      *services.QueueService
	reports    *services.ReportService
	moderation *services.ModerationService
}

func NewModeratorController(queue *services.QueueService, reports *services.ReportService, moderation *services.ModerationService) *ModeratorController {
	return &ModeratorController{queue: queue, reports: reports, moderation: moderation}
}

// Queue returns reported targets grouped and prioritized.
func (m *ModeratorController) Queue(ctx *gin.Context) {
	page := parsePagination(ctx)
	result, err := m.queue.Queue(ctx.Request.Context(), services.QueueQuery{
		Page:       page.Page,
		Limit:      page.Limit,
		Priority:   services.Priority(strings.ToLower(ctx.Query("priority"))),
		TargetType: models.TargetType(strings.ToUpper(ctx.Query("target_type"))),
	})
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Paginated(ctx, result.Items, result.Meta)
}

// ListReports pages individual reports.
func (m *ModeratorController) ListReports(ctx *gin.Context) {
	page := parsePagination(ctx)
	reports, total, err := m.queue.ListReports(ctx.Request.Context(), services.ReportFilter{
		Status:     models.ReportStatus(strings.ToUpper(ctx.Query("status"))),
		TargetType: models.TargetType(strings.ToUpper(ctx.Query("target_type"))),
		TargetID:   queryID(ctx, "target_id"),
	}, page)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Paginated(ctx, reports, utils.NewMeta(page.Page, page.Limit, total))
}

// Review claims a target's pending reports.
func (m *ModeratorController) Review(ctx *gin.Context) {
	var req struct {
		TargetType models.TargetType `json:"target_type" binding:"required"`
		TargetID   uint              `json:"target_id" binding:"required"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	n, err := m.queue.MarkReviewing(ctx.Request.Context(), middleware.CurrentUser(ctx).ID, req.TargetType, req.TargetID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"reviewing": n})
}

// ResolveReport settles one report.
func (m *ModeratorController) ResolveReport(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Status models.ReportStatus `json:"status" binding:"required"`
		Notes  string              `json:"notes"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	report, err := m.reports.ResolveReport(ctx.Request.Context(), middleware.CurrentUser(ctx).ID, id,
		models.ReportStatus(strings.ToUpper(string(req.Status))), req.Notes)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, report)
}

// TakeAction executes a moderator action.
func (m *ModeratorController) TakeAction(ctx *gin.Context) {
	var req services.ActionInput
	if !bindJSON(ctx, &req) {
		return
	}
	req.ActionType = models.ActionType(strings.ToUpper(string(req.ActionType)))
	req.TargetType = models.TargetType(strings.ToUpper(string(req.TargetType)))
	action, err := m.moderation.TakeAction(ctx.Request.Context(), middleware.CurrentUser(ctx).ID, req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, action)
}

// ListActions pages the audit log.
func (m *ModeratorController) ListActions(ctx *gin.Context) {
	page := parsePagination(ctx)
	actions, total, err := m.moderation.ListActions(ctx.Request.Context(), services.ActionFilter{
		ModeratorID: queryID(ctx, "moderator_id"),
		ActionType:  models.ActionType(strings.ToUpper(ctx.Query("action_type"))),
		TargetType:  models.TargetType(strings.ToUpper(ctx.Query("target_type"))),
		TargetID:    queryID(ctx, "target_id"),
	}, page)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Paginated(ctx, actions, utils.NewMeta(page.Page, page.Limit, total))
}

// TargetReports lists every report ever raised against one target, settled ones included.
func (m *ModeratorController) TargetReports(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	reports, err := m.queue.ReportsForTarget(ctx.Request.Context(), models.TargetType(strings.ToUpper(ctx.Param("type"))), id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, reports)
}
