package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/qaforum/middleware"
	"github.com/cppla/qaforum/services"
	"github.com/cppla/qaforum/utils"
)

// ReportController lets users flag content.
type ReportController struct {
	reports *services.ReportService
}

func NewReportController(reports *services.ReportService) *ReportController {
	return &ReportController{reports: reports}
}

// CreateReport files a report against a post or comment.
func (r *ReportController) CreateReport(ctx *gin.Context) {
	var req services.ReportInput
	if !bindJSON(ctx, &req) {
		return
	}
	report, err := r.reports.CreateReport(ctx.Request.Context(), middleware.CurrentUser(ctx).ID, req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, report)
}

// ListMine pages the caller's reports.
func (r *ReportController) ListMine(ctx *gin.Context) {
	page := parsePagination(ctx)
	reports, total, err := r.reports.ListMyReports(ctx.Request.Context(), middleware.CurrentUser(ctx).ID, page)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Paginated(ctx, reports, utils.NewMeta(page.Page, page.Limit, total))
}
