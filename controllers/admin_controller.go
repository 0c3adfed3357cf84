package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/qaforum/middleware"
	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/services"
	"github.com/cppla/qaforum/utils"
)

// AdminController serves the admin panel.
type AdminController struct {
	admin    *services.AdminService
	settings *services.SettingsService
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(admin *services.AdminService, settings *services.SettingsService) *AdminController {
	return &AdminController{admin: admin, settings: settings}
}

// ListUsers pages accounts with optional search, role and banned filters.
func (a *AdminController) ListUsers(ctx *gin.Context) {
	page := parsePagination(ctx)
	q := services.UserQuery{
		Page:   page.Page,
		Limit:  page.Limit,
		Search: ctx.Query("search"),
		Role:   models.Role(strings.ToUpper(ctx.Query("role"))),
	}
	if v := ctx.Query("banned"); v != "" {
		banned := v == "true"
		q.Banned = &banned
	}
	users, total, err := a.admin.ListUsers(ctx.Request.Context(), q)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Paginated(ctx, users, utils.NewMeta(page.Page, page.Limit, total))
}

// SetRoles replaces a user's roles.
func (a *AdminController) SetRoles(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Roles []string `json:"roles" binding:"required"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	user, err := a.admin.SetRoles(ctx.Request.Context(), middleware.CurrentUser(ctx).ID, id, req.Roles)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, user)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// Ban suspends a user.
func (a *AdminController) Ban(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req reasonRequest
	_ = ctx.ShouldBindJSON(&req)
	action, err := a.admin.Ban(ctx.Request.Context(), middleware.CurrentUser(ctx).ID, id, req.Reason)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, action)
}

// Unban reinstates a user.
func (a *AdminController) Unban(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req reasonRequest
	_ = ctx.ShouldBindJSON(&req)
	action, err := a.admin.Unban(ctx.Request.Context(), middleware.CurrentUser(ctx).ID, id, req.Reason)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, action)
}

// DeleteUser hard deletes an account.
func (a *AdminController) DeleteUser(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := a.admin.DeleteUser(ctx.Request.Context(), middleware.CurrentUser(ctx).ID, id); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": true})
}

func (a *AdminController) GetMaintenance(ctx *gin.Context) {
	m, err := a.settings.Maintenance(ctx.Request.Context())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, m)
}

func (a *AdminController) SetMaintenance(ctx *gin.Context) {
	var req services.MaintenanceInput
	if !bindJSON(ctx, &req) {
		return
	}
	m, err := a.settings.SetMaintenance(ctx.Request.Context(), middleware.CurrentUser(ctx).ID, req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, m)
}

func (a *AdminController) GetSettings(ctx *gin.Context) {
	s, err := a.settings.Settings(ctx.Request.Context())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, s)
}

func (a *AdminController) UpdateSettings(ctx *gin.Context) {
	var req services.SettingsInput
	if !bindJSON(ctx, &req) {
		return
	}
	s, err := a.settings.UpdateSettings(ctx.Request.Context(), middleware.CurrentUser(ctx).ID, req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, s)
}
