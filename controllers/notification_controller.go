package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/qaforum/middleware"
	"github.com/cppla/qaforum/services"
	"github.com/cppla/qaforum/utils"
)

type NotificationController struct {
	notifications *services.NotificationService
}

func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{notifications: notifications}
}

// List pages the caller's notifications; ?unread=true limits to unread ones.
func (n *NotificationController) List(ctx *gin.Context) {
	page := parsePagination(ctx)
	items, total, err := n.notifications.List(ctx.Request.Context(), middleware.CurrentUser(ctx).ID, ctx.Query("unread") == "true", page)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Paginated(ctx, items, utils.NewMeta(page.Page, page.Limit, total))
}

func (n *NotificationController) MarkRead(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := n.notifications.MarkRead(ctx.Request.Context(), middleware.CurrentUser(ctx).ID, id); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"read": true})
}

func (n *NotificationController) MarkAllRead(ctx *gin.Context) {
	count, err := n.notifications.MarkAllRead(ctx.Request.Context(), middleware.CurrentUser(ctx).ID)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"updated": count})
}
