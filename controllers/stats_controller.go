package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/qaforum/services"
	"github.com/cppla/qaforum/utils"
)

// StatsController provides site statistics for the admin dashboard.
type StatsController struct {
	admin *services.AdminService
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(admin *services.AdminService) *StatsController {
	return &StatsController{admin: admin}
}

// GetStats returns aggregate counts.
func (s *StatsController) GetStats(ctx *gin.Context) {
	stats, err := s.admin.Stats(ctx.Request.Context())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, stats)
}
