package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/utils"
)

const defaultMaintenanceMessage = "The site is under maintenance. Please try again later."

// MaintenanceSource supplies the current maintenance state.
type MaintenanceSource interface {
	Maintenance(ctx context.Context) (*models.MaintenanceMode, error)
	AllowedDuringMaintenance(m *models.MaintenanceMode) []models.Role
}

// MaintenanceGate turns requests away with 503 while maintenance is on, except for
// users holding an allowed role and the exempt paths. If the state cannot be read the
// request goes through.
func MaintenanceGate(src MaintenanceSource, exempt ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(exempt))
	for _, p := range exempt {
		skip[p] = true
	}
	return func(ctx *gin.Context) {
		if skip[ctx.Request.URL.Path] {
			ctx.Next()
			return
		}
		m, err := src.Maintenance(ctx.Request.Context())
		if err != nil {
			utils.L(ctx.Request.Context()).Warnw("maintenance state unavailable, letting request through", "err", err)
			ctx.Next()
			return
		}
		if !m.Enabled {
			ctx.Next()
			return
		}
		if user := CurrentUser(ctx); user != nil && utils.HasAny(user.Roles, src.AllowedDuringMaintenance(m)) {
			ctx.Next()
			return
		}
		msg := m.Message
		if msg == "" {
			msg = defaultMaintenanceMessage
		}
		utils.MaintenanceRejections.Inc()
		utils.Error(ctx, http.StatusServiceUnavailable, utils.CodeServiceUnavailable, msg)
		ctx.Abort()
	}
}
