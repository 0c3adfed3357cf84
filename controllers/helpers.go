package controllers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/qaforum/services"
	"github.com/cppla/qaforum/utils"
)

// parsePagination reads page and limit query parameters; bad values fall back to defaults.
func parsePagination(ctx *gin.Context) services.Page {
	page, limit := 1, 0
	if v := strings.TrimSpace(ctx.Query("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := strings.TrimSpace(ctx.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return services.Page{Page: page, Limit: limit}.Normalize()
}

// paramID parses a positive numeric path parameter.
func paramID(ctx *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || n == 0 {
		utils.Fail(ctx, utils.NewValidationError("invalid %s", name))
		return 0, false
	}
	return uint(n), true
}

// queryID parses an optional numeric query parameter; absent or invalid is 0.
func queryID(ctx *gin.Context, name string) uint {
	n, _ := strconv.ParseUint(ctx.Query(name), 10, 64)
	return uint(n)
}

// bindJSON decodes the request body, answering 400 on failure.
func bindJSON(ctx *gin.Context, dst interface{}) bool {
	if err := ctx.ShouldBindJSON(dst); err != nil {
		utils.Fail(ctx, utils.NewValidationError("invalid request payload"))
		return false
	}
	return true
}
