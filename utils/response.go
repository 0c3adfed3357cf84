package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorBody is the error half of the envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta describes a page of results.
type Meta struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"hasMore"`
}

// NewMeta computes HasMore from the page window.
func NewMeta(page, limit int, total int64) *Meta {
	return &Meta{
		Page:    page,
		Limit:   limit,
		Total:   total,
		HasMore: int64(page*limit) < total,
	}
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, JSONResponse{Success: true, Data: data})
}

// Created returns a 201 success response.
func Created(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusCreated, JSONResponse{Success: true, Data: data})
}

// Paginated returns a list with page metadata.
func Paginated(ctx *gin.Context, data interface{}, meta *Meta) {
	ctx.JSON(http.StatusOK, JSONResponse{Success: true, Data: data, Meta: meta})
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code string, message string) {
	ctx.JSON(status, JSONResponse{Success: false, Error: &ErrorBody{Code: code, Message: message}})
}

// Fail serializes any error. AppErrors keep their status and code; everything else is
// a 500 whose message is only exposed in debug mode.
func Fail(ctx *gin.Context, err error) {
	if ae, ok := AsAppError(err); ok {
		Error(ctx, ae.Status, ae.Code, ae.Message)
		return
	}
	L(ctx.Request.Context()).Errorw("unhandled error", "path", ctx.Request.URL.Path, "err", err)
	msg := "internal server error"
	if gin.Mode() == gin.DebugMode {
		msg = err.Error()
	}
	Error(ctx, http.StatusInternalServerError, CodeInternal, msg)
}

// Abort writes the error and stops the handler chain.
func Abort(ctx *gin.Context, err error) {
	Fail(ctx, err)
	ctx.Abort()
}
