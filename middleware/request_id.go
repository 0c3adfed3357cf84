package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cppla/qaforum/utils"
)

const RequestIDHeader = "X-Request-ID"

// RequestID propagates or assigns a request id and echoes it in the response.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		ctx.Set(utils.ContextRequestIDKey, id)
		ctx.Request = ctx.Request.WithContext(utils.WithRequestID(ctx.Request.Context(), id))
		ctx.Header(RequestIDHeader, id)
		ctx.Next()
	}
}
