// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"retailpos/internal/core/apperror"
	appctx "retailpos/internal/core/context"
	"retailpos/pkg/logger"
)

// Recovery turns a handler panic into a 500 INTERNAL_ERROR response.
//
// ErrorHandler renders after c.Next returns, which a panicking request
// never does, so the response is written here. A pending idempotency key
// is failed with the same body.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			ctx := c.Request.Context()
			requestID := appctx.GetRequestID(ctx)
			logger.Error(ctx, "panic in handler",
				"panic", r,
				"method", c.Request.Method,
				"route", c.FullPath(),
				"stack", string(debug.Stack()),
			)
			_ = c.Error(apperror.NewInternal(fmt.Errorf("panic: %v", r)))

			if c.Writer.Written() {
				c.Abort()
				return
			}
			body := gin.H{
				"code":    apperror.CodeInternal,
				"message": "Internal server error",
				"details": map[string]any{"request_id": requestID},
			}
			failIdempotencyKey(c, http.StatusInternalServerError, body)
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()
		c.Next()
	}
}
