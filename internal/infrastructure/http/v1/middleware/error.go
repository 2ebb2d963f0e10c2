package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"retailpos/internal/core/apperror"
	"retailpos/internal/core/idempotency"
	"retailpos/pkg/logger"
)

// Gin context keys shared by the idempotency middleware and the handlers.
const (
	ContextIdempotencyKey   = "idempotency_key"
	ContextIdempotencyStore = "idempotency_store"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		if appErr, ok := apperror.AsAppError(err); ok {
			if appErr.Err != nil {
				logger.Error(c.Request.Context(), "request error",
					"code", appErr.Code,
					"cause", appErr.Err,
				)
			}

			body := gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
				"details": appErr.Details,
			}
			failIdempotencyKey(c, appErr.HTTPStatus, body)
			c.JSON(appErr.HTTPStatus, body)
			return
		}

		logger.Error(c.Request.Context(), "unhandled error",
			"error", err,
		)

		body := gin.H{
			"code":    apperror.CodeInternal,
			"message": "Internal server error",
			"details": map[string]any{
				"request_id": c.GetString("request_id"),
			},
		}
		failIdempotencyKey(c, http.StatusInternalServerError, body)
		c.JSON(http.StatusInternalServerError, body)
	}
}

// failIdempotencyKey stores the error response under the request's key (best-effort).
func failIdempotencyKey(c *gin.Context, status int, body gin.H) {
	key := c.GetString(ContextIdempotencyKey)
	if key == "" {
		return
	}
	v, _ := c.Get(ContextIdempotencyStore)
	store, ok := v.(idempotency.Store)
	if !ok || store == nil {
		return
	}
	if err := store.FailKey(c.Request.Context(), key, status, "application/json", body); err != nil {
		logger.Warn(c.Request.Context(), "failed to store idempotent error response", "key", key, "error", err)
	}
}
