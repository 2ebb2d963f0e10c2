package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"retailpos/internal/domain/audit"
)

// AuditHandler exposes the activity log.
type AuditHandler struct {
	*BaseHandler
	history audit.History
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, history audit.History) *AuditHandler {
	return &AuditHandler{BaseHandler: base, history: history}
}

// History handles GET /audit/:entityType/:entityId.
func (h *AuditHandler) History(c *gin.Context) {
	limit := h.ParseIntQuery(c, "limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	records, err := h.history.History(c.Request.Context(), c.Param("entityType"), c.Param("entityId"), limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	if records == nil {
		records = []audit.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"items": records})
}
