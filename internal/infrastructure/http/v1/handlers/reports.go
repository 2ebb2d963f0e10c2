package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"retailpos/internal/domain/reports"
	"retailpos/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
	now     func() time.Time
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
		now:         time.Now,
	}
}

// bindFilter parses the period query shared by the range reports.
func (h *ReportsHandler) bindFilter(c *gin.Context) (reports.Filter, bool) {
	var query dto.ReportQuery
	if !h.BindQuery(c, &query) {
		return reports.Filter{}, false
	}
	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return reports.Filter{}, false
	}
	return filter, true
}

// Daily handles GET /reports/daily?date=YYYY-MM-DD.
func (h *ReportsHandler) Daily(c *gin.Context) {
	var query dto.DailyQuery
	if !h.BindQuery(c, &query) {
		return
	}
	day, err := query.Day(h.now())
	if err != nil {
		h.Error(c, err)
		return
	}

	summary, err := h.service.DailySummary(c.Request.Context(), day)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Period handles GET /reports/period.
func (h *ReportsHandler) Period(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	report, err := h.service.PeriodReport(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Products handles GET /reports/products.
func (h *ReportsHandler) Products(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	rows, err := h.service.ProductSales(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

// Sellers handles GET /reports/sellers.
func (h *ReportsHandler) Sellers(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	rows, err := h.service.SellerPerformance(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}
