package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"retailpos/internal/domain/sales"
	"retailpos/internal/infrastructure/http/v1/dto"
)

// SaleHandler exposes the sale workflow engine.
type SaleHandler struct {
	*BaseHandler
	engine *sales.Engine
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, engine *sales.Engine) *SaleHandler {
	return &SaleHandler{BaseHandler: base, engine: engine}
}

// Create handles POST /sales.
func (h *SaleHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cmd, err := req.ToCommand()
	if err != nil {
		h.Error(c, err)
		return
	}

	sale, err := h.engine.Create(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, sale)
}

// Quick handles POST /sales/quick: a cash sale without customer or split tender.
func (h *SaleHandler) Quick(c *gin.Context) {
	var req dto.QuickSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cmd, err := req.ToCommand()
	if err != nil {
		h.Error(c, err)
		return
	}

	sale, err := h.engine.QuickSale(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, sale)
}

// List handles GET /sales.
func (h *SaleHandler) List(c *gin.Context) {
	var query dto.SaleListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter, err := query.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.engine.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListResponse(result, dto.FromSaleSummary))
}

// Get handles GET /sales/:id.
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	sale, err := h.engine.Get(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, sale)
}

// GetByReceipt handles GET /sales/receipt/:number.
func (h *SaleHandler) GetByReceipt(c *gin.Context) {
	sale, err := h.engine.GetByReceipt(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, sale)
}

// RecordPayment handles POST /sales/:id/payments.
func (h *SaleHandler) RecordPayment(c *gin.Context) {
	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.RecordPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sale, err := h.engine.RecordPayment(c.Request.Context(), req.ToCommand(saleID))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, sale)
}

// Void handles POST /sales/:id/void.
func (h *SaleHandler) Void(c *gin.Context) {
	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.VoidSaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sale, err := h.engine.Void(c.Request.Context(), sales.VoidCommand{SaleID: saleID, Reason: req.Reason})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, sale)
}

// Refund handles POST /sales/:id/refunds.
func (h *SaleHandler) Refund(c *gin.Context) {
	saleID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.RefundRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cmd, err := req.ToCommand(saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	sale, refund, err := h.engine.Refund(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.RefundResponse{Sale: sale, Refund: refund})
}
