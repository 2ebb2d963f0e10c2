package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"retailpos/internal/domain/catalogs/product"
	"retailpos/internal/infrastructure/http/v1/dto"
)

// ProductHandler serves the product catalog and its inventory ledger.
type ProductHandler struct {
	*CatalogHandler[*product.Product, dto.CreateProductRequest, dto.UpdateProductRequest, dto.ProductResponse]
	service *product.Service
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	catalog := NewCatalogHandler(base, CatalogHandlerConfig[*product.Product, dto.CreateProductRequest, dto.UpdateProductRequest, dto.ProductResponse]{
		Service:      service,
		MapCreateDTO: dto.CreateProductRequest.ToEntity,
		MapUpdateDTO: dto.UpdateProductRequest.ApplyTo,
		MapToDTO:     dto.FromProduct,
	})
	return &ProductHandler{CatalogHandler: catalog, service: service}
}

// Movements handles GET /products/:id/movements.
func (h *ProductHandler) Movements(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	movements, err := h.service.Movements(c.Request.Context(), productID,
		h.ParseIntQuery(c, "limit", 100), h.ParseIntQuery(c, "offset", 0))
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": movements})
}

// AdjustStock handles POST /products/:id/stock-adjustments.
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.StockAdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	stock, err := h.service.Adjust(c.Request.Context(), productID, req.Delta, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.StockAdjustmentResponse{
		ProductID:    productID.String(),
		Delta:        req.Delta,
		CurrentStock: stock,
	})
}
