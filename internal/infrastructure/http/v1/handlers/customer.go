package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"retailpos/internal/domain/catalogs/customer"
	"retailpos/internal/infrastructure/http/v1/dto"
)

// CustomerHandler serves customers and their store-credit accounts.
type CustomerHandler struct {
	*CatalogHandler[*customer.Customer, dto.CreateCustomerRequest, dto.UpdateCustomerRequest, dto.CustomerResponse]
	service *customer.Service
}

// NewCustomerHandler creates a new customer handler.
func NewCustomerHandler(base *BaseHandler, service *customer.Service) *CustomerHandler {
	catalog := NewCatalogHandler(base, CatalogHandlerConfig[*customer.Customer, dto.CreateCustomerRequest, dto.UpdateCustomerRequest, dto.CustomerResponse]{
		Service:      service,
		MapCreateDTO: dto.CreateCustomerRequest.ToEntity,
		MapUpdateDTO: dto.UpdateCustomerRequest.ApplyTo,
		MapToDTO:     dto.FromCustomer,
	})
	return &CustomerHandler{CatalogHandler: catalog, service: service}
}

// Credit handles GET /customers/:id/credit.
func (h *CustomerHandler) Credit(c *gin.Context) {
	customerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	statement, err := h.service.Credit(c.Request.Context(), customerID, h.ParseIntQuery(c, "limit", 50))
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, statement)
}

// SettleCredit handles POST /customers/:id/credit/settlements.
func (h *CustomerHandler) SettleCredit(c *gin.Context) {
	customerID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.SettleCreditRequest
	if !h.BindJSON(c, &req) {
		return
	}

	txn, err := h.service.SettleCredit(c.Request.Context(), customerID, req.Amount, req.Reference, h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, txn)
}
