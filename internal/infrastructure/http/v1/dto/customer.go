package dto

import (
	"time"

	"retailpos/internal/core/types"
	"retailpos/internal/domain/catalogs/customer"
)

// CreateCustomerRequest is the request body for creating a customer.
type CreateCustomerRequest struct {
	Name        string      `json:"name" binding:"required"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	CreditLimit types.Money `json:"creditLimit"`
}

// ToEntity converts DTO to domain entity.
func (r CreateCustomerRequest) ToEntity() *customer.Customer {
	c := customer.NewCustomer(r.Name)
	c.Email = r.Email
	c.Phone = r.Phone
	c.CreditLimit = r.CreditLimit
	return c
}

// UpdateCustomerRequest is the request body for updating a customer.
// Statistics and the credit balance are owned by the sale workflow.
type UpdateCustomerRequest struct {
	Name        string      `json:"name" binding:"required"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	IsActive    bool        `json:"isActive"`
	CreditLimit types.Money `json:"creditLimit"`
	Version     int         `json:"version" binding:"required,min=1"`
}

// ApplyTo copies the editable fields onto existing.
func (r UpdateCustomerRequest) ApplyTo(existing *customer.Customer) *customer.Customer {
	existing.Name = r.Name
	existing.Email = r.Email
	existing.Phone = r.Phone
	existing.IsActive = r.IsActive
	existing.CreditLimit = r.CreditLimit
	existing.Version = r.Version
	return existing
}

// SettleCreditRequest records a store-credit repayment.
type SettleCreditRequest struct {
	Amount    types.Money `json:"amount"`
	Reference string      `json:"reference"`
}

// StatisticsResponse is the API view of customer statistics.
type StatisticsResponse struct {
	TotalSpent        types.Money             `json:"totalSpent"`
	TotalOrders       int64                   `json:"totalOrders"`
	AverageOrderValue types.Money             `json:"averageOrderValue"`
	TopProducts       []customer.ProductCount `json:"topProducts"`
	LastOrderAt       *time.Time              `json:"lastOrderAt,omitempty"`
}

// CustomerResponse is the API view of a customer.
type CustomerResponse struct {
	BaseResponse
	Name          string             `json:"name"`
	Email         string             `json:"email,omitempty"`
	Phone         string             `json:"phone,omitempty"`
	IsActive      bool               `json:"isActive"`
	Statistics    StatisticsResponse `json:"statistics"`
	CreditLimit   types.Money        `json:"creditLimit"`
	CreditBalance types.Money        `json:"creditBalance"`
}

const topProductsShown = 5

// FromCustomer creates CustomerResponse from the domain entity.
func FromCustomer(c *customer.Customer) CustomerResponse {
	return CustomerResponse{
		BaseResponse: FromBase(c.BaseEntity),
		Name:         c.Name,
		Email:        c.Email,
		Phone:        c.Phone,
		IsActive:     c.IsActive,
		Statistics: StatisticsResponse{
			TotalSpent:        c.Statistics.TotalSpent,
			TotalOrders:       c.Statistics.TotalOrders,
			AverageOrderValue: c.Statistics.AverageOrderValue,
			TopProducts:       c.Statistics.TopProducts(topProductsShown),
			LastOrderAt:       c.Statistics.LastOrderAt,
		},
		CreditLimit:   c.CreditLimit,
		CreditBalance: c.CreditBalance,
	}
}
