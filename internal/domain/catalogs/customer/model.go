// Package customer provides the Customer catalog, its purchase statistics and store credit.
package customer

import (
	"cmp"
	"context"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"retailpos/internal/core/apperror"
	"retailpos/internal/core/entity"
	"retailpos/internal/core/id"
	"retailpos/internal/core/types"
)

// Customer is a buyer that sales may be linked to.
type Customer struct {
	entity.BaseEntity

	Name     string `db:"name" json:"name"`
	Email    string `db:"email" json:"email,omitempty"`
	Phone    string `db:"phone" json:"phone,omitempty"`
	IsActive bool   `db:"is_active" json:"isActive"`

	Statistics Statistics `db:"statistics" json:"statistics"`

	// CreditLimit caps CreditBalance; zero means store credit is unlimited.
	CreditLimit types.Money `db:"credit_limit" json:"creditLimit"`
	// CreditBalance is the outstanding store-credit debt.
	CreditBalance types.Money `db:"credit_balance" json:"creditBalance"`
}

// NewCustomer creates an active customer with empty statistics.
func NewCustomer(name string) *Customer {
	return &Customer{
		BaseEntity: entity.NewBaseEntity(),
		Name:       strings.TrimSpace(name),
		IsActive:   true,
		Statistics: Statistics{FavoriteProducts: map[id.ID]types.Quantity{}},
	}
}

// Validate implements entity.Validatable.
func (c *Customer) Validate(_ context.Context) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return apperror.NewValidation("email is invalid").WithDetail("field", "email")
		}
	}
	if c.CreditLimit.IsNegative() {
		return apperror.NewValidation("credit limit must not be negative").WithDetail("field", "creditLimit")
	}
	return nil
}

// Statistics are running purchase aggregates maintained by the sale workflow.
type Statistics struct {
	TotalSpent        types.Money `json:"totalSpent"`
	TotalOrders       int64       `json:"totalOrders"`
	AverageOrderValue types.Money `json:"averageOrderValue"`
	// FavoriteProducts maps a product to the cumulative quantity bought.
	FavoriteProducts map[id.ID]types.Quantity `json:"favoriteProducts"`
	LastOrderAt      *time.Time               `json:"lastOrderAt,omitempty"`
}

// ProductCount is one product/quantity pair of an order.
type ProductCount struct {
	ProductID id.ID          `json:"productId"`
	Quantity  types.Quantity `json:"quantity"`
}

func (s *Statistics) recordOrder(amount types.Money, items []ProductCount, at time.Time) {
	s.TotalOrders++
	s.TotalSpent = s.TotalSpent.Add(amount)
	if s.FavoriteProducts == nil {
		s.FavoriteProducts = make(map[id.ID]types.Quantity, len(items))
	}
	for _, item := range items {
		s.FavoriteProducts[item.ProductID] += item.Quantity
	}
	s.LastOrderAt = &at
	s.recomputeAverage()
}

// adjustSpend never lets TotalSpent drop below zero.
func (s *Statistics) adjustSpend(delta types.Money) {
	s.TotalSpent = decimal.Max(s.TotalSpent.Add(delta), types.Zero())
	s.recomputeAverage()
}

// recomputeAverage derives AverageOrderValue from the post-update totals.
func (s *Statistics) recomputeAverage() {
	if s.TotalOrders == 0 {
		s.AverageOrderValue = types.Zero()
		return
	}
	s.AverageOrderValue = types.RoundMoney(s.TotalSpent.Div(decimal.NewFromInt(s.TotalOrders)))
}

// TopProducts returns up to n product IDs ordered by cumulative quantity, highest first.
func (s *Statistics) TopProducts(n int) []ProductCount {
	out := make([]ProductCount, 0, len(s.FavoriteProducts))
	for pid, qty := range s.FavoriteProducts {
		out = append(out, ProductCount{ProductID: pid, Quantity: qty})
	}
	slices.SortFunc(out, func(a, b ProductCount) int {
		if c := cmp.Compare(b.Quantity, a.Quantity); c != 0 {
			return c
		}
		return strings.Compare(a.ProductID.String(), b.ProductID.String())
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// CreditTransaction is one entry of a customer's store-credit ledger.
// Positive amounts are charges, negative amounts are settlements.
type CreditTransaction struct {
	ID           id.ID       `db:"id" json:"id"`
	CustomerID   id.ID       `db:"customer_id" json:"customerId"`
	Amount       types.Money `db:"amount" json:"amount"`
	BalanceAfter types.Money `db:"balance_after" json:"balanceAfter"`
	SaleID       *id.ID      `db:"sale_id" json:"saleId,omitempty"`
	Reference    string      `db:"reference" json:"reference,omitempty"`
	ActorID      string      `db:"actor_id" json:"actorId,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
}
