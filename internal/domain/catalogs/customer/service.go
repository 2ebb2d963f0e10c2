package customer

import (
	"context"
	"fmt"
	"time"

	"retailpos/internal/core/apperror"
	"retailpos/internal/core/id"
	"retailpos/internal/core/tx"
	"retailpos/internal/core/types"
	"retailpos/internal/domain"
	"retailpos/pkg/logger"
)

const accountAttempts = 3

// Service provides the Customer catalog and the statistics aggregator.
type Service struct {
	*domain.CatalogService[*Customer]
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new Customer service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Customer]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "customer",
	})
	return &Service{
		CatalogService: base,
		repo:           repo,
		txManager:      txManager,
	}
}

// mutate runs a locked read-modify-write of one customer account.
// Statistics are always recomputed from the row read under the lock.
func (s *Service) mutate(ctx context.Context, customerID id.ID, fn func(c *Customer) error) (*Customer, error) {
	var result *Customer
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		for attempt := 1; ; attempt++ {
			c, err := s.repo.GetForUpdate(ctx, customerID)
			if err != nil {
				if apperror.IsNotFound(err) {
					return apperror.NewNotFound("customer", customerID.String())
				}
				return fmt.Errorf("lock customer: %w", err)
			}
			if err := fn(c); err != nil {
				return err
			}
			err = s.repo.SaveAccount(ctx, c)
			if err == nil {
				result = c
				return nil
			}
			if !apperror.IsConcurrentModification(err) || attempt >= accountAttempts {
				return err
			}
			logger.Debug(ctx, "customer account conflict, retrying", "customer_id", customerID, "attempt", attempt)
		}
	})
	return result, err
}

// RecordOrder counts a completed sale of amount towards the customer's statistics.
func (s *Service) RecordOrder(ctx context.Context, customerID id.ID, amount types.Money, items []ProductCount) error {
	_, err := s.mutate(ctx, customerID, func(c *Customer) error {
		c.Statistics.recordOrder(amount, items, time.Now().UTC())
		return nil
	})
	return err
}

// AdjustSpend changes TotalSpent by delta without touching the order count.
// Refunds and voids pass a negative delta.
func (s *Service) AdjustSpend(ctx context.Context, customerID id.ID, delta types.Money) error {
	_, err := s.mutate(ctx, customerID, func(c *Customer) error {
		c.Statistics.adjustSpend(delta)
		return nil
	})
	return err
}

// CreditCharge describes a store-credit payment.
type CreditCharge struct {
	CustomerID id.ID
	Amount     types.Money
	SaleID     id.ID
	Reference  string
	ActorID    string
}

// ChargeCredit adds amount to the customer's outstanding balance and records the ledger entry.
// A positive CreditLimit must not be exceeded.
func (s *Service) ChargeCredit(ctx context.Context, charge CreditCharge) (*CreditTransaction, error) {
	if !charge.Amount.IsPositive() {
		return nil, apperror.NewValidation("credit charge must be positive").WithDetail("field", "amount")
	}

	var txn *CreditTransaction
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		_, err := s.mutate(ctx, charge.CustomerID, func(c *Customer) error {
			if !c.IsActive {
				return apperror.NewInvalidState("customer", "customer is inactive")
			}
			newBalance := c.CreditBalance.Add(charge.Amount)
			if c.CreditLimit.IsPositive() && newBalance.GreaterThan(c.CreditLimit) {
				return apperror.NewInvalidState("customer", "store credit limit exceeded").
					WithDetail("credit_limit", c.CreditLimit.StringFixed(types.MoneyScale)).
					WithDetail("credit_balance", c.CreditBalance.StringFixed(types.MoneyScale))
			}
			c.CreditBalance = newBalance
			saleID := charge.SaleID
			txn = &CreditTransaction{
				ID:           id.New(),
				CustomerID:   c.ID,
				Amount:       charge.Amount,
				BalanceAfter: newBalance,
				SaleID:       &saleID,
				Reference:    charge.Reference,
				ActorID:      charge.ActorID,
				CreatedAt:    time.Now().UTC(),
			}
			return nil
		})
		if err != nil {
			return err
		}
		if err := s.repo.AppendCreditTransaction(ctx, txn); err != nil {
			return fmt.Errorf("append credit transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// SettleCredit records a repayment that lowers the outstanding balance.
func (s *Service) SettleCredit(ctx context.Context, customerID id.ID, amount types.Money, reference, actorID string) (*CreditTransaction, error) {
	if !amount.IsPositive() {
		return nil, apperror.NewValidation("settlement must be positive").WithDetail("field", "amount")
	}

	var txn *CreditTransaction
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		_, err := s.mutate(ctx, customerID, func(c *Customer) error {
			if amount.GreaterThan(c.CreditBalance) {
				return apperror.NewInvalidState("customer", "settlement exceeds outstanding balance").
					WithDetail("credit_balance", c.CreditBalance.StringFixed(types.MoneyScale))
			}
			c.CreditBalance = c.CreditBalance.Sub(amount)
			txn = &CreditTransaction{
				ID:           id.New(),
				CustomerID:   c.ID,
				Amount:       amount.Neg(),
				BalanceAfter: c.CreditBalance,
				Reference:    reference,
				ActorID:      actorID,
				CreatedAt:    time.Now().UTC(),
			}
			return nil
		})
		if err != nil {
			return err
		}
		return s.repo.AppendCreditTransaction(ctx, txn)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// CreditStatement is the store-credit view of a customer.
type CreditStatement struct {
	CustomerID   id.ID               `json:"customerId"`
	CreditLimit  types.Money         `json:"creditLimit"`
	Balance      types.Money         `json:"balance"`
	Transactions []CreditTransaction `json:"transactions"`
}

// Credit returns the balance and the latest ledger entries of a customer.
func (s *Service) Credit(ctx context.Context, customerID id.ID, limit int) (*CreditStatement, error) {
	c, err := s.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	txns, err := s.repo.ListCreditTransactions(ctx, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list credit transactions: %w", err)
	}
	return &CreditStatement{
		CustomerID:   c.ID,
		CreditLimit:  c.CreditLimit,
		Balance:      c.CreditBalance,
		Transactions: txns,
	}, nil
}
