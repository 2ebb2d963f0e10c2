package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"retailpos/internal/core/apperror"
	"retailpos/internal/core/id"
	"retailpos/internal/domain/catalogs/customer"
	"retailpos/internal/infrastructure/storage/postgres"
)

const (
	customerTable     = "customers"
	creditLedgerTable = "credit_transactions"
)

var creditColumns = []string{
	"id", "customer_id", "amount", "balance_after", "sale_id", "reference", "actor_id", "created_at",
}

// CustomerRepo implements customer.Repository.
type CustomerRepo struct {
	*BaseCatalogRepo[*customer.Customer]
}

var _ customer.Repository = (*CustomerRepo)(nil)

// NewCustomerRepo creates a new customer repository.
func NewCustomerRepo(txManager *postgres.TxManager) *CustomerRepo {
	return &CustomerRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(txManager, CatalogConfig{
			Table:         customerTable,
			Entity:        "customer",
			SelectCols:    postgres.ExtractDBColumns[customer.Customer](),
			SearchCols:    []string{"name", "email", "phone"},
			ProtectedCols: []string{"statistics", "credit_balance"},
		}, func() *customer.Customer { return new(customer.Customer) }),
	}
}

// SaveAccount implements customer.Repository.
func (r *CustomerRepo) SaveAccount(ctx context.Context, c *customer.Customer) error {
	now := time.Now().UTC()
	sql, args, err := r.Builder().
		Update(customerTable).
		Set("statistics", c.Statistics).
		Set("credit_balance", c.CreditBalance).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": c.ID}).
		Where(squirrel.Eq{"version": c.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build account update: %w", err)
	}

	tag, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, c.ID); err != nil {
			return err
		}
		return apperror.NewConcurrentModification("customer", c.ID)
	}

	c.Touch(now)
	return nil
}

// AppendCreditTransaction implements customer.Repository.
func (r *CustomerRepo) AppendCreditTransaction(ctx context.Context, t *customer.CreditTransaction) error {
	sql, args, err := r.Builder().
		Insert(creditLedgerTable).
		Columns(creditColumns...).
		Values(t.ID, t.CustomerID, t.Amount, t.BalanceAfter, t.SaleID, t.Reference, t.ActorID, t.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build credit insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert credit transaction: %w", err)
	}
	return nil
}

// ListCreditTransactions implements customer.Repository.
func (r *CustomerRepo) ListCreditTransactions(ctx context.Context, customerID id.ID, limit int) ([]customer.CreditTransaction, error) {
	sql, args, err := r.Builder().
		Select(creditColumns...).
		From(creditLedgerTable).
		Where(squirrel.Eq{"customer_id": customerID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	txns := []customer.CreditTransaction{}
	if err := pgxscan.Select(ctx, r.querier(ctx), &txns, sql, args...); err != nil {
		return nil, fmt.Errorf("list credit transactions: %w", err)
	}
	return txns, nil
}
