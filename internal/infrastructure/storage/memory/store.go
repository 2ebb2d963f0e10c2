package memory

import (
	"time"

	"retailpos/internal/core/numerator"
)

// Store bundles every in-memory repository behind one transaction manager.
type Store struct {
	Tx          *TxManager
	Products    *ProductRepository
	Customers   *CustomerRepository
	Sales       *SaleRepository
	Audit       *AuditLog
	Outbox      *Outbox
	Idempotency *IdempotencyStore
	Numerator   *numerator.InMemoryGenerator
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		Tx:          NewTxManager(),
		Products:    NewProductRepository(),
		Customers:   NewCustomerRepository(),
		Sales:       NewSaleRepository(),
		Audit:       NewAuditLog(),
		Outbox:      NewOutbox(),
		Idempotency: NewIdempotencyStore(24 * time.Hour),
		Numerator:   numerator.NewInMemoryGenerator(),
	}
}
