// Package memory provides in-process repositories and a transaction manager
// with rollback support. It backs the "memory" storage driver and the domain tests.
//
// Writes are applied immediately and undone on rollback, so concurrent
// transactions may observe uncommitted data. Version checks still prevent
// lost updates.
package memory

import (
	"context"
	"sync"

	"retailpos/internal/core/tx"
)

var _ tx.ReadOnlyManager = (*TxManager)(nil)

// journal collects undo actions of one transaction or savepoint.
type journal struct {
	mu   sync.Mutex
	undo []func()
}

func (j *journal) add(fn func()) {
	j.mu.Lock()
	j.undo = append(j.undo, fn)
	j.mu.Unlock()
}

func (j *journal) rollback() {
	j.mu.Lock()
	undo := j.undo
	j.undo = nil
	j.mu.Unlock()

	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
}

// merge hands the actions of a released savepoint to its parent.
func (j *journal) merge(child *journal) {
	child.mu.Lock()
	undo := child.undo
	child.undo = nil
	child.mu.Unlock()

	j.mu.Lock()
	j.undo = append(j.undo, undo...)
	j.mu.Unlock()
}

type txKey struct{}

func journalFrom(ctx context.Context) *journal {
	if j, ok := ctx.Value(txKey{}).(*journal); ok {
		return j
	}
	return nil
}

// onRollback registers undo in the transaction carried by ctx.
// Outside a transaction writes are final and undo is dropped.
func onRollback(ctx context.Context, undo func()) {
	if j := journalFrom(ctx); j != nil {
		j.add(undo)
	}
}

// InTx reports whether ctx carries a transaction.
func InTx(ctx context.Context) bool {
	return journalFrom(ctx) != nil
}

// TxManager implements tx.Manager over the undo journal.
type TxManager struct{}

// NewTxManager creates a new transaction manager.
func NewTxManager() *TxManager {
	return &TxManager{}
}

// RunInTransaction executes fn within a transaction; nested calls reuse it.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if journalFrom(ctx) != nil {
		return fn(ctx)
	}

	j := &journal{}
	if err := fn(context.WithValue(ctx, txKey{}, j)); err != nil {
		j.rollback()
		return err
	}
	return nil
}

// RunInSavepoint undoes only fn's writes when fn fails.
func (m *TxManager) RunInSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	parent := journalFrom(ctx)
	if parent == nil {
		return m.RunInTransaction(ctx, fn)
	}

	child := &journal{}
	if err := fn(context.WithValue(ctx, txKey{}, child)); err != nil {
		child.rollback()
		return err
	}
	parent.merge(child)
	return nil
}

// ReadOnly executes fn in a transaction; nothing enforces read-only access.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransaction(ctx, fn)
}
