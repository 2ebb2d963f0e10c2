package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"retailpos/internal/core/apperror"
	"retailpos/internal/core/id"
	"retailpos/internal/core/types"
	"retailpos/internal/domain"
	"retailpos/internal/domain/catalogs/product"
)

// ProductRepository implements product.Repository.
type ProductRepository struct {
	mu        sync.RWMutex
	byID      map[id.ID]*product.Product
	movements map[id.ID][]product.StockMovement
}

var _ product.Repository = (*ProductRepository)(nil)

// NewProductRepository creates an empty repository.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		byID:      make(map[id.ID]*product.Product),
		movements: make(map[id.ID][]product.StockMovement),
	}
}

func cloneProduct(p *product.Product) *product.Product {
	c := *p
	c.PricingRules = slices.Clone(p.PricingRules)
	return &c
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[p.ID]; ok {
		return apperror.NewDuplicate("product", "id", p.ID.String())
	}
	for _, existing := range r.byID {
		if strings.EqualFold(existing.SKU, p.SKU) {
			return apperror.NewDuplicate("product", "sku", p.SKU)
		}
	}
	r.byID[p.ID] = cloneProduct(p)

	pid := p.ID
	onRollback(ctx, func() {
		r.mu.Lock()
		delete(r.byID, pid)
		r.mu.Unlock()
	})
	return nil
}

func (r *ProductRepository) GetByID(_ context.Context, productID id.ID) (*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	return cloneProduct(p), nil
}

func (r *ProductRepository) GetBySKU(_ context.Context, sku string) (*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.byID {
		if strings.EqualFold(p.SKU, sku) {
			return cloneProduct(p), nil
		}
	}
	return nil, apperror.NewNotFound("product", sku)
}

// Update writes catalog fields; CurrentStock is owned by the ledger and kept.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[p.ID]
	if !ok {
		return apperror.NewNotFound("product", p.ID.String())
	}
	if stored.Version != p.Version {
		return apperror.NewConcurrentModification("product", p.ID)
	}

	prev := cloneProduct(stored)
	next := cloneProduct(p)
	next.CurrentStock = stored.CurrentStock
	next.Version = stored.Version + 1
	r.byID[p.ID] = next
	p.Version = next.Version
	p.CurrentStock = next.CurrentStock

	onRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if cur, ok := r.byID[prev.ID]; ok {
			prev.CurrentStock = cur.CurrentStock
			prev.Version = cur.Version
			r.byID[prev.ID] = prev
		}
	})
	return nil
}

func (r *ProductRepository) List(_ context.Context, filter domain.ListFilter) (domain.ListResult[*product.Product], error) {
	r.mu.RLock()
	items := make([]*product.Product, 0, len(r.byID))
	search := strings.ToLower(filter.Search)
	for _, p := range r.byID {
		if !filter.IncludeInactive && !p.IsActive {
			continue
		}
		if len(filter.IDs) > 0 && !slices.Contains(filter.IDs, p.ID) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.SKU), search) {
			continue
		}
		items = append(items, cloneProduct(p))
	}
	r.mu.RUnlock()

	slices.SortFunc(items, func(a, b *product.Product) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.SKU, b.SKU))
	})
	return paginate(items, filter.Limit, filter.Offset), nil
}

func (r *ProductRepository) CompareAndSetStock(ctx context.Context, productID id.ID, expectedVersion int, newStock types.Quantity) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[productID]
	if !ok {
		return false, apperror.NewNotFound("product", productID.String())
	}
	if stored.Version != expectedVersion {
		return false, nil
	}

	delta := newStock - stored.CurrentStock
	stored.CurrentStock = newStock
	stored.Version++

	onRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if cur, ok := r.byID[productID]; ok {
			cur.CurrentStock -= delta
			cur.Version++
		}
	})
	return true, nil
}

func (r *ProductRepository) AppendMovement(ctx context.Context, m *product.StockMovement) error {
	r.mu.Lock()
	r.movements[m.ProductID] = append(r.movements[m.ProductID], *m)
	r.mu.Unlock()

	movementID, productID := m.ID, m.ProductID
	onRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.movements[productID] = slices.DeleteFunc(r.movements[productID], func(x product.StockMovement) bool {
			return x.ID == movementID
		})
	})
	return nil
}

func (r *ProductRepository) ListMovements(_ context.Context, productID id.ID, limit, offset int) ([]product.StockMovement, error) {
	r.mu.RLock()
	all := slices.Clone(r.movements[productID])
	r.mu.RUnlock()

	slices.Reverse(all)
	return window(all, limit, offset), nil
}

func paginate[T any](items []T, limit, offset int) domain.ListResult[T] {
	return domain.ListResult[T]{
		Items:      window(items, limit, offset),
		TotalCount: int64(len(items)),
		Limit:      limit,
		Offset:     offset,
	}
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
