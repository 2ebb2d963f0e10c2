package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"retailpos/internal/core/apperror"
	"retailpos/internal/core/id"
	"retailpos/internal/core/types"
	"retailpos/internal/domain"
	"retailpos/internal/domain/catalogs/customer"
)

// CustomerRepository implements customer.Repository.
type CustomerRepository struct {
	mu     sync.RWMutex
	byID   map[id.ID]*customer.Customer
	credit map[id.ID][]customer.CreditTransaction
}

var _ customer.Repository = (*CustomerRepository)(nil)

// NewCustomerRepository creates an empty repository.
func NewCustomerRepository() *CustomerRepository {
	return &CustomerRepository{
		byID:   make(map[id.ID]*customer.Customer),
		credit: make(map[id.ID][]customer.CreditTransaction),
	}
}

func cloneCustomer(c *customer.Customer) *customer.Customer {
	out := *c
	out.Statistics.FavoriteProducts = maps.Clone(c.Statistics.FavoriteProducts)
	if out.Statistics.FavoriteProducts == nil {
		out.Statistics.FavoriteProducts = map[id.ID]types.Quantity{}
	}
	if c.Statistics.LastOrderAt != nil {
		t := *c.Statistics.LastOrderAt
		out.Statistics.LastOrderAt = &t
	}
	return &out
}

func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[c.ID]; ok {
		return apperror.NewDuplicate("customer", "id", c.ID.String())
	}
	r.byID[c.ID] = cloneCustomer(c)

	cid := c.ID
	onRollback(ctx, func() {
		r.mu.Lock()
		delete(r.byID, cid)
		r.mu.Unlock()
	})
	return nil
}

func (r *CustomerRepository) GetByID(_ context.Context, customerID id.ID) (*customer.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[customerID]
	if !ok {
		return nil, apperror.NewNotFound("customer", customerID.String())
	}
	return cloneCustomer(c), nil
}

// GetForUpdate has no row lock in memory; SaveAccount's version check guards the write.
func (r *CustomerRepository) GetForUpdate(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	return r.GetByID(ctx, customerID)
}

// Update writes profile fields; statistics and credit balance are kept.
func (r *CustomerRepository) Update(ctx context.Context, c *customer.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[c.ID]
	if !ok {
		return apperror.NewNotFound("customer", c.ID.String())
	}
	if stored.Version != c.Version {
		return apperror.NewConcurrentModification("customer", c.ID)
	}

	prev := cloneCustomer(stored)
	next := cloneCustomer(c)
	next.Statistics = cloneCustomer(stored).Statistics
	next.CreditBalance = stored.CreditBalance
	next.Version = stored.Version + 1
	r.byID[c.ID] = next
	c.Version = next.Version

	onRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if cur, ok := r.byID[prev.ID]; ok {
			prev.Statistics = cur.Statistics
			prev.CreditBalance = cur.CreditBalance
			prev.Version = cur.Version
			r.byID[prev.ID] = prev
		}
	})
	return nil
}

func (r *CustomerRepository) List(_ context.Context, filter domain.ListFilter) (domain.ListResult[*customer.Customer], error) {
	r.mu.RLock()
	items := make([]*customer.Customer, 0, len(r.byID))
	search := strings.ToLower(filter.Search)
	for _, c := range r.byID {
		if !filter.IncludeInactive && !c.IsActive {
			continue
		}
		if len(filter.IDs) > 0 && !slices.Contains(filter.IDs, c.ID) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.Email), search) &&
			!strings.Contains(c.Phone, search) {
			continue
		}
		items = append(items, cloneCustomer(c))
	}
	r.mu.RUnlock()

	slices.SortFunc(items, func(a, b *customer.Customer) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID.String(), b.ID.String()))
	})
	return paginate(items, filter.Limit, filter.Offset), nil
}

// SaveAccount stores statistics and credit balance. Rollback subtracts the
// change rather than restoring a snapshot, so concurrent committed updates survive.
func (r *CustomerRepository) SaveAccount(ctx context.Context, c *customer.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[c.ID]
	if !ok {
		return apperror.NewNotFound("customer", c.ID.String())
	}
	if stored.Version != c.Version {
		return apperror.NewConcurrentModification("customer", c.ID)
	}

	prev := cloneCustomer(stored)
	next := cloneCustomer(c)
	stored.Statistics = next.Statistics
	stored.CreditBalance = next.CreditBalance
	stored.Version++
	c.Version = stored.Version

	spentDelta := next.Statistics.TotalSpent.Sub(prev.Statistics.TotalSpent)
	ordersDelta := next.Statistics.TotalOrders - prev.Statistics.TotalOrders
	balanceDelta := next.CreditBalance.Sub(prev.CreditBalance)
	favDelta := make(map[id.ID]types.Quantity)
	for pid, qty := range next.Statistics.FavoriteProducts {
		if d := qty - prev.Statistics.FavoriteProducts[pid]; d != 0 {
			favDelta[pid] = d
		}
	}
	prevLastOrder := prev.Statistics.LastOrderAt

	onRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		cur, ok := r.byID[prev.ID]
		if !ok {
			return
		}
		st := &cur.Statistics
		st.TotalSpent = st.TotalSpent.Sub(spentDelta)
		st.TotalOrders -= ordersDelta
		for pid, d := range favDelta {
			st.FavoriteProducts[pid] -= d
			if st.FavoriteProducts[pid] == 0 {
				delete(st.FavoriteProducts, pid)
			}
		}
		if ordersDelta != 0 {
			st.LastOrderAt = prevLastOrder
		}
		if st.TotalOrders == 0 {
			st.AverageOrderValue = types.Zero()
		} else {
			st.AverageOrderValue = types.RoundMoney(st.TotalSpent.Div(decimal.NewFromInt(st.TotalOrders)))
		}
		cur.CreditBalance = cur.CreditBalance.Sub(balanceDelta)
		cur.Version++
	})
	return nil
}

func (r *CustomerRepository) AppendCreditTransaction(ctx context.Context, t *customer.CreditTransaction) error {
	r.mu.Lock()
	r.credit[t.CustomerID] = append(r.credit[t.CustomerID], *t)
	r.mu.Unlock()

	txnID, customerID := t.ID, t.CustomerID
	onRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.credit[customerID] = slices.DeleteFunc(r.credit[customerID], func(x customer.CreditTransaction) bool {
			return x.ID == txnID
		})
	})
	return nil
}

func (r *CustomerRepository) ListCreditTransactions(_ context.Context, customerID id.ID, limit int) ([]customer.CreditTransaction, error) {
	r.mu.RLock()
	all := slices.Clone(r.credit[customerID])
	r.mu.RUnlock()

	slices.Reverse(all)
	return window(all, limit, 0), nil
}
