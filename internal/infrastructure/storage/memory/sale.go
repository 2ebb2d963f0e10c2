package memory

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"
	"time"

	"retailpos/internal/core/apperror"
	"retailpos/internal/core/id"
	"retailpos/internal/domain"
	"retailpos/internal/domain/reports"
	"retailpos/internal/domain/sales"
)

// SaleRepository implements sales.Repository and reports.SaleSource.
type SaleRepository struct {
	mu        sync.RWMutex
	byID      map[id.ID]*sales.Sale
	byReceipt map[string]id.ID
}

var (
	_ sales.Repository   = (*SaleRepository)(nil)
	_ reports.SaleSource = (*SaleRepository)(nil)
)

// NewSaleRepository creates an empty repository.
func NewSaleRepository() *SaleRepository {
	return &SaleRepository{
		byID:      make(map[id.ID]*sales.Sale),
		byReceipt: make(map[string]id.ID),
	}
}

func cloneSale(s *sales.Sale) *sales.Sale {
	out := *s
	out.Items = slices.Clone(s.Items)
	out.Payment.Details = slices.Clone(s.Payment.Details)
	if s.CustomerID != nil {
		cid := *s.CustomerID
		out.CustomerID = &cid
	}
	if s.VoidInfo != nil {
		v := *s.VoidInfo
		out.VoidInfo = &v
	}
	if s.RefundInfo != nil {
		ri := *s.RefundInfo
		ri.Refunds = make([]sales.RefundRecord, len(s.RefundInfo.Refunds))
		for i, rec := range s.RefundInfo.Refunds {
			rec.Lines = slices.Clone(rec.Lines)
			ri.Refunds[i] = rec
		}
		out.RefundInfo = &ri
	}
	return &out
}

func (r *SaleRepository) Create(ctx context.Context, s *sales.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byReceipt[s.ReceiptNumber]; ok {
		return apperror.NewDuplicate("sale", "receipt_number", s.ReceiptNumber)
	}
	r.byID[s.ID] = cloneSale(s)
	r.byReceipt[s.ReceiptNumber] = s.ID

	saleID, receipt := s.ID, s.ReceiptNumber
	onRollback(ctx, func() {
		r.mu.Lock()
		delete(r.byID, saleID)
		delete(r.byReceipt, receipt)
		r.mu.Unlock()
	})
	return nil
}

func (r *SaleRepository) Update(ctx context.Context, s *sales.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[s.ID]
	if !ok {
		return apperror.NewNotFound("sale", s.ID.String())
	}
	if stored.Version != s.Version {
		return apperror.NewConcurrentModification("sale", s.ID)
	}

	next := cloneSale(s)
	next.Version = stored.Version + 1
	r.byID[s.ID] = next
	s.Version = next.Version

	onRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		// A later writer needed our version; only restore when nobody built on it.
		if cur, ok := r.byID[stored.ID]; ok && cur.Version == next.Version {
			r.byID[stored.ID] = stored
		}
	})
	return nil
}

func (r *SaleRepository) GetByID(_ context.Context, saleID id.ID) (*sales.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[saleID]
	if !ok {
		return nil, apperror.NewNotFound("sale", saleID.String())
	}
	return cloneSale(s), nil
}

func (r *SaleRepository) GetByReceipt(_ context.Context, receiptNumber string) (*sales.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	saleID, ok := r.byReceipt[receiptNumber]
	if !ok {
		return nil, apperror.NewNotFound("sale", receiptNumber)
	}
	return cloneSale(r.byID[saleID]), nil
}

func (r *SaleRepository) List(_ context.Context, f sales.ListFilter) (domain.ListResult[*sales.Sale], error) {
	r.mu.RLock()
	items := make([]*sales.Sale, 0, len(r.byID))
	for _, s := range r.byID {
		if matchesFilter(s, f) {
			items = append(items, cloneSale(s))
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(items, func(a, b *sales.Sale) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ReceiptNumber, a.ReceiptNumber)
	})
	return paginate(items, f.Limit, f.Offset), nil
}

func matchesFilter(s *sales.Sale, f sales.ListFilter) bool {
	if f.From != nil && s.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !s.CreatedAt.Before(*f.To) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, s.Status) {
		return false
	}
	if f.SellerID != "" && s.SellerID != f.SellerID {
		return false
	}
	if f.CustomerID != nil && (s.CustomerID == nil || *s.CustomerID != *f.CustomerID) {
		return false
	}
	if f.ReceiptContains != "" && !strings.Contains(strings.ToUpper(s.ReceiptNumber), strings.ToUpper(f.ReceiptContains)) {
		return false
	}
	return true
}

func (r *SaleRepository) ListPendingInventory(_ context.Context, limit int) ([]*sales.Sale, error) {
	r.mu.RLock()
	var pending []*sales.Sale
	for _, s := range r.byID {
		if s.InventorySync == sales.InventoryPending {
			pending = append(pending, cloneSale(s))
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(pending, func(a, b *sales.Sale) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return window(pending, limit, 0), nil
}

// SalesBetween yields a snapshot taken when iteration starts; ranging again takes a new one.
func (r *SaleRepository) SalesBetween(_ context.Context, from, to time.Time, sellerID string) iter.Seq[*sales.Sale] {
	return func(yield func(*sales.Sale) bool) {
		r.mu.RLock()
		snapshot := make([]*sales.Sale, 0, len(r.byID))
		for _, s := range r.byID {
			if s.CreatedAt.Before(from) || !s.CreatedAt.Before(to) {
				continue
			}
			if sellerID != "" && s.SellerID != sellerID {
				continue
			}
			snapshot = append(snapshot, cloneSale(s))
		}
		r.mu.RUnlock()

		for _, s := range snapshot {
			if !yield(s) {
				return
			}
		}
	}
}
