package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fatture/internal/core"
)

// MemoryRepository keeps invoice aggregates in process memory. It backs unit
// tests and quick local runs; semantics (conflict, not-found, replacement)
// match the SQL backends.
type MemoryRepository struct {
	mu       sync.RWMutex
	invoices map[int64]core.Invoice
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{invoices: make(map[int64]core.Invoice)}
}

func (r *MemoryRepository) Close() error { return nil }

func (r *MemoryRepository) Ping(ctx context.Context) error { return nil }

func (r *MemoryRepository) CreateInvoice(ctx context.Context, inv core.Invoice) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.invoices[inv.Number]; exists {
		return 0, fmt.Errorf("invoice %d: %w", inv.Number, core.ErrConflict)
	}
	r.invoices[inv.Number] = cloneInvoice(inv)
	return inv.Number, nil
}

func (r *MemoryRepository) UpdateInvoice(ctx context.Context, number int64, inv core.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.invoices[number]; !exists {
		return fmt.Errorf("invoice %d: %w", number, core.ErrNotFound)
	}
	inv.Number = number
	r.invoices[number] = cloneInvoice(inv)
	return nil
}

func (r *MemoryRepository) DeleteInvoice(ctx context.Context, number int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.invoices[number]; !exists {
		return fmt.Errorf("invoice %d: %w", number, core.ErrNotFound)
	}
	delete(r.invoices, number)
	return nil
}

func (r *MemoryRepository) GetInvoice(ctx context.Context, number int64) (core.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inv, exists := r.invoices[number]
	if !exists {
		return core.Invoice{}, fmt.Errorf("invoice %d: %w", number, core.ErrNotFound)
	}
	return cloneInvoice(inv), nil
}

func (r *MemoryRepository) ListInvoices(ctx context.Context) ([]core.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	invoices := make([]core.Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		invoices = append(invoices, cloneInvoice(inv))
	}
	// Same order the SQL backends produce.
	sort.Slice(invoices, func(i, j int) bool {
		if invoices[i].CreationDate != invoices[j].CreationDate {
			return invoices[i].CreationDate > invoices[j].CreationDate
		}
		return invoices[i].Number > invoices[j].Number
	})
	return invoices, nil
}

func (r *MemoryRepository) MaxInvoiceNumber(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var mx int64
	for number := range r.invoices {
		if number > mx {
			mx = number
		}
	}
	return mx, nil
}

// cloneInvoice deep-copies the owned graph so callers cannot mutate stored
// state through returned slices.
func cloneInvoice(inv core.Invoice) core.Invoice {
	out := inv
	out.Customers = make([]core.Customer, len(inv.Customers))
	for i, c := range inv.Customers {
		nc := c
		nc.Items = make([]core.Item, len(c.Items))
		copy(nc.Items, c.Items)
		out.Customers[i] = nc
	}
	return out
}
