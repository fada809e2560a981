// Package storage owns the relational schema and CRUD access for invoice
// aggregates. Three backends implement the same contract: SQLite (default),
// Postgres (production) and an in-memory store for tests and local runs.
package storage

import (
	"context"

	"fatture/internal/core"
)

// Repository is durable storage for invoice aggregates. Writes covering
// header, customers and items happen atomically: either the whole aggregate
// becomes visible or none of it. Lookups are by invoice number, not by row
// id. Not-found and duplicate-number conditions surface as core.ErrNotFound
// and core.ErrConflict.
type Repository interface {
	// CreateInvoice persists the full aggregate and returns its number.
	CreateInvoice(ctx context.Context, inv core.Invoice) (int64, error)
	// GetInvoice fetches one aggregate in full nested shape.
	GetInvoice(ctx context.Context, number int64) (core.Invoice, error)
	// ListInvoices returns all aggregates, newest creation date first.
	ListInvoices(ctx context.Context) ([]core.Invoice, error)
	// UpdateInvoice replaces the owned graph of an existing invoice.
	// The invoice number itself never changes.
	UpdateInvoice(ctx context.Context, number int64, inv core.Invoice) error
	// DeleteInvoice removes the invoice and cascades to customers/items.
	DeleteInvoice(ctx context.Context, number int64) error
	// MaxInvoiceNumber returns the highest assigned number, 0 when empty.
	MaxInvoiceNumber(ctx context.Context) (int64, error)
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
	Close() error
}
