// Package services holds the invoice aggregate service: validation,
// normalization, number assignment, total recomputation and transactional
// persistence, plus lifecycle event publication.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fatture/internal/amqp"
	"fatture/internal/core"
	"fatture/internal/storage"
)

// numberFloor is the value auto-assignment builds on: the first invoice in
// an empty system gets numberFloor+1 = 1001.
const numberFloor = 1000

// maxAssignAttempts bounds the retry loop for the auto-assignment race: two
// concurrent creates can compute the same next number, the store's unique
// constraint rejects one, and the loser recomputes.
const maxAssignAttempts = 3

// EventPublisher publishes invoice lifecycle events. *amqp.Client satisfies
// it; tests plug in a recorder.
type EventPublisher interface {
	PublishInvoiceEvent(ctx context.Context, action string, number int64) error
}

// InvoiceService drives the invoice aggregate through its lifecycle.
type InvoiceService struct {
	repo   storage.Repository
	events EventPublisher
}

// NewInvoiceService wires the service. events may be nil; lifecycle
// publication is then skipped.
func NewInvoiceService(repo storage.Repository, events EventPublisher) *InvoiceService {
	return &InvoiceService{repo: repo, events: events}
}

// Create validates, normalizes and persists a new invoice aggregate,
// returning the assigned invoice number. A zero Number on the input asks the
// service to assign one; a caller-picked number that is already taken fails
// with core.ErrConflict and is never retried.
func (s *InvoiceService) Create(ctx context.Context, raw core.Invoice) (int64, error) {
	inv := raw.Normalize()
	if err := inv.Validate(); err != nil {
		return 0, err
	}
	inv.Total = inv.ComputeTotal()

	if inv.Number != 0 {
		if _, err := s.repo.CreateInvoice(ctx, inv); err != nil {
			return 0, err
		}
		s.publish(ctx, amqp.ActionCreated, inv.Number)
		return inv.Number, nil
	}

	for attempt := 0; attempt < maxAssignAttempts; attempt++ {
		mx, err := s.repo.MaxInvoiceNumber(ctx)
		if err != nil {
			return 0, err
		}
		inv.Number = nextNumber(mx)

		_, err = s.repo.CreateInvoice(ctx, inv)
		if errors.Is(err, core.ErrConflict) {
			slog.WarnContext(ctx, "Invoice number taken, recomputing",
				"invoice_number", inv.Number,
				"attempt", attempt+1)
			continue
		}
		if err != nil {
			return 0, err
		}
		s.publish(ctx, amqp.ActionCreated, inv.Number)
		return inv.Number, nil
	}
	return 0, fmt.Errorf("assign invoice number after %d attempts: %w", maxAssignAttempts, core.ErrConflict)
}

// Update replaces the full owned graph of an existing invoice. The invoice
// number is immutable; the body's number is ignored in favor of the target.
func (s *InvoiceService) Update(ctx context.Context, number int64, raw core.Invoice) error {
	inv := raw.Normalize()
	inv.Number = number
	if err := inv.Validate(); err != nil {
		return err
	}
	inv.Total = inv.ComputeTotal()

	if err := s.repo.UpdateInvoice(ctx, number, inv); err != nil {
		return err
	}
	s.publish(ctx, amqp.ActionUpdated, number)
	return nil
}

// Delete removes an invoice and everything it owns.
func (s *InvoiceService) Delete(ctx context.Context, number int64) error {
	if err := s.repo.DeleteInvoice(ctx, number); err != nil {
		return err
	}
	s.publish(ctx, amqp.ActionDeleted, number)
	return nil
}

// Get fetches one aggregate in full nested shape.
func (s *InvoiceService) Get(ctx context.Context, number int64) (core.Invoice, error) {
	return s.repo.GetInvoice(ctx, number)
}

// List returns all aggregates, newest creation date first.
func (s *InvoiceService) List(ctx context.Context) ([]core.Invoice, error) {
	return s.repo.ListInvoices(ctx)
}

// Categorize groups all invoices by the given period.
func (s *InvoiceService) Categorize(ctx context.Context, period core.Period) (core.Grouped, error) {
	invoices, err := s.repo.ListInvoices(ctx)
	if err != nil {
		return core.Grouped{}, err
	}
	return core.Categorize(invoices, period), nil
}

// LastNumber returns the highest number in use, floored at 1000 so the next
// assignment is always at least 1001. Read-only: nothing is reserved.
func (s *InvoiceService) LastNumber(ctx context.Context) (int64, error) {
	mx, err := s.repo.MaxInvoiceNumber(ctx)
	if err != nil {
		return 0, err
	}
	if mx < numberFloor {
		mx = numberFloor
	}
	return mx, nil
}

// Ping reports storage health for the liveness probe.
func (s *InvoiceService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// publish sends a lifecycle event if a publisher is configured. The write
// already committed, so failures are logged and swallowed.
func (s *InvoiceService) publish(ctx context.Context, action string, number int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishInvoiceEvent(ctx, action, number); err != nil {
		slog.ErrorContext(ctx, "Failed to publish invoice event",
			"error", err,
			"invoice_number", number,
			"action", action)
	}
}

func nextNumber(mx int64) int64 {
	if mx < numberFloor {
		mx = numberFloor
	}
	return mx + 1
}
