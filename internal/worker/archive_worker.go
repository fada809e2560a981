// Package worker mirrors the invoice store into a directory of rendered PDF
// documents, driven by lifecycle events from AMQP.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fatture/internal/amqp"
	"fatture/internal/core"
	"fatture/internal/pdf"
	"fatture/internal/storage"
)

// ArchiveWorker keeps one PDF per live invoice under dir, named
// invoice_<number>.pdf. Events carry only the number; the worker always
// fetches the current aggregate, so replayed or reordered events converge on
// the latest state.
type ArchiveWorker struct {
	repo storage.Repository
	dir  string
}

func NewArchiveWorker(repo storage.Repository, dir string) (*ArchiveWorker, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &ArchiveWorker{repo: repo, dir: dir}, nil
}

// HandleEvent processes one lifecycle event. Returning an error requeues the
// delivery, so only transient failures (storage, filesystem) propagate;
// anything that would fail the same way on redelivery is logged and dropped.
func (w *ArchiveWorker) HandleEvent(ctx context.Context, ev *amqp.InvoiceEvent) error {
	switch ev.Action {
	case amqp.ActionCreated, amqp.ActionUpdated:
		return w.archive(ctx, ev.Number)
	case amqp.ActionDeleted:
		return w.remove(ctx, ev.Number)
	default:
		slog.WarnContext(ctx, "Ignoring event with unknown action",
			"action", ev.Action,
			"invoice_number", ev.Number)
		return nil
	}
}

func (w *ArchiveWorker) archive(ctx context.Context, number int64) error {
	inv, err := w.repo.GetInvoice(ctx, number)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted between the event and now; the delete event will follow.
		slog.InfoContext(ctx, "Invoice gone before archiving, skipping",
			"invoice_number", number)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get invoice %d: %w", number, err)
	}

	doc, err := pdf.Render(inv)
	if errors.Is(err, pdf.ErrEmptyInvoice) {
		slog.WarnContext(ctx, "Invoice has no renderable content, skipping",
			"invoice_number", number)
		return nil
	}
	if err != nil {
		return fmt.Errorf("render invoice %d: %w", number, err)
	}

	path := w.path(number)
	if err := os.WriteFile(path, doc, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	slog.InfoContext(ctx, "Archived invoice PDF",
		"invoice_number", number,
		"path", path,
		"bytes", len(doc))
	return nil
}

func (w *ArchiveWorker) remove(ctx context.Context, number int64) error {
	path := w.path(number)
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", path, err)
	}

	slog.InfoContext(ctx, "Removed archived invoice PDF",
		"invoice_number", number,
		"path", path)
	return nil
}

// ArchiveAll renders every invoice currently in the store. Run at startup to
// recover from events missed while the worker was down.
func (w *ArchiveWorker) ArchiveAll(ctx context.Context) error {
	invoices, err := w.repo.ListInvoices(ctx)
	if err != nil {
		return fmt.Errorf("list invoices: %w", err)
	}

	archived := 0
	failed := 0
	for _, inv := range invoices {
		if err := w.archive(ctx, inv.Number); err != nil {
			slog.ErrorContext(ctx, "Failed to archive invoice",
				"invoice_number", inv.Number,
				"error", err)
			failed++
			continue
		}
		archived++
	}

	slog.InfoContext(ctx, "Startup archive pass completed",
		"total", len(invoices),
		"archived", archived,
		"failed", failed)
	return nil
}

func (w *ArchiveWorker) path(number int64) string {
	return filepath.Join(w.dir, fmt.Sprintf("invoice_%d.pdf", number))
}
