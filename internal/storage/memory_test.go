package storage

import (
	"context"
	"errors"
	"testing"

	"fatture/internal/core"
)

func sampleInvoice(number int64, date core.Date) core.Invoice {
	return core.Invoice{
		Number:       number,
		CreationDate: date,
		CompanyName:  "Acme S.r.l.",
		Total:        core.Money{Cents: 10000},
		Customers: []core.Customer{
			{
				Name:    "Rossi",
				Address: "Via Roma 1",
				Email:   "rossi@example.com",
				Items: []core.Item{
					{Description: "Consulting", Quantity: 2, UnitPrice: core.Money{Cents: 5000}},
				},
			},
		},
	}
}

func TestMemoryCRUD(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	if _, err := r.CreateInvoice(ctx, sampleInvoice(1001, "2024-01-10")); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := r.GetInvoice(ctx, 1001)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CompanyName != "Acme S.r.l." || len(got.Customers) != 1 || len(got.Customers[0].Items) != 1 {
		t.Fatalf("round trip lost data: %+v", got)
	}

	upd := sampleInvoice(1001, "2024-01-11")
	upd.CompanyName = "Acme SpA"
	if err := r.UpdateInvoice(ctx, 1001, upd); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = r.GetInvoice(ctx, 1001)
	if got.CompanyName != "Acme SpA" || got.CreationDate != "2024-01-11" {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := r.DeleteInvoice(ctx, 1001); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := r.GetInvoice(ctx, 1001); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get after delete: %v, want ErrNotFound", err)
	}
}

func TestMemoryConflictAndNotFound(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	if _, err := r.CreateInvoice(ctx, sampleInvoice(1001, "2024-01-10")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := r.CreateInvoice(ctx, sampleInvoice(1001, "2024-02-01")); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("duplicate create: %v, want ErrConflict", err)
	}
	if err := r.UpdateInvoice(ctx, 9999, sampleInvoice(9999, "2024-01-01")); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("update missing: %v, want ErrNotFound", err)
	}
	if err := r.DeleteInvoice(ctx, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("delete missing: %v, want ErrNotFound", err)
	}
}

func TestMemoryListOrder(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	for _, inv := range []core.Invoice{
		sampleInvoice(1001, "2024-01-10"),
		sampleInvoice(1003, "2024-03-01"),
		sampleInvoice(1002, "2024-03-01"),
	} {
		if _, err := r.CreateInvoice(ctx, inv); err != nil {
			t.Fatalf("create %d: %v", inv.Number, err)
		}
	}

	list, err := r.ListInvoices(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []int64{1003, 1002, 1001}
	if len(list) != len(want) {
		t.Fatalf("list length = %d, want %d", len(list), len(want))
	}
	for i, n := range want {
		if list[i].Number != n {
			t.Fatalf("list[%d].Number = %d, want %d (newest date first, number breaks ties)", i, list[i].Number, n)
		}
	}
}

func TestMemoryMaxInvoiceNumber(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	mx, err := r.MaxInvoiceNumber(ctx)
	if err != nil || mx != 0 {
		t.Fatalf("empty max = %d, %v; want 0, nil", mx, err)
	}

	_, _ = r.CreateInvoice(ctx, sampleInvoice(1042, "2024-01-01"))
	_, _ = r.CreateInvoice(ctx, sampleInvoice(1007, "2024-01-02"))

	mx, err = r.MaxInvoiceNumber(ctx)
	if err != nil || mx != 1042 {
		t.Fatalf("max = %d, %v; want 1042, nil", mx, err)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	_, _ = r.CreateInvoice(ctx, sampleInvoice(1001, "2024-01-10"))

	got, _ := r.GetInvoice(ctx, 1001)
	got.Customers[0].Items[0].Description = "tampered"

	again, _ := r.GetInvoice(ctx, 1001)
	if again.Customers[0].Items[0].Description != "Consulting" {
		t.Fatal("stored invoice mutated through returned slice")
	}
}
