package pdf

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"fatture/internal/core"
)

func renderableInvoice() core.Invoice {
	return core.Invoice{
		Number:         1001,
		CreationDate:   "2024-03-15",
		CompanyName:    "Acme S.r.l.",
		CompanyAddress: "Via Roma 1, Milano",
		CompanyEmail:   "billing@acme.example",
		Total:          core.Money{Cents: 12990},
		Customers: []core.Customer{
			{
				Name:    "Rossi",
				Address: "Via Garibaldi 2",
				Email:   "rossi@example.com",
				Items: []core.Item{
					{Description: "Consulting", Quantity: 2, UnitPrice: core.Money{Cents: 5000}},
					{Description: "Support retainer", Quantity: 1, UnitPrice: core.Money{Cents: 2990}},
				},
			},
		},
	}
}

func TestRenderProducesPDF(t *testing.T) {
	doc, err := Render(renderableInvoice())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(doc, []byte("%PDF")) {
		t.Fatalf("output does not start with %%PDF, got %q", doc[:8])
	}
	if len(doc) < 1000 {
		t.Fatalf("suspiciously small document: %d bytes", len(doc))
	}
}

func TestRenderEmptyInvoice(t *testing.T) {
	inv := renderableInvoice()
	inv.Customers = nil
	if _, err := Render(inv); !errors.Is(err, ErrEmptyInvoice) {
		t.Fatalf("no customers: %v, want ErrEmptyInvoice", err)
	}

	inv = renderableInvoice()
	inv.Customers[0].Items = nil
	if _, err := Render(inv); !errors.Is(err, ErrEmptyInvoice) {
		t.Fatalf("customer without items: %v, want ErrEmptyInvoice", err)
	}
}

func TestRenderManyItemsPaginates(t *testing.T) {
	inv := renderableInvoice()
	var items []core.Item
	for i := 0; i < 120; i++ {
		items = append(items, core.Item{
			Description: "Line item",
			Quantity:    1,
			UnitPrice:   core.Money{Cents: 100},
		})
	}
	inv.Customers[0].Items = items

	doc, err := Render(inv)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	// 120 rows cannot fit on one A4 page. Each page object carries a
	// "/Type /Page" marker and the page tree adds one "/Type /Pages", so a
	// single-page document yields two matches.
	if markers := bytes.Count(doc, []byte("/Type /Page")); markers < 3 {
		t.Fatalf("expected multiple pages, found %d markers", markers)
	}
}

func TestTruncateLongDescriptions(t *testing.T) {
	long := strings.Repeat("x", 80)
	got := truncate(long)
	if len(got) != maxDescChars {
		t.Fatalf("truncated length = %d, want %d", len(got), maxDescChars)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncated string should end with ellipsis: %q", got)
	}

	short := "short one"
	if truncate(short) != short {
		t.Fatal("short descriptions must pass through unchanged")
	}
}
