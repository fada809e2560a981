package core

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func invoiceOn(number int64, date Date) Invoice {
	return Invoice{
		Number:       number,
		CreationDate: date,
		CompanyName:  "Acme",
		Customers: []Customer{
			{Name: "C", Items: []Item{{Description: "i", Quantity: 1, UnitPrice: Money{Cents: 100}}}},
		},
	}
}

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		in   string
		want Period
	}{
		{"year", PeriodYear},
		{"month", PeriodMonth},
		{"day", PeriodDay},
		{"", PeriodYear},
		{"week", PeriodYear},
	}
	for _, tc := range cases {
		if got := ParsePeriod(tc.in); got != tc.want {
			t.Errorf("ParsePeriod(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCategorizeByMonth(t *testing.T) {
	invoices := []Invoice{
		invoiceOn(1001, "2024-01-05"),
		invoiceOn(1002, "2024-02-20"),
		invoiceOn(1003, "2024-02-01"),
		invoiceOn(1004, "2024-01-31"),
	}

	g := Categorize(invoices, PeriodMonth)

	wantKeys := []string{"2024-02", "2024-01"}
	if !reflect.DeepEqual(g.Keys(), wantKeys) {
		t.Fatalf("keys = %v, want %v", g.Keys(), wantKeys)
	}

	feb := g.Bucket("2024-02")
	if len(feb) != 2 || feb[0].Number != 1002 || feb[1].Number != 1003 {
		t.Fatalf("feb bucket wrong order: %+v", numbersOf(feb))
	}
	jan := g.Bucket("2024-01")
	if len(jan) != 2 || jan[0].Number != 1004 || jan[1].Number != 1001 {
		t.Fatalf("jan bucket wrong order: %+v", numbersOf(jan))
	}
}

func TestCategorizeByYearAndDay(t *testing.T) {
	invoices := []Invoice{
		invoiceOn(1, "2023-06-01"),
		invoiceOn(2, "2024-06-01"),
	}

	g := Categorize(invoices, PeriodYear)
	if !reflect.DeepEqual(g.Keys(), []string{"2024", "2023"}) {
		t.Fatalf("year keys = %v", g.Keys())
	}

	g = Categorize(invoices, PeriodDay)
	if !reflect.DeepEqual(g.Keys(), []string{"2024-06-01", "2023-06-01"}) {
		t.Fatalf("day keys = %v", g.Keys())
	}
}

func TestCategorizeUnknownDates(t *testing.T) {
	invoices := []Invoice{
		invoiceOn(1, "2024-01-01"),
		invoiceOn(2, "garbage"),
		invoiceOn(3, ""),
	}

	g := Categorize(invoices, PeriodYear)

	unknown := g.Bucket(UnknownPeriodKey)
	if len(unknown) != 2 {
		t.Fatalf("unknown bucket has %d invoices, want 2", len(unknown))
	}
	if len(g.Bucket("2024")) != 1 {
		t.Fatalf("2024 bucket has %d invoices, want 1", len(g.Bucket("2024")))
	}
}

func TestCategorizeEmpty(t *testing.T) {
	g := Categorize(nil, PeriodMonth)
	if g.Len() != 0 {
		t.Fatalf("expected no buckets, got %d", g.Len())
	}
	b, err := json.Marshal(g)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "{}" {
		t.Fatalf("empty grouping marshals to %s, want {}", b)
	}
}

func TestGroupedMarshalPreservesOrder(t *testing.T) {
	invoices := []Invoice{
		invoiceOn(1, "2022-01-01"),
		invoiceOn(2, "2024-01-01"),
		invoiceOn(3, "2023-01-01"),
	}
	b, err := json.Marshal(Categorize(invoices, PeriodYear))
	if err != nil {
		t.Fatal(err)
	}
	// encoding/json would sort map keys ascending; the custom marshaller
	// must keep descending date order.
	s := string(b)
	i2024, i2023, i2022 := strings.Index(s, `"2024"`), strings.Index(s, `"2023"`), strings.Index(s, `"2022"`)
	if i2024 < 0 || i2023 < 0 || i2022 < 0 {
		t.Fatalf("missing keys in %s", s)
	}
	if !(i2024 < i2023 && i2023 < i2022) {
		t.Fatalf("keys out of order in %s", s)
	}
}

func numbersOf(invoices []Invoice) []int64 {
	out := make([]int64, len(invoices))
	for i, inv := range invoices {
		out[i] = inv.Number
	}
	return out
}
