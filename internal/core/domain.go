package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for the invoice lifecycle. Callers classify failures with
// errors.Is and map them to transport-level responses.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("invoice not found")
	ErrConflict   = errors.New("invoice number already in use")
)

var (
	ErrEmptyCompanyName = fmt.Errorf("%w: company_name is required", ErrValidation)
	ErrInvalidDate      = fmt.Errorf("%w: creation_date must be YYYY-MM-DD", ErrValidation)
	ErrNoCustomers      = fmt.Errorf("%w: invoice needs at least one customer with items", ErrValidation)
	ErrInvalidNumber    = fmt.Errorf("%w: invoice_number must be positive", ErrValidation)
)

const dateLayout = "2006-01-02"

type (
	// Date is a calendar date stored as ISO 8601 text (YYYY-MM-DD).
	// Malformed values stay representable so the categorizer can bucket
	// them under the unknown key instead of dropping the invoice.
	Date string

	// Item is a billable line owned by exactly one Customer.
	Item struct {
		Description string `json:"description"`
		Quantity    int64  `json:"quantity"`
		UnitPrice   Money  `json:"unit_price"`
	}

	// Customer is a billing party owned by exactly one Invoice.
	Customer struct {
		Name    string `json:"name"`
		Address string `json:"address"`
		Email   string `json:"email"`
		Items   []Item `json:"items"`
	}

	// Invoice is the aggregate root: header plus the full owned graph of
	// customers and their items. Total is always derived, never taken
	// from the caller.
	Invoice struct {
		Number         int64      `json:"invoice_number"`
		CreationDate   Date       `json:"creation_date"`
		CompanyName    string     `json:"company_name"`
		CompanyAddress string     `json:"company_address"`
		CompanyEmail   string     `json:"company_email"`
		Total          Money      `json:"total_amount"`
		Customers      []Customer `json:"customers"`
	}
)

// Valid reports whether the date parses as YYYY-MM-DD.
func (d Date) Valid() bool {
	_, err := time.Parse(dateLayout, string(d))
	return err == nil
}

func (d Date) String() string { return string(d) }

// LineTotal returns quantity times unit price.
func (it Item) LineTotal() Money {
	return Money{Cents: it.Quantity * it.UnitPrice.Cents}
}

// valid items carry a non-empty description.
func (it Item) valid() bool {
	return strings.TrimSpace(it.Description) != ""
}

// Subtotal sums the line totals of all items of this customer.
func (c Customer) Subtotal() Money {
	var cents int64
	for _, it := range c.Items {
		cents += it.LineTotal().Cents
	}
	return Money{Cents: cents}
}

// Normalize applies the assembly filter: items with an empty description are
// dropped, quantity defaults to 1 when missing or below 1, negative unit
// prices default to 0, and customers left without items are dropped. The
// receiver is not mutated; insertion order of survivors is preserved.
func (inv Invoice) Normalize() Invoice {
	out := inv
	out.Customers = nil
	for _, c := range inv.Customers {
		nc := c
		nc.Items = nil
		for _, it := range c.Items {
			if !it.valid() {
				continue
			}
			it.Description = strings.TrimSpace(it.Description)
			if it.Quantity < 1 {
				it.Quantity = 1
			}
			if it.UnitPrice.Cents < 0 {
				it.UnitPrice = Money{}
			}
			nc.Items = append(nc.Items, it)
		}
		if len(nc.Items) == 0 {
			continue
		}
		out.Customers = append(out.Customers, nc)
	}
	return out
}

// Validate checks a normalized invoice. Number zero is allowed here: it
// means "assign one for me" and is resolved by the service.
func (inv Invoice) Validate() error {
	if inv.Number < 0 {
		return ErrInvalidNumber
	}
	if strings.TrimSpace(inv.CompanyName) == "" {
		return ErrEmptyCompanyName
	}
	if !inv.CreationDate.Valid() {
		return ErrInvalidDate
	}
	if len(inv.Customers) == 0 {
		return ErrNoCustomers
	}
	for _, c := range inv.Customers {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: customer name is required", ErrValidation)
		}
	}
	return nil
}

// ComputeTotal derives the invoice total from the owned items.
func (inv Invoice) ComputeTotal() Money {
	var cents int64
	for _, c := range inv.Customers {
		cents += c.Subtotal().Cents
	}
	return Money{Cents: cents}
}
