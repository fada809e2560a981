package core

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Period selects the calendar granularity used to bucket invoices.
type Period string

const (
	PeriodYear  Period = "year"
	PeriodMonth Period = "month"
	PeriodDay   Period = "day"
)

// UnknownPeriodKey buckets invoices whose creation_date does not parse.
const UnknownPeriodKey = "unknown"

// ParsePeriod maps a query value to a Period, falling back to year for
// anything unrecognized.
func ParsePeriod(s string) Period {
	switch Period(s) {
	case PeriodYear, PeriodMonth, PeriodDay:
		return Period(s)
	default:
		return PeriodYear
	}
}

// key derives the bucket key for a creation date: YYYY, YYYY-MM or the full
// YYYY-MM-DD depending on the period.
func (p Period) key(d Date) string {
	if !d.Valid() {
		return UnknownPeriodKey
	}
	s := string(d)
	switch p {
	case PeriodDay:
		return s
	case PeriodMonth:
		return s[:7]
	default:
		return s[:4]
	}
}

// Grouped is an ordered mapping from period key to the invoices in that
// bucket. Key order is first-encounter order over invoices sorted by
// creation date descending; encoding/json would sort map keys, so Grouped
// marshals itself to keep the order on the wire.
type Grouped struct {
	keys    []string
	buckets map[string][]Invoice
}

// Keys returns the bucket keys in display order.
func (g Grouped) Keys() []string { return g.keys }

// Bucket returns the invoices grouped under key, in descending date order.
func (g Grouped) Bucket(key string) []Invoice { return g.buckets[key] }

// Len returns the number of buckets.
func (g Grouped) Len() int { return len(g.keys) }

func (g Grouped) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range g.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(g.buckets[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Categorize groups invoices by calendar period. Invoices are scanned in
// descending creation-date order (most recent first); within a bucket that
// order is retained. ISO dates compare correctly as strings, so the sort is
// lexicographic on the raw date text.
func Categorize(invoices []Invoice, p Period) Grouped {
	sorted := make([]Invoice, len(invoices))
	copy(sorted, invoices)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreationDate > sorted[j].CreationDate
	})

	g := Grouped{buckets: make(map[string][]Invoice)}
	for _, inv := range sorted {
		key := p.key(inv.CreationDate)
		if _, seen := g.buckets[key]; !seen {
			g.keys = append(g.keys, key)
		}
		g.buckets[key] = append(g.buckets[key], inv)
	}
	return g
}
