package core

import (
	"encoding/json"
	"testing"
)

func TestParseDecimalCents(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"0", 0, false},
		{"0.00", 0, false},
		{"7", 700, false},
		{".5", 50, false},
		{"1.2", 120, false},
		{"1.005", 101, false}, // half-up on the third decimal
		{"1.004", 100, false},
		{"", 0, true},
		{"-1.00", 0, true},
		{"+1.00", 0, true},
		{"1.2.3", 0, true},
		{"abc", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseDecimalCents(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseDecimalCents(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDecimalCents(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDecimalCents(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{1234, "12.34"},
		{0, "0.00"},
		{5, "0.05"},
		{100, "1.00"},
		{-250, "-2.50"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).String(); got != tc.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestMoneyMarshalJSON(t *testing.T) {
	b, err := json.Marshal(Money{Cents: 1234})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "12.34" {
		t.Fatalf("marshal = %s, want plain number 12.34", b)
	}
}

func TestMoneyUnmarshalJSON(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{`12.34`, 1234},
		{`"12.34"`, 1234},
		{`0`, 0},
		{`null`, 0},
		{`"garbage"`, 0}, // bad amounts default to zero
		{`-5`, 0},
	}
	for _, tc := range cases {
		var m Money
		if err := json.Unmarshal([]byte(tc.in), &m); err != nil {
			t.Errorf("unmarshal %s: %v", tc.in, err)
			continue
		}
		if m.Cents != tc.want {
			t.Errorf("unmarshal %s = %d cents, want %d", tc.in, m.Cents, tc.want)
		}
	}
}
