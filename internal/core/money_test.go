package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"-12,50", "-12.5", true},
		{"1.005", "1.01", true},
		{" 2.50 ", "2.5", true},
		{"0", "0", true},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
		}
	}
}

func TestSumIsExact(t *testing.T) {
	tenth := decimal.RequireFromString("0.1")
	if got := Sum(tenth, tenth, tenth); !got.Equal(decimal.RequireFromString("0.3")) {
		t.Fatalf("expected 0.3, got %s", got)
	}
	if FormatAmount(decimal.RequireFromString("-12.3")) != "-12.30" {
		t.Fatalf("unexpected format")
	}
}

func TestResultFromError(t *testing.T) {
	r := NewResult(0, NewValidationError("a", "b"))
	if r.Success || len(r.Messages) != 2 {
		t.Fatalf("unexpected result: %+v", r)
	}
	ok := NewResult("x", nil)
	if !ok.Success || ok.Data != "x" {
		t.Fatalf("unexpected result: %+v", ok)
	}
}
