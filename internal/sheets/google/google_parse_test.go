package google

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"envelopes/internal/core"
)

func TestParsePlan_March(t *testing.T) {
	values := [][]interface{}{
		{"Group", "Envelope", "Jan", "Feb", "Mar", "Apr"},
		{"Housing", "Rent", 900.0, 900.0, 950.0, 950.0},
		{"", "Power", 60.5, 60.5, "72,40", 0.0},
		{"", "Internet", 30.0, 30.0, "", 30.0},
		{"Food", "Groceries", 400.0, 380.0, "1.250,00", 400.0},
		{"total", "", 1390.5, 1370.5, 2272.4, 1380.0},
	}

	lines, err := parsePlan(values, 3)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %+v", len(lines), lines)
	}

	want := []struct {
		group, envelope, amount string
	}{
		{"Housing", "Rent", "950"},
		{"Housing", "Power", "72.4"},
		{"Food", "Groceries", "1250"},
	}
	for i, w := range want {
		got := lines[i]
		if got.Group != w.group || got.Envelope != w.envelope || !got.Amount.Equal(decimal.RequireFromString(w.amount)) {
			t.Errorf("line %d = %+v, want %s/%s %s", i, got, w.group, w.envelope, w.amount)
		}
	}
}

func TestParsePlan_UnexpectedHeader(t *testing.T) {
	values := [][]interface{}{{"Category", "Envelope", "Jan"}}
	if _, err := parsePlan(values, 2); err == nil {
		t.Fatal("expected header error")
	}
	if lines, err := parsePlan(nil, 2); err != nil || lines != nil {
		t.Fatalf("empty sheet should give no lines, got %v (err=%v)", lines, err)
	}
}

func TestParseSheetAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12.34", "12.34", true},
		{"12,34", "12.34", true},
		{"1,234.50", "1234.5", true},
		{"1.234,50", "1234.5", true},
		{"-7", "-7", true},
		{"", "0", false},
		{"abc", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseSheetAmount(tt.in)
			if ok != tt.ok || !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("parseSheetAmount(%q) = %v, %v; want %s, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestReportRows(t *testing.T) {
	schedule := core.NewSchedule(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	schedule.Income = decimal.NewFromInt(1000)
	schedule.Budgeted = decimal.NewFromInt(600)
	schedule.ToBudget = decimal.NewFromInt(400)

	rent := core.Budget{
		Envelope: core.Envelope{
			Entity:      core.Entity{ID: uuid.New()},
			Description: "Rent",
			Group:       core.EnvelopeGroup{Description: "Housing"},
		},
		Schedule:  schedule,
		Amount:    decimal.NewNullDecimal(decimal.NewFromInt(600)),
		Activity:  decimal.RequireFromString("-550.5"),
		Remaining: decimal.RequireFromString("49.5"),
	}

	rows := reportRows(core.PeriodReport{Schedule: schedule, Budgets: []core.Budget{rent}})
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
	if rows[1][0] != schedule.Name() || rows[1][5] != "400.00" {
		t.Errorf("summary row = %v", rows[1])
	}
	line := rows[4]
	if line[0] != "Housing" || line[1] != "Rent" || line[2] != "600.00" || line[4] != "-550.50" || line[6] != "49.50" {
		t.Errorf("budget row = %v", line)
	}
}
