package google

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"envelopes/internal/core"
	ports "envelopes/internal/sheets"
)

var monthHeaders = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// reportRows lays out a populated month: a summary block, an empty row, then
// one row per budget line.
func reportRows(report core.PeriodReport) [][]interface{} {
	s := report.Schedule
	rows := [][]interface{}{
		{"Month", "Past", "Income", "Budgeted", "Overspend", "To Budget", "Balance"},
		{s.Name(), amount(s.Past), amount(s.Income), amount(s.Budgeted), amount(s.Overspend), amount(s.ToBudget), amount(s.Balance)},
		{},
		{"Group", "Envelope", "Budgeted", "Past Budgeted", "Activity", "Past Activity", "Remaining", "Ignore Overspend"},
	}
	for _, b := range report.Budgets {
		rows = append(rows, []interface{}{
			b.Envelope.Group.Description,
			b.Envelope.Description,
			amount(b.AmountOrZero()),
			amount(b.PastAmount),
			amount(b.Activity),
			amount(b.PastActivity),
			amount(b.Remaining),
			b.IgnoreOverspend,
		})
	}
	return rows
}

// amount renders a decimal for USER_ENTERED input so the sheet keeps it numeric.
func amount(d decimal.Decimal) string {
	return core.FormatAmount(d)
}

// parsePlan converts a values matrix into the planned allocations of month
// (1-12). It expects headers including Group, Envelope and Jan..Dec. Blank or
// zero cells are skipped.
func parsePlan(values [][]interface{}, month int) ([]ports.PlanLine, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	colGroup := indexOf(headers, "Group")
	colEnvelope := indexOf(headers, "Envelope")
	colMonth := indexOf(headers, monthHeaders[month-1])
	if colGroup == -1 || colEnvelope == -1 || colMonth == -1 {
		missing := make([]string, 0, 3)
		if colGroup == -1 {
			missing = append(missing, "Group")
		}
		if colEnvelope == -1 {
			missing = append(missing, "Envelope")
		}
		if colMonth == -1 {
			missing = append(missing, monthHeaders[month-1])
		}
		return nil, fmt.Errorf("unexpected plan header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	var (
		out   []ports.PlanLine
		group string
	)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		// a group cell carries down until the next one
		if g := safeGet(row, colGroup); g != "" {
			group = g
		}
		envelope := safeGet(row, colEnvelope)
		if envelope == "" || strings.EqualFold(group, "total") {
			continue
		}
		amt, ok := parseSheetAmount(safeGet(row, colMonth))
		if !ok || amt.IsZero() {
			continue
		}
		out = append(out, ports.PlanLine{Group: group, Envelope: envelope, Amount: amt})
	}
	return out, nil
}

// parseSheetAmount accepts both decimal separators and ignores thousands
// separators of the other kind.
func parseSheetAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	d, err := core.ParseAmount(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
