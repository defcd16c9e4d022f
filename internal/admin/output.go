package admin

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

var (
	successSymbol = "✓"
	errorSymbol   = "✗"
	infoSymbol    = "→"

	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D787", Dark: "#00D787"})
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5FAFFF", Dark: "#5FAFFF"})
	headerStyle   = lipgloss.NewStyle().Bold(true)
	negativeStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D70000", Dark: "#FF5F5F"})
)

func printSuccess(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", successStyle.Render(successSymbol), message)
}

// PrintError writes a failed command's message.
func PrintError(w io.Writer, message string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", errorStyle.Render(errorSymbol), errorStyle.Render(message))
}

func printInfof(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "%s %s\n", infoStyle.Render(infoSymbol), fmt.Sprintf(format, args...))
}

func money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	if d.IsNegative() {
		return negativeStyle.Render(s)
	}
	return s
}

// table renders left-aligned text columns followed by right-aligned amounts.
type table struct {
	header []string
	rows   [][]string
	// textColumns is how many leading columns are text.
	textColumns int
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) write(w io.Writer) {
	widths := make([]int, len(t.header))
	for _, row := range append([][]string{t.header}, t.rows...) {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		out := make([]string, len(cells))
		for i, cell := range cells {
			align := lipgloss.Right
			if i < t.textColumns {
				align = lipgloss.Left
			}
			out[i] = style.Width(widths[i]).Align(align).Render(cell)
		}
		return strings.Join(out, "  ")
	}

	_, _ = fmt.Fprintln(w, line(t.header, headerStyle))
	plain := lipgloss.NewStyle()
	for _, row := range t.rows {
		_, _ = fmt.Fprintln(w, line(row, plain))
	}
}
