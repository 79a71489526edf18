package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"sugarcrm-client/internal/domain"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

// maxCell keeps wide text fields from blowing up the table.
const maxCell = 60

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// renderBean prints one record as a field/value table.
func renderBean(b domain.Bean) string {
	fields := b.Fields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	t := newTable("field", "value")
	for _, name := range names {
		t.Row(name, clip(fields[name]))
	}
	title := fmt.Sprintf("%s %s", b.ModuleName(), b.ID())
	return lipgloss.JoinVertical(lipgloss.Left, headerStyle.Render(title), t.String())
}

// renderBeans prints records as rows with one column per field.
func renderBeans(beans []domain.Bean) string {
	if len(beans) == 0 {
		return mutedStyle.Render("no records")
	}

	seen := map[string]bool{"id": true}
	var names []string
	for _, b := range beans {
		for name := range b.Fields() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)

	t := newTable(append([]string{"id"}, names...)...)
	for _, b := range beans {
		fields := b.Fields()
		row := make([]string, 0, len(names)+1)
		row = append(row, b.ID())
		for _, name := range names {
			row = append(row, clip(fields[name]))
		}
		t.Row(row...)
	}
	return lipgloss.JoinVertical(lipgloss.Left, t.String(), mutedStyle.Render(fmt.Sprintf("%d record(s)", len(beans))))
}

// renderHistory prints audit events, newest first.
func renderHistory(events []domain.AuditEvent) string {
	if len(events) == 0 {
		return mutedStyle.Render("no calls recorded")
	}
	t := newTable("time", "type", "method", "module", "outcome", "ms")
	for _, e := range events {
		t.Row(
			e.Timestamp.Local().Format(time.DateTime),
			string(e.Type),
			e.Action,
			e.Resource,
			e.Outcome,
			e.Detail["duration_ms"],
		)
	}
	return t.String()
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= maxCell {
		return s
	}
	return string(r[:maxCell-1]) + "…"
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
