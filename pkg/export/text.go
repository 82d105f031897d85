package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kilianp07/prodcal/core/calendar"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")

	styleTitle      = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleColumn     = lipgloss.NewStyle().Bold(true)
	styleStats      = lipgloss.NewStyle().Foreground(colorGray)
	styleProduction = lipgloss.NewStyle()
	styleAdjustment = lipgloss.NewStyle().Foreground(colorYellow)
	styleDelayed    = lipgloss.NewStyle().Foreground(colorRed)
	styleDim        = lipgloss.NewStyle().Foreground(colorDim)
)

// WriteText writes a readable listing of the view, one section per column.
func WriteText(w io.Writer, v calendar.View) error {
	var b strings.Builder
	b.WriteString(styleTitle.Render(fmt.Sprintf("%s %s", v.Mode, v.Date)))
	b.WriteString("\n")
	if len(v.Columns) == 0 {
		b.WriteString(styleDim.Render("  no columns"))
		b.WriteString("\n")
	}
	for _, col := range v.Columns {
		b.WriteString("\n")
		b.WriteString(styleColumn.Render(columnTitle(v, col)))
		b.WriteString(" ")
		b.WriteString(styleStats.Render(fmt.Sprintf("%.1fh busy, %.0f%%, %d delayed",
			col.Stats.BusyHours, col.Stats.Utilization*100, col.Stats.DelayedOrders)))
		b.WriteString("\n")
		if len(col.Blocks) == 0 {
			b.WriteString(styleDim.Render("  idle"))
			b.WriteString("\n")
			continue
		}
		for _, c := range col.Blocks {
			b.WriteString("  ")
			b.WriteString(cellLine(c))
			b.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func columnTitle(v calendar.View, col calendar.Column) string {
	if v.Mode == calendar.ViewIndividual {
		return col.Day.Format("Mon 02 Jan")
	}
	return col.MachineID
}

func cellLine(c calendar.Cell) string {
	span := fmt.Sprintf("%s-%s", c.Start.Format("15:04"), c.End.Format("15:04"))
	var marks string
	if c.IsContinuation {
		marks += "<"
	}
	if c.IsPartial {
		marks += ">"
	}
	label := c.Description
	style := styleAdjustment
	if c.IsProduction() {
		style = styleProduction
		label = c.ProductLabel
		if len(c.OrderIDs) > 0 {
			label += " [" + strings.Join(c.OrderIDs, ", ") + "]"
		}
		if c.Quantity > 0 {
			label += fmt.Sprintf(" x%d", c.Quantity)
		}
		if len(c.DelayedOrders) > 0 {
			style = styleDelayed
		}
	}
	line := fmt.Sprintf("%-11s %-2s %-12s %s", span, marks, c.ID, label)
	return style.Render(strings.TrimRight(line, " "))
}
