package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/weftlabs/weft/internal/item"
	"github.com/weftlabs/weft/internal/queue"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#CCCCCC"))
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// Render formats the report for a terminal. The summary supplies per-item
// statuses; pass the same summary the report was built from.
func Render(r *Report, summary *queue.Summary) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Run %s", r.RunID)))
	b.WriteString("\n")
	b.WriteString(reasonStyle(r.Reason).Render(fmt.Sprintf("stopped: %s", r.Reason)))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  level %s  elapsed %s", r.FinalLevel, r.Elapsed.Round(10*time.Millisecond))))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("Items"))
	b.WriteString("\n")
	ids := make([]string, 0, len(summary.Statuses))
	for id := range summary.Statuses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		status := summary.Statuses[id]
		line := fmt.Sprintf("  %s %-20s %s", statusGlyph(status), id, status)
		if errText := summary.Errors[id]; errText != "" {
			line += dimStyle.Render("  " + errText)
		}
		b.WriteString(itemStyle(status).Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Totals"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  completed %d  partial %d  failed %d  skipped %d\n", r.Completed, r.Partial, r.Failed, r.Skipped)
	fmt.Fprintf(&b, "  success rate %.0f%%  budget %.1f/%.1f  efficiency %.2f\n\n",
		r.SuccessRate*100, r.BudgetUsed, r.BudgetTotal, r.BudgetEfficiency)

	if len(r.CriticalPath) > 0 {
		b.WriteString(sectionStyle.Render("Critical path"))
		b.WriteString("\n  " + strings.Join(r.CriticalPath, " > ") + "\n\n")
	}

	if len(r.Bottlenecks) > 0 {
		b.WriteString(sectionStyle.Render("Bottlenecks"))
		b.WriteString("\n")
		for _, bn := range r.Bottlenecks {
			fmt.Fprintf(&b, "  %s: %s\n", bn.ItemID, bn.Reason)
		}
		b.WriteString("\n")
	}

	if len(r.Recommendations) > 0 {
		b.WriteString(sectionStyle.Render("Recommendations"))
		b.WriteString("\n")
		for _, rec := range r.Recommendations {
			b.WriteString("  * " + rec + "\n")
		}
	}

	return b.String()
}

func reasonStyle(reason queue.StopReason) lipgloss.Style {
	switch reason {
	case queue.StopCompleted:
		return goodStyle
	case queue.StopForced, queue.StopCriticalPathBroken:
		return badStyle
	}
	return warnStyle
}

func itemStyle(status item.Status) lipgloss.Style {
	switch status {
	case item.StatusCompleted:
		return goodStyle
	case item.StatusPartial:
		return warnStyle
	case item.StatusFailed:
		return badStyle
	case item.StatusSkipped:
		return dimStyle
	}
	return dimStyle
}
