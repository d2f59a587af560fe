// Package report turns a finished run summary into a human-facing account:
// outcome counts, budget efficiency, bottleneck items, and recommendations
// for the next run.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/weftlabs/weft/internal/item"
	"github.com/weftlabs/weft/internal/queue"
	"github.com/weftlabs/weft/internal/spiral"
)

// Bottleneck is an item that dominated the run, by iteration count or by
// spiral findings.
type Bottleneck struct {
	ItemID     string `json:"item_id"`
	Iterations int    `json:"iterations"`
	Spirals    int    `json:"spirals"`
	Reason     string `json:"reason"`
}

// Report is the rendered-ready account of one run.
type Report struct {
	RunID  string           `json:"run_id"`
	Reason queue.StopReason `json:"reason"`

	Completed int `json:"completed"`
	Partial   int `json:"partial"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`

	SuccessRate      float64 `json:"success_rate"`
	BudgetEfficiency float64 `json:"budget_efficiency"`
	BudgetTotal      float64 `json:"budget_total"`
	BudgetUsed       float64 `json:"budget_used"`

	FinalLevel queue.Level   `json:"final_level"`
	Elapsed    time.Duration `json:"elapsed"`

	CriticalPath    []string     `json:"critical_path,omitempty"`
	Bottlenecks     []Bottleneck `json:"bottlenecks,omitempty"`
	Recommendations []string     `json:"recommendations,omitempty"`
}

// maxBottlenecks caps how many dominating items a report names.
const maxBottlenecks = 3

// Build derives a report from a run summary.
func Build(summary *queue.Summary) *Report {
	r := &Report{
		RunID:            summary.RunID,
		Reason:           summary.Reason,
		Completed:        len(summary.Completed),
		Partial:          len(summary.Partial),
		Failed:           len(summary.Failed),
		Skipped:          len(summary.Skipped),
		SuccessRate:      summary.SuccessRate(),
		BudgetEfficiency: summary.BudgetEfficiency(),
		BudgetTotal:      summary.BudgetTotal,
		BudgetUsed:       summary.BudgetUsed,
		FinalLevel:       summary.FinalLevel,
		Elapsed:          summary.Elapsed,
		CriticalPath:     summary.CriticalPath,
	}
	r.Bottlenecks = findBottlenecks(summary)
	r.Recommendations = recommend(summary, r)
	return r
}

func findBottlenecks(summary *queue.Summary) []Bottleneck {
	spiralsPer := make(map[string]int)
	for _, ev := range summary.Spirals {
		spiralsPer[ev.ItemID]++
	}

	var all []Bottleneck
	for id, history := range summary.Histories {
		iterations := len(history)
		spirals := spiralsPer[id]
		if iterations < 2 && spirals == 0 {
			continue
		}
		reason := fmt.Sprintf("%d iteration(s)", iterations)
		if spirals > 0 {
			reason = fmt.Sprintf("%d iteration(s), %d spiral finding(s)", iterations, spirals)
		}
		all = append(all, Bottleneck{ItemID: id, Iterations: iterations, Spirals: spirals, Reason: reason})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Spirals != all[j].Spirals {
			return all[i].Spirals > all[j].Spirals
		}
		if all[i].Iterations != all[j].Iterations {
			return all[i].Iterations > all[j].Iterations
		}
		return all[i].ItemID < all[j].ItemID
	})
	if len(all) > maxBottlenecks {
		all = all[:maxBottlenecks]
	}
	return all
}

func recommend(summary *queue.Summary, r *Report) []string {
	var recs []string

	switch summary.Reason {
	case queue.StopBudgetExhausted:
		recs = append(recs, fmt.Sprintf("budget ran out with %d item(s) waiting; raise the total or trim the queue", r.Skipped))
	case queue.StopWallClockExhausted:
		recs = append(recs, "the wall-clock limit ended the run; extend it or run fewer items")
	case queue.StopCriticalPathBroken:
		recs = append(recs, fmt.Sprintf("item %s failed on the critical path; fix it before anything downstream can run", summary.BrokenPathItem))
	case queue.StopUnresolvedDependency:
		recs = append(recs, fmt.Sprintf("%d item(s) were stranded behind failures; review their dependencies", len(summary.Stranded)))
	case queue.StopForced:
		recs = append(recs, "the run was force-completed; inspect partial items before rerunning")
	}

	criticals := 0
	for _, ev := range summary.Spirals {
		if ev.Finding.Severity == spiral.SeverityCritical {
			criticals++
		}
	}
	if criticals > 0 {
		recs = append(recs, fmt.Sprintf("%d critical spiral(s) detected; the flagged items likely need smaller scopes", criticals))
	}

	if summary.BudgetTotal > 0 && summary.Reason == queue.StopCompleted {
		if leftover := summary.BudgetRemaining / summary.BudgetTotal; leftover > 0.5 {
			recs = append(recs, fmt.Sprintf("%.0f%% of the budget went unused; the allocation can shrink", leftover*100))
		}
	}

	if len(r.Bottlenecks) > 0 && r.Bottlenecks[0].Spirals > 0 {
		recs = append(recs, fmt.Sprintf("item %s dominated the run (%s); consider splitting it", r.Bottlenecks[0].ItemID, r.Bottlenecks[0].Reason))
	}
	return recs
}

// statusGlyph maps terminal statuses to the single-character markers the
// renderer uses.
func statusGlyph(s item.Status) string {
	switch s {
	case item.StatusCompleted:
		return "+"
	case item.StatusPartial:
		return "~"
	case item.StatusFailed:
		return "x"
	case item.StatusSkipped:
		return "-"
	}
	return "?"
}
