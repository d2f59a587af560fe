package queue

import (
	"time"

	"github.com/weftlabs/weft/internal/item"
	"github.com/weftlabs/weft/internal/spiral"
)

// StopReason explains why the scheduling loop terminated.
type StopReason string

const (
	// StopCompleted means the queue drained normally.
	StopCompleted StopReason = "completed"
	// StopBudgetExhausted means the unit budget ran out with items waiting.
	StopBudgetExhausted StopReason = "budget_exhausted"
	// StopWallClockExhausted means the wall-clock budget ran out.
	StopWallClockExhausted StopReason = "wall_clock_exhausted"
	// StopUnresolvedDependency means pending items could never become ready.
	StopUnresolvedDependency StopReason = "unresolved_dependency"
	// StopCriticalPathBroken means a critical-path item failed with no
	// substitute.
	StopCriticalPathBroken StopReason = "critical_path_broken"
	// StopForced means commitment level 5 ended the run.
	StopForced StopReason = "forced"
)

// SpiralEvent records one non-clean detector finding for reporting.
type SpiralEvent struct {
	ItemID    string         `json:"item_id"`
	Iteration int            `json:"iteration"`
	Finding   spiral.Finding `json:"finding"`
}

// Summary is the processor's account of one run. Every input item appears in
// exactly one of the terminal lists.
type Summary struct {
	RunID string `json:"run_id"`

	Completed []string `json:"completed,omitempty"`
	Partial   []string `json:"partial,omitempty"`
	Failed    []string `json:"failed,omitempty"`
	Skipped   []string `json:"skipped,omitempty"`

	// Statuses maps every item id to its terminal status.
	Statuses map[string]item.Status `json:"statuses"`
	// Errors maps failed item ids to their executor error text.
	Errors map[string]string `json:"errors,omitempty"`
	// Stranded lists skipped items whose dependencies never completed.
	Stranded []string `json:"stranded,omitempty"`

	BudgetTotal     float64 `json:"budget_total"`
	BudgetUsed      float64 `json:"budget_used"`
	BudgetRemaining float64 `json:"budget_remaining"`

	FinalLevel Level      `json:"final_level"`
	Reason     StopReason `json:"reason"`
	// BrokenPathItem names the failed critical-path item when Reason is
	// StopCriticalPathBroken.
	BrokenPathItem string `json:"broken_path_item,omitempty"`

	CriticalPath []string      `json:"critical_path,omitempty"`
	Spirals      []SpiralEvent `json:"spirals,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`

	// Histories keeps the append-only iteration records per item.
	Histories map[string][]item.IterationRecord `json:"-"`
}

// total returns how many items the summary accounts for.
func (s *Summary) total() int {
	return len(s.Completed) + len(s.Partial) + len(s.Failed) + len(s.Skipped)
}

// SuccessRate is the fraction of items that completed fully.
func (s *Summary) SuccessRate() float64 {
	if s.total() == 0 {
		return 0
	}
	return float64(len(s.Completed)) / float64(s.total())
}

// BudgetEfficiency is completed work per consumed budget unit, normalized to
// the run's budget. A run that completes everything under budget scores
// above one.
func (s *Summary) BudgetEfficiency() float64 {
	if s.BudgetUsed <= 0 {
		if len(s.Completed) > 0 {
			return 1
		}
		return 0
	}
	expected := s.BudgetTotal / float64(maxInt(s.total(), 1))
	actual := s.BudgetUsed / float64(maxInt(len(s.Completed)+len(s.Partial), 1))
	if actual == 0 {
		return 1
	}
	ratio := expected / actual
	if ratio > 1 {
		return 1
	}
	return ratio
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
