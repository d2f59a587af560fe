// Package item defines the core work-item records shared by the resolver,
// the queue processor, and the spiral detector.
package item

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the current state of a work item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusReady      Status = "ready"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusPartial    Status = "partial"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusReady, StatusInProgress,
		StatusCompleted, StatusPartial, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// Terminal reports whether the status is a terminal state. Terminal items
// never transition again.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusPartial, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// rank orders statuses along the forward lifecycle. Terminal states share the
// highest rank so the monotonicity check rejects any move out of them.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusReady:
		return 1
	case StatusInProgress:
		return 2
	case StatusCompleted, StatusPartial, StatusFailed, StatusSkipped:
		return 3
	}
	return -1
}

// CanTransition reports whether moving from one status to another respects
// the monotonic lifecycle pending -> ready -> in_progress -> terminal.
// Skipping forward (for example pending -> skipped) is allowed; moving
// backward or out of a terminal state is not.
func CanTransition(from, to Status) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if from.Terminal() {
		return false
	}
	return to.rank() > from.rank()
}

// WorkItem is a unit of schedulable work with dependencies and a budget
// allocation. Metadata is opaque to the engine and handed through to the
// executor untouched.
type WorkItem struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Priority    int               `json:"priority" yaml:"priority"`
	DependsOn   []string          `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Status      Status            `json:"status" yaml:"status"`
	BudgetUnits float64           `json:"budget_units" yaml:"budget_units"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// Produces and Consumes declare data-flow couplings the resolver turns
	// into edges between producer and consumer items.
	Produces []string `json:"produces,omitempty" yaml:"produces,omitempty"`
	Consumes []string `json:"consumes,omitempty" yaml:"consumes,omitempty"`

	// After lists items that must run before this one for temporal reasons
	// even though no hard dependency exists. Before is the mirror constraint.
	After  []string `json:"after,omitempty" yaml:"after,omitempty"`
	Before []string `json:"before,omitempty" yaml:"before,omitempty"`
}

// Validate ensures the work item is self-consistent.
func (w *WorkItem) Validate() error {
	if strings.TrimSpace(w.ID) == "" {
		return fmt.Errorf("item: id is required")
	}
	if w.Status != "" && !w.Status.IsValid() {
		return fmt.Errorf("item %s: invalid status %q", w.ID, w.Status)
	}
	if w.BudgetUnits < 0 {
		return fmt.Errorf("item %s: budget must not be negative", w.ID)
	}
	for _, dep := range w.DependsOn {
		if dep == w.ID {
			return fmt.Errorf("item %s: depends on itself", w.ID)
		}
	}
	return nil
}

// Clone returns a deep copy of the work item.
func (w *WorkItem) Clone() *WorkItem {
	if w == nil {
		return nil
	}
	clone := *w
	clone.DependsOn = cloneStrings(w.DependsOn)
	clone.Produces = cloneStrings(w.Produces)
	clone.Consumes = cloneStrings(w.Consumes)
	clone.After = cloneStrings(w.After)
	clone.Before = cloneStrings(w.Before)
	if len(w.Metadata) > 0 {
		clone.Metadata = make(map[string]string, len(w.Metadata))
		for k, v := range w.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// Budget bounds one orchestration run. TotalUnits is decremented as items
// complete; WallClock of zero means no time limit.
type Budget struct {
	TotalUnits           float64       `json:"total_units" yaml:"total_units"`
	WallClock            time.Duration `json:"wall_clock,omitempty" yaml:"wall_clock,omitempty"`
	MaxIterationsPerItem int           `json:"max_iterations_per_item,omitempty" yaml:"max_iterations_per_item,omitempty"`
}

// Validate ensures the budget is usable.
func (b Budget) Validate() error {
	if b.TotalUnits <= 0 {
		return fmt.Errorf("budget: total units must be positive")
	}
	if b.WallClock < 0 {
		return fmt.Errorf("budget: wall clock limit must not be negative")
	}
	if b.MaxIterationsPerItem < 0 {
		return fmt.Errorf("budget: max iterations must not be negative")
	}
	return nil
}

// Result classifies an executor's final outcome for one item.
type Result string

const (
	ResultSuccess Result = "success"
	ResultPartial Result = "partial"
	ResultFailure Result = "failure"
)

// IsValid checks whether the result is a known value.
func (r Result) IsValid() bool {
	switch r {
	case ResultSuccess, ResultPartial, ResultFailure:
		return true
	}
	return false
}

// Outcome is the executor's final word on one item.
type Outcome struct {
	Result         Result  `json:"result"`
	BudgetConsumed float64 `json:"budget_consumed"`
	Err            error   `json:"-"`
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
