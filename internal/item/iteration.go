package item

import (
	"sort"
	"time"
)

// IterationRecord is a per-item, per-iteration snapshot reported by the
// executor. The queue processor owns the append-only history; the spiral
// detector only reads it.
type IterationRecord struct {
	// Index is the 1-based iteration counter within one item's execution.
	Index int `json:"index"`
	// Touched lists the resources (files, entities) the iteration modified.
	Touched []string `json:"touched,omitempty"`
	// Progress is a normalized completion score in [0,1].
	Progress float64 `json:"progress"`
	// Elapsed is the wall-clock time the iteration took.
	Elapsed time.Duration `json:"elapsed"`
	// ScopeBaseline lists the resources the item was expected to touch.
	ScopeBaseline []string `json:"scope_baseline,omitempty"`
}

// TouchedSet returns the touched resources as a set.
func (r IterationRecord) TouchedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.Touched))
	for _, res := range r.Touched {
		if res == "" {
			continue
		}
		set[res] = struct{}{}
	}
	return set
}

// OutOfScope returns the touched resources that fall outside the scope
// baseline, sorted for deterministic reporting. A nil baseline means the
// item declared no scope and nothing is out of scope.
func (r IterationRecord) OutOfScope() []string {
	if len(r.ScopeBaseline) == 0 {
		return nil
	}
	baseline := make(map[string]struct{}, len(r.ScopeBaseline))
	for _, res := range r.ScopeBaseline {
		baseline[res] = struct{}{}
	}
	var extra []string
	for res := range r.TouchedSet() {
		if _, ok := baseline[res]; !ok {
			extra = append(extra, res)
		}
	}
	sort.Strings(extra)
	return extra
}
