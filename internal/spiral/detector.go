// Package spiral watches per-item iteration histories for non-convergent
// execution patterns and recommends commitment adjustments to the queue
// processor.
package spiral

import (
	"fmt"
	"sort"
	"time"

	"github.com/weftlabs/weft/internal/item"
)

// Pattern names one recognized anomaly.
type Pattern string

const (
	// PatternOscillation fires when the same resources keep reappearing in
	// recent iterations without the item converging.
	PatternOscillation Pattern = "oscillation"
	// PatternScopeCreep fires when an iteration touches resources outside
	// the declared scope baseline.
	PatternScopeCreep Pattern = "scope_creep"
	// PatternDiminishingReturns fires when progress stalls across recent
	// iterations.
	PatternDiminishingReturns Pattern = "diminishing_returns"
	// PatternThrashing fires when iterations slow down while progress stops.
	PatternThrashing Pattern = "thrashing"
	// PatternGoldPlating fires when a finished item keeps touching resources.
	PatternGoldPlating Pattern = "gold_plating"
)

// Severity grades a finding.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Thresholds tunes the five heuristics. The zero value is not usable; call
// DefaultThresholds and override fields as needed.
type Thresholds struct {
	// OscillationWindow is how many trailing iterations to intersect.
	OscillationWindow int
	// OscillationMinShared is the minimum size of the shared touched set.
	OscillationMinShared int
	// ScopeTolerance is how many out-of-baseline resources are acceptable.
	ScopeTolerance int
	// ProgressEpsilon is the minimum useful progress delta per iteration.
	ProgressEpsilon float64
	// StallWindow is how many trailing iterations may stall before the
	// diminishing-returns pattern fires.
	StallWindow int
	// ThrashFactor multiplies the average iteration time; slower iterations
	// with no progress count as thrashing.
	ThrashFactor float64
}

// DefaultThresholds returns the tuning the heuristics were calibrated with.
func DefaultThresholds() Thresholds {
	return Thresholds{
		OscillationWindow:    3,
		OscillationMinShared: 3,
		ScopeTolerance:       0,
		ProgressEpsilon:      0.1,
		StallWindow:          2,
		ThrashFactor:         2.0,
	}
}

func (t Thresholds) validate() error {
	if t.OscillationWindow < 2 {
		return fmt.Errorf("spiral: oscillation window must be at least 2")
	}
	if t.OscillationMinShared < 1 {
		return fmt.Errorf("spiral: oscillation min shared must be positive")
	}
	if t.StallWindow < 1 {
		return fmt.Errorf("spiral: stall window must be positive")
	}
	if t.ThrashFactor <= 1 {
		return fmt.Errorf("spiral: thrash factor must exceed 1")
	}
	return nil
}

// PatternHit is one detected pattern with its grade and evidence.
type PatternHit struct {
	Pattern  Pattern  `json:"pattern"`
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail"`
}

// Finding aggregates the patterns detected on one iteration.
type Finding struct {
	Patterns []PatternHit `json:"patterns,omitempty"`
	Severity Severity     `json:"severity"`
	// CommitmentDelta is the recommended commitment-level increase: 0 for a
	// clean iteration, +1 for warnings, +2 for anything critical.
	CommitmentDelta int `json:"commitment_delta"`
	// Escalate flags a repeat warner (third warning and beyond) so the
	// processor can treat the item with suspicion even below critical.
	Escalate bool `json:"escalate,omitempty"`
}

// Detector evaluates iteration histories. It is stateless across calls
// except for the per-item warning counters it owns. Not safe for concurrent
// use; the processor serializes detector calls per run.
type Detector struct {
	thresholds Thresholds
	warnings   map[string]int
}

// NewDetector builds a detector with the given thresholds.
func NewDetector(t Thresholds) (*Detector, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &Detector{thresholds: t, warnings: make(map[string]int)}, nil
}

// Check evaluates the current iteration against the item's history. The
// history holds every prior iteration in order; current is not yet part of
// it.
func (d *Detector) Check(itemID string, history []item.IterationRecord, current item.IterationRecord) Finding {
	var hits []PatternHit
	if hit, ok := d.checkOscillation(history, current); ok {
		hits = append(hits, hit)
	}
	if hit, ok := d.checkScopeCreep(current); ok {
		hits = append(hits, hit)
	}
	if hit, ok := d.checkDiminishingReturns(history, current); ok {
		hits = append(hits, hit)
	}
	if hit, ok := d.checkThrashing(history, current); ok {
		hits = append(hits, hit)
	}
	if hit, ok := d.checkGoldPlating(history, current); ok {
		hits = append(hits, hit)
	}

	finding := Finding{Patterns: hits, Severity: SeverityNone}
	for _, hit := range hits {
		if hit.Severity == SeverityCritical {
			finding.Severity = SeverityCritical
			break
		}
		finding.Severity = SeverityWarning
	}
	switch finding.Severity {
	case SeverityCritical:
		finding.CommitmentDelta = 2
	case SeverityWarning:
		d.warnings[itemID]++
		finding.CommitmentDelta = 1
		if d.warnings[itemID] >= 3 {
			finding.Escalate = true
		}
	}
	return finding
}

// Warnings reports how many warning findings an item has accumulated.
func (d *Detector) Warnings(itemID string) int {
	return d.warnings[itemID]
}

// checkOscillation intersects the touched sets of the trailing window. A
// persistent shared core of resources means the item is flip-flopping
// rather than converging.
func (d *Detector) checkOscillation(history []item.IterationRecord, current item.IterationRecord) (PatternHit, bool) {
	window := d.thresholds.OscillationWindow
	if len(history) < window-1 {
		return PatternHit{}, false
	}
	shared := current.TouchedSet()
	for i := len(history) - (window - 1); i < len(history); i++ {
		next := history[i].TouchedSet()
		for res := range shared {
			if _, ok := next[res]; !ok {
				delete(shared, res)
			}
		}
	}
	if len(shared) < d.thresholds.OscillationMinShared {
		return PatternHit{}, false
	}
	resources := make([]string, 0, len(shared))
	for res := range shared {
		resources = append(resources, res)
	}
	sort.Strings(resources)
	return PatternHit{
		Pattern:  PatternOscillation,
		Severity: SeverityWarning,
		Detail:   fmt.Sprintf("last %d iterations all touched %v", window, resources),
	}, true
}

func (d *Detector) checkScopeCreep(current item.IterationRecord) (PatternHit, bool) {
	extra := current.OutOfScope()
	if len(extra) <= d.thresholds.ScopeTolerance {
		return PatternHit{}, false
	}
	severity := SeverityWarning
	// Creep past double the tolerance plus a couple of resources means the
	// item has wandered well outside its charter.
	if len(extra) > d.thresholds.ScopeTolerance*2+2 {
		severity = SeverityCritical
	}
	return PatternHit{
		Pattern:  PatternScopeCreep,
		Severity: severity,
		Detail:   fmt.Sprintf("touched %d resource(s) outside scope baseline: %v", len(extra), extra),
	}, true
}

func (d *Detector) checkDiminishingReturns(history []item.IterationRecord, current item.IterationRecord) (PatternHit, bool) {
	window := d.thresholds.StallWindow
	if len(history) < window {
		return PatternHit{}, false
	}
	records := append(append([]item.IterationRecord{}, history...), current)
	for i := len(records) - window; i < len(records); i++ {
		delta := records[i].Progress - records[i-1].Progress
		if delta >= d.thresholds.ProgressEpsilon {
			return PatternHit{}, false
		}
	}
	return PatternHit{
		Pattern:  PatternDiminishingReturns,
		Severity: SeverityWarning,
		Detail:   fmt.Sprintf("progress delta below %.2f for the last %d iterations", d.thresholds.ProgressEpsilon, window),
	}, true
}

func (d *Detector) checkThrashing(history []item.IterationRecord, current item.IterationRecord) (PatternHit, bool) {
	if len(history) == 0 {
		return PatternHit{}, false
	}
	var total time.Duration
	for _, rec := range history {
		total += rec.Elapsed
	}
	avg := total / time.Duration(len(history))
	if avg <= 0 {
		return PatternHit{}, false
	}
	limit := time.Duration(float64(avg) * d.thresholds.ThrashFactor)
	progressDelta := current.Progress - history[len(history)-1].Progress
	if current.Elapsed <= limit || progressDelta > 0 {
		return PatternHit{}, false
	}
	return PatternHit{
		Pattern:  PatternThrashing,
		Severity: SeverityCritical,
		Detail:   fmt.Sprintf("iteration took %s against a %s average with no progress", current.Elapsed, avg),
	}, true
}

func (d *Detector) checkGoldPlating(history []item.IterationRecord, current item.IterationRecord) (PatternHit, bool) {
	if len(history) == 0 || len(current.Touched) == 0 {
		return PatternHit{}, false
	}
	if history[len(history)-1].Progress < 1.0 {
		return PatternHit{}, false
	}
	return PatternHit{
		Pattern:  PatternGoldPlating,
		Severity: SeverityWarning,
		Detail:   fmt.Sprintf("progress already complete but iteration %d touched %d resource(s)", current.Index, len(current.Touched)),
	}, true
}
