package spiral

import (
	"testing"
	"time"

	"github.com/weftlabs/weft/internal/item"
)

func newDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := NewDetector(DefaultThresholds())
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	return d
}

func TestOscillationOnRepeatedTouchedSet(t *testing.T) {
	d := newDetector(t)
	files := []string{"f1", "f2", "f3"}
	history := []item.IterationRecord{
		{Index: 1, Touched: files, Progress: 0.3},
		{Index: 2, Touched: files, Progress: 0.35},
	}
	current := item.IterationRecord{Index: 3, Touched: files, Progress: 0.4}
	finding := d.Check("item", history, current)
	if !hasPattern(finding, PatternOscillation) {
		t.Fatalf("expected oscillation, got %+v", finding)
	}
	if finding.Severity != SeverityWarning {
		t.Fatalf("expected warning severity, got %s", finding.Severity)
	}
	if finding.CommitmentDelta != 1 {
		t.Fatalf("expected delta 1, got %d", finding.CommitmentDelta)
	}
}

func TestOscillationNeedsFullWindow(t *testing.T) {
	d := newDetector(t)
	files := []string{"f1", "f2", "f3"}
	history := []item.IterationRecord{{Index: 1, Touched: files, Progress: 0.5}}
	finding := d.Check("item", history, item.IterationRecord{Index: 2, Touched: files, Progress: 0.9})
	if hasPattern(finding, PatternOscillation) {
		t.Fatalf("oscillation fired before the window filled: %+v", finding)
	}
}

func TestScopeCreepOutsideBaseline(t *testing.T) {
	d := newDetector(t)
	current := item.IterationRecord{
		Index:         1,
		Touched:       []string{"a.go", "stray.go"},
		ScopeBaseline: []string{"a.go"},
		Progress:      0.5,
	}
	finding := d.Check("item", nil, current)
	if !hasPattern(finding, PatternScopeCreep) {
		t.Fatalf("expected scope creep, got %+v", finding)
	}
	if finding.Severity != SeverityWarning {
		t.Fatalf("expected warning, got %s", finding.Severity)
	}
}

func TestScopeCreepFarOutsideBaselineIsCritical(t *testing.T) {
	d := newDetector(t)
	current := item.IterationRecord{
		Index:         1,
		Touched:       []string{"a.go", "b.go", "c.go", "d.go"},
		ScopeBaseline: []string{"x.go"},
		Progress:      0.5,
	}
	finding := d.Check("item", nil, current)
	if finding.Severity != SeverityCritical {
		t.Fatalf("expected critical severity, got %+v", finding)
	}
	if finding.CommitmentDelta != 2 {
		t.Fatalf("expected delta 2, got %d", finding.CommitmentDelta)
	}
}

func TestDiminishingReturns(t *testing.T) {
	d := newDetector(t)
	history := []item.IterationRecord{
		{Index: 1, Progress: 0.50},
		{Index: 2, Progress: 0.55},
	}
	finding := d.Check("item", history, item.IterationRecord{Index: 3, Progress: 0.58})
	if !hasPattern(finding, PatternDiminishingReturns) {
		t.Fatalf("expected diminishing returns, got %+v", finding)
	}
}

func TestDiminishingReturnsIgnoresHealthyProgress(t *testing.T) {
	d := newDetector(t)
	history := []item.IterationRecord{
		{Index: 1, Progress: 0.2},
		{Index: 2, Progress: 0.5},
	}
	finding := d.Check("item", history, item.IterationRecord{Index: 3, Progress: 0.8})
	if hasPattern(finding, PatternDiminishingReturns) {
		t.Fatalf("diminishing returns fired on healthy progress: %+v", finding)
	}
}

func TestThrashingIsCritical(t *testing.T) {
	d := newDetector(t)
	history := []item.IterationRecord{
		{Index: 1, Progress: 0.5, Elapsed: time.Second},
		{Index: 2, Progress: 0.6, Elapsed: time.Second},
	}
	current := item.IterationRecord{Index: 3, Progress: 0.6, Elapsed: 5 * time.Second}
	finding := d.Check("item", history, current)
	if !hasPattern(finding, PatternThrashing) {
		t.Fatalf("expected thrashing, got %+v", finding)
	}
	if finding.Severity != SeverityCritical || finding.CommitmentDelta != 2 {
		t.Fatalf("expected critical +2, got %+v", finding)
	}
}

func TestThrashingRequiresStalledProgress(t *testing.T) {
	d := newDetector(t)
	history := []item.IterationRecord{{Index: 1, Progress: 0.3, Elapsed: time.Second}}
	current := item.IterationRecord{Index: 2, Progress: 0.9, Elapsed: 10 * time.Second}
	finding := d.Check("item", history, current)
	if hasPattern(finding, PatternThrashing) {
		t.Fatalf("thrashing fired despite progress: %+v", finding)
	}
}

func TestGoldPlating(t *testing.T) {
	d := newDetector(t)
	history := []item.IterationRecord{
		{Index: 1, Progress: 0.8, Touched: []string{"a.go"}},
		{Index: 2, Progress: 0.9, Touched: []string{"a.go"}},
		{Index: 3, Progress: 1.0},
	}
	current := item.IterationRecord{Index: 4, Progress: 1.0, Touched: []string{"a.go"}}
	finding := d.Check("item", history, current)
	if !hasPattern(finding, PatternGoldPlating) {
		t.Fatalf("expected gold plating, got %+v", finding)
	}
}

func TestCleanIterationHasNoFinding(t *testing.T) {
	d := newDetector(t)
	finding := d.Check("item", nil, item.IterationRecord{Index: 1, Progress: 0.5, Touched: []string{"a.go"}})
	if finding.Severity != SeverityNone || finding.CommitmentDelta != 0 || len(finding.Patterns) != 0 {
		t.Fatalf("expected clean finding, got %+v", finding)
	}
}

func TestWarningCounterEscalatesThirdOccurrence(t *testing.T) {
	d := newDetector(t)
	creep := item.IterationRecord{
		Index:         1,
		Touched:       []string{"a.go", "stray.go"},
		ScopeBaseline: []string{"a.go"},
		Progress:      0.5,
	}
	for i := 1; i <= 2; i++ {
		finding := d.Check("item", nil, creep)
		if finding.Escalate {
			t.Fatalf("warning %d should not escalate", i)
		}
	}
	finding := d.Check("item", nil, creep)
	if !finding.Escalate {
		t.Fatal("third warning should escalate")
	}
	if finding.CommitmentDelta != 1 {
		t.Fatalf("escalated warning still carries delta 1, got %d", finding.CommitmentDelta)
	}
	if d.Warnings("item") != 3 {
		t.Fatalf("expected 3 recorded warnings, got %d", d.Warnings("item"))
	}
}

func TestWarningCountersArePerItem(t *testing.T) {
	d := newDetector(t)
	creep := item.IterationRecord{
		Touched:       []string{"a.go", "stray.go"},
		ScopeBaseline: []string{"a.go"},
		Progress:      0.5,
	}
	d.Check("one", nil, creep)
	if d.Warnings("two") != 0 {
		t.Fatalf("counter leaked across items: %d", d.Warnings("two"))
	}
}

func hasPattern(f Finding, p Pattern) bool {
	for _, hit := range f.Patterns {
		if hit.Pattern == p {
			return true
		}
	}
	return false
}
