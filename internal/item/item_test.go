package item

import (
	"testing"
	"time"
)

func TestStatusLifecycle(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusReady},
		{StatusPending, StatusSkipped},
		{StatusReady, StatusInProgress},
		{StatusReady, StatusSkipped},
		{StatusInProgress, StatusCompleted},
		{StatusInProgress, StatusPartial},
		{StatusInProgress, StatusFailed},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}
	denied := []struct{ from, to Status }{
		{StatusReady, StatusPending},
		{StatusInProgress, StatusReady},
		{StatusCompleted, StatusInProgress},
		{StatusCompleted, StatusFailed},
		{StatusSkipped, StatusPending},
		{StatusPending, StatusPending},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusPartial, StatusFailed, StatusSkipped} {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusReady, StatusInProgress} {
		if s.Terminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}

func TestWorkItemValidate(t *testing.T) {
	valid := &WorkItem{ID: "a", Name: "A", BudgetUnits: 5}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid item rejected: %v", err)
	}
	cases := []struct {
		name string
		item *WorkItem
	}{
		{"empty id", &WorkItem{Name: "x"}},
		{"self dependency", &WorkItem{ID: "a", DependsOn: []string{"a"}}},
		{"negative budget", &WorkItem{ID: "a", BudgetUnits: -1}},
		{"bad status", &WorkItem{ID: "a", Status: Status("bogus")}},
	}
	for _, tc := range cases {
		if err := tc.item.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestWorkItemCloneIsDeep(t *testing.T) {
	orig := &WorkItem{
		ID:        "a",
		DependsOn: []string{"b"},
		Metadata:  map[string]string{"command": "true"},
	}
	clone := orig.Clone()
	clone.DependsOn[0] = "c"
	clone.Metadata["command"] = "false"
	if orig.DependsOn[0] != "b" {
		t.Fatalf("clone shares depends_on slice")
	}
	if orig.Metadata["command"] != "true" {
		t.Fatalf("clone shares metadata map")
	}
}

func TestBudgetValidate(t *testing.T) {
	if err := (Budget{TotalUnits: 10}).Validate(); err != nil {
		t.Fatalf("valid budget rejected: %v", err)
	}
	if err := (Budget{}).Validate(); err == nil {
		t.Fatal("expected zero budget to be rejected")
	}
	if err := (Budget{TotalUnits: 1, WallClock: -time.Second}).Validate(); err == nil {
		t.Fatal("expected negative wall clock to be rejected")
	}
}

func TestIterationRecordOutOfScope(t *testing.T) {
	rec := IterationRecord{
		Touched:       []string{"b.go", "a.go", "c.go"},
		ScopeBaseline: []string{"a.go", "b.go"},
	}
	extra := rec.OutOfScope()
	if len(extra) != 1 || extra[0] != "c.go" {
		t.Fatalf("unexpected out-of-scope set: %v", extra)
	}

	unscoped := IterationRecord{Touched: []string{"a.go"}}
	if got := unscoped.OutOfScope(); got != nil {
		t.Fatalf("expected nil for item without baseline, got %v", got)
	}
}
