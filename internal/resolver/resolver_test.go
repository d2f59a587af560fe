package resolver

import (
	"errors"
	"strings"
	"testing"

	"github.com/weftlabs/weft/internal/graph"
	"github.com/weftlabs/weft/internal/item"
)

func TestResolveLinearChain(t *testing.T) {
	items := []*item.WorkItem{
		{ID: "C", DependsOn: []string{"A", "B"}},
		{ID: "B", DependsOn: []string{"A"}},
		{ID: "A"},
	}
	result, err := Resolve(items, Options{Strategy: StrategyFailOnCycle})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got := orderedIDs(result)
	want := []string{"A", "B", "C"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order %v, want %v", got, want)
		}
	}
	if len(result.Resolutions) != 0 {
		t.Fatalf("expected no resolutions, got %v", result.Resolutions)
	}
	if len(result.Cycles) != 0 {
		t.Fatalf("expected no cycles, got %v", result.Cycles)
	}
}

func TestResolveFailOnCycleReportsAllCycles(t *testing.T) {
	items := []*item.WorkItem{
		{ID: "X", DependsOn: []string{"Y"}},
		{ID: "Y", DependsOn: []string{"X"}},
		{ID: "P", DependsOn: []string{"Q"}},
		{ID: "Q", DependsOn: []string{"P"}},
	}
	_, err := Resolve(items, Options{Strategy: StrategyFailOnCycle})
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if len(cycleErr.Cycles) != 2 {
		t.Fatalf("expected 2 cycles, got %d", len(cycleErr.Cycles))
	}
}

func TestResolveBreakWeakestRemovesLowStrengthEdge(t *testing.T) {
	// X -> Y is explicit (1.0); Y -> X is implicit via metadata (0.5).
	items := []*item.WorkItem{
		{ID: "X", Metadata: map[string]string{"notes": "follows Y"}},
		{ID: "Y", DependsOn: []string{"X"}},
	}
	result, err := Resolve(items, Options{Strategy: StrategyBreakWeakest})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(result.Resolutions) != 1 {
		t.Fatalf("expected one resolution, got %d", len(result.Resolutions))
	}
	removed := result.Resolutions[0].RemovedEdge
	if removed == nil || removed.From != "Y" || removed.To != "X" || removed.Kind != graph.EdgeImplicit {
		t.Fatalf("expected the implicit Y -> X edge removed, got %+v", removed)
	}
	got := orderedIDs(result)
	if got[0] != "X" || got[1] != "Y" {
		t.Fatalf("expected surviving edge X -> Y to order [X Y], got %v", got)
	}
}

func TestResolveMergeCycleCollapsesMembers(t *testing.T) {
	items := []*item.WorkItem{
		{ID: "a", Priority: 2, BudgetUnits: 3, DependsOn: []string{"b"}},
		{ID: "b", Priority: 5, BudgetUnits: 4, DependsOn: []string{"a"}},
		{ID: "setup", Before: []string{"a"}},
		{ID: "teardown", DependsOn: []string{"b"}},
	}
	result, err := Resolve(items, Options{Strategy: StrategyMergeCycle})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(result.Resolutions) != 1 {
		t.Fatalf("expected one resolution, got %d", len(result.Resolutions))
	}
	mergedID := result.Resolutions[0].MergedInto
	if mergedID == "" {
		t.Fatal("expected a merged item id")
	}
	syn, ok := result.Graph.Item(mergedID)
	if !ok {
		t.Fatalf("merged item %s missing from graph", mergedID)
	}
	if syn.Priority != 5 {
		t.Fatalf("expected merged priority 5, got %d", syn.Priority)
	}
	if syn.BudgetUnits != 7 {
		t.Fatalf("expected merged budget 7, got %v", syn.BudgetUnits)
	}
	got := orderedIDs(result)
	if len(got) != 3 {
		t.Fatalf("expected 3 items after merge, got %v", got)
	}
	if got[0] != "setup" || got[1] != mergedID || got[2] != "teardown" {
		t.Fatalf("external edges not redirected, order %v", got)
	}
}

func TestResolveUserResolutionWithoutDecider(t *testing.T) {
	items := []*item.WorkItem{
		{ID: "x", DependsOn: []string{"y"}},
		{ID: "y", DependsOn: []string{"x"}},
	}
	var requests []ResolutionRequest
	_, err := Resolve(items, Options{
		Strategy:           StrategyUserResolution,
		OnResolutionNeeded: func(reqs []ResolutionRequest) { requests = reqs },
	})
	if !errors.Is(err, ErrResolutionRequired) {
		t.Fatalf("expected ErrResolutionRequired, got %v", err)
	}
	if len(requests) != 1 {
		t.Fatalf("expected one resolution request, got %d", len(requests))
	}
	if len(requests[0].Options) < 2 {
		t.Fatalf("expected break and merge options, got %v", requests[0].Options)
	}
}

func TestResolveUserResolutionAppliesDecision(t *testing.T) {
	items := []*item.WorkItem{
		{ID: "x", DependsOn: []string{"y"}},
		{ID: "y", DependsOn: []string{"x"}},
	}
	result, err := Resolve(items, Options{
		Strategy: StrategyUserResolution,
		Decide: func(cycle graph.Cycle, options []Option) (Decision, error) {
			return Decision{Kind: DecisionMerge}, nil
		},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(result.Ordered) != 1 {
		t.Fatalf("expected merged plan with one item, got %v", orderedIDs(result))
	}
	if !strings.HasPrefix(result.Ordered[0].ID, "merged-") {
		t.Fatalf("unexpected merged id %s", result.Ordered[0].ID)
	}
}

func TestResolveDataFlowEdges(t *testing.T) {
	items := []*item.WorkItem{
		{ID: "render", Consumes: []string{"schema"}},
		{ID: "define", Produces: []string{"schema"}},
	}
	result, err := Resolve(items, Options{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got := orderedIDs(result)
	if got[0] != "define" || got[1] != "render" {
		t.Fatalf("expected producer before consumer, got %v", got)
	}
	edges := result.Graph.Edges()
	if len(edges) != 1 || edges[0].Kind != graph.EdgeDataFlow {
		t.Fatalf("expected one data-flow edge, got %+v", edges)
	}
}

func TestResolveEdgeKindSelection(t *testing.T) {
	items := []*item.WorkItem{
		{ID: "render", Consumes: []string{"schema"}},
		{ID: "define", Produces: []string{"schema"}},
	}
	result, err := Resolve(items, Options{EdgeKinds: []graph.EdgeKind{graph.EdgeExplicit}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if edges := result.Graph.Edges(); len(edges) != 0 {
		t.Fatalf("expected data-flow derivation disabled, got %+v", edges)
	}
}

func TestResolveUnknownDependency(t *testing.T) {
	items := []*item.WorkItem{{ID: "a", DependsOn: []string{"ghost"}}}
	if _, err := Resolve(items, Options{}); err == nil {
		t.Fatal("expected unknown dependency error")
	}
}

func TestResolveParallelGroupsAndCriticalPath(t *testing.T) {
	items := []*item.WorkItem{
		{ID: "root"},
		{ID: "left", DependsOn: []string{"root"}},
		{ID: "right", DependsOn: []string{"root"}},
		{ID: "sink", DependsOn: []string{"left", "right"}},
	}
	result, err := Resolve(items, Options{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(result.Groups) != 3 || len(result.Groups[1]) != 2 {
		t.Fatalf("unexpected groups %v", result.Groups)
	}
	if len(result.CriticalPath) != 3 {
		t.Fatalf("unexpected critical path %v", result.CriticalPath)
	}
}

func orderedIDs(result *Result) []string {
	ids := make([]string, len(result.Ordered))
	for i, it := range result.Ordered {
		ids[i] = it.ID
	}
	return ids
}
