// Package resolver turns a flat list of work items into a safe execution
// plan: it derives dependency edges, detects cycles, repairs them per the
// configured strategy, and emits a deterministic order plus parallel groups
// and the critical path.
package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/weftlabs/weft/internal/graph"
	"github.com/weftlabs/weft/internal/item"
)

// Strategy selects how detected cycles are repaired.
type Strategy string

const (
	// StrategyFailOnCycle aborts resolution with a CycleError listing every
	// detected cycle.
	StrategyFailOnCycle Strategy = "fail_on_cycle"
	// StrategyBreakWeakest removes the lowest-strength edge in each cycle.
	StrategyBreakWeakest Strategy = "break_weakest"
	// StrategyMergeCycle collapses each cycle into one synthetic item and
	// redirects external edges to it.
	StrategyMergeCycle Strategy = "merge_cycle"
	// StrategyUserResolution defers each cycle to a caller-supplied decision.
	StrategyUserResolution Strategy = "user_resolution"
)

// IsValid checks whether the strategy is a known value.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyFailOnCycle, StrategyBreakWeakest, StrategyMergeCycle, StrategyUserResolution:
		return true
	}
	return false
}

// DecisionKind enumerates the resolution actions a caller may pick for one
// cycle under StrategyUserResolution.
type DecisionKind string

const (
	DecisionBreakEdge DecisionKind = "break_edge"
	DecisionMerge     DecisionKind = "merge"
)

// Decision is a caller's answer to a resolution request.
type Decision struct {
	Kind DecisionKind
	// Edge names the edge to remove when Kind is DecisionBreakEdge. A zero
	// edge means "break the weakest".
	Edge graph.Edge
}

// DecideFunc supplies a decision for one cycle. The options slice describes
// the candidate actions in display order.
type DecideFunc func(cycle graph.Cycle, options []Option) (Decision, error)

// Option is one candidate resolution action offered to the caller.
type Option struct {
	Kind        DecisionKind `json:"kind"`
	Description string       `json:"description"`
	Edge        *graph.Edge  `json:"edge,omitempty"`
}

// Options configures a resolution pass.
type Options struct {
	// Strategy defaults to StrategyFailOnCycle.
	Strategy Strategy
	// EdgeKinds selects which edge derivations run. Empty means all.
	EdgeKinds []graph.EdgeKind
	// Decide answers user_resolution requests. When nil and the strategy is
	// StrategyUserResolution, Resolve fails with ErrResolutionRequired after
	// publishing the request through OnResolutionNeeded.
	Decide DecideFunc
	// OnResolutionNeeded is invoked with the detected cycles and their
	// candidate options before Resolve blocks on (or fails for) a decision.
	OnResolutionNeeded func(requests []ResolutionRequest)
}

// ResolutionRequest describes one cycle awaiting an external decision.
type ResolutionRequest struct {
	Cycle   graph.Cycle `json:"cycle"`
	Options []Option    `json:"options"`
}

// Resolution records the single action applied to one cycle.
type Resolution struct {
	Cycle       graph.Cycle `json:"cycle"`
	Strategy    Strategy    `json:"strategy"`
	RemovedEdge *graph.Edge `json:"removed_edge,omitempty"`
	MergedInto  string      `json:"merged_into,omitempty"`
}

// Result is a complete execution plan. The graph is acyclic and must be
// treated as read-only by consumers.
type Result struct {
	Ordered      []*item.WorkItem
	Graph        *graph.Graph
	Cycles       []graph.Cycle
	Groups       [][]string
	CriticalPath []string
	Resolutions  []Resolution
}

// CycleError is returned under StrategyFailOnCycle and reports every
// detected cycle. No partial plan accompanies it.
type CycleError struct {
	Cycles []graph.Cycle
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Cycles))
	for i, c := range e.Cycles {
		parts[i] = strings.Join(c.Members, " -> ")
	}
	return fmt.Sprintf("resolver: %d dependency cycle(s): %s", len(e.Cycles), strings.Join(parts, "; "))
}

// ErrResolutionRequired signals that cycles exist, user_resolution is
// configured, and no decision callback was supplied.
var ErrResolutionRequired = fmt.Errorf("resolver: cycle resolution requires an external decision")

// Resolve builds the dependency graph over the items and produces an
// execution plan. Items are cloned; callers keep ownership of their inputs.
func Resolve(items []*item.WorkItem, opts Options) (*Result, error) {
	strategy := opts.Strategy
	if strategy == "" {
		strategy = StrategyFailOnCycle
	}
	if !strategy.IsValid() {
		return nil, fmt.Errorf("resolver: unknown strategy %q", strategy)
	}

	cloned := make([]*item.WorkItem, len(items))
	for i, it := range items {
		cloned[i] = it.Clone()
	}
	g, err := buildGraph(cloned, opts.EdgeKinds)
	if err != nil {
		return nil, err
	}

	cycles := g.Cycles()
	var resolutions []Resolution
	if len(cycles) > 0 {
		switch strategy {
		case StrategyFailOnCycle:
			return nil, &CycleError{Cycles: cycles}
		case StrategyBreakWeakest:
			resolutions, err = breakWeakest(g, cycles)
		case StrategyMergeCycle:
			g, cloned, resolutions, err = mergeCycles(g, cloned, cycles)
		case StrategyUserResolution:
			g, cloned, resolutions, err = resolveByDecision(g, cloned, cycles, opts)
		}
		if err != nil {
			return nil, err
		}
		if remaining := g.Cycles(); len(remaining) > 0 {
			return nil, fmt.Errorf("resolver: graph still cyclic after %s resolution", strategy)
		}
	}

	orderedIDs, err := g.Order()
	if err != nil {
		return nil, err
	}
	ordered := make([]*item.WorkItem, 0, len(orderedIDs))
	for _, id := range orderedIDs {
		it, ok := g.Item(id)
		if !ok {
			return nil, fmt.Errorf("resolver: ordered id %s missing from graph", id)
		}
		ordered = append(ordered, it)
	}
	groups, err := g.ParallelGroups()
	if err != nil {
		return nil, err
	}
	return &Result{
		Ordered:      ordered,
		Graph:        g,
		Cycles:       cycles,
		Groups:       groups,
		CriticalPath: g.CriticalPath(),
		Resolutions:  resolutions,
	}, nil
}

func breakWeakest(g *graph.Graph, cycles []graph.Cycle) ([]Resolution, error) {
	resolutions := make([]Resolution, 0, len(cycles))
	for _, cycle := range cycles {
		weakest, ok := cycle.WeakestEdge()
		if !ok {
			return nil, fmt.Errorf("resolver: cycle %v has no internal edges", cycle.Members)
		}
		if !g.RemoveEdge(weakest.From, weakest.To) {
			return nil, fmt.Errorf("resolver: edge %s -> %s already removed", weakest.From, weakest.To)
		}
		removed := weakest
		resolutions = append(resolutions, Resolution{
			Cycle:       cycle,
			Strategy:    StrategyBreakWeakest,
			RemovedEdge: &removed,
		})
	}
	return resolutions, nil
}

// mergeCycles collapses each cycle into one synthetic item. The synthetic
// item adopts the highest member priority, the summed budget, and an id
// derived from the sorted member ids.
func mergeCycles(g *graph.Graph, items []*item.WorkItem, cycles []graph.Cycle) (*graph.Graph, []*item.WorkItem, []Resolution, error) {
	merged := make(map[string]string) // member id -> synthetic id
	synthetic := make(map[string]*item.WorkItem)
	resolutions := make([]Resolution, 0, len(cycles))
	for _, cycle := range cycles {
		id := "merged-" + strings.Join(cycle.Members, "+")
		syn := &item.WorkItem{
			ID:     id,
			Name:   "merged: " + strings.Join(cycle.Members, ", "),
			Status: item.StatusPending,
		}
		for _, member := range cycle.Members {
			it, ok := g.Item(member)
			if !ok {
				return nil, nil, nil, fmt.Errorf("resolver: cycle member %s missing", member)
			}
			if it.Priority > syn.Priority {
				syn.Priority = it.Priority
			}
			syn.BudgetUnits += it.BudgetUnits
			merged[member] = id
		}
		synthetic[id] = syn
		resolutions = append(resolutions, Resolution{
			Cycle:      cycle,
			Strategy:   StrategyMergeCycle,
			MergedInto: id,
		})
	}

	rebuilt := make([]*item.WorkItem, 0, len(items))
	for _, it := range items {
		if _, gone := merged[it.ID]; gone {
			continue
		}
		rebuilt = append(rebuilt, it)
	}
	ids := make([]string, 0, len(synthetic))
	for id := range synthetic {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		rebuilt = append(rebuilt, synthetic[id])
	}

	ng, err := graph.New(rebuilt)
	if err != nil {
		return nil, nil, nil, err
	}
	redirect := func(id string) string {
		if target, ok := merged[id]; ok {
			return target
		}
		return id
	}
	for _, e := range g.Edges() {
		from, to := redirect(e.From), redirect(e.To)
		if from == to {
			continue // internal to a merged cycle
		}
		e.From, e.To = from, to
		if err := ng.AddEdge(e); err != nil {
			return nil, nil, nil, err
		}
	}
	return ng, rebuilt, resolutions, nil
}

func resolveByDecision(g *graph.Graph, items []*item.WorkItem, cycles []graph.Cycle, opts Options) (*graph.Graph, []*item.WorkItem, []Resolution, error) {
	requests := make([]ResolutionRequest, 0, len(cycles))
	for _, cycle := range cycles {
		requests = append(requests, ResolutionRequest{Cycle: cycle, Options: optionsFor(cycle)})
	}
	if opts.OnResolutionNeeded != nil {
		opts.OnResolutionNeeded(requests)
	}
	if opts.Decide == nil {
		return nil, nil, nil, ErrResolutionRequired
	}

	var resolutions []Resolution
	for _, req := range requests {
		decision, err := opts.Decide(req.Cycle, req.Options)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("resolver: decision for cycle %v: %w", req.Cycle.Members, err)
		}
		switch decision.Kind {
		case DecisionBreakEdge:
			edge := decision.Edge
			if edge.From == "" {
				weakest, ok := req.Cycle.WeakestEdge()
				if !ok {
					return nil, nil, nil, fmt.Errorf("resolver: cycle %v has no internal edges", req.Cycle.Members)
				}
				edge = weakest
			}
			if !g.RemoveEdge(edge.From, edge.To) {
				return nil, nil, nil, fmt.Errorf("resolver: decision removes unknown edge %s -> %s", edge.From, edge.To)
			}
			removed := edge
			resolutions = append(resolutions, Resolution{
				Cycle:       req.Cycle,
				Strategy:    StrategyUserResolution,
				RemovedEdge: &removed,
			})
		case DecisionMerge:
			var mergeRes []Resolution
			var err error
			g, items, mergeRes, err = mergeCycles(g, items, []graph.Cycle{req.Cycle})
			if err != nil {
				return nil, nil, nil, err
			}
			for _, r := range mergeRes {
				r.Strategy = StrategyUserResolution
				resolutions = append(resolutions, r)
			}
		default:
			return nil, nil, nil, fmt.Errorf("resolver: unknown decision kind %q", decision.Kind)
		}
	}
	return g, items, resolutions, nil
}

func optionsFor(cycle graph.Cycle) []Option {
	var opts []Option
	if weakest, ok := cycle.WeakestEdge(); ok {
		e := weakest
		opts = append(opts, Option{
			Kind:        DecisionBreakEdge,
			Description: fmt.Sprintf("remove weakest edge %s -> %s (strength %.2f)", e.From, e.To, e.Strength),
			Edge:        &e,
		})
	}
	opts = append(opts, Option{
		Kind:        DecisionMerge,
		Description: fmt.Sprintf("merge %s into one item", strings.Join(cycle.Members, ", ")),
	})
	return opts
}
