// Package graph holds the dependency graph over work items together with the
// algorithms the resolver needs: cycle detection via strongly connected
// components, deterministic topological ordering, parallel grouping, and the
// critical path.
//
// Items are kept in an arena indexed by id; the algorithms operate over
// integer indices so cyclic inputs never produce pointer cycles.
package graph

import (
	"fmt"
	"sort"

	"github.com/weftlabs/weft/internal/item"
)

// EdgeKind categorizes how a dependency edge was derived.
type EdgeKind string

const (
	// EdgeExplicit comes from a declared depends_on entry.
	EdgeExplicit EdgeKind = "explicit"
	// EdgeImplicit comes from content-inferred references between items.
	EdgeImplicit EdgeKind = "implicit"
	// EdgeDataFlow links a producer of a resource to its consumer.
	EdgeDataFlow EdgeKind = "data_flow"
	// EdgeTemporal comes from declared before/after constraints.
	EdgeTemporal EdgeKind = "temporal"
)

// IsValid checks whether the edge kind is a known value.
func (k EdgeKind) IsValid() bool {
	switch k {
	case EdgeExplicit, EdgeImplicit, EdgeDataFlow, EdgeTemporal:
		return true
	}
	return false
}

// Edge is a directed dependency: From must run before To. Strength in [0,1]
// reflects confidence in the edge and picks cycle-breaking victims.
type Edge struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Kind     EdgeKind `json:"kind"`
	Strength float64  `json:"strength"`
}

// Cycle is a strongly connected component of size greater than one.
type Cycle struct {
	Members     []string `json:"members"`
	Edges       []Edge   `json:"edges"`
	AvgStrength float64  `json:"avg_strength"`
}

// Graph is the dependency graph over work items. It is mutable while the
// resolver builds and repairs it, then handed read-only to the processor.
type Graph struct {
	ids   []string
	index map[string]int
	items map[string]*item.WorkItem

	edges    []Edge
	outgoing [][]int
	incoming [][]int
}

// New builds an edgeless graph over the given items. Item ids must be unique.
func New(items []*item.WorkItem) (*Graph, error) {
	g := &Graph{
		ids:   make([]string, 0, len(items)),
		index: make(map[string]int, len(items)),
		items: make(map[string]*item.WorkItem, len(items)),
	}
	for _, it := range items {
		if it == nil {
			return nil, fmt.Errorf("graph: nil work item")
		}
		if err := it.Validate(); err != nil {
			return nil, fmt.Errorf("graph: %w", err)
		}
		if _, exists := g.index[it.ID]; exists {
			return nil, fmt.Errorf("graph: duplicate item id %s", it.ID)
		}
		g.index[it.ID] = len(g.ids)
		g.ids = append(g.ids, it.ID)
		g.items[it.ID] = it
	}
	g.outgoing = make([][]int, len(g.ids))
	g.incoming = make([][]int, len(g.ids))
	return g, nil
}

// AddEdge inserts a directed edge. Self-loops are rejected; a duplicate
// (from, to) pair keeps whichever edge carries the higher strength.
func (g *Graph) AddEdge(e Edge) error {
	if e.From == e.To {
		return fmt.Errorf("graph: self-referential edge %s -> %s", e.From, e.To)
	}
	if !e.Kind.IsValid() {
		return fmt.Errorf("graph: invalid edge kind %q", e.Kind)
	}
	if e.Strength < 0 || e.Strength > 1 {
		return fmt.Errorf("graph: edge %s -> %s strength %v out of range", e.From, e.To, e.Strength)
	}
	from, ok := g.index[e.From]
	if !ok {
		return fmt.Errorf("graph: edge references unknown item %s", e.From)
	}
	to, ok := g.index[e.To]
	if !ok {
		return fmt.Errorf("graph: edge references unknown item %s", e.To)
	}
	for i, existing := range g.edges {
		if existing.From == e.From && existing.To == e.To {
			if e.Strength > existing.Strength {
				g.edges[i] = e
			}
			return nil
		}
	}
	g.edges = append(g.edges, e)
	g.outgoing[from] = append(g.outgoing[from], to)
	g.incoming[to] = append(g.incoming[to], from)
	return nil
}

// RemoveEdge deletes the (from, to) edge if present and reports whether it
// existed.
func (g *Graph) RemoveEdge(from, to string) bool {
	idx := -1
	for i, e := range g.edges {
		if e.From == from && e.To == to {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	g.edges = append(g.edges[:idx], g.edges[idx+1:]...)
	fi, ti := g.index[from], g.index[to]
	g.outgoing[fi] = removeIndex(g.outgoing[fi], ti)
	g.incoming[ti] = removeIndex(g.incoming[ti], fi)
	return true
}

// Len returns the number of items in the graph.
func (g *Graph) Len() int {
	return len(g.ids)
}

// IDs returns the item ids in arena order.
func (g *Graph) IDs() []string {
	out := make([]string, len(g.ids))
	copy(out, g.ids)
	return out
}

// Item retrieves an item by id.
func (g *Graph) Item(id string) (*item.WorkItem, bool) {
	it, ok := g.items[id]
	return it, ok
}

// Edges returns a copy of the edge list.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Dependencies returns the ids that must run before the given item, sorted.
func (g *Graph) Dependencies(id string) []string {
	idx, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.incoming[idx]))
	for _, dep := range g.incoming[idx] {
		out = append(out, g.ids[dep])
	}
	sort.Strings(out)
	return out
}

// Dependents returns the ids directly unblocked by the given item, sorted.
func (g *Graph) Dependents(id string) []string {
	idx, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.outgoing[idx]))
	for _, dep := range g.outgoing[idx] {
		out = append(out, g.ids[dep])
	}
	sort.Strings(out)
	return out
}

// TransitiveDependents returns every id reachable downstream of the given
// item, sorted.
func (g *Graph) TransitiveDependents(id string) []string {
	start, ok := g.index[id]
	if !ok {
		return nil
	}
	seen := make(map[int]struct{})
	stack := append([]int(nil), g.outgoing[start]...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, visited := seen[n]; visited {
			continue
		}
		seen[n] = struct{}{}
		stack = append(stack, g.outgoing[n]...)
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, g.ids[n])
	}
	sort.Strings(out)
	return out
}

// internalEdges returns the edges whose endpoints both sit inside the member
// set, in edge-list order.
func (g *Graph) internalEdges(members map[string]struct{}) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if _, okFrom := members[e.From]; !okFrom {
			continue
		}
		if _, okTo := members[e.To]; !okTo {
			continue
		}
		out = append(out, e)
	}
	return out
}

func removeIndex(values []int, target int) []int {
	for i, v := range values {
		if v == target {
			return append(values[:i], values[i+1:]...)
		}
	}
	return values
}
