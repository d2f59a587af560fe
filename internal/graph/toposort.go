package graph

import (
	"container/heap"
	"fmt"
)

// Order produces a deterministic topological ordering of item ids using
// Kahn's algorithm. The ready set is a priority heap ordered by declared
// priority descending, then id ascending, so equal inputs always yield the
// same order. An error is returned when the graph still contains a cycle.
func (g *Graph) Order() ([]string, error) {
	order := g.kahn()
	if len(order) != len(g.ids) {
		return nil, fmt.Errorf("graph: ordering requires an acyclic graph (%d of %d items ordered)", len(order), len(g.ids))
	}
	out := make([]string, len(order))
	for i, idx := range order {
		out[i] = g.ids[idx]
	}
	return out, nil
}

// ParallelGroups buckets items by topological depth. Items inside one group
// carry no edges between each other and may be dispatched concurrently.
// Groups are returned in depth order; ids within a group follow the same
// priority-then-id ordering the scheduler uses.
func (g *Graph) ParallelGroups() ([][]string, error) {
	order := g.kahn()
	if len(order) != len(g.ids) {
		return nil, fmt.Errorf("graph: grouping requires an acyclic graph")
	}
	depth := make([]int, len(g.ids))
	maxDepth := 0
	for _, idx := range order {
		for _, pred := range g.incoming[idx] {
			if depth[pred]+1 > depth[idx] {
				depth[idx] = depth[pred] + 1
			}
		}
		if depth[idx] > maxDepth {
			maxDepth = depth[idx]
		}
	}
	groups := make([][]string, maxDepth+1)
	for _, idx := range order {
		groups[depth[idx]] = append(groups[depth[idx]], g.ids[idx])
	}
	return groups, nil
}

// kahn returns a topological ordering of indices; shorter than the item
// count when the graph is cyclic.
func (g *Graph) kahn() []int {
	indeg := make([]int, len(g.ids))
	for _, succs := range g.outgoing {
		for _, to := range succs {
			indeg[to]++
		}
	}
	ready := &readyHeap{graph: g}
	heap.Init(ready)
	for i, d := range indeg {
		if d == 0 {
			heap.Push(ready, i)
		}
	}
	out := make([]int, 0, len(g.ids))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, m := range g.outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	return out
}

// readyHeap orders ready indices by item priority descending, then id
// ascending.
type readyHeap struct {
	graph   *Graph
	indices []int
}

func (h *readyHeap) Len() int { return len(h.indices) }

func (h *readyHeap) Less(i, j int) bool {
	a, b := h.indices[i], h.indices[j]
	pa := h.graph.items[h.graph.ids[a]].Priority
	pb := h.graph.items[h.graph.ids[b]].Priority
	if pa != pb {
		return pa > pb
	}
	return h.graph.ids[a] < h.graph.ids[b]
}

func (h *readyHeap) Swap(i, j int) {
	h.indices[i], h.indices[j] = h.indices[j], h.indices[i]
}

func (h *readyHeap) Push(x any) {
	h.indices = append(h.indices, x.(int))
}

func (h *readyHeap) Pop() any {
	old := h.indices
	n := len(old)
	x := old[n-1]
	h.indices = old[:n-1]
	return x
}
