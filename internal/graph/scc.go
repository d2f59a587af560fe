package graph

import "sort"

// Cycles finds every strongly connected component with more than one member
// using Tarjan's algorithm in O(V+E). The traversal is iterative with an
// explicit frame stack so deep graphs cannot overflow the goroutine stack.
// Cycles are returned sorted by their smallest member id; members within a
// cycle are sorted too.
func (g *Graph) Cycles() []Cycle {
	n := len(g.ids)
	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}

	next := 0
	var sccStack []int
	var components [][]int

	type frame struct {
		node  int
		edge  int
		child int
	}

	connect := func(start int) {
		stack := []frame{{node: start, edge: -1, child: -1}}
		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			if f.edge < 0 {
				index[f.node] = next
				lowlink[f.node] = next
				next++
				sccStack = append(sccStack, f.node)
				onStack[f.node] = true
				f.edge = 0
			} else if f.child >= 0 {
				if lowlink[f.child] < lowlink[f.node] {
					lowlink[f.node] = lowlink[f.child]
				}
				f.child = -1
			}

			advanced := false
			for f.edge < len(g.outgoing[f.node]) {
				succ := g.outgoing[f.node][f.edge]
				f.edge++
				if index[succ] < 0 {
					f.child = succ
					stack = append(stack, frame{node: succ, edge: -1, child: -1})
					advanced = true
					break
				}
				if onStack[succ] && index[succ] < lowlink[f.node] {
					lowlink[f.node] = index[succ]
				}
			}
			if advanced {
				continue
			}

			if lowlink[f.node] == index[f.node] {
				var comp []int
				for {
					w := sccStack[len(sccStack)-1]
					sccStack = sccStack[:len(sccStack)-1]
					onStack[w] = false
					comp = append(comp, w)
					if w == f.node {
						break
					}
				}
				if len(comp) > 1 {
					components = append(components, comp)
				}
			}
			stack = stack[:len(stack)-1]
		}
	}

	for i := 0; i < n; i++ {
		if index[i] < 0 {
			connect(i)
		}
	}

	cycles := make([]Cycle, 0, len(components))
	for _, comp := range components {
		members := make([]string, len(comp))
		memberSet := make(map[string]struct{}, len(comp))
		for i, idx := range comp {
			members[i] = g.ids[idx]
			memberSet[g.ids[idx]] = struct{}{}
		}
		sort.Strings(members)
		edges := g.internalEdges(memberSet)
		cycles = append(cycles, Cycle{
			Members:     members,
			Edges:       edges,
			AvgStrength: averageStrength(edges),
		})
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].Members[0] < cycles[j].Members[0]
	})
	return cycles
}

// WeakestEdge returns the lowest-strength internal edge of the cycle. Ties
// break by (from, to) so resolution stays deterministic.
func (c Cycle) WeakestEdge() (Edge, bool) {
	if len(c.Edges) == 0 {
		return Edge{}, false
	}
	weakest := c.Edges[0]
	for _, e := range c.Edges[1:] {
		if e.Strength < weakest.Strength {
			weakest = e
			continue
		}
		if e.Strength == weakest.Strength {
			if e.From < weakest.From || (e.From == weakest.From && e.To < weakest.To) {
				weakest = e
			}
		}
	}
	return weakest, true
}

func averageStrength(edges []Edge) float64 {
	if len(edges) == 0 {
		return 0
	}
	var sum float64
	for _, e := range edges {
		sum += e.Strength
	}
	return sum / float64(len(edges))
}
