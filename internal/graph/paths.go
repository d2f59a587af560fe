package graph

// CriticalPath returns the longest dependency chain through the graph,
// weighted by item budget when budgets differ and by edge count otherwise.
// The path is reported in execution order. An empty slice means the graph is
// cyclic or empty; callers resolve cycles before asking for paths.
func (g *Graph) CriticalPath() []string {
	order := g.kahn()
	if len(order) != len(g.ids) || len(order) == 0 {
		return nil
	}

	weighted := false
	first := g.items[g.ids[0]].BudgetUnits
	for _, id := range g.ids[1:] {
		if g.items[id].BudgetUnits != first {
			weighted = true
			break
		}
	}
	cost := func(idx int) float64 {
		if weighted {
			return g.items[g.ids[idx]].BudgetUnits
		}
		return 1
	}

	dist := make([]float64, len(g.ids))
	prev := make([]int, len(g.ids))
	for i := range prev {
		prev[i] = -1
		dist[i] = cost(i)
	}
	for _, idx := range order {
		for _, succ := range g.outgoing[idx] {
			if candidate := dist[idx] + cost(succ); candidate > dist[succ] {
				dist[succ] = candidate
				prev[succ] = idx
			} else if candidate == dist[succ] && prev[succ] >= 0 && g.ids[idx] < g.ids[prev[succ]] {
				// Stable witness for equal-length paths.
				prev[succ] = idx
			}
		}
	}

	end := 0
	for i := 1; i < len(dist); i++ {
		if dist[i] > dist[end] || (dist[i] == dist[end] && g.ids[i] < g.ids[end]) {
			end = i
		}
	}

	var path []string
	for cur := end; cur >= 0; cur = prev[cur] {
		path = append(path, g.ids[cur])
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
