package resolver

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/weftlabs/weft/internal/graph"
	"github.com/weftlabs/weft/internal/item"
)

// Edge strengths by derivation. Explicit declarations are trusted fully;
// inferred references are the first candidates for cycle breaking.
const (
	strengthExplicit = 1.0
	strengthDataFlow = 0.8
	strengthTemporal = 0.7
	strengthImplicit = 0.5
)

var wordPattern = regexp.MustCompile(`[A-Za-z0-9_./-]+`)

// buildGraph derives edges of the selected kinds over the items. A nil or
// empty kind selection enables every derivation.
func buildGraph(items []*item.WorkItem, kinds []graph.EdgeKind) (*graph.Graph, error) {
	g, err := graph.New(items)
	if err != nil {
		return nil, fmt.Errorf("resolver: %w", err)
	}
	enabled := make(map[graph.EdgeKind]bool, len(kinds))
	for _, k := range kinds {
		if !k.IsValid() {
			return nil, fmt.Errorf("resolver: unknown edge kind %q", k)
		}
		enabled[k] = true
	}
	all := len(enabled) == 0

	if all || enabled[graph.EdgeExplicit] {
		if err := addExplicitEdges(g, items); err != nil {
			return nil, err
		}
	}
	if all || enabled[graph.EdgeDataFlow] {
		if err := addDataFlowEdges(g, items); err != nil {
			return nil, err
		}
	}
	if all || enabled[graph.EdgeTemporal] {
		if err := addTemporalEdges(g, items); err != nil {
			return nil, err
		}
	}
	if all || enabled[graph.EdgeImplicit] {
		if err := addImplicitEdges(g, items); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func addExplicitEdges(g *graph.Graph, items []*item.WorkItem) error {
	for _, it := range items {
		for _, dep := range it.DependsOn {
			if _, ok := g.Item(dep); !ok {
				return fmt.Errorf("resolver: item %s depends on unknown item %s", it.ID, dep)
			}
			err := g.AddEdge(graph.Edge{From: dep, To: it.ID, Kind: graph.EdgeExplicit, Strength: strengthExplicit})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// addDataFlowEdges links each producer of a resource to every consumer of
// the same resource.
func addDataFlowEdges(g *graph.Graph, items []*item.WorkItem) error {
	producers := make(map[string][]string)
	for _, it := range items {
		for _, res := range it.Produces {
			producers[res] = append(producers[res], it.ID)
		}
	}
	for res := range producers {
		sort.Strings(producers[res])
	}
	for _, it := range items {
		for _, res := range it.Consumes {
			for _, producer := range producers[res] {
				if producer == it.ID {
					continue
				}
				err := g.AddEdge(graph.Edge{From: producer, To: it.ID, Kind: graph.EdgeDataFlow, Strength: strengthDataFlow})
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func addTemporalEdges(g *graph.Graph, items []*item.WorkItem) error {
	add := func(from, to, owner string) error {
		if from == to {
			return nil
		}
		if _, ok := g.Item(from); !ok {
			return fmt.Errorf("resolver: item %s orders against unknown item %s", owner, from)
		}
		if _, ok := g.Item(to); !ok {
			return fmt.Errorf("resolver: item %s orders against unknown item %s", owner, to)
		}
		return g.AddEdge(graph.Edge{From: from, To: to, Kind: graph.EdgeTemporal, Strength: strengthTemporal})
	}
	for _, it := range items {
		for _, other := range it.After {
			if err := add(other, it.ID, it.ID); err != nil {
				return err
			}
		}
		for _, other := range it.Before {
			if err := add(it.ID, other, it.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// addImplicitEdges infers references from metadata content: when an item's
// metadata mentions another item's id, the mentioned item is assumed to come
// first. These edges carry low strength so cycle breaking removes them
// before anything declared.
func addImplicitEdges(g *graph.Graph, items []*item.WorkItem) error {
	ids := make(map[string]struct{}, len(items))
	for _, it := range items {
		ids[it.ID] = struct{}{}
	}
	for _, it := range items {
		seen := make(map[string]struct{})
		for _, value := range metadataValues(it) {
			for _, word := range wordPattern.FindAllString(value, -1) {
				if word == it.ID {
					continue
				}
				if _, isItem := ids[word]; !isItem {
					continue
				}
				if _, dup := seen[word]; dup {
					continue
				}
				seen[word] = struct{}{}
				err := g.AddEdge(graph.Edge{From: word, To: it.ID, Kind: graph.EdgeImplicit, Strength: strengthImplicit})
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// metadataValues returns the item's metadata values in key order so edge
// derivation stays deterministic.
func metadataValues(it *item.WorkItem) []string {
	if len(it.Metadata) == 0 {
		return nil
	}
	keys := make([]string, 0, len(it.Metadata))
	for k := range it.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = it.Metadata[k]
	}
	return out
}
