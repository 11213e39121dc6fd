package graph_addons

import (
	"fmt"

	"github.com/dominikbraun/graph"
)

// Levels groups the vertices of an acyclic graph so that each vertex lands one level after the
// deepest of its dependencies (the targets of its out-edges). Vertices with no dependencies are in
// level 0. Within a level, vertices keep their relative position in `order`, which must list every
// vertex of the graph exactly once.
func Levels[K comparable, T any](g graph.Graph[K, T], order []K) ([][]K, error) {
	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	if len(order) != len(adj) {
		return nil, fmt.Errorf("order has %d vertices, graph has %d", len(order), len(adj))
	}

	const visiting = -1
	depth := make(map[K]int, len(adj))
	var levelOf func(k K) (int, error)
	levelOf = func(k K) (int, error) {
		switch d, ok := depth[k]; {
		case ok && d == visiting:
			return 0, fmt.Errorf("%w: through %v", graph.ErrEdgeCreatesCycle, k)
		case ok:
			return d, nil
		}
		depth[k] = visiting
		lvl := 0
		for dep := range adj[k] {
			dl, err := levelOf(dep)
			if err != nil {
				return 0, err
			}
			if dl+1 > lvl {
				lvl = dl + 1
			}
		}
		depth[k] = lvl
		return lvl, nil
	}

	var levels [][]K
	for _, k := range order {
		if _, ok := adj[k]; !ok {
			return nil, fmt.Errorf("%v: %w", k, graph.ErrVertexNotFound)
		}
		lvl, err := levelOf(k)
		if err != nil {
			return nil, err
		}
		for len(levels) <= lvl {
			levels = append(levels, nil)
		}
		levels[lvl] = append(levels[lvl], k)
	}
	return levels, nil
}
