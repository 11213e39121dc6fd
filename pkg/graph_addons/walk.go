package graph_addons

import (
	"fmt"

	"github.com/dominikbraun/graph"
	"github.com/klothoplatform/stackplan/pkg/set"
)

// Direction is which way a closure follows the edges of a dependency graph. An edge `a -> b`
// means that a depends on b.
type Direction int

const (
	// Dependencies follows edges forward, from a vertex to what it depends on.
	Dependencies Direction = iota
	// Dependents follows edges backward, from a vertex to what depends on it.
	Dependents
)

func (d Direction) String() string {
	if d == Dependents {
		return "dependents"
	}
	return "dependencies"
}

// Closure returns the starting vertices together with every vertex reachable from them in
// direction d.
func Closure[K comparable, T any](g graph.Graph[K, T], d Direction, starts ...K) (set.Set[K], error) {
	var (
		edges map[K]map[K]graph.Edge[K]
		err   error
	)
	if d == Dependents {
		edges, err = g.PredecessorMap()
	} else {
		edges, err = g.AdjacencyMap()
	}
	if err != nil {
		return nil, err
	}

	reached := make(set.Set[K])
	queue := make([]K, 0, len(starts))
	for _, start := range starts {
		if _, ok := edges[start]; !ok {
			return nil, fmt.Errorf("could not find %s of %v: %w", d, start, graph.ErrVertexNotFound)
		}
		if !reached.Contains(start) {
			reached.Add(start)
			queue = append(queue, start)
		}
	}

	var current K
	for len(queue) > 0 {
		current, queue = queue[0], queue[1:]
		for next := range edges[current] {
			if reached.Contains(next) {
				continue
			}
			reached.Add(next)
			queue = append(queue, next)
		}
	}
	return reached, nil
}
