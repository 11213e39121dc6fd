package construct

import "github.com/dominikbraun/graph"

// Graph is the dependency graph of resources. An edge A -> B means A references an attribute of B,
// so B must be provisioned before A. Edge data holds the []Reference that produced the edge.
type (
	Graph = graph.Graph[string, *Resource]
	Edge  = graph.Edge[string]
)

func ResourceHasher(r *Resource) string {
	return r.ID
}

func NewGraph() Graph {
	return graph.New(ResourceHasher, graph.Directed())
}

func NewAcyclicGraph() Graph {
	return graph.New(
		ResourceHasher,
		graph.Directed(),
		graph.Acyclic(),
		graph.PreventCycles(),
	)
}

// EdgeReferences returns the references carried on an edge, if any.
func EdgeReferences(e Edge) []Reference {
	refs, _ := e.Properties.Data.([]Reference)
	return refs
}
