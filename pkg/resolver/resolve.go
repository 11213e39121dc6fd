package resolver

import (
	"fmt"

	"github.com/dominikbraun/graph"
	"github.com/klothoplatform/stackplan/pkg/construct"
	"github.com/klothoplatform/stackplan/pkg/graph_addons"
	"github.com/klothoplatform/stackplan/pkg/plan"
	"github.com/klothoplatform/stackplan/pkg/set"
	"go.uber.org/zap"
)

type visitMark int

const (
	unvisited visitMark = iota
	visiting
	visited
)

// Resolve validates every reference, orders the nodes so that each comes after everything it
// references and returns the resulting plan. Nodes are visited in declaration order and their
// references followed in declaration order, emitting each node once all of its dependencies have
// been emitted, so independent nodes keep their declaration order.
//
// On success the graph becomes Resolved and later calls return the same plan. On failure the graph
// stays Open and no plan is produced.
func (g *Graph) Resolve() (*plan.Plan, error) {
	if g.state == Resolved {
		return g.plan, nil
	}

	order, err := g.sort()
	if err != nil {
		g.log.Debug("resolve failed", zap.Error(err))
		return nil, err
	}

	deps, err := g.buildDependencyGraph(order)
	if err != nil {
		return nil, fmt.Errorf("could not build dependency graph: %w", err)
	}

	p := plan.New(g.steps(order)...)
	g.deps = deps
	g.plan = p
	g.state = Resolved
	g.log.Debug("resolved graph", zap.Strings("order", order), zap.Stringer("plan", p.ID))
	return p, nil
}

func (g *Graph) sort() ([]string, error) {
	marks := make(map[string]visitMark, len(g.nodes))
	order := make([]string, 0, len(g.nodes))
	var path []string

	var visit func(id string) error
	visit = func(id string) error {
		marks[id] = visiting
		path = append(path, id)

		for _, ref := range g.refs[id] {
			targetId := ref.Target.Resource
			target, ok := g.nodes[targetId]
			if !ok {
				return &UnknownNodeError{ID: targetId, Reference: ref}
			}
			if !g.kb.Exposes(target.Kind, ref.Target.Property) {
				return &InvalidAttributeError{
					ID:        targetId,
					Kind:      target.Kind,
					Attribute: ref.Target.Property,
					Reference: ref,
				}
			}
			switch marks[targetId] {
			case visited:
				continue
			case visiting:
				return &CycleDetectedError{Cycle: cycleFrom(path, targetId)}
			}
			if err := visit(targetId); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		marks[id] = visited
		order = append(order, id)
		return nil
	}

	for _, id := range g.order {
		if marks[id] != unvisited {
			continue
		}
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// cycleFrom returns the part of the DFS path starting at the node that was reached again.
func cycleFrom(path []string, id string) []string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == id {
			return append([]string(nil), path[i:]...)
		}
	}
	return []string{id}
}

func (g *Graph) buildDependencyGraph(order []string) (construct.Graph, error) {
	deps := graph_addons.NewLoggingGraph(construct.NewAcyclicGraph(), g.log.Named("deps"), construct.ResourceHasher)
	for _, id := range order {
		if err := deps.AddVertex(g.nodes[id].Clone()); err != nil {
			return nil, err
		}
	}
	for _, id := range order {
		byTarget := make(map[string][]construct.Reference)
		targets := set.OrderedOf[string]()
		for _, ref := range g.refs[id] {
			targets.Add(ref.Target.Resource)
			byTarget[ref.Target.Resource] = append(byTarget[ref.Target.Resource], ref)
		}
		for _, target := range targets.ToSlice() {
			refs := byTarget[target]
			err := deps.AddEdge(id, target, func(ep *graph.EdgeProperties) {
				ep.Data = refs
			})
			if err != nil {
				return nil, err
			}
		}
	}
	return deps.Graph, nil
}

// steps builds the plan steps. Because order is topological, every referenced node has already
// been resolved when a node's references are substituted, so chains of references collapse to the
// literal at their end, or to a placeholder for an attribute only known after provisioning.
func (g *Graph) steps(order []string) []*plan.Step {
	resolved := make(map[string]construct.Properties, len(order))
	steps := make([]*plan.Step, 0, len(order))

	for _, id := range order {
		node := g.nodes[id]
		attrs := make(construct.Properties, len(node.Properties))
		for name, v := range node.Properties {
			// ReplaceRefs cannot fail here: the replacement function never errors.
			attrs[name], _ = construct.ReplaceRefs(v, func(ref construct.PropertyRef) (any, error) {
				if tv, ok := resolved[ref.Resource][ref.Property]; ok && tv != nil {
					return construct.CloneValue(tv), nil
				}
				return ref, nil
			})
		}
		resolved[id] = attrs

		dependsOn := set.OrderedOf[string]()
		for _, ref := range g.refs[id] {
			dependsOn.Add(ref.Target.Resource)
		}
		steps = append(steps, &plan.Step{
			ID:         id,
			Kind:       node.Kind,
			DependsOn:  dependsOn.ToSlice(),
			Attributes: attrs,
		})
	}
	return steps
}
