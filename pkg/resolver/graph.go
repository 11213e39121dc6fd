package resolver

import (
	"fmt"

	"github.com/klothoplatform/stackplan/pkg/construct"
	"github.com/klothoplatform/stackplan/pkg/knowledgebase"
	"github.com/klothoplatform/stackplan/pkg/plan"
	"go.uber.org/zap"
)

type State int

const (
	Open State = iota
	Resolved
)

func (s State) String() string {
	switch s {
	case Open:
		return "Open"
	case Resolved:
		return "Resolved"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Graph collects resource declarations and the references between them, and resolves them into a
// provisioning plan. A Graph is built by a single owner and is not safe for concurrent use.
type Graph struct {
	kb  *knowledgebase.KnowledgeBase
	log *zap.Logger

	order []string
	nodes map[string]*construct.Resource
	// refs holds each node's outgoing references in declaration order.
	refs map[string][]construct.Reference

	state State
	plan  *plan.Plan
	deps  construct.Graph
}

type Option func(*Graph)

func WithLogger(log *zap.Logger) Option {
	return func(g *Graph) {
		g.log = log
	}
}

func NewGraph(kb *knowledgebase.KnowledgeBase, opts ...Option) *Graph {
	g := &Graph{
		kb:    kb,
		log:   zap.L().Named("resolver"),
		nodes: make(map[string]*construct.Resource),
		refs:  make(map[string][]construct.Reference),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Graph) State() State {
	return g.state
}

// Nodes returns copies of the nodes in declaration order.
func (g *Graph) Nodes() []*construct.Resource {
	nodes := make([]*construct.Resource, len(g.order))
	for i, id := range g.order {
		nodes[i] = g.nodes[id].Clone()
	}
	return nodes
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (*construct.Resource, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// References returns the references declared from the given node, in declaration order.
func (g *Graph) References(id string) []construct.Reference {
	return append([]construct.Reference(nil), g.refs[id]...)
}

// AddNode adds a copy of the node to the graph. Attribute values that are PropertyRefs are
// registered as references in attribute name order.
func (g *Graph) AddNode(node *construct.Resource) error {
	if g.state == Resolved {
		return ErrGraphResolved
	}
	if node == nil {
		return fmt.Errorf("cannot add nil node")
	}
	if err := construct.ValidateId(node.ID); err != nil {
		return err
	}
	if _, ok := g.nodes[node.ID]; ok {
		return &DuplicateIdError{ID: node.ID}
	}
	tmpl, err := g.kb.GetKindTemplate(node.Kind)
	if err != nil {
		return &UnknownKindError{ID: node.ID, Kind: node.Kind}
	}
	if err := tmpl.ValidateProperties(node.Properties); err != nil {
		return fmt.Errorf("invalid node %s: %w", node.ID, err)
	}

	n := node.Clone()
	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)
	g.refs[n.ID] = n.References()

	g.log.Debug("added node",
		zap.String("node", n.ID),
		zap.String("kind", string(n.Kind)),
		zap.Int("references", len(g.refs[n.ID])),
	)
	return nil
}

// AddReference registers that fromId's attribute is computed from toId's toAttr. The target node
// and attribute are checked by Resolve, so references may be added before their target.
// Adding a reference that is already registered is a no-op.
func (g *Graph) AddReference(fromId, attr, toId, toAttr string) error {
	if g.state == Resolved {
		return ErrGraphResolved
	}
	from, ok := g.nodes[fromId]
	if !ok {
		return &UnknownNodeError{ID: fromId}
	}
	if attr == "" || toAttr == "" {
		return fmt.Errorf("reference %s#%s -> %s#%s: attribute names must not be empty", fromId, attr, toId, toAttr)
	}
	if err := construct.ValidateId(toId); err != nil {
		return fmt.Errorf("reference %s#%s: %w", fromId, attr, err)
	}

	target := construct.PropertyRef{Resource: toId, Property: toAttr}
	if existing, ok := from.Properties[attr]; ok && existing != nil {
		if ref, ok := existing.(construct.PropertyRef); ok && ref == target {
			return nil
		}
		return &AttributeConflictError{
			Attribute: construct.PropertyRef{Resource: fromId, Property: attr},
			Existing:  existing,
		}
	}

	from.SetProperty(attr, target)
	ref := construct.Reference{
		Source: construct.PropertyRef{Resource: fromId, Property: attr},
		Target: target,
	}
	g.refs[fromId] = append(g.refs[fromId], ref)
	g.log.Debug("added reference", zap.Stringer("reference", ref))
	return nil
}

// DependencyGraph returns the dependency graph built by Resolve.
func (g *Graph) DependencyGraph() (construct.Graph, error) {
	if g.state != Resolved {
		return nil, ErrGraphOpen
	}
	return g.deps, nil
}

// Plan returns the plan built by Resolve.
func (g *Graph) Plan() (*plan.Plan, error) {
	if g.state != Resolved {
		return nil, ErrGraphOpen
	}
	return g.plan, nil
}
