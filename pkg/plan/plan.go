package plan

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"
	"github.com/google/uuid"
	"github.com/klothoplatform/stackplan/pkg/construct"
	"github.com/klothoplatform/stackplan/pkg/graph_addons"
	"github.com/klothoplatform/stackplan/pkg/set"
)

// SchemaVersion is the version of the plan file format written by this package. Plans whose major
// version differs cannot be read.
const SchemaVersion = "1.0.0"

type (
	// Plan is the ordered provisioning plan produced by resolving a resource graph. Every step comes
	// after all the steps it depends on.
	Plan struct {
		ID            uuid.UUID `json:"id" yaml:"id"`
		SchemaVersion string    `json:"schemaVersion" yaml:"schemaVersion"`
		Steps         []*Step   `json:"steps" yaml:"steps"`
	}

	// Step provisions one resource. Attributes hold literals, with references already substituted
	// where the target value is known at plan time. The remaining references are placeholders for
	// outputs that the backend only learns once the dependency is provisioned.
	Step struct {
		ID         string               `json:"id" yaml:"id" diff:"id,identifier"`
		Kind       construct.Kind       `json:"kind" yaml:"kind" diff:"kind"`
		DependsOn  []string             `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty" diff:"dependsOn"`
		Attributes construct.Properties `json:"attributes,omitempty" yaml:"attributes,omitempty" diff:"attributes"`
	}
)

// planNamespace is the name space of plan ids.
var planNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/klothoplatform/stackplan/plan"))

// New creates a plan whose id is derived from its steps, so resolving the same declarations again
// produces an identical plan.
func New(steps ...*Step) *Plan {
	return &Plan{
		ID:            ContentID(steps),
		SchemaVersion: SchemaVersion,
		Steps:         steps,
	}
}

// ContentID returns the name based (version 5) UUID of the steps' canonical JSON encoding. Map keys
// are encoded in sorted order and references in their `${id#attr}` form.
func ContentID(steps []*Step) uuid.UUID {
	content, err := json.Marshal(steps)
	if err != nil {
		// Attribute values that JSON cannot encode still need a stable id; fmt also prints maps in
		// key order.
		content = content[:0]
		for _, s := range steps {
			content = append(content, fmt.Sprintf("%#v", *s)...)
		}
	}
	return uuid.NewSHA1(planNamespace, content)
}

func (p *Plan) Order() []string {
	ids := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		ids[i] = s.ID
	}
	return ids
}

func (p *Plan) Step(id string) (*Step, bool) {
	for _, s := range p.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Validate checks that step ids are unique and that every dependency is provisioned by an earlier
// step.
func (p *Plan) Validate() error {
	seen := make(set.Set[string], len(p.Steps))
	var errs error
	for i, s := range p.Steps {
		if s == nil || s.ID == "" {
			errs = errors.Join(errs, fmt.Errorf("step %d has no id", i))
			continue
		}
		if seen.Contains(s.ID) {
			errs = errors.Join(errs, fmt.Errorf("duplicate step %s", s.ID))
			continue
		}
		for _, dep := range s.DependsOn {
			if !seen.Contains(dep) {
				errs = errors.Join(errs, fmt.Errorf("step %s depends on %s which is not provisioned before it", s.ID, dep))
			}
		}
		seen.Add(s.ID)
	}
	return errs
}

// Graph rebuilds the dependency graph described by the plan. An edge A -> B means step A depends
// on step B.
func (p *Plan) Graph() (construct.Graph, error) {
	g := construct.NewGraph()
	for _, s := range p.Steps {
		err := g.AddVertex(s.Resource(), graph.VertexAttributes(map[string]string{
			"label": fmt.Sprintf(`%s\n%s`, s.ID, s.Kind),
			"shape": "box",
		}))
		if err != nil {
			return nil, fmt.Errorf("could not add step %s: %w", s.ID, err)
		}
	}
	var errs error
	for _, s := range p.Steps {
		for _, dep := range s.DependsOn {
			if err := g.AddEdge(s.ID, dep); err != nil {
				errs = errors.Join(errs, fmt.Errorf("could not add dependency %s -> %s: %w", s.ID, dep, err))
			}
		}
	}
	return g, errs
}

// Levels groups the steps into provisioning levels: every step of a level only depends on steps in
// earlier levels, so the steps of one level may be provisioned concurrently. Within a level steps
// keep plan order.
func (p *Plan) Levels() ([][]*Step, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	g, err := p.Graph()
	if err != nil {
		return nil, err
	}
	ids, err := graph_addons.Levels(g, p.Order())
	if err != nil {
		return nil, err
	}
	levels := make([][]*Step, len(ids))
	for i, lvl := range ids {
		levels[i] = make([]*Step, len(lvl))
		for j, id := range lvl {
			levels[i][j], _ = p.Step(id)
		}
	}
	return levels, nil
}

// Reverse returns the steps in teardown order.
func (p *Plan) Reverse() []*Step {
	steps := make([]*Step, len(p.Steps))
	for i, s := range p.Steps {
		steps[len(steps)-1-i] = s
	}
	return steps
}

// Subset returns a plan containing only the given steps and everything they transitively depend
// on, in the original order. It is what has to be applied for the given steps to exist.
func (p *Plan) Subset(ids ...string) (*Plan, error) {
	return p.closure(graph_addons.Dependencies, ids)
}

// Dependents returns a plan containing only the given steps and every step that transitively
// depends on them, in the original order. It is what has to be destroyed to remove the given steps.
func (p *Plan) Dependents(ids ...string) (*Plan, error) {
	return p.closure(graph_addons.Dependents, ids)
}

func (p *Plan) closure(d graph_addons.Direction, ids []string) (*Plan, error) {
	for _, id := range ids {
		if _, ok := p.Step(id); !ok {
			return nil, fmt.Errorf("no step %s in plan", id)
		}
	}
	g, err := p.Graph()
	if err != nil {
		return nil, err
	}
	keep, err := graph_addons.Closure(g, d, ids...)
	if err != nil {
		return nil, err
	}
	var steps []*Step
	for _, s := range p.Steps {
		if keep.Contains(s.ID) {
			steps = append(steps, s)
		}
	}
	return New(steps...), nil
}

// Placeholders lists the references that are still unresolved in the plan, in plan order.
func (p *Plan) Placeholders() []construct.Reference {
	var refs []construct.Reference
	for _, s := range p.Steps {
		refs = append(refs, s.Resource().References()...)
	}
	return refs
}

func (s *Step) Resource() *construct.Resource {
	return &construct.Resource{
		ID:         s.ID,
		Kind:       s.Kind,
		Properties: s.Attributes,
	}
}

// Bind returns a copy of the step's attributes with every placeholder replaced by the value
// returned from lookup, which is typically backed by the outputs of already provisioned steps.
func (s *Step) Bind(lookup func(ref construct.PropertyRef) (any, bool)) (construct.Properties, error) {
	bound := make(construct.Properties, len(s.Attributes))
	var errs error
	for name, v := range s.Attributes {
		bv, err := construct.ReplaceRefs(v, func(ref construct.PropertyRef) (any, error) {
			out, ok := lookup(ref)
			if !ok {
				return nil, &UnboundReferenceError{Step: s.ID, Ref: ref}
			}
			return out, nil
		})
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("attribute %s: %w", name, err))
			continue
		}
		bound[name] = bv
	}
	return bound, errs
}

type UnboundReferenceError struct {
	Step string
	Ref  construct.PropertyRef
}

func (e *UnboundReferenceError) Error() string {
	return fmt.Sprintf("step %s: no value for %s", e.Step, e.Ref)
}
