package resolver

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/klothoplatform/stackplan/pkg/construct"
	"github.com/klothoplatform/stackplan/pkg/knowledgebase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// testKB builds a kind table without required properties so that tests can add bare nodes and
// wire them with AddReference.
func testKB(t *testing.T, kinds map[construct.Kind][]string) *knowledgebase.KnowledgeBase {
	kb := knowledgebase.NewKB()
	for kind, exposes := range kinds {
		require.NoError(t, kb.AddKindTemplate(&knowledgebase.KindTemplate{Kind: kind, Exposes: exposes}))
	}
	return kb
}

func scenarioKB(t *testing.T) *knowledgebase.KnowledgeBase {
	return testKB(t, map[construct.Kind][]string{
		construct.KindNetwork:          {"id", "cidr"},
		construct.KindSecurityGroup:    {"id"},
		construct.KindLaunchTemplate:   {"id"},
		construct.KindAutoscalingGroup: {"arn"},
		construct.KindLoadBalancer:     {"arn", "dnsName"},
		construct.KindListener:         {"arn"},
		"Thing":                        {"x", "y"},
	})
}

type ref struct {
	from, attr, to, toAttr string
}

func newTestGraph(t *testing.T, nodes []*construct.Resource, refs []ref) *Graph {
	g := NewGraph(scenarioKB(t), WithLogger(zaptest.NewLogger(t)))
	for _, n := range nodes {
		require.NoError(t, g.AddNode(n))
	}
	for _, r := range refs {
		require.NoError(t, g.AddReference(r.from, r.attr, r.to, r.toAttr))
	}
	return g
}

func things(ids ...string) []*construct.Resource {
	nodes := make([]*construct.Resource, len(ids))
	for i, id := range ids {
		nodes[i] = construct.CreateResource(id, "Thing")
	}
	return nodes
}

func scenarioGraph(t *testing.T) *Graph {
	return newTestGraph(t,
		[]*construct.Resource{
			construct.CreateResource("net", construct.KindNetwork),
			construct.CreateResource("sg", construct.KindSecurityGroup),
			construct.CreateResource("lt", construct.KindLaunchTemplate),
			construct.CreateResource("asg", construct.KindAutoscalingGroup),
			construct.CreateResource("alb", construct.KindLoadBalancer),
			construct.CreateResource("listener", construct.KindListener),
		},
		[]ref{
			{"sg", "vpcId", "net", "id"},
			{"lt", "securityGroupId", "sg", "id"},
			{"asg", "vpcId", "net", "id"},
			{"asg", "launchTemplateId", "lt", "id"},
			{"alb", "vpcId", "net", "id"},
			{"listener", "loadBalancerArn", "alb", "arn"},
			{"listener", "targets", "asg", "arn"},
		},
	)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		nodes   []*construct.Resource
		refs    []ref
		want    []string
		wantErr error
	}{
		{
			name:  "independent nodes keep declaration order",
			nodes: things("z", "x", "y"),
			want:  []string{"z", "x", "y"},
		},
		{
			name:  "dependencies declared later come first",
			nodes: things("c", "b", "a"),
			refs:  []ref{{"c", "x", "b", "x"}, {"b", "x", "a", "x"}},
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "references followed in declaration order",
			nodes: things("top", "m", "n"),
			refs:  []ref{{"top", "x", "n", "x"}, {"top", "y", "m", "x"}},
			want:  []string{"n", "m", "top"},
		},
		{
			name:    "two node cycle",
			nodes:   things("a", "b"),
			refs:    []ref{{"a", "x", "b", "x"}, {"b", "y", "a", "y"}},
			wantErr: &CycleDetectedError{Cycle: []string{"a", "b"}},
		},
		{
			name:    "self reference",
			nodes:   things("a"),
			refs:    []ref{{"a", "x", "a", "y"}},
			wantErr: &CycleDetectedError{Cycle: []string{"a"}},
		},
		{
			name:    "cycle reported from the repeated node",
			nodes:   things("a", "b", "c"),
			refs:    []ref{{"a", "x", "b", "x"}, {"b", "x", "c", "x"}, {"c", "x", "b", "y"}},
			wantErr: &CycleDetectedError{Cycle: []string{"b", "c"}},
		},
		{
			name:  "unknown node",
			nodes: things("a"),
			refs:  []ref{{"a", "x", "missing", "x"}},
			wantErr: &UnknownNodeError{
				ID: "missing",
				Reference: construct.Reference{
					Source: construct.PropertyRef{Resource: "a", Property: "x"},
					Target: construct.PropertyRef{Resource: "missing", Property: "x"},
				},
			},
		},
		{
			name: "attribute not exposed",
			nodes: []*construct.Resource{
				construct.CreateResource("net", construct.KindNetwork),
				construct.CreateResource("sg", construct.KindSecurityGroup),
			},
			refs: []ref{{"sg", "vpcId", "net", "nonexistentAttr"}},
			wantErr: &InvalidAttributeError{
				ID:        "net",
				Kind:      construct.KindNetwork,
				Attribute: "nonexistentAttr",
				Reference: construct.Reference{
					Source: construct.PropertyRef{Resource: "sg", Property: "vpcId"},
					Target: construct.PropertyRef{Resource: "net", Property: "nonexistentAttr"},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGraph(t, tt.nodes, tt.refs)
			p, err := g.Resolve()
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				assert.Nil(t, p)
				assert.Equal(t, Open, g.State())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Order())
			assert.Equal(t, Resolved, g.State())
		})
	}
}

func TestResolve_Scenario(t *testing.T) {
	g := scenarioGraph(t)
	p, err := g.Resolve()
	require.NoError(t, err)
	assert.Equal(t, []string{"net", "sg", "lt", "asg", "alb", "listener"}, p.Order())

	listener, ok := p.Step("listener")
	require.True(t, ok)
	assert.Equal(t, []string{"alb", "asg"}, listener.DependsOn)
	asg, _ := p.Step("asg")
	assert.Equal(t, []string{"net", "lt"}, asg.DependsOn)
	assert.NoError(t, p.Validate())
}

func TestResolve_Idempotent(t *testing.T) {
	g := scenarioGraph(t)
	first, err := g.Resolve()
	require.NoError(t, err)
	second, err := g.Resolve()
	require.NoError(t, err)
	assert.Same(t, first, second)

	cached, err := g.Plan()
	require.NoError(t, err)
	assert.Same(t, first, cached)
}

func TestResolve_MutationAfterResolve(t *testing.T) {
	g := scenarioGraph(t)
	_, err := g.Resolve()
	require.NoError(t, err)

	assert.ErrorIs(t, g.AddNode(construct.CreateResource("new", construct.KindNetwork)), ErrGraphResolved)
	assert.ErrorIs(t, g.AddReference("sg", "other", "net", "cidr"), ErrGraphResolved)
	assert.Len(t, g.Nodes(), 6)
}

func TestResolve_FailureLeavesGraphOpen(t *testing.T) {
	g := newTestGraph(t, things("a"), []ref{{"a", "x", "b", "x"}})

	_, err := g.Resolve()
	var unknown *UnknownNodeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "b", unknown.ID)
	assert.Equal(t, Open, g.State())
	_, err = g.DependencyGraph()
	assert.ErrorIs(t, err, ErrGraphOpen)

	require.NoError(t, g.AddNode(construct.CreateResource("b", "Thing")))
	p, err := g.Resolve()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, p.Order())
}

func TestGraph_AddNode(t *testing.T) {
	kb := scenarioKB(t)

	t.Run("duplicate id", func(t *testing.T) {
		g := NewGraph(kb)
		require.NoError(t, g.AddNode(construct.CreateResource("net", construct.KindNetwork)))
		err := g.AddNode(construct.CreateResource("net", construct.KindSecurityGroup))
		assert.Equal(t, &DuplicateIdError{ID: "net"}, err)
	})

	t.Run("unknown kind", func(t *testing.T) {
		g := NewGraph(kb)
		err := g.AddNode(construct.CreateResource("db", "Database"))
		assert.Equal(t, &UnknownKindError{ID: "db", Kind: "Database"}, err)
		assert.Empty(t, g.Nodes())
	})

	t.Run("invalid id", func(t *testing.T) {
		g := NewGraph(kb)
		assert.Error(t, g.AddNode(construct.CreateResource("has space", construct.KindNetwork)))
	})

	t.Run("stores a copy", func(t *testing.T) {
		g := NewGraph(kb)
		n := construct.CreateResource("net", construct.KindNetwork).
			SetProperty("tags", []any{"a"})
		require.NoError(t, g.AddNode(n))
		n.Properties["tags"].([]any)[0] = "changed"
		n.SetProperty("id", "vpc-2")

		stored, ok := g.Node("net")
		require.True(t, ok)
		assert.Equal(t, construct.Properties{"tags": []any{"a"}}, stored.Properties)
	})

	t.Run("inline references are registered in attribute order", func(t *testing.T) {
		g := NewGraph(kb)
		require.NoError(t, g.AddNode(construct.CreateResource("net", construct.KindNetwork)))
		require.NoError(t, g.AddNode(construct.CreateResource("alb", construct.KindLoadBalancer)))
		require.NoError(t, g.AddNode(construct.CreateResource("listener", construct.KindListener).
			SetProperty("targets", []any{construct.PropertyRef{Resource: "net", Property: "id"}}).
			SetProperty("loadBalancerArn", construct.PropertyRef{Resource: "alb", Property: "arn"}),
		))
		refs := g.References("listener")
		require.Len(t, refs, 2)
		assert.Equal(t, "listener#loadBalancerArn -> alb#arn", refs[0].String())
		assert.Equal(t, "listener#targets -> net#id", refs[1].String())
	})
}

func TestGraph_AddNode_Schema(t *testing.T) {
	kb := testKB(t, nil)
	require.NoError(t, kb.AddKindTemplate(&knowledgebase.KindTemplate{
		Kind:    construct.KindSecurityGroup,
		Exposes: []string{"id"},
		Properties: knowledgebase.Properties{
			"vpcId":   {Name: "vpcId", Type: knowledgebase.StringType, Required: true},
			"ingress": {Name: "ingress", Type: knowledgebase.IngressType},
		},
	}))
	g := NewGraph(kb)

	err := g.AddNode(construct.CreateResource("sg", construct.KindSecurityGroup))
	var typeErr *construct.PropertyTypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, []string{"vpcId"}, typeErr.Path)

	err = g.AddNode(construct.CreateResource("sg", construct.KindSecurityGroup).
		SetProperty("vpcId", "vpc-1").
		SetProperty("ingress", []any{map[string]any{"protocol": "tcp", "port": 99999, "sourceCidr": "0.0.0.0/0"}}))
	require.ErrorAs(t, err, &typeErr)

	err = g.AddNode(construct.CreateResource("sg", construct.KindSecurityGroup).
		SetProperty("vpcId", construct.PropertyRef{Resource: "net", Property: "id"}).
		SetProperty("ingress", []construct.IngressRule{{Protocol: "tcp", Port: 80, SourceCIDR: "0.0.0.0/0"}}))
	assert.NoError(t, err)
}

func TestGraph_AddReference(t *testing.T) {
	g := newTestGraph(t, things("a", "b"), nil)

	assert.Equal(t, &UnknownNodeError{ID: "missing"}, g.AddReference("missing", "x", "a", "x"))
	assert.Error(t, g.AddReference("a", "", "b", "x"))

	require.NoError(t, g.AddReference("a", "x", "b", "x"))
	require.NoError(t, g.AddReference("a", "x", "b", "x"), "adding the same reference twice is a no-op")
	assert.Len(t, g.References("a"), 1)

	var conflict *AttributeConflictError
	require.ErrorAs(t, g.AddReference("a", "x", "b", "y"), &conflict)
	assert.Equal(t, construct.PropertyRef{Resource: "a", Property: "x"}, conflict.Attribute)

	require.NoError(t, g.AddNode(construct.CreateResource("c", "Thing").SetProperty("x", "literal")))
	assert.Error(t, g.AddReference("c", "x", "a", "x"))
}

func TestResolve_Substitution(t *testing.T) {
	kb := testKB(t, map[construct.Kind][]string{
		construct.KindNetwork:       {"id"},
		construct.KindSecurityGroup: {"id", "vpcId"},
		"Copy":                      {"value"},
		construct.KindListener:      {"arn"},
	})
	g := NewGraph(kb)
	require.NoError(t, g.AddNode(construct.CreateResource("net", construct.KindNetwork).SetProperty("id", "vpc-1")))
	require.NoError(t, g.AddNode(construct.CreateResource("sg", construct.KindSecurityGroup).
		SetProperty("vpcId", construct.PropertyRef{Resource: "net", Property: "id"})))
	require.NoError(t, g.AddNode(construct.CreateResource("copy", "Copy").
		SetProperty("value", construct.PropertyRef{Resource: "sg", Property: "vpcId"})))
	require.NoError(t, g.AddNode(construct.CreateResource("listener", construct.KindListener).
		SetProperty("targets", []any{
			construct.PropertyRef{Resource: "sg", Property: "id"},
			"static",
		})))

	p, err := g.Resolve()
	require.NoError(t, err)

	sg, _ := p.Step("sg")
	assert.Equal(t, "vpc-1", sg.Attributes["vpcId"], "literal copied from the target")
	cp, _ := p.Step("copy")
	assert.Equal(t, "vpc-1", cp.Attributes["value"], "reference chains are followed")
	listener, _ := p.Step("listener")
	assert.Equal(t, []any{construct.PropertyRef{Resource: "sg", Property: "id"}, "static"}, listener.Attributes["targets"],
		"outputs stay placeholders")
	assert.Equal(t, []string{"sg"}, listener.DependsOn)

	node, _ := g.Node("sg")
	assert.Equal(t, construct.PropertyRef{Resource: "net", Property: "id"}, node.Properties["vpcId"],
		"resolving does not modify the declarations")
}

func TestResolve_TypedReferenceContainers(t *testing.T) {
	g := NewGraph(scenarioKB(t), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, g.AddNode(construct.CreateResource("asg", "Thing").
		SetProperty("subnets", []construct.PropertyRef{{Resource: "net", Property: "x"}}).
		SetProperty("tags", map[string]construct.PropertyRef{"owner": {Resource: "sg", Property: "y"}})))
	require.NoError(t, g.AddNode(construct.CreateResource("net", "Thing").SetProperty("x", "vpc-1")))
	require.NoError(t, g.AddNode(construct.CreateResource("sg", "Thing")))

	assert.Len(t, g.References("asg"), 2)

	p, err := g.Resolve()
	require.NoError(t, err)
	assert.Equal(t, []string{"net", "sg", "asg"}, p.Order())

	asg, _ := p.Step("asg")
	assert.Equal(t, []string{"net", "sg"}, asg.DependsOn)
	assert.Equal(t, []any{"vpc-1"}, asg.Attributes["subnets"])
	assert.Equal(t, map[string]any{"owner": construct.PropertyRef{Resource: "sg", Property: "y"}}, asg.Attributes["tags"])
}

func TestGraph_DependencyGraph(t *testing.T) {
	g := scenarioGraph(t)
	_, err := g.Resolve()
	require.NoError(t, err)

	deps, err := g.DependencyGraph()
	require.NoError(t, err)

	adj, err := deps.AdjacencyMap()
	require.NoError(t, err)
	assert.Len(t, adj["asg"], 2)
	assert.Contains(t, adj["asg"], "lt")
	assert.Contains(t, adj["asg"], "net")

	e, err := deps.Edge("listener", "asg")
	require.NoError(t, err)
	assert.Equal(t, []construct.Reference{{
		Source: construct.PropertyRef{Resource: "listener", Property: "targets"},
		Target: construct.PropertyRef{Resource: "asg", Property: "arn"},
	}}, construct.EdgeReferences(e))
}

// TestResolve_TopologicalInvariant resolves random acyclic graphs declared in shuffled order and
// checks that every step comes after the steps it references.
func TestResolve_TopologicalInvariant(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		n := 2 + rnd.Intn(15)
		ids := make([]string, n)
		for j := range ids {
			ids[j] = fmt.Sprintf("n%d", j)
		}
		// edges only go from higher to lower index, so the graph is acyclic.
		var refs []ref
		for from := 1; from < n; from++ {
			for to := 0; to < from; to++ {
				if rnd.Intn(3) == 0 {
					refs = append(refs, ref{ids[from], fmt.Sprintf("r%d", to), ids[to], "x"})
				}
			}
		}
		declared := append([]string(nil), ids...)
		rnd.Shuffle(len(declared), func(a, b int) { declared[a], declared[b] = declared[b], declared[a] })

		g := newTestGraph(t, things(declared...), refs)
		p, err := g.Resolve()
		require.NoError(t, err)
		require.Len(t, p.Steps, n)

		pos := make(map[string]int, n)
		for k, id := range p.Order() {
			pos[id] = k
		}
		for _, r := range refs {
			assert.Less(t, pos[r.to], pos[r.from], "%s references %s", r.from, r.to)
		}
		assert.NoError(t, p.Validate())

		again, err := newTestGraph(t, things(declared...), refs).Resolve()
		require.NoError(t, err)
		assert.Equal(t, p, again, "resolution is deterministic")
	}
}

func TestResolve_CycleIsRealCycle(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		n := 2 + rnd.Intn(8)
		ids := make([]string, n)
		for j := range ids {
			ids[j] = fmt.Sprintf("n%d", j)
		}
		var refs []ref
		for j := 0; j < n; j++ {
			refs = append(refs, ref{ids[j], fmt.Sprintf("r%d", j), ids[(j+1)%n], "x"})
		}
		g := newTestGraph(t, things(ids...), refs)
		_, err := g.Resolve()
		var cycleErr *CycleDetectedError
		require.ErrorAs(t, err, &cycleErr)

		edges := make(map[[2]string]bool, len(refs))
		for _, r := range refs {
			edges[[2]string{r.from, r.to}] = true
		}
		c := cycleErr.Cycle
		require.NotEmpty(t, c)
		for k := range c {
			assert.True(t, edges[[2]string{c[k], c[(k+1)%len(c)]}], "%v is not a cycle of the input", c)
		}
	}
}

func TestCycleDetectedError_Error(t *testing.T) {
	assert.Equal(t, "cycle detected: a -> b -> a", (&CycleDetectedError{Cycle: []string{"a", "b"}}).Error())
}
