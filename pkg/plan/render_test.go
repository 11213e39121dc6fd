package plan

import (
	"bytes"
	"testing"

	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan_Mermaid(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, samplePlan().Mermaid(buf))
	assert.Equal(t, dedent.Dedent(`
		flowchart BT
		  n0["net (Network)"]
		  n1["sg (SecurityGroup)"]
		  n2["lt (LaunchTemplate)"]
		  n3["alb (LoadBalancer)"]
		  n1 --> n0
		  n2 --> n1
		  n3 --> n0
		`)[1:], buf.String())
}

func TestPlan_Mermaid_UnknownDependency(t *testing.T) {
	p := New(&Step{ID: "sg", DependsOn: []string{"net"}})
	assert.Error(t, p.Mermaid(new(bytes.Buffer)))
}

func TestPlan_DOT(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, samplePlan().DOT(buf))
	out := buf.String()
	assert.Contains(t, out, `{rank = same; "net"; }`)
	assert.Contains(t, out, `{rank = same; "sg"; "alb"; }`)
	assert.Contains(t, out, `{rank = same; "lt"; }`)
	assert.Contains(t, out, "rankdir")
}
