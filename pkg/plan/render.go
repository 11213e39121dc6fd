package plan

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dominikbraun/graph/draw"
)

// DOT renders the plan's dependency graph in graphviz format, one rank per provisioning level so
// that the drawing reads bottom-up in provisioning order.
func (p *Plan) DOT(w io.Writer) error {
	levels, err := p.Levels()
	if err != nil {
		return err
	}
	g, err := p.Graph()
	if err != nil {
		return err
	}
	extra := make([]string, 0, len(levels))
	for _, lvl := range levels {
		sb := new(strings.Builder)
		sb.WriteString("{rank = same; ")
		for _, s := range lvl {
			fmt.Fprintf(sb, "%q; ", s.ID)
		}
		sb.WriteString("}")
		extra = append(extra, sb.String())
	}
	return draw.DOT(g, w, func(d *draw.Description) {
		d.Attributes["rankdir"] = "BT"
		d.ExtraStatements = extra
	})
}

// Mermaid renders the plan's dependency graph as a mermaid flowchart.
func (p *Plan) Mermaid(w io.Writer) error {
	var errs error
	printf := func(s string, args ...any) {
		_, err := fmt.Fprintf(w, s, args...)
		errs = errors.Join(errs, err)
	}
	ids := make(map[string]string, len(p.Steps))
	for i, s := range p.Steps {
		ids[s.ID] = fmt.Sprintf("n%d", i)
	}

	printf("flowchart BT\n")
	for _, s := range p.Steps {
		printf("  %s[\"%s (%s)\"]\n", ids[s.ID], mermaidEscape(s.ID), s.Kind)
	}
	for _, s := range p.Steps {
		for _, dep := range s.DependsOn {
			depID, ok := ids[dep]
			if !ok {
				errs = errors.Join(errs, fmt.Errorf("step %s depends on unknown step %s", s.ID, dep))
				continue
			}
			printf("  %s --> %s\n", ids[s.ID], depID)
		}
	}
	return errs
}

func mermaidEscape(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
