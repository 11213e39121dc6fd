package cli

import (
	"github.com/klothoplatform/stackplan/pkg/plan"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var graphCfg struct {
	planFile string
	format   string
}

func graphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render a plan's dependency graph as DOT or Mermaid",
		Example: `  stackplan graph -p plan.yaml | dot -Tsvg > plan.svg
  stackplan graph --example loadbalanced --format mermaid`,
		Args: cobra.NoArgs,
		RunE: runE(runGraph),
	}
	addStackFlags(cmd)
	flags := cmd.Flags()
	flags.StringVarP(&graphCfg.planFile, "plan", "p", "", "Plan file to render instead of resolving a stack")
	flags.StringVar(&graphCfg.format, "format", "dot", "Output format: dot or mermaid")
	return cmd
}

func runGraph(cmd *cobra.Command, args []string) error {
	var p *plan.Plan
	var err error
	if graphCfg.planFile != "" {
		p, err = plan.ReadFile(graphCfg.planFile)
		if err != nil {
			return errors.Wrapf(err, "could not read plan '%s'", graphCfg.planFile)
		}
	} else {
		_, p, err = resolveStack(cmd)
		if err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	switch graphCfg.format {
	case "dot":
		return p.DOT(w)
	case "mermaid":
		return p.Mermaid(w)
	default:
		return errors.Errorf("unknown graph format '%s'", graphCfg.format)
	}
}
