package cli

import (
	"io"
	"os"

	"github.com/klothoplatform/stackplan/pkg/closenicely"
	"github.com/klothoplatform/stackplan/pkg/logging"
	"github.com/klothoplatform/stackplan/pkg/plan"
	"github.com/klothoplatform/stackplan/pkg/resolver"
	"github.com/klothoplatform/stackplan/pkg/stacks/loadbalanced"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const exampleLoadBalanced = "loadbalanced"

var planCfg struct {
	stackFile string
	example   string
	output    string
	format    string
	only      []string
	summary   bool
}

func planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Resolve a stack into a provisioning plan",
		Example: `  stackplan plan -f stack.yaml -o plan.yaml
  stackplan plan --example loadbalanced --summary`,
		Args: cobra.NoArgs,
		RunE: runE(runPlan),
	}
	flags := cmd.Flags()
	addStackFlags(cmd)
	flags.StringVarP(&planCfg.output, "output", "o", env.Output, "Write the plan to this file instead of stdout")
	flags.StringVar(&planCfg.format, "format", env.Format, "Plan format: yaml or json (from the extension when writing to a file)")
	flags.StringSliceVar(&planCfg.only, "only", nil, "Only plan these nodes and what they depend on")
	flags.BoolVar(&planCfg.summary, "summary", false, "Print a summary instead of the full plan")
	return cmd
}

func addStackFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&planCfg.stackFile, "file", "f", "", "Stack declaration file")
	flags.StringVar(&planCfg.example, "example", "", "Use a built-in stack instead of a file: "+exampleLoadBalanced)
}

// resolveStack builds the graph from --file or --example and resolves it.
func resolveStack(cmd *cobra.Command) (*resolver.Graph, *plan.Plan, error) {
	kb, err := loadKB()
	if err != nil {
		return nil, nil, err
	}
	log := logging.GetLogger(cmd.Context())
	g := resolver.NewGraph(kb, resolver.WithLogger(log.Named("resolver")))

	switch {
	case planCfg.stackFile != "" && planCfg.example != "":
		return nil, nil, errors.New("--file and --example are mutually exclusive")

	case planCfg.stackFile != "":
		sf, err := resolver.ReadStackFile(nil, planCfg.stackFile)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "could not read stack '%s'", planCfg.stackFile)
		}
		if err := sf.Declare(g); err != nil {
			return nil, nil, errors.Wrapf(err, "invalid stack '%s'", planCfg.stackFile)
		}

	case planCfg.example == exampleLoadBalanced:
		if err := loadbalanced.Declare(g, loadbalanced.DefaultOptions()); err != nil {
			return nil, nil, errors.Wrap(err, "could not declare example stack")
		}

	case planCfg.example != "":
		return nil, nil, errors.Errorf("unknown example '%s'", planCfg.example)

	default:
		return nil, nil, errors.New("one of --file or --example is required")
	}

	p, err := g.Resolve()
	if err != nil {
		return nil, nil, err
	}
	log.Debug("resolved plan", zap.Int("steps", len(p.Steps)))
	return g, p, nil
}

func runPlan(cmd *cobra.Command, args []string) (err error) {
	_, p, err := resolveStack(cmd)
	if err != nil {
		return err
	}
	if len(planCfg.only) > 0 {
		if p, err = p.Subset(planCfg.only...); err != nil {
			return err
		}
	}

	var w io.Writer = cmd.OutOrStdout()
	format, err := plan.ParseFormat(planCfg.format)
	if err != nil {
		return err
	}
	if planCfg.output != "" {
		var f *os.File
		f, err = os.Create(planCfg.output)
		if err != nil {
			return errors.Wrapf(err, "could not create '%s'", planCfg.output)
		}
		defer closenicely.Join(&err, f)
		w = f
		if !cmd.Flags().Changed("format") {
			format = plan.FormatForPath(planCfg.output)
		}
	}

	if planCfg.summary {
		return p.Summary(w)
	}
	return p.Write(w, format)
}
