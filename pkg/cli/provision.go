package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/klothoplatform/stackplan/pkg/logging"
	"github.com/klothoplatform/stackplan/pkg/plan"
	"github.com/klothoplatform/stackplan/pkg/provision"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var provisionCfg struct {
	planFile    string
	region      string
	account     string
	concurrency int
	noProgress  bool
	only        []string
}

// provisionCmds returns the apply and destroy commands. Both run against the dry-run backend,
// which reports what would be created or deleted.
func provisionCmds() []*cobra.Command {
	apply := &cobra.Command{
		Use:   "apply",
		Short: "Create the steps of a plan, level by level (dry run)",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			return runProvision(cmd, "create", (*plan.Plan).Subset, (*provision.Applier).Apply)
		}),
	}
	destroy := &cobra.Command{
		Use:   "destroy",
		Short: "Delete the steps of a plan in reverse order (dry run)",
		Args:  cobra.NoArgs,
		RunE: runE(func(cmd *cobra.Command, args []string) error {
			return runProvision(cmd, "delete", (*plan.Plan).Dependents, (*provision.Applier).Destroy)
		}),
	}
	for _, cmd := range []*cobra.Command{apply, destroy} {
		addStackFlags(cmd)
		flags := cmd.Flags()
		flags.StringVarP(&provisionCfg.planFile, "plan", "p", "", "Plan file to provision instead of resolving a stack")
		flags.StringVar(&provisionCfg.region, "region", env.Region, "Target region")
		flags.StringVar(&provisionCfg.account, "account", env.Account, "Target account")
		flags.IntVar(&provisionCfg.concurrency, "concurrency", env.Concurrency, "Maximum steps issued at once within a level")
		flags.BoolVar(&provisionCfg.noProgress, "no-progress", false, "Do not show a progress bar")
	}
	apply.Flags().StringSliceVar(&provisionCfg.only, "only", nil, "Only create these steps and what they depend on")
	destroy.Flags().StringSliceVar(&provisionCfg.only, "only", nil, "Only delete these steps and what depends on them")
	return []*cobra.Command{apply, destroy}
}

type (
	provisionFunc func(a *provision.Applier, ctx context.Context, p *plan.Plan) (*provision.Result, error)
	selectFunc    func(p *plan.Plan, ids ...string) (*plan.Plan, error)
)

func runProvision(cmd *cobra.Command, verb string, only selectFunc, run provisionFunc) error {
	kb, err := loadKB()
	if err != nil {
		return err
	}
	var p *plan.Plan
	if provisionCfg.planFile != "" {
		p, err = plan.ReadFile(provisionCfg.planFile)
		if err != nil {
			return errors.Wrapf(err, "could not read plan '%s'", provisionCfg.planFile)
		}
	} else {
		if _, p, err = resolveStack(cmd); err != nil {
			return err
		}
	}

	if len(provisionCfg.only) > 0 {
		if p, err = only(p, provisionCfg.only...); err != nil {
			return err
		}
	}

	target := provision.Target{Account: provisionCfg.account, Region: provisionCfg.region}
	if err := target.Validate(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	log := logging.GetLogger(cmd.Context())
	applier := &provision.Applier{
		Backend:     &provision.DryRunBackend{KB: kb},
		Target:      target,
		Concurrency: provisionCfg.concurrency,
	}
	var bar *progressbar.ProgressBar
	if !provisionCfg.noProgress {
		bar = newProgressBar(cmd.ErrOrStderr(), len(p.Steps), verb)
	}
	applier.OnStep = func(ev provision.StepEvent) {
		if ev.Err != nil {
			log.Warn("step failed", zap.String("step", ev.Step), zap.Error(ev.Err))
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	result, err := run(applier, cmd.Context(), p)
	if bar != nil {
		_ = bar.Finish()
	}
	if result != nil {
		printResult(out, verb, target, result)
	}
	return err
}

func newProgressBar(w io.Writer, total int, verb string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(verb),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func printResult(w io.Writer, verb string, target provision.Target, result *provision.Result) {
	fmt.Fprintf(w, "%d steps %sd in %s\n", len(result.Completed), verb, target)
	for _, id := range result.Completed {
		fmt.Fprintf(w, "  %s\n", id)
		outputs := result.Outputs[id]
		attrs := make([]string, 0, len(outputs))
		for attr := range outputs {
			attrs = append(attrs, attr)
		}
		sort.Strings(attrs)
		for _, attr := range attrs {
			fmt.Fprintf(w, "    %s = %v\n", attr, outputs[attr])
		}
	}
}
