package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/klothoplatform/stackplan/pkg/plan"
	"github.com/pkg/errors"
	"github.com/r3labs/diff"
	"github.com/spf13/cobra"
)

var diffCfg struct {
	exitCode bool
}

func diffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Show the steps that changed between two plans",
		Args:  cobra.ExactArgs(2),
		RunE:  runE(runDiff),
	}
	cmd.Flags().BoolVar(&diffCfg.exitCode, "exit-code", false, "Fail when the plans differ")
	return cmd
}

var changeColors = map[string]*color.Color{
	diff.CREATE: color.New(color.FgGreen),
	diff.UPDATE: color.New(color.FgYellow),
	diff.DELETE: color.New(color.FgRed),
}

var changeMarks = map[string]string{
	diff.CREATE: "+",
	diff.UPDATE: "~",
	diff.DELETE: "-",
}

func runDiff(cmd *cobra.Command, args []string) error {
	prev, err := plan.ReadFile(args[0])
	if err != nil {
		return errors.Wrapf(err, "could not read plan '%s'", args[0])
	}
	next, err := plan.ReadFile(args[1])
	if err != nil {
		return errors.Wrapf(err, "could not read plan '%s'", args[1])
	}
	changes, err := plan.Diff(prev, next)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if !changes.HasChanges() {
		fmt.Fprintln(w, "No changes.")
		return nil
	}
	for _, c := range changes {
		changeColors[c.Type].Fprintf(w, "%s %s\n", changeMarks[c.Type], c)
	}
	fmt.Fprintf(w, "%d to create, %d to update, %d to delete\n",
		changes.Count(diff.CREATE), changes.Count(diff.UPDATE), changes.Count(diff.DELETE))

	if diffCfg.exitCode {
		return errors.New("plans differ")
	}
	return nil
}
