package cli

import (
	"fmt"
	"os"

	"github.com/klothoplatform/stackplan/pkg/templates"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var initCfg struct {
	force bool
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [FILE]",
		Short: "Write the example load-balanced stack declaration to a file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runE(runInit),
	}
	cmd.Flags().BoolVar(&initCfg.force, "force", false, "Overwrite FILE if it exists")
	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	path := "stack.yaml"
	if len(args) > 0 {
		path = args[0]
	}
	content, err := templates.Stacks.ReadFile("stacks/loadbalanced.yaml")
	if err != nil {
		return err
	}
	if !initCfg.force {
		if _, err := os.Stat(path); err == nil {
			return errors.Errorf("'%s' already exists (use --force to overwrite)", path)
		}
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return errors.Wrapf(err, "could not write '%s'", path)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
