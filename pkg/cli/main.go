package cli

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/klothoplatform/stackplan/pkg/config"
	"github.com/klothoplatform/stackplan/pkg/knowledgebase"
	"github.com/klothoplatform/stackplan/pkg/logging"
	"github.com/klothoplatform/stackplan/pkg/templates"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type StackplanMain struct {
	Version string
}

var rootCfg struct {
	verbose  bool
	jsonLog  bool
	color    string
	kindsDir string
}

// env holds the environment defaults, loaded before the flags are defined.
var env *config.Env

func (m StackplanMain) Main() {
	if err := m.Execute(os.Args[1:], os.Stderr); err != nil {
		os.Exit(1)
	}
}

// Execute runs the command line given by args. Errors from reading the environment happen before
// logging is set up, so they are written to stderr directly.
func (m StackplanMain) Execute(args []string, stderr io.Writer) error {
	root, err := m.RootCmd()
	if err != nil {
		fmt.Fprintf(stderr, "stackplan: %v\n", err)
		return err
	}
	root.SetArgs(args)
	root.SetErr(stderr)
	return root.Execute()
}

func (m StackplanMain) RootCmd() (*cobra.Command, error) {
	var err error
	env, err = config.Load()
	if err != nil {
		return nil, err
	}

	root := &cobra.Command{
		Use:               "stackplan",
		Short:             "Resolve resource declarations into an ordered provisioning plan",
		Version:           m.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: m.setup,
	}
	flags := root.PersistentFlags()
	flags.BoolVarP(&rootCfg.verbose, "verbose", "v", false, "Verbose logging")
	flags.BoolVar(&rootCfg.jsonLog, "json-log", false, "Log in JSON")
	flags.StringVar(&rootCfg.color, "color", "auto", "Colour log output: auto, always or never")
	flags.StringVar(&rootCfg.kindsDir, "kinds-dir", env.KindsDir, "Directory of kind files added to (or overriding) the built-in kinds")

	root.AddCommand(
		planCmd(),
		kindsCmd(),
		graphCmd(),
		diffCmd(),
		initCmd(),
	)
	root.AddCommand(provisionCmds()...)
	return root, nil
}

func (m StackplanMain) setup(cmd *cobra.Command, args []string) error {
	opts := logging.LogOpts{
		Verbose:       rootCfg.verbose,
		Color:         rootCfg.color,
		DefaultLevels: logging.ParseLevels(env.LogLevel),
	}
	if rootCfg.jsonLog {
		opts.Encoding = "json"
	}
	log, err := opts.NewLogger()
	if err != nil {
		return errors.Wrap(err, "could not set up logging")
	}
	zap.ReplaceGlobals(log)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.WithLogger(ctx, log))
	return nil
}

// loadKB loads the built-in kind table, then any kinds from --kinds-dir on top of it.
func loadKB() (*knowledgebase.KnowledgeBase, error) {
	dirs := []fs.FS{templates.Kinds}
	if rootCfg.kindsDir != "" {
		dirs = append(dirs, os.DirFS(rootCfg.kindsDir))
	}
	kb, err := knowledgebase.NewKBFromFs(dirs...)
	if err != nil {
		return nil, errors.Wrap(err, "could not load kinds")
	}
	return kb, nil
}

// runE adapts a command function so that its errors are printed through the ErrorHandler.
func runE(f func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := f(cmd, args)
		if err != nil {
			ErrorHandler{
				Log:     logging.GetLogger(cmd.Context()),
				Verbose: rootCfg.verbose,
			}.PrintErr(err)
		}
		return err
	}
}
