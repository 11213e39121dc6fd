package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func kindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the known resource kinds and the attributes they expose",
		Args:  cobra.NoArgs,
		RunE:  runE(runKinds),
	}
}

func runKinds(cmd *cobra.Command, args []string) error {
	kb, err := loadKB()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tEXPOSES")
	for _, kt := range kb.ListKinds() {
		fmt.Fprintf(w, "%s\t%s\n", kt.Kind, strings.Join(kt.Exposes, ", "))
		if !rootCfg.verbose {
			continue
		}
		names := make([]string, 0, len(kt.Properties))
		for name := range kt.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			prop := kt.Properties[name]
			req := ""
			if prop.Required {
				req = " (required)"
			}
			fmt.Fprintf(w, "\t  %s: %s%s\n", name, prop.Type, req)
		}
	}
	return w.Flush()
}
