package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/aretw0/semop/pkg/ops"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newBackendsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backends",
		Short: "List the registered backends in registration order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cleanup, err := newEngine(v)
			if err != nil {
				return err
			}
			defer cleanup()

			infos := eng.Backends()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(infos)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDEPENDS ON")
			for _, info := range infos {
				deps := strings.Join(info.Dependencies, ", ")
				if deps == "" {
					deps = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\n", info.Name, deps)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Bool("json", false, "Print the backends as JSON")
	return cmd
}

func newOperatorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "operators",
		Short: "List the operators",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range ops.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
