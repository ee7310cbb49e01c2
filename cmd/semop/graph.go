package main

import (
	"fmt"

	"github.com/aretw0/semop/internal/presentation/graph"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newGraphCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph [operator args...]",
		Short: "Export the backend dependency graph",
		Long: `Outputs a Mermaid diagram (graph LR) of the registered backends and their
dependencies. Given an operator call, the handlers that signed its plan are highlighted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cleanup, err := newEngine(v)
			if err != nil {
				return err
			}
			defer cleanup()

			var overlay *graph.Overlay
			if len(args) > 0 {
				req, err := invocationFromArgs(cmd, args).Request()
				if err != nil {
					return err
				}
				p, err := eng.Compile(cmd.Context(), req)
				if err != nil {
					return err
				}
				overlay = graph.OverlayFromSigns(p.Signs(), p.Final())
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(eng.Handlers(), overlay))
			return err
		},
	}
	addInvocationFlags(cmd)
	return cmd
}
