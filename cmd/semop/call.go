package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/semop"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// addInvocationFlags registers the flags shared by the commands that take an
// operator call as arguments.
func addInvocationFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("return-type", "r", "", "Expected result type: string, bool, int, int64, float64, list or map")
	cmd.Flags().StringArrayP("context", "c", nil, "Context attached to the call (repeatable)")
	cmd.Flags().StringArrayP("strategy", "s", nil, "Strategy attached to the call (repeatable)")
}

func invocationFromArgs(cmd *cobra.Command, args []string) semop.Invocation {
	inv := semop.Invocation{Operator: args[0]}
	for _, a := range args[1:] {
		inv.Args = append(inv.Args, a)
	}
	inv.ReturnType, _ = cmd.Flags().GetString("return-type")
	inv.Contexts, _ = cmd.Flags().GetStringArray("context")
	inv.Strategies, _ = cmd.Flags().GetStringArray("strategy")
	return inv
}

func newCallCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <operator> [args...]",
		Short: "Compile and execute an operator call",
		Example: `  semop call resolve "In which year did Apollo 11 land?" -r int --completer local
  semop call select_iter "Born 1999, married 2004." "the years" -r int`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := invocationFromArgs(cmd, args).Request()
			if err != nil {
				return err
			}

			eng, cleanup, err := newEngine(v)
			if err != nil {
				return err
			}
			defer cleanup()

			out, err := eng.Call(cmd.Context(), req)
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				return enc.Encode(map[string]any{"result": out})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	addInvocationFlags(cmd)
	cmd.Flags().Bool("json", false, "Print the result as JSON")
	return cmd
}
