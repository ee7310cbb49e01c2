package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/semop/internal/presentation/tui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newExplainCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain <operator> [args...]",
		Short: "Show how an operator call would be served, without executing it",
		Long: `Compiles the call and prints the candidate order, the audit trail of the
plan and, for completion plans, the conversation that would be sent.`,
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

			x, err := eng.Explain(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			format, _ := cmd.Flags().GetString("format")
			if format == "auto" {
				format = "markdown"
				if isTerminal(out) {
					format = "pretty"
				}
			}

			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(x)
			case "markdown":
				_, err = io.WriteString(out, x.Markdown())
				return err
			case "pretty":
				style, _ := cmd.Flags().GetString("style")
				render, err := tui.NewRenderer(style, 100)
				if err != nil {
					return err
				}
				rendered, err := render(x.Markdown())
				if err != nil {
					return err
				}
				_, err = io.WriteString(out, rendered)
				return err
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}
	addInvocationFlags(cmd)
	cmd.Flags().StringP("format", "f", "auto", "Output format: auto, pretty, markdown or json")
	cmd.Flags().String("style", "auto", "Glamour style of the pretty format")
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && tui.IsTerminal(f)
}
