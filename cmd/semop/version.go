package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/semop"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of semop",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "semop version %s\n", strings.TrimSpace(semop.Version))
		},
	}
}
