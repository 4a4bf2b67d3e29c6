package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/notasolver"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of notasolver",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "notasolver version %s\n", strings.TrimSpace(notasolver.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
