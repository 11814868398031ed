package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/projctx"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of projctx",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("projctx version %s\n", strings.TrimSpace(projctx.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
