package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files <project>",
	Short: "List the files tracked by a project's cache",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, _ := openApp()
		defer app.Close()

		p := mustProject(app, args[0])
		paths, err := app.Cache.TrackedFiles(cmd.Context(), p)
		if err != nil {
			fatal("Failed to list files", err)
		}
		for _, path := range paths {
			fmt.Println(path)
		}
	},
}

func init() {
	rootCmd.AddCommand(filesCmd)
}
