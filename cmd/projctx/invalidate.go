package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	invalidateCleanup bool
	clearContent      bool
)

var invalidateCmd = &cobra.Command{
	Use:   "invalidate <project>",
	Short: "Mark a project's markdown context for rebuild",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, _ := openApp()
		defer app.Close()

		p := mustProject(app, args[0])
		if err := app.Cache.InvalidateMarkdownContext(cmd.Context(), p, invalidateCleanup); err != nil {
			fatal("Failed to invalidate", err)
		}
		fmt.Println("Invalidated markdown context of", p.Name)
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear <project>",
	Short: "Delete a project's cache and stored file content",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, _ := openApp()
		defer app.Close()

		p := mustProject(app, args[0])
		if err := app.Cache.ClearForProject(cmd.Context(), p); err != nil {
			fatal("Failed to clear cache", err)
		}
		if clearContent {
			if err := app.ClearContent(cmd.Context()); err != nil {
				fatal("Failed to clear content store", err)
			}
		}
		fmt.Println("Cleared cache of", p.Name)
	},
}

func init() {
	rootCmd.AddCommand(invalidateCmd, clearCmd)
	invalidateCmd.Flags().BoolVar(&invalidateCleanup, "cleanup", false, "Also drop references to files no longer in the project")
	clearCmd.Flags().BoolVar(&clearContent, "all-content", false, "Also empty the content store shared by every project")
}
