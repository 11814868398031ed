package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aretw0/projctx/internal/config"
	"github.com/aretw0/projctx/pkg/core"
)

var (
	projectJSON    bool
	projectInclude string
	projectExclude string
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage the configured projects",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured projects",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app, _ := openApp()
		defer app.Close()

		all := app.Manager.Registry().All()
		if projectJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(all); err != nil {
				fatal("Failed to encode JSON", err)
			}
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tINCLUSIONS\tEXCLUSIONS")
		for _, p := range all {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.ContextSource.Inclusions, p.ContextSource.Exclusions)
		}
		w.Flush()
	},
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a project and save it to the settings file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, s := openApp()
		defer app.Close()

		src := core.ContextSource{Inclusions: projectInclude, Exclusions: projectExclude}
		p, err := app.Manager.Registry().Add(args[0], src)
		if err != nil {
			fatal("Failed to add project", err)
		}

		s.Projects = app.Manager.Registry().All()
		if err := config.Save(settingsPath(app.Path), s); err != nil {
			fatal("Failed to save settings", err)
		}
		fmt.Printf("Added project %s (%s)\n", p.Name, p.ID)
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectListCmd, projectAddCmd)

	projectListCmd.Flags().BoolVar(&projectJSON, "json", false, "Output in JSON format")
	projectAddCmd.Flags().StringVar(&projectInclude, "include", "", "Comma separated inclusion patterns (empty includes everything)")
	projectAddCmd.Flags().StringVar(&projectExclude, "exclude", "", "Comma separated exclusion patterns")
}
