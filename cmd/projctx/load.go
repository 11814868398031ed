package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/aretw0/projctx/internal/platform"
	"github.com/aretw0/projctx/pkg/core"
	"github.com/aretw0/projctx/pkg/projects"
)

var loadJSON bool

type loadFunc func(*projects.Manager, context.Context, core.ProjectConfig) (*projects.ProjectContext, error)

func newLoadCmd(use, short string, load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <project>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			app, _ := openApp()
			defer app.Close()

			p := mustProject(app, args[0])
			pc, err := load(app.Manager, cmd.Context(), p)
			if err != nil {
				fatal("Failed to load context", err)
			}
			printContext(app, pc)
		},
	}
}

func printContext(app *platform.App, pc *projects.ProjectContext) {
	state := app.Manager.LoadState()
	if loadJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		err := encoder.Encode(struct {
			Project  core.ProjectConfig `json:"project"`
			Markdown string             `json:"markdown"`
			Files    map[string]string  `json:"files"`
			State    projects.LoadState `json:"state"`
		}{pc.Project, pc.Markdown, pc.Files, state})
		if err != nil {
			fatal("Failed to encode JSON", err)
		}
		return
	}

	fmt.Printf("Project:  %s (%s)\n", pc.Project.Name, pc.Project.ID)
	fmt.Printf("Markdown: %d bytes\n", len(pc.Markdown))
	fmt.Printf("Files:    %d\n", len(pc.Files))
	fmt.Printf("Loaded:   %d/%d\n", len(state.Success), len(state.Total))

	paths := make([]string, 0, len(pc.Files))
	for p := range pc.Files {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	for _, p := range paths {
		fmt.Printf("  %s (%d bytes)\n", p, len(pc.Files[p]))
	}
	for _, f := range state.Failed {
		fmt.Printf("  FAILED %s [%s]: %s\n", f.Path, f.Type, f.Error)
	}
}

func init() {
	cmds := []*cobra.Command{
		newLoadCmd("load", "Load the context of a project", (*projects.Manager).LoadContext),
		newLoadCmd("reload", "Drop the markdown context and stale files, then load", (*projects.Manager).Reload),
		newLoadCmd("rebuild", "Discard everything cached for a project, then load", (*projects.Manager).Rebuild),
	}
	for _, c := range cmds {
		c.Flags().BoolVar(&loadJSON, "json", false, "Output in JSON format")
		rootCmd.AddCommand(c)
	}
}
