package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/projctx/internal/config"
	"github.com/aretw0/projctx/internal/platform"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the system directory and a settings file",
	Long: `Initialize projctx in the vault: create the system directory, keep it out of
git, and write a default settings file unless one exists.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		root := resolveVault()
		s := loadSettings(root)

		if err := platform.Init(root, s.SystemDir, slog.Default()); err != nil {
			fatal("Failed to initialize vault", err)
		}

		path := settingsPath(root)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if err := config.Save(path, s); err != nil {
				fatal("Failed to write settings", err)
			}
			fmt.Println("Wrote", path)
		}
		fmt.Println("Initialized projctx in", root)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
