package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dhamidi/accparse/project"
)

func newInitCmd() *cobra.Command {
	var sources []string
	var exclude []string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a default accparse.toml",
		Long: `Write a default accparse.toml.

If a directory is provided, creates it and writes the configuration there.
An existing configuration is never overwritten.

Examples:
  accparse init
  accparse init --sources src,include --exclude 'third_party/*' myproject`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("create directory: %w", err)
				}
			}

			cfg := project.DefaultConfig()
			if len(sources) > 0 {
				cfg.Sources = sources
			}
			cfg.Exclude = exclude

			path := filepath.Join(dir, project.ConfigFile)
			if err := project.WriteConfig(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&sources, "sources", nil, "source directories relative to the project root")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "glob patterns of files to skip")

	return cmd
}
