package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhamidi/accparse/explore"
)

func newExploreCmd() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "explore [pragma...]",
		Short: "Explore pragma trees interactively",
		Long: `Explore pragma trees interactively.

Type a pragma and its tree is redrawn on every key stroke.

Keys:
  Tab / Shift+Tab   next / previous output format
  Enter             remember the pragma
  Up / Down         recall remembered pragmas
  PgUp / PgDown     scroll the tree
  Esc, Ctrl+C       quit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputFormat == "" {
				outputFormat = loadProject().Config.Output.Format
			}
			src := strings.Join(args, " ")
			if src == "" {
				src = "#pragma acc "
			}
			return explore.Run(src, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "initial output format ("+strings.Join(explore.Formats, ", ")+")")

	return cmd
}
