package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhamidi/accparse/openacc/parser"
)

func newTablesCmd() *cobra.Command {
	var showConflicts bool
	var output string

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Build the parsing tables and print their statistics",
		Long: `Build the parsing tables and print their statistics. --conflicts lists
every ACTION cell that had more than one candidate and how it was resolved.
-o saves the tables in gob form, for use with parser.WithTables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := parser.Tables()
			if err != nil {
				return err
			}
			g := tables.Grammar()
			out := cmd.OutOrStdout()

			s := tables.Stats()
			fmt.Fprintf(out, "terminals:     %d\n", s.Terminals)
			fmt.Fprintf(out, "nonterminals:  %d\n", s.Nonterminals)
			fmt.Fprintf(out, "productions:   %d\n", s.Productions)
			fmt.Fprintf(out, "states:        %d\n", s.States)
			fmt.Fprintf(out, "shifts:        %d\n", s.Shifts)
			fmt.Fprintf(out, "reduces:       %d\n", s.Reduces)
			fmt.Fprintf(out, "gotos:         %d\n", s.Gotos)
			fmt.Fprintf(out, "recoveries:    %d\n", s.Recoveries)
			fmt.Fprintf(out, "conflicts:     %d\n", s.Conflicts)

			if showConflicts {
				for _, c := range tables.Conflicts() {
					fmt.Fprintf(out, "  %s\n", c.Describe(g))
				}
			}

			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				if err := tables.Save(f); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(out, "saved to %s\n", output)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showConflicts, "conflicts", false, "list resolved conflicts")
	cmd.Flags().StringVarP(&output, "output", "o", "", "save the tables to this file")

	return cmd
}
