package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhamidi/accparse/lalr"
	"github.com/dhamidi/accparse/openacc/parser"
)

func newTraceCmd() *cobra.Command {
	var tablesFile string

	cmd := &cobra.Command{
		Use:   "trace <pragma>...",
		Short: "Print every step of the automaton while parsing a pragma",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := strings.Join(args, " ")
			out := cmd.OutOrStdout()

			opts := []parser.Option{parser.WithTrace(func(s lalr.Step) {
				writeStep(out, s)
			})}
			if tablesFile != "" {
				f, err := os.Open(tablesFile)
				if err != nil {
					return fmt.Errorf("open tables: %w", err)
				}
				tables, err := lalr.LoadTables(f)
				f.Close()
				if err != nil {
					return err
				}
				opts = append(opts, parser.WithTables(tables))
			}

			root, err := parser.ParseString(src, opts...)
			if err != nil {
				fmt.Fprintln(out, err)
				return err
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, parser.Dump(root))
			return nil
		},
	}

	cmd.Flags().StringVarP(&tablesFile, "tables", "t", "", "parse with tables saved by 'ahi tables -o'")

	return cmd
}

func writeStep(w io.Writer, s lalr.Step) {
	lookahead := "-"
	if s.Lookahead != nil {
		lookahead = s.Lookahead.Text()
	}
	what := s.Action.String()
	if s.Recover {
		what = "recovery: " + s.Recovery.String()
	}
	fmt.Fprintf(w, "state %4d  stack %3d/%-3d  %-20q %s\n", s.State, s.States, s.Values, lookahead, what)
}
