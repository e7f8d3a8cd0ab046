package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhamidi/accparse/format"
	"github.com/dhamidi/accparse/lalr"
	"github.com/dhamidi/accparse/openacc/parser"
)

func newParseCmd() *cobra.Command {
	var outputFormat string
	var file string

	cmd := &cobra.Command{
		Use:   "parse [pragma...]",
		Short: "Parse one pragma and print its tree",
		Long: `Parse one pragma and print its tree.

The pragma is taken from the arguments, from the file named by --file, or
from standard input when neither is given.

Examples:
  accparse parse '#pragma acc parallel loop gang copyin(a[0:n])'
  accparse parse -o json -f pragma.txt
  echo '#pragma acc wait(1)' | accparse parse -o yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputFormat == "" {
				outputFormat = loadProject().Config.Output.Format
			}

			var src []byte
			var err error
			name := "<stdin>"
			switch {
			case len(args) > 0:
				src = []byte(strings.Join(args, " "))
				name = "<args>"
			case file != "":
				src, err = os.ReadFile(file)
				name = file
			default:
				src, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read pragma: %w", err)
			}

			enc, err := format.New(outputFormat, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			root, err := parser.ParseBytes(src, parser.WithFile(name))
			if err != nil {
				printParseError(cmd.ErrOrStderr(), err)
				return errFindings
			}
			if err := enc.Encode(root); err != nil {
				return fmt.Errorf("encode: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "", "output format ("+strings.Join(format.Names(), ", ")+")")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the pragma from this file")

	return cmd
}

func printParseError(w io.Writer, err error) {
	var syntaxErr *lalr.SyntaxError
	var lexErr *parser.LexicalError
	switch {
	case errors.As(err, &syntaxErr):
		fmt.Fprintf(w, "syntax error: unexpected %s%s\n", syntaxErr.Token.Text(), syntaxErr.Position)
		fmt.Fprintf(w, "  expected one of: %s\n", syntaxErr.ExpectedDescription)
		if syntaxErr.RecoveryExhausted() {
			fmt.Fprintf(w, "  recovery gave up: %s\n", syntaxErr.Reason)
		}
	case errors.As(err, &lexErr):
		fmt.Fprintf(w, "lexical error at %s: %s\n", lexErr.Pos, lexErr.Msg)
	default:
		fmt.Fprintln(w, err)
	}
}
