package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/spf13/cobra"
	"golang.org/x/exp/ebnf"

	"github.com/dhamidi/accparse/lalr"
	"github.com/dhamidi/accparse/openacc/parser"
)

func newEbnfCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ebnf",
		Short:         "EBNF grammar tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newEbnfCheckCmd())
	cmd.AddCommand(newEbnfDumpCmd())

	return cmd
}

func newEbnfCheckCmd() *cobra.Command {
	var startProduction string

	cmd := &cobra.Command{
		Use:           "check <file>",
		Short:         "Parse and verify an EBNF grammar file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]

			f, err := os.Open(filename)
			if err != nil {
				return fmt.Errorf("open file: %w", err)
			}
			defer f.Close()

			grammar, err := ebnf.Parse(filename, f)
			if err != nil {
				printErrors(cmd.OutOrStdout(), err)
				return err
			}

			if err := ebnf.Verify(grammar, startProduction); err != nil {
				printErrors(cmd.OutOrStdout(), err)
				return err
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&startProduction, "start", "", "start production for verification (if empty, only checks syntax)")

	return cmd
}

func newEbnfDumpCmd() *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the OpenACC grammar as EBNF",
		Long: `Print the OpenACC grammar as EBNF, starting with Construct. Error
productions are left out. With --verify the output is parsed back and
checked with golang.org/x/exp/ebnf before it is printed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			if err := parser.WriteEBNF(&buf); err != nil {
				return err
			}
			if verify {
				if err := lalr.VerifyEBNF("openacc.ebnf", buf.Bytes(), "Construct"); err != nil {
					printErrors(cmd.ErrOrStderr(), err)
					return err
				}
			}
			_, err := buf.WriteTo(cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "verify the grammar before printing it")

	return cmd
}

func printErrors(w io.Writer, err error) {
	v := reflect.ValueOf(err)
	if v.Kind() == reflect.Slice {
		for i := 0; i < v.Len(); i++ {
			fmt.Fprintln(w, v.Index(i).Interface())
		}
	} else {
		fmt.Fprintln(w, err)
	}
}
