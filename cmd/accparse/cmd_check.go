package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhamidi/accparse/format"
	"github.com/dhamidi/accparse/openacc/scanner"
)

func newCheckCmd() *cobra.Command {
	var timeout time.Duration
	var quiet bool

	cmd := &cobra.Command{
		Use:   "check [path...]",
		Short: "Report syntax errors and recovered clauses in OpenACC pragmas",
		Long: `Report syntax errors and recovered clauses in OpenACC pragmas.

Paths may be source files, directories, or .zip archives. Without paths the
project's configured sources are checked. The exit status is 1 when a
pragma fails to parse.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := loadProject()
			paths := args
			if len(paths) == 0 {
				for _, src := range p.Config.Sources {
					paths = append(paths, p.Resolve(src))
				}
			}
			if timeout == 0 {
				timeout = p.Config.Scan.Timeout.Duration
			}

			sc := scanner.New(scanner.WithFilter(p.IsSource), scanner.WithWorkers(p.Config.Scan.Workers))
			defer sc.Close()

			id, err := sc.Submit(scanner.Request{Paths: paths, Timeout: timeout})
			if err != nil {
				return err
			}
			result, err := sc.Wait(context.Background(), id)
			if err != nil {
				return err
			}
			for _, e := range result.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "accparse: %s\n", e)
			}
			if result.Status == scanner.StatusFailed {
				return fmt.Errorf("check failed: %s", result.Error)
			}

			enc := format.NewDiagnosticEncoder(cmd.OutOrStdout())
			pragmas := 0
			for _, f := range result.Files {
				for _, pragma := range f.Pragmas {
					pragmas++
					for _, d := range pragma.Diagnostics() {
						if quiet && d.Severity != scanner.SeverityError {
							continue
						}
						if err := enc.Encode(d); err != nil {
							return err
						}
					}
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), enc.Summary(pragmas))

			if enc.Errors > 0 {
				return errFindings
			}
			return nil
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "give up after this long (default from accparse.toml)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "report errors only")

	return cmd
}
