package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhamidi/accparse/openacc/scanner"
	"github.com/dhamidi/accparse/openacc/store"
)

func newScanCmd() *cobra.Command {
	var dbPath string
	var timeout time.Duration
	var workers int
	var noStore bool

	cmd := &cobra.Command{
		Use:   "scan <path>...",
		Short: "Scan sources, directories, or zip archives and store the pragmas found",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := loadProject()
			if dbPath == "" {
				dbPath = p.Resolve(p.Config.Store.Path)
			}
			if timeout == 0 {
				timeout = p.Config.Scan.Timeout.Duration
			}
			if workers == 0 {
				workers = p.Config.Scan.Workers
			}

			sc := scanner.New(scanner.WithFilter(p.IsSource), scanner.WithWorkers(workers))
			defer sc.Close()

			ctx := context.Background()
			id, err := sc.Submit(scanner.Request{Paths: args, Timeout: timeout})
			if err != nil {
				return err
			}
			result, err := sc.Wait(ctx, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			sum := result.Summary()
			fmt.Fprintf(out, "Scan %s %s in %s\n", result.ID, result.Status, result.EndedAt.Sub(result.StartedAt).Round(time.Millisecond))
			fmt.Fprintf(out, "Files with pragmas: %d\n", sum.Files)
			fmt.Fprintf(out, "Pragmas: %d (%d failed, %d clauses recovered)\n", sum.Pragmas, sum.Failed, sum.Recovered)
			if len(result.Errors) > 0 {
				fmt.Fprintf(out, "Errors: %d\n", len(result.Errors))
				for _, e := range result.Errors {
					fmt.Fprintf(out, "  - %s\n", e)
				}
			}

			if !noStore {
				st, err := store.Open(dbPath)
				if err != nil {
					return err
				}
				defer st.Close()
				if err := st.SaveScan(ctx, result); err != nil {
					return err
				}
				fmt.Fprintf(out, "Saved to %s\n", dbPath)
			}

			if result.Status == scanner.StatusFailed {
				return fmt.Errorf("scan failed: %s", result.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database for the results (default store.path from accparse.toml)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "do not save the results")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "give up after this long (default scan.timeout)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of files parsed in parallel (default scan.workers)")

	return cmd
}
