package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dhamidi/accparse/format"
	"github.com/dhamidi/accparse/openacc/store"
)

// report is the structured form of a stored scan.
type report struct {
	Scan    *store.Scan     `json:"scan" yaml:"scan"`
	Pragmas []*store.Pragma `json:"pragmas" yaml:"pragmas"`
}

func newReportCmd() *cobra.Command {
	var dbPath string
	var scanID string
	var list bool
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a stored scan",
		Long: `Print a stored scan: its summary followed by the diagnostics of every
pragma that failed or needed recovery. Without --scan the latest scan is
printed. --list prints one line per stored scan instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := loadProject()
			if dbPath == "" {
				dbPath = p.Resolve(p.Config.Store.Path)
			}
			st, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			out := cmd.OutOrStdout()

			if list {
				scans, err := st.ListScans(ctx, 0)
				if err != nil {
					return err
				}
				for _, s := range scans {
					fmt.Fprintf(out, "%s  %-11s %s  %d files, %d pragmas, %d failed\n",
						s.ID, s.Status, s.StartedAt.Format("2006-01-02 15:04:05"), s.Files, s.Pragmas, s.Failed)
				}
				return nil
			}

			var scan *store.Scan
			if scanID == "" {
				scan, err = st.LatestScan(ctx)
			} else {
				scan, err = st.GetScan(ctx, scanID)
			}
			if err != nil {
				return err
			}

			switch outputFormat {
			case "text":
				return printReport(ctx, out, st, scan)
			case "json", "yaml":
				pragmas, err := st.Pragmas(ctx, scan.ID)
				if err != nil {
					return err
				}
				r := report{Scan: scan, Pragmas: pragmas}
				if outputFormat == "yaml" {
					enc := yaml.NewEncoder(out)
					enc.SetIndent(2)
					defer enc.Close()
					return enc.Encode(r)
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(r)
			default:
				return fmt.Errorf("unknown format: %s", outputFormat)
			}
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database (default store.path from accparse.toml)")
	cmd.Flags().StringVar(&scanID, "scan", "", "scan ID (default the latest scan)")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "list stored scans")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json, yaml)")

	return cmd
}

func printReport(ctx context.Context, out io.Writer, st *store.Store, scan *store.Scan) error {
	fmt.Fprintf(out, "Scan %s (%s)\n", scan.ID, scan.Status)
	for _, path := range scan.Paths {
		fmt.Fprintf(out, "  %s\n", path)
	}
	if scan.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", scan.Error)
	}
	fmt.Fprintf(out, "%d files, %d pragmas, %d failed, %d clauses recovered\n\n",
		scan.Files, scan.Pragmas, scan.Failed, scan.Recovered)

	diags, err := st.Diagnostics(ctx, scan.ID)
	if err != nil {
		return err
	}
	enc := format.NewDiagnosticEncoder(out)
	for _, d := range diags {
		if err := enc.Encode(d); err != nil {
			return err
		}
	}
	fmt.Fprint(out, enc.Summary(scan.Pragmas))
	return nil
}
