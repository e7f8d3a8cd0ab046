package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhamidi/accparse/openacc/scanner"
	"github.com/dhamidi/accparse/openacc/store"
	"github.com/dhamidi/accparse/ui"
)

func newServeCmd() *cobra.Command {
	var addr string
	var dbPath string
	var noStore bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve scans and pragma parsing over HTTP",
		Long: `Serve scans and pragma parsing over HTTP.

  POST /parse                 parse the pragma in the body (?format=json|yaml|tree|line|source)
  POST /scan                  start a scan ({"paths": [...]} or a form with path and zipfile)
  GET  /scans/{id}            scan status and pragmas (?wait to block until it finished)
  GET  /scans/{id}/diagnostics
  GET  /                      all scans

Send "Accept: application/json" for JSON instead of HTML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := loadProject()
			sc := scanner.New(scanner.WithFilter(p.IsSource), scanner.WithWorkers(p.Config.Scan.Workers))
			defer sc.Close()

			var st *store.Store
			if !noStore {
				if dbPath == "" {
					dbPath = p.Resolve(p.Config.Store.Path)
				}
				var err error
				if st, err = store.Open(dbPath); err != nil {
					return err
				}
				defer st.Close()
			}

			server, err := ui.NewServer(sc, st)
			if err != nil {
				return err
			}
			server.Timeout = p.Config.Scan.Timeout.Duration

			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", addr)
			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server,
				ReadHeaderTimeout: 10 * time.Second,
			}
			return httpServer.ListenAndServe()
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "localhost:8080", "address to listen on")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database for finished scans (default store.path)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "keep scans in memory only")

	return cmd
}
