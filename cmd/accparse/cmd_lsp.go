package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dhamidi/accparse/openacc/codebase"
)

func newLSPCmd() *cobra.Command {
	var tcpAddr string
	var wsAddr string
	var poll time.Duration

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start the Language Server Protocol server on stdio, or on a TCP or
WebSocket address. The server reports pragma diagnostics, shows the node
path under the cursor on hover, lists directives as document symbols, and
completes directive and clause names.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server := codebase.NewLSPServer(version)
			server.PollInterval = poll
			switch {
			case tcpAddr != "":
				return server.RunTCP(tcpAddr)
			case wsAddr != "":
				return server.RunWebSocket(wsAddr)
			default:
				return server.RunStdio()
			}
		},
	}

	cmd.Flags().StringVar(&tcpAddr, "tcp", "", "listen on this TCP address instead of stdio")
	cmd.Flags().StringVar(&wsAddr, "ws", "", "listen on this WebSocket address instead of stdio")
	cmd.Flags().DurationVar(&poll, "poll", 2*time.Second, "how often to look for changed files on disk")
	cmd.MarkFlagsMutuallyExclusive("tcp", "ws")

	return cmd
}
