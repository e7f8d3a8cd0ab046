package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/dhamidi/accparse/project"
)

const version = "0.1.0"

// errFindings makes the process exit with status 1 without printing an
// error message; the command already reported what it found.
var errFindings = errors.New("findings reported")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errFindings) {
			fmt.Fprintln(os.Stderr, "accparse:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose int
	var logFile string

	rootCmd := &cobra.Command{
		Use:           "accparse",
		Short:         "Parse and check OpenACC pragmas in C and C++ sources",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(verbose, logFile)
		},
	}

	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")

	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newLSPCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newExploreCmd())
	rootCmd.AddCommand(newInitCmd())

	return rootCmd
}

// configureLogging applies log.level and log.file from the project
// configuration. Flags take precedence.
func configureLogging(verbose int, logFile string) {
	verbosity := -1
	var path *string
	if p, err := project.Load(); err == nil {
		verbosity = p.Config.Verbosity()
		if p.Config.Log.File != "" {
			f := p.Resolve(p.Config.Log.File)
			path = &f
		}
	}
	if verbose > 0 {
		verbosity = verbose
	}
	if logFile != "" {
		path = &logFile
	}
	commonlog.Configure(verbosity, path)
}

// loadProject returns the project around the current directory, or the
// defaults when its configuration cannot be read.
func loadProject() *project.Project {
	p, err := project.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "accparse: %v; using defaults\n", err)
		return &project.Project{RootDir: ".", Config: project.DefaultConfig()}
	}
	return p
}
