package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hstream",
		Short: "Server-driven reactive pages for Go",
		Long: `hstream runs script-defined pages over plain HTTP.

A page is an ordinary Go function that declares components top to
bottom. hstream re-runs the function whenever a visitor changes an
input, diffs the declared components against the previous run, and
tells the browser which fragments to refresh.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}
