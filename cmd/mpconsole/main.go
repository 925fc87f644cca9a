package main

import (
	"errors"
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
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		if errors.Is(err, errNotLoggedIn) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "mpconsole",
		Short: "Command-line console for the official-account spider admin API",
		Long: `mpconsole logs in to the spider admin API, keeps the session between
runs and drives the same pages as the web console: articles, crawl
targets, platform accounts and crawl logs.

A request rejected with 401 clears the stored session; run
"mpconsole login" again to continue.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.register(rootCmd)

	rootCmd.AddCommand(
		loginCmd(opts),
		logoutCmd(opts),
		whoamiCmd(opts),
		navCmd(opts),
		articlesCmd(opts),
		targetsCmd(opts),
		accountsCmd(opts),
		logsCmd(opts),
		healthCmd(opts),
		refreshJobsCmd(opts),
		versionCmd(),
	)
	return rootCmd
}
