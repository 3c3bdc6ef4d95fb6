// Command pmaudit audits WordPress pages for scripts delayed by a
// performance plugin and serves the audit over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information
const (
	Version    = "0.3.0"
	BuildDate  = "2026-10-15"
	CommitHash = "development"
)

var (
	// cfgFile holds the path to the configuration file
	cfgFile string

	// debug enables debug logging for all commands
	debug bool
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "pmaudit",
		Short:         "Audit delayed JavaScript on WordPress pages",
		Long:          `Audit WordPress pages for scripts delayed by Perfmatters and report which ones should be excluded from delay.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or ./config/config.yaml)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newAnalyzeCommand())
	root.AddCommand(newServeCommand())
	root.AddCommand(newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pmaudit version %s (build: %s, commit: %s)\n", Version, BuildDate, CommitHash)
		},
	}
}
