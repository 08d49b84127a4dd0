package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Build information variables
	Version   = "dev"     // Default version for development
	GitCommit = "unknown" // Git commit hash
	BuildTime = "unknown" // Build timestamp
)

// errUnsafeDelta signals a destructive delta under --fail-on-destructive
var errUnsafeDelta = errors.New("template change is destructive")

// printVersionInfo displays detailed version information
func printVersionInfo(w io.Writer) {
	fmt.Fprintf(w, "templatedelta %s\n", Version)
	fmt.Fprintf(w, "Built: %s, from commit: %s\n", BuildTime, GitCommit)
	fmt.Fprintf(w, "Go version: %s\n", runtime.Version())
	fmt.Fprintf(w, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// newRootCmd creates the base command when called without any subcommands
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "templatedelta",
		Short:         "Compare metadata template versions",
		Long:          "Compares two versions of a metadata template and classifies every difference as destructive or non-destructive.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Lookup("version") != nil && cmd.Flags().Lookup("version").Changed {
				printVersionInfo(cmd.OutOrStdout())
				return nil
			}
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Path to config file (default ./templatedelta.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.Flags().Bool("version", false, "Show version information and exit")

	setupCommands(rootCmd, opts)
	return rootCmd
}

// Execute runs the root command and maps errors to exit codes
func Execute() int {
	err := newRootCmd().Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUnsafeDelta):
		fmt.Fprintln(os.Stderr, err)
		return 2
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
}

func main() {
	os.Exit(Execute())
}
