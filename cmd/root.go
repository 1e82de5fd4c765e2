// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gh-metrics",
	Short: "A CLI tool to report pull request and review activity of a GitHub organization.",
	Long: `gh-metrics collects pull requests, reviews, participants and issues of the
repositories of a GitHub organization and writes contributor and repository
reports. Every fetched page is recorded in the data directory so that a report
can be replayed later without network access.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format: console or json")
}

// newLogger builds the stderr logger from the persistent flags. Warnings are
// always shown; --verbose adds debug output.
func newLogger(cmd *cobra.Command) (zerolog.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	format, _ := cmd.Flags().GetString("log-format")
	return buildLogger(cmd.ErrOrStderr(), format, verbose)
}

func buildLogger(w io.Writer, format string, verbose bool) (zerolog.Logger, error) {
	switch format {
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q (want console or json)", format)
	}
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
