package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/naka-gawa/gh-metrics/internal/config"
	"github.com/naka-gawa/gh-metrics/internal/usecase"
	"github.com/spf13/cobra"
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "Lists the repositories of a GitHub organization",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		org, _ := cmd.Flags().GetString("org")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		replayFlag, _ := cmd.Flags().GetBool("replay")

		if dataDir == "" {
			if replayFlag {
				return errors.New("--replay needs --data-dir")
			}
			// Nothing worth keeping; record into a scratch directory.
			dataDir, err = os.MkdirTemp("", "gh-metrics-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(dataDir)
		}

		cfg, err := config.Defaults()
		if err != nil {
			return err
		}
		cfg.GitHub.Org = org
		opts := runOptions{dataDir: dataDir, mode: parseMode(replayFlag, false)}
		source, closeSource, err := newSource(cmd.Context(), cfg, opts, logger)
		if err != nil {
			return err
		}
		defer closeSource()

		repos, err := usecase.DiscoverRepositories(cmd.Context(), source, org, logger)
		if err != nil {
			return err
		}
		for _, r := range repos {
			fmt.Fprintln(cmd.OutOrStdout(), r)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reposCmd)
	reposCmd.Flags().StringP("org", "o", "", "Target GitHub organization name (required)")
	reposCmd.MarkFlagRequired("org")
	reposCmd.Flags().StringP("data-dir", "d", "", "Directory to record fetched pages in")
	reposCmd.Flags().Bool("replay", false, "List from recorded pages only")
}
