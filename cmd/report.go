package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/naka-gawa/gh-metrics/internal/config"
	"github.com/naka-gawa/gh-metrics/internal/domain"
	"github.com/naka-gawa/gh-metrics/internal/gateway"
	"github.com/naka-gawa/gh-metrics/internal/replay"
	"github.com/naka-gawa/gh-metrics/internal/report"
	"github.com/naka-gawa/gh-metrics/internal/usecase"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Collects activity of the configured repositories and writes the report tables",
	Long: `Reads DATA_DIR/report.toml, fetches pull requests, reviews, participants and
issues of every configured repository (or every repository of the organization
when none are listed) and writes the tables to DATA_DIR/output.

Fetched pages are recorded under DATA_DIR. With --replay the report is rebuilt
from those recordings only; with --resume recorded pages are reused and only
missing pages are fetched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		logger = logger.With().Str("run_id", uuid.NewString()).Logger()

		dataDir, _ := cmd.Flags().GetString("data-dir")
		replayFlag, _ := cmd.Flags().GetBool("replay")
		resumeFlag, _ := cmd.Flags().GetBool("resume")
		formatStr, _ := cmd.Flags().GetString("format")
		toSheets, _ := cmd.Flags().GetBool("sheets")

		format, err := report.ParseFormat(formatStr)
		if err != nil {
			return err
		}
		cfg, err := config.Load(dataDir)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		opts := runOptions{
			dataDir: dataDir,
			mode:    parseMode(replayFlag, resumeFlag),
			format:  format,
			sheets:  toSheets,
		}
		return runReport(ctx, cmd, cfg, opts, logger)
	},
}

type runOptions struct {
	dataDir string
	mode    domain.Mode
	format  report.Format
	sheets  bool
	// executor overrides the GitHub gateway; used by tests.
	executor gateway.Executor
}

func runReport(ctx context.Context, cmd *cobra.Command, cfg *config.Config, opts runOptions, logger zerolog.Logger) error {
	source, closeSource, err := newSource(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	logger.Debug().Str("mode", string(source.Mode())).Str("data_dir", opts.dataDir).Msg("starting report")

	repos := cfg.GitHub.Repos
	if len(repos) == 0 {
		logger.Info().Str("org", cfg.GitHub.Org).Msg("no repositories configured, listing organization")
		repos, err = usecase.DiscoverRepositories(ctx, source, cfg.GitHub.Org, logger)
		if err != nil {
			return err
		}
	}

	collector := usecase.NewCollector(source, cfg.GitHub.Robots, cfg.Run.Concurrency, logger)
	res := collector.Collect(ctx, usecase.Identities(cfg, repos))
	tables := report.Tables(usecase.Summarize(cfg, repos, res))

	paths, err := report.WriteDir(filepath.Join(opts.dataDir, "output"), opts.format, tables)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, p := range paths {
		fmt.Fprintln(out, "wrote", p)
	}

	if opts.sheets {
		writer, err := report.NewSheetsWriter(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.CredentialsFile, logger)
		if err != nil {
			return err
		}
		if err := writer.Write(ctx, tables); err != nil {
			return err
		}
		fmt.Fprintln(out, "exported to spreadsheet", cfg.Sheets.SpreadsheetID)
	}

	failed := res.Failed()
	for _, o := range failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "FAILED %s after %d pages: %v\n", o.Identity, o.Pages, o.Err)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d queries failed; the report is incomplete", len(failed), len(res.Outcomes))
	}
	return nil
}

// newSource wires the replay store, the GitHub gateway and the page source for a run.
func newSource(ctx context.Context, cfg *config.Config, opts runOptions, logger zerolog.Logger) (*replay.Source, func(), error) {
	store, err := openStore(opts.dataDir, cfg.Cache)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close replay store")
		}
	}

	var executor replay.Executor = opts.executor
	if executor == nil && opts.mode != domain.ModeReplay {
		token, err := resolveToken(ctx)
		if err != nil {
			closeStore()
			return nil, nil, err
		}
		gw, err := gateway.NewGitHubGateway(token, gatewayOptions(cfg.Run), logger)
		if err != nil {
			closeStore()
			return nil, nil, fmt.Errorf("failed to create GitHub gateway: %w", err)
		}
		executor = gw
	}

	source, err := replay.NewSource(replay.NewCache(store, logger), executor, opts.mode, logger)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return source, closeStore, nil
}

func gatewayOptions(run config.RunConfig) gateway.Options {
	opts := gateway.DefaultOptions()
	opts.Retry.MaxRetries = run.MaxRetries
	opts.Retry.BaseDelay = run.RetryBaseDelay
	opts.Retry.MaxDelay = run.RetryMaxDelay
	opts.RequestTimeout = run.RequestTimeout
	opts.RequestsPerSecond = run.RequestsPerSecond
	return opts
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringP("data-dir", "d", "", "Directory containing report.toml; recordings and output are written here (required)")
	reportCmd.MarkFlagRequired("data-dir")
	reportCmd.Flags().Bool("replay", false, "Rebuild the report from recorded pages only")
	reportCmd.Flags().Bool("resume", false, "Reuse recorded pages and fetch only the missing ones")
	reportCmd.MarkFlagsMutuallyExclusive("replay", "resume")
	reportCmd.Flags().StringP("format", "f", "csv", "Output format: csv or json")
	reportCmd.Flags().Bool("sheets", false, "Also export the tables to the configured Google spreadsheet")
}
