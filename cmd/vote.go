package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/redvote/internal/browser"
	"github.com/xkilldash9x/redvote/internal/config"
	"github.com/xkilldash9x/redvote/internal/observability"
	"github.com/xkilldash9x/redvote/internal/orchestrator"
	"github.com/xkilldash9x/redvote/internal/reporting"
	"github.com/xkilldash9x/redvote/internal/store"
)

// reportFlags are shared by every command that emits a run report.
type reportFlags struct {
	output string
	format string
}

func (f *reportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Report file path (default stdout)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "text", "Report format: text or json")
}

func (f *reportFlags) write(cmd *cobra.Command, report *reporting.RunReport) error {
	reporter, err := reporting.New(f.format, f.output, cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	if err := reporter.Write(report); err != nil {
		reporter.Close()
		return err
	}
	return reporter.Close()
}

// registerSelectionFlags adds the flags that override which post is chosen.
func registerSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("index", "n", 0, "1-based position among eligible posts (overrides selection.target_index)")
	cmd.Flags().StringSliceP("keyword", "k", nil, "Keyword that makes a title upvote-worthy; repeatable (overrides selection.keywords)")
	bindFlag(cmd, "index", "selection.target_index")
	bindFlag(cmd, "keyword", "selection.keywords")
}

func newVoteCmd() *cobra.Command {
	var (
		dryRun bool
		report reportFlags
	)

	voteCmd := &cobra.Command{
		Use:   "vote",
		Short: "Log in, open the subreddit and vote on the Nth eligible post",
		Long: `vote drives a real browser through old.reddit.com: it logs in, opens the
configured subreddit, picks the Nth post that is neither pinned nor promoted,
upvotes it if the title contains a keyword and downvotes it otherwise, then
logs out. Re-running is safe: a post already in the wanted state is left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if !dryRun {
				if err := cfg.Credentials.Validate(); err != nil {
					return err
				}
			}
			return runLive(cmd, cfg, orchestrator.Options{DryRun: dryRun}, &report)
		},
	}

	registerSelectionFlags(voteCmd)
	voteCmd.Flags().String("subreddit", "", "Subreddit to open, without the r/ prefix (overrides target.subreddit)")
	voteCmd.Flags().Bool("headless", false, "Run the browser without a window (overrides browser.headless)")
	voteCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Pick and classify only; do not log in or vote")
	report.register(voteCmd)
	bindFlag(voteCmd, "subreddit", "target.subreddit")
	bindFlag(voteCmd, "headless", "browser.headless")

	return voteCmd
}

// runLive opens a browser, runs the orchestrator once and writes the report.
func runLive(cmd *cobra.Command, cfg *config.Config, opts orchestrator.Options, rf *reportFlags) error {
	ctx := cmd.Context()
	logger := observability.GetLogger()

	recorder := openHistory(ctx, cfg, logger)
	defer func() {
		if err := recorder.Close(); err != nil {
			logger.Warn("Failed to close run history.", zap.Error(err))
		}
	}()

	manager := browser.NewManager(ctx, cfg, logger)
	defer func() {
		if err := manager.Shutdown(ctx); err != nil {
			logger.Warn("Error during browser manager shutdown", zap.Error(err))
		}
	}()

	sess, err := manager.NewSession(ctx)
	if err != nil {
		return err
	}

	orch, err := orchestrator.New(cfg, logger, recorder)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	report, runErr := orch.Run(ctx, sess, opts)
	if err := rf.write(cmd, report); err != nil {
		logger.Error("Failed to write run report.", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

// openHistory opens the configured run history. History is auxiliary, so a
// store that cannot be opened is logged and replaced by a no-op recorder.
func openHistory(ctx context.Context, cfg *config.Config, logger *zap.Logger) store.Recorder {
	rec, err := store.Open(ctx, cfg.History, logger)
	if err != nil {
		logger.Warn("Run history unavailable; continuing without it.", zap.String("driver", cfg.History.Driver), zap.Error(err))
		return store.Nop{}
	}
	return rec
}
