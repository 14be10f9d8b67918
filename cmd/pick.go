package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/redvote/internal/observability"
	"github.com/xkilldash9x/redvote/internal/oldreddit"
	"github.com/xkilldash9x/redvote/internal/orchestrator"
	"github.com/xkilldash9x/redvote/internal/reporting"
	"github.com/xkilldash9x/redvote/internal/vote"
)

// savedListing serves a saved listing page as a snapshot.
type savedListing string

func (s savedListing) Snapshot(context.Context) ([]vote.RawItem, error) {
	return oldreddit.ParseListing(string(s))
}

func newPickCmd() *cobra.Command {
	var (
		htmlFile string
		report   reportFlags
	)

	pickCmd := &cobra.Command{
		Use:   "pick",
		Short: "Show which post would be chosen and how it would be voted, without voting",
		Long: `pick runs the selection and classification steps only. With --html it reads a
saved listing page and never starts a browser; otherwise it opens the
subreddit anonymously and reads the live listing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if htmlFile == "" {
				return runLive(cmd, cfg, orchestrator.Options{DryRun: true}, &report)
			}

			path, err := homedir.Expand(htmlFile)
			if err != nil {
				return err
			}
			b, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read listing: %w", err)
			}

			started := time.Now()
			pipeline := &vote.Pipeline{
				Source:     savedListing(b),
				Classifier: vote.NewClassifier(cfg.Selection.Keywords...),
				Logger:     observability.GetLogger(),
			}
			decision, planErr := pipeline.Plan(cmd.Context(), cfg.Selection.TargetIndex)

			rr := &reporting.RunReport{
				RunID:       uuid.NewString(),
				StartedAt:   started,
				FinishedAt:  time.Now(),
				Subreddit:   cfg.Target.Subreddit,
				TargetIndex: cfg.Selection.TargetIndex,
				DryRun:      true,
				Decision:    decision,
			}
			if decision != nil {
				rr.PermalinkURL = oldreddit.PermalinkURL(cfg.Target.BaseURL, decision.Candidate.Permalink)
			}
			if planErr != nil {
				rr.Error = planErr.Error()
			}
			if err := report.write(cmd, rr); err != nil {
				return err
			}
			return planErr
		},
	}

	pickCmd.Flags().StringVar(&htmlFile, "html", "", "Saved old.reddit.com listing page to read instead of a live browser")
	registerSelectionFlags(pickCmd)
	report.register(pickCmd)
	return pickCmd
}
