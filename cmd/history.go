package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/redvote/internal/config"
	"github.com/xkilldash9x/redvote/internal/observability"
	"github.com/xkilldash9x/redvote/internal/store"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit  int
		format string
	)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the configured history store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			if cfg.History.Driver == config.HistoryNone {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "run history is disabled (history.driver=none)")
				return err
			}

			rec, err := store.Open(ctx, cfg.History, observability.GetLogger())
			if err != nil {
				return err
			}
			defer rec.Close()

			if limit <= 0 {
				limit = cfg.History.RecentLimit
			}
			runs, err := rec.Recent(ctx, limit)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if runs == nil {
					runs = []store.Run{}
				}
				return enc.Encode(runs)
			case "text":
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "STARTED\tSUBREDDIT\tN\tCANDIDATE\tACTION\tOUTCOME\tERROR")
				for _, r := range runs {
					action := r.Action
					if r.DryRun {
						action += " (dry)"
					}
					fmt.Fprintf(tw, "%s\tr/%s\t%d\t%s\t%s\t%s\t%s\n",
						r.StartedAt.Local().Format(time.DateTime), r.Subreddit, r.TargetIndex,
						r.CandidateID, action, r.Outcome, r.Error)
				}
				return tw.Flush()
			default:
				return fmt.Errorf("unsupported output format: %s", format)
			}
		},
	}

	historyCmd.Flags().IntVarP(&limit, "limit", "l", 0, "Number of runs to show (default history.recent_limit)")
	historyCmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text or json")
	return historyCmd
}
