// File: internal/orchestrator/orchestrator.go
// Description: Drives one vote run end to end against a browser page. The page
// and run history are injected, so the whole flow runs against fakes in tests.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/redvote/internal/artifacts"
	"github.com/xkilldash9x/redvote/internal/browser/session"
	"github.com/xkilldash9x/redvote/internal/config"
	"github.com/xkilldash9x/redvote/internal/oldreddit"
	"github.com/xkilldash9x/redvote/internal/reporting"
	"github.com/xkilldash9x/redvote/internal/store"
	"github.com/xkilldash9x/redvote/internal/vote"
)

// logoutTimeout bounds the logout attempt made after the run context is gone.
const logoutTimeout = 30 * time.Second

// Page is a browser tab that can also be photographed.
type Page interface {
	oldreddit.Page
	artifacts.Capturer
}

// Options tune a single run.
type Options struct {
	// DryRun scans and classifies without logging in or clicking a vote control.
	DryRun bool
}

// Orchestrator runs the vote flow.
type Orchestrator struct {
	cfg      *config.Config
	logger   *zap.Logger
	recorder store.Recorder
	shots    *artifacts.Screenshots
	newID    func() string
	now      func() time.Time
}

// New creates an Orchestrator. recorder may be nil to skip run history.
func New(cfg *config.Config, logger *zap.Logger, recorder store.Recorder) (*Orchestrator, error) {
	if cfg == nil || logger == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	if recorder == nil {
		recorder = store.Nop{}
	}
	return &Orchestrator{
		cfg:      cfg,
		logger:   logger.Named("orchestrator"),
		recorder: recorder,
		shots:    artifacts.NewScreenshots(cfg.Artifacts, logger),
		newID:    uuid.NewString,
		now:      time.Now,
	}, nil
}

// run carries the state of one Run call.
type run struct {
	o      *Orchestrator
	page   Page
	log    *zap.Logger
	report *reporting.RunReport
}

// step executes fn as a named stage, records it in the report and takes a
// screenshot after it. fn returns a short detail and whether the stage was skipped.
func (r *run) step(ctx context.Context, name string, fn func() (string, bool, error)) error {
	start := r.o.now()
	detail, skipped, err := fn()
	s := reporting.Step{Name: name, Status: reporting.StepOK, Duration: r.o.now().Sub(start), Detail: detail}

	switch {
	case err != nil:
		s.Status = reporting.StepFailed
		s.Error = err.Error()
		r.log.Error("Step failed.", zap.String("step", name), zap.Error(err))
		s.Screenshot = r.o.shots.Capture(ctx, r.page, "error "+name)
	case skipped:
		s.Status = reporting.StepSkipped
		r.log.Info("Step skipped.", zap.String("step", name), zap.String("detail", detail))
	default:
		r.log.Info("Step done.", zap.String("step", name), zap.String("detail", detail))
		s.Screenshot = r.o.shots.Capture(ctx, r.page, name)
	}
	r.report.Steps = append(r.report.Steps, s)
	return err
}

// Run performs one full pass: open the site, log in, reach the subreddit,
// pick and reconcile the target item, then log out. Logout is attempted
// whenever login succeeded, even if a later stage failed. The report is
// always returned; the error is the first stage failure.
func (o *Orchestrator) Run(ctx context.Context, page Page, opts Options) (*reporting.RunReport, error) {
	report := &reporting.RunReport{
		RunID:       o.newID(),
		StartedAt:   o.now(),
		Subreddit:   o.cfg.Target.Subreddit,
		TargetIndex: o.cfg.Selection.TargetIndex,
		DryRun:      opts.DryRun,
	}
	r := &run{o: o, page: page, log: o.logger.With(zap.String("run_id", report.RunID)), report: report}
	site := oldreddit.NewSite(page, o.cfg, r.log)

	r.log.Info("Starting run.",
		zap.String("subreddit", report.Subreddit),
		zap.Int("target_index", report.TargetIndex),
		zap.Bool("dry_run", opts.DryRun),
	)

	err := o.drive(ctx, r, site, opts)

	if report.LoggedIn {
		// The run context may already be cancelled; logout still has to reach the browser.
		lctx, cancel := context.WithTimeout(session.Detach(ctx), logoutTimeout)
		lerr := r.step(lctx, "logout", func() (string, bool, error) {
			return "", false, site.Logout(lctx)
		})
		cancel()
		if lerr == nil {
			report.LoggedIn = false
		} else if err == nil {
			err = lerr
		}
	}

	report.FinishedAt = o.now()
	if err != nil {
		report.Error = err.Error()
	}
	o.record(ctx, report)

	r.log.Info("Run finished.", zap.Bool("succeeded", err == nil), zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
	return report, err
}

func (o *Orchestrator) drive(ctx context.Context, r *run, site *oldreddit.Site, opts Options) error {
	if err := r.step(ctx, "opened homepage", func() (string, bool, error) {
		return o.cfg.Target.BaseURL, false, site.Open(ctx)
	}); err != nil {
		return err
	}

	if err := r.step(ctx, "cookie banner", func() (string, bool, error) {
		dismissed, err := site.DismissCookieBanner(ctx)
		if err == nil && !dismissed {
			return "not shown", true, nil
		}
		return "accepted", false, err
	}); err != nil {
		return err
	}

	if opts.DryRun {
		r.report.Steps = append(r.report.Steps, reporting.Step{Name: "login", Status: reporting.StepSkipped, Detail: "dry run"})
	} else if err := r.step(ctx, "logged in", func() (string, bool, error) {
		err := site.Login(ctx, o.cfg.Credentials)
		if err == nil {
			r.report.LoggedIn = true
		}
		return o.cfg.Credentials.Username, false, err
	}); err != nil {
		return err
	}

	if err := r.step(ctx, "opened subreddit", func() (string, bool, error) {
		return "r/" + o.cfg.Target.Subreddit, false, site.OpenSubreddit(ctx)
	}); err != nil {
		return err
	}

	if err := r.step(ctx, "verified location", func() (string, bool, error) {
		current, ok, err := site.VerifyLocation(ctx)
		r.report.FinalURL = current
		r.report.URLVerified = ok
		if err == nil && !ok {
			return "unexpected URL " + current, false, nil
		}
		return current, false, err
	}); err != nil {
		return err
	}

	pipeline := &vote.Pipeline{
		Source:     site,
		Board:      site,
		Classifier: vote.NewClassifier(o.cfg.Selection.Keywords...),
		Logger:     r.log,
	}
	name := "voted"
	if opts.DryRun {
		name = "picked"
	}
	return r.step(ctx, name, func() (string, bool, error) {
		var (
			decision *vote.Decision
			err      error
		)
		if opts.DryRun {
			decision, err = pipeline.Plan(ctx, o.cfg.Selection.TargetIndex)
		} else {
			decision, err = pipeline.Run(ctx, o.cfg.Selection.TargetIndex)
		}
		r.report.Decision = decision
		if decision == nil {
			return "", false, err
		}

		r.report.PermalinkURL = o.PermalinkURL(decision.Candidate.Permalink)
		r.log.Info("Candidate chosen.",
			zap.Int("rank", decision.Candidate.Rank),
			zap.String("title", decision.Candidate.Title),
			zap.String("url", r.report.PermalinkURL),
			zap.Stringer("action", decision.Action),
		)
		detail := decision.Action.String()
		if decision.Outcome != nil {
			detail += " " + decision.Outcome.Kind.String()
			if decision.Outcome.Kind == vote.ControlNotFound {
				r.log.Warn("Vote control missing.", zap.String("snippet", decision.Outcome.Snippet))
			}
		}
		return detail, false, err
	})
}

// PermalinkURL resolves a site-relative permalink against the base URL.
func (o *Orchestrator) PermalinkURL(permalink string) string {
	return oldreddit.PermalinkURL(o.cfg.Target.BaseURL, permalink)
}

// record stores the run in history. Failures are logged, not returned.
func (o *Orchestrator) record(ctx context.Context, report *reporting.RunReport) {
	row := store.Run{
		ID:          report.RunID,
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
		Subreddit:   report.Subreddit,
		TargetIndex: report.TargetIndex,
		DryRun:      report.DryRun,
		Error:       report.Error,
	}
	if d := report.Decision; d != nil {
		row.CandidateID = d.Candidate.StableID
		row.CandidateTitle = d.Candidate.Title
		row.Permalink = d.Candidate.Permalink
		row.Action = d.Action.String()
		row.Keyword = d.Keyword
		if out := d.Outcome; out != nil {
			row.Outcome = out.Kind.String()
			row.Conflict = out.Conflict
			switch out.Kind {
			case vote.Clicked:
				// The state after the click is not read back.
				row.PriorState = out.Previous.String()
			case vote.AlreadySelected:
				row.PriorState = out.Current.String()
				row.CurrentState = out.Current.String()
			}
		}
	}

	rctx := session.Detach(ctx)
	if err := o.recorder.Record(rctx, row); err != nil && !errors.Is(err, context.Canceled) {
		o.logger.Warn("Failed to record run history.", zap.String("run_id", row.ID), zap.Error(err))
	}
}
