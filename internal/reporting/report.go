package reporting

import (
	"time"

	"github.com/xkilldash9x/redvote/internal/vote"
)

// Step statuses.
const (
	StepOK      = "ok"
	StepSkipped = "skipped"
	StepFailed  = "failed"
)

// Step is one stage of a run.
type Step struct {
	Name       string        `json:"name"`
	Status     string        `json:"status"`
	Duration   time.Duration `json:"duration_ns"`
	Screenshot string        `json:"screenshot,omitempty"`
	Detail     string        `json:"detail,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// RunReport summarises one run for humans and tooling.
type RunReport struct {
	RunID       string         `json:"run_id"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Subreddit   string         `json:"subreddit"`
	TargetIndex int            `json:"target_index"`
	DryRun      bool           `json:"dry_run"`
	LoggedIn    bool           `json:"logged_in"`
	FinalURL    string         `json:"final_url,omitempty"`
	URLVerified bool           `json:"url_verified"`
	Steps       []Step         `json:"steps"`
	Decision    *vote.Decision `json:"decision,omitempty"`
	// PermalinkURL is the absolute link of the chosen item.
	PermalinkURL string `json:"permalink_url,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Succeeded reports whether the run finished without error.
func (r *RunReport) Succeeded() bool { return r.Error == "" }
