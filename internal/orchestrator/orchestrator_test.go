// internal/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/redvote/internal/config"
	"github.com/xkilldash9x/redvote/internal/mocks"
	"github.com/xkilldash9x/redvote/internal/oldreddit"
	"github.com/xkilldash9x/redvote/internal/reporting"
	"github.com/xkilldash9x/redvote/internal/store"
	"github.com/xkilldash9x/redvote/internal/vote"
)

const (
	baseURL      = "https://old.reddit.com"
	subredditURL = "https://old.reddit.com/r/gaming/"

	homeHTML = `<html><body>
<div id="eu-cookie-policy"><div><div class="infobar-btn-container"><button>Accept</button></div></div></div>
<div id="header-bottom-right"><span><a class="login-required login-link" href="#">log in</a></span></div>
<form id="search"><input type="text" name="q"><input type="submit" value=""></form>
</body></html>`

	loginModalHTML = `<html><body>
<div id="login"><auth-flow-modal><div class="w-100"><faceplate-tracker><button><span><span>Log In</span></span></button></faceplate-tracker></div></auth-flow-modal></div>
<faceplate-text-input id="login-username"><span></span></faceplate-text-input>
<faceplate-text-input id="login-password"><span></span></faceplate-text-input>
</body></html>`

	welcomeHTML = `<html><body>
<div id="header-bottom-right"><form class="logout"><a href="#">logout</a></form></div>
<form id="search"><input type="text" name="q"><input type="submit" value=""></form>
<div class="content"><p>alice, this is your home on Reddit</p></div>
</body></html>`

	resultsHTML = `<html><body>
<div class="content"><div></div><div><div><div><div><header><a href="/r/gaming/">r/gaming</a></header></div></div></div></div></div>
</body></html>`

	loggedOutHTML = `<html><body>
<div id="header-bottom-right"><span><a class="login-required login-link" href="#">log in</a></span></div>
</body></html>`
)

// newSitePage wires a fake tab that walks through the whole old-reddit flow.
func newSitePage(t *testing.T) *mocks.FakePage {
	t.Helper()
	listing, err := os.ReadFile(filepath.Join("testdata", "listing.html"))
	require.NoError(t, err)

	page := mocks.NewFakePage("about:blank", "<html><body></body></html>")
	page.Routes[baseURL] = homeHTML
	page.OnClick[oldreddit.LoginLink] = func(p *mocks.FakePage) { p.SetBody(loginModalHTML) }
	page.OnClick[oldreddit.LoginSubmit] = func(p *mocks.FakePage) { p.SetBody(welcomeHTML) }
	page.OnClick[oldreddit.SearchSubmit] = func(p *mocks.FakePage) { p.SetBody(resultsHTML) }
	page.OnClick[oldreddit.FirstSubredditResult] = func(p *mocks.FakePage) {
		p.SetBody(string(listing))
		p.SetURL(subredditURL)
	}
	page.OnClick[oldreddit.LogoutLink] = func(p *mocks.FakePage) { p.SetBody(loggedOutHTML) }
	return page
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Pacing.ActionsPerSecond = 0
	cfg.Credentials = config.CredentialsConfig{Email: "alice@example.com", Username: "alice", Password: "hunter2"}
	cfg.Artifacts.ScreenshotDir = t.TempDir()
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, rec store.Recorder) *Orchestrator {
	t.Helper()
	o, err := New(cfg, zap.NewNop(), rec)
	require.NoError(t, err)
	o.newID = func() string { return "run-1" }
	return o
}

func acceptAnyRun(rec *mocks.MockRecorder) {
	rec.On("Record", mock.Anything, mock.AnythingOfType("store.Run")).Return(nil)
}

func stepStatuses(r *reporting.RunReport) map[string]string {
	out := make(map[string]string, len(r.Steps))
	for _, s := range r.Steps {
		out[s.Name] = s.Status
	}
	return out
}

func TestNew_NilDependencies(t *testing.T) {
	_, err := New(nil, zap.NewNop(), nil)
	assert.Error(t, err)
	_, err = New(config.NewDefaultConfig(), nil, nil)
	assert.Error(t, err)

	o, err := New(config.NewDefaultConfig(), zap.NewNop(), nil)
	require.NoError(t, err)
	assert.IsType(t, store.Nop{}, o.recorder)
}

func TestRun_FullFlow(t *testing.T) {
	cfg := testConfig(t)
	page := newSitePage(t)
	rec := &mocks.MockRecorder{}
	acceptAnyRun(rec)

	report, err := newTestOrchestrator(t, cfg, rec).Run(context.Background(), page, Options{})
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	assert.True(t, report.Succeeded())
	assert.False(t, report.LoggedIn, "logged out at the end")
	assert.True(t, report.URLVerified)
	assert.Equal(t, subredditURL, report.FinalURL)
	assert.Equal(t, map[string]string{
		"opened homepage":   reporting.StepOK,
		"cookie banner":     reporting.StepOK,
		"logged in":         reporting.StepOK,
		"opened subreddit":  reporting.StepOK,
		"verified location": reporting.StepOK,
		"voted":             reporting.StepOK,
		"logout":            reporting.StepOK,
	}, stepStatuses(report))

	require.NotNil(t, report.Decision)
	assert.Equal(t, "t3_second", report.Decision.Candidate.StableID)
	assert.Equal(t, vote.AssertPositive, report.Decision.Action)
	assert.Equal(t, vote.Clicked, report.Decision.Outcome.Kind)
	assert.Equal(t, "https://old.reddit.com/r/gaming/comments/second/switch_sales/", report.PermalinkURL)
	assert.Equal(t, 1, page.ClickCount(oldreddit.ArrowSelector("t3_second", vote.AssertPositive)))

	shots, err := os.ReadDir(cfg.Artifacts.ScreenshotDir)
	require.NoError(t, err)
	assert.Len(t, shots, 7)
	assert.Equal(t, "01_opened-homepage.png", shots[0].Name())
	assert.Equal(t, filepath.Join(cfg.Artifacts.ScreenshotDir, "01_opened-homepage.png"), report.Steps[0].Screenshot)

	runs := rec.Recorded()
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "CLICKED", runs[0].Outcome)
	assert.Equal(t, "NONE", runs[0].PriorState)
	assert.Empty(t, runs[0].CurrentState, "post-click state is never observed")
	assert.Equal(t, "nintendo", runs[0].Keyword)
	assert.Empty(t, runs[0].Error)
	rec.AssertExpectations(t)
}

func TestRun_PipelineFailureStillLogsOut(t *testing.T) {
	cfg := testConfig(t)
	cfg.Selection.TargetIndex = 4
	page := newSitePage(t)
	rec := &mocks.MockRecorder{}
	acceptAnyRun(rec)

	report, err := newTestOrchestrator(t, cfg, rec).Run(context.Background(), page, Options{})
	require.ErrorIs(t, err, vote.ErrControlNotFound)

	statuses := stepStatuses(report)
	assert.Equal(t, reporting.StepFailed, statuses["voted"])
	assert.Equal(t, reporting.StepOK, statuses["logout"])
	assert.Equal(t, 1, page.ClickCount(oldreddit.LogoutLink))
	assert.Contains(t, report.Error, "control not found")
	assert.Contains(t, report.Decision.Outcome.Snippet, "arrow up")

	runs := rec.Recorded()
	require.Len(t, runs, 1)
	assert.Equal(t, "CONTROL_NOT_FOUND", runs[0].Outcome)
	assert.Equal(t, "t3_noarrow", runs[0].CandidateID)
	assert.NotEmpty(t, runs[0].Error)
}

func TestRun_LoginFailureSkipsLogout(t *testing.T) {
	cfg := testConfig(t)
	cfg.Credentials.Username = "bob"
	page := newSitePage(t)

	report, err := newTestOrchestrator(t, cfg, nil).Run(context.Background(), page, Options{})
	require.ErrorIs(t, err, oldreddit.ErrLoginFailed)

	assert.False(t, report.LoggedIn)
	assert.Equal(t, reporting.StepFailed, stepStatuses(report)["logged in"])
	assert.NotContains(t, stepStatuses(report), "logout")
	assert.Zero(t, page.ClickCount(oldreddit.LogoutLink))
	assert.Nil(t, report.Decision)

	last := report.Steps[len(report.Steps)-1]
	assert.Contains(t, last.Screenshot, "error-logged-in.png")
}

func TestRun_DryRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Credentials = config.CredentialsConfig{}
	page := newSitePage(t)

	report, err := newTestOrchestrator(t, cfg, nil).Run(context.Background(), page, Options{DryRun: true})
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, reporting.StepSkipped, stepStatuses(report)["login"])
	assert.Equal(t, reporting.StepOK, stepStatuses(report)["picked"])
	require.NotNil(t, report.Decision)
	assert.Equal(t, "t3_second", report.Decision.Candidate.StableID)
	assert.Nil(t, report.Decision.Outcome)
	assert.Equal(t, []string{oldreddit.CookieAccept, oldreddit.SearchSubmit, oldreddit.FirstSubredditResult}, page.Clicks)
	assert.Equal(t, "arrow up login-required access-required", page.ArrowClass("t3_second", true))
}

func TestRun_CancelledAfterLoginStillLogsOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	page := newSitePage(t)
	open := page.OnClick[oldreddit.FirstSubredditResult]
	page.OnClick[oldreddit.FirstSubredditResult] = func(p *mocks.FakePage) {
		open(p)
		cancel()
	}

	report, err := newTestOrchestrator(t, testConfig(t), nil).Run(ctx, page, Options{})
	require.ErrorIs(t, err, context.Canceled)

	statuses := stepStatuses(report)
	assert.Equal(t, reporting.StepFailed, statuses["opened subreddit"])
	assert.Equal(t, reporting.StepOK, statuses["logout"])
	assert.Equal(t, 1, page.ClickCount(oldreddit.LogoutLink))
}

func TestRun_HistoryFailureIsNotFatal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	rec := &mocks.MockRecorder{}
	rec.On("Record", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	o, err := New(testConfig(t), zap.New(core), rec)
	require.NoError(t, err)

	_, err = o.Run(context.Background(), newSitePage(t), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("Failed to record run history.").Len())
}

func TestRun_CollaboratorLogsCarryRunID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	o, err := New(testConfig(t), zap.New(core), nil)
	require.NoError(t, err)
	o.newID = func() string { return "run-7" }

	_, err = o.Run(context.Background(), newSitePage(t), Options{})
	require.NoError(t, err)

	for _, msg := range []string{"Logged in.", "Selected candidate.", "Activated vote control.", "Logged out."} {
		entries := logs.FilterMessage(msg).All()
		require.Len(t, entries, 1, msg)
		assert.Equal(t, "run-7", entries[0].ContextMap()["run_id"], msg)
	}
}

func TestPermalinkURL(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(t), nil)
	tests := map[string]string{
		"/r/gaming/comments/x/": "https://old.reddit.com/r/gaming/comments/x/",
		"r/gaming/comments/x/":  "https://old.reddit.com/r/gaming/comments/x/",
		"https://redd.it/x":     "https://redd.it/x",
		"":                      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, o.PermalinkURL(in), in)
	}
}
