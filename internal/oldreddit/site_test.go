package oldreddit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/redvote/internal/config"
	"github.com/xkilldash9x/redvote/internal/mocks"
	"github.com/xkilldash9x/redvote/internal/vote"
)

const (
	homeURL = "https://old.reddit.com"

	homeHTML = `<html><body>
<div id="eu-cookie-policy"><div><div class="infobar-btn-container"><button>Accept</button></div></div></div>
<div id="header-bottom-right"><span><a class="login-required login-link" href="#">log in</a></span></div>
<form id="search"><input type="text" name="q"><input type="submit" value=""></form>
<div class="content"></div>
</body></html>`

	loginModalHTML = `<html><body>
<div id="login"><auth-flow-modal><div class="w-100"><faceplate-tracker><button><span><span>Log In</span></span></button></faceplate-tracker></div></auth-flow-modal></div>
<faceplate-text-input id="login-username"><span></span></faceplate-text-input>
<faceplate-text-input id="login-password"><span></span></faceplate-text-input>
</body></html>`

	welcomeHTML = `<html><body>
<div id="header-bottom-right"><span class="user">alice</span><form class="logout"><a href="#">logout</a></form></div>
<form id="search"><input type="text" name="q"><input type="submit" value=""></form>
<div class="content"><p>alice, this is your home on Reddit</p></div>
</body></html>`

	resultsHTML = `<html><body>
<div class="content"><div class="searchpane"></div><div><div><div><div class="search-result"><header><a href="/r/gaming/">r/gaming</a></header></div></div></div></div></div>
</body></html>`

	loggedOutHTML = `<html><body>
<div id="header-bottom-right"><span><a class="login-required login-link" href="#">log in</a></span></div>
</body></html>`
)

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Pacing.ActionsPerSecond = 0
	cfg.Credentials = config.CredentialsConfig{Email: "alice@example.com", Username: "alice", Password: "hunter2"}
	return cfg
}

func TestSite_VotePipeline(t *testing.T) {
	page := mocks.NewFakePage(homeURL+"/r/gaming/", loadFixture(t, "listing.html"))
	site := NewSite(page, testConfig(), nil)
	p := &vote.Pipeline{Source: site, Board: site, Classifier: vote.NewClassifier(vote.DefaultKeywords...)}

	first, err := p.Run(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "t3_second", first.Candidate.StableID)
	assert.Equal(t, vote.AssertPositive, first.Action)
	assert.Equal(t, vote.Clicked, first.Outcome.Kind)
	assert.Equal(t, vote.StateNone, first.Outcome.Previous)
	assert.Equal(t, "arrow upmod", page.ArrowClass("t3_second", true))

	second, err := p.Run(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, vote.AlreadySelected, second.Outcome.Kind)
	assert.Equal(t, vote.StatePositive, second.Outcome.Current)

	assert.Equal(t, 1, page.ClickCount("t3_second"), "re-runs must not click again")
}

func TestSite_FlipsExistingVote(t *testing.T) {
	page := mocks.NewFakePage(homeURL+"/r/gaming/", loadFixture(t, "listing.html"))
	site := NewSite(page, testConfig(), nil)
	p := &vote.Pipeline{Source: site, Board: site}

	d, err := p.Run(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "t3_upvoted", d.Candidate.StableID)
	assert.Equal(t, vote.AssertNegative, d.Action)
	assert.Equal(t, vote.Clicked, d.Outcome.Kind)
	assert.Equal(t, vote.StatePositive, d.Outcome.Previous)
	assert.Equal(t, "arrow downmod", page.ArrowClass("t3_upvoted", false))
	assert.Equal(t, "arrow up", page.ArrowClass("t3_upvoted", true))
}

func TestSite_MissingArrow(t *testing.T) {
	page := mocks.NewFakePage(homeURL+"/r/gaming/", loadFixture(t, "listing.html"))
	site := NewSite(page, testConfig(), nil)
	p := &vote.Pipeline{Source: site, Board: site}

	d, err := p.Run(context.Background(), 4)
	require.ErrorIs(t, err, vote.ErrControlNotFound)
	assert.Equal(t, vote.ControlNotFound, d.Outcome.Kind)
	assert.True(t, d.Outcome.PositiveFound)
	assert.False(t, d.Outcome.NegativeFound)
	assert.Contains(t, d.Outcome.Snippet, "arrow up")
	assert.Empty(t, page.Clicks)
}

func TestSite_ProbeVanishedItem(t *testing.T) {
	page := mocks.NewFakePage(homeURL, loadFixture(t, "listing.html"))
	site := NewSite(page, testConfig(), nil)

	probe, err := site.Probe(context.Background(), "t3_deleted")
	require.NoError(t, err)
	assert.False(t, probe.Found)
}

func TestSite_SnapshotReadError(t *testing.T) {
	page := mocks.NewFakePage(homeURL, homeHTML)
	boom := errors.New("tab crashed")
	page.Fail["html body"] = boom

	_, err := NewSite(page, testConfig(), nil).Snapshot(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestSite_DismissCookieBanner(t *testing.T) {
	t.Run("banner shown", func(t *testing.T) {
		page := mocks.NewFakePage(homeURL, homeHTML)
		dismissed, err := NewSite(page, testConfig(), nil).DismissCookieBanner(context.Background())
		require.NoError(t, err)
		assert.True(t, dismissed)
		assert.Equal(t, []string{CookieAccept}, page.Clicks)
	})

	t.Run("no banner", func(t *testing.T) {
		page := mocks.NewFakePage(homeURL, loggedOutHTML)
		dismissed, err := NewSite(page, testConfig(), nil).DismissCookieBanner(context.Background())
		require.NoError(t, err)
		assert.False(t, dismissed)
		assert.Empty(t, page.Clicks)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewSite(mocks.NewFakePage(homeURL, homeHTML), testConfig(), nil).DismissCookieBanner(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func loginPage() *mocks.FakePage {
	page := mocks.NewFakePage(homeURL, homeHTML)
	page.OnClick[LoginLink] = func(p *mocks.FakePage) { p.SetBody(loginModalHTML) }
	page.OnClick[LoginSubmit] = func(p *mocks.FakePage) { p.SetBody(welcomeHTML) }
	return page
}

func TestSite_Login(t *testing.T) {
	page := loginPage()
	cfg := testConfig()
	site := NewSite(page, cfg, nil)

	require.NoError(t, site.Login(context.Background(), cfg.Credentials))

	assert.Equal(t, []mocks.TypeCall{
		{Selector: UsernameField, Text: "alice@example.com"},
		{Selector: PasswordField, Text: "hunter2"},
	}, page.Typed)
	assert.Equal(t, []string{LoginLink, LoginSubmit}, page.Clicks)
	assert.Equal(t, 1, page.Settles)

	loggedIn, err := site.LoggedIn(context.Background())
	require.NoError(t, err)
	assert.True(t, loggedIn)
}

func TestSite_LoginFailures(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		page := loginPage()
		err := NewSite(page, testConfig(), nil).Login(context.Background(), config.CredentialsConfig{Email: "a@b.c"})
		assert.ErrorIs(t, err, config.ErrMissingCredentials)
		assert.Empty(t, page.Clicks)
	})

	t.Run("wrong welcome name", func(t *testing.T) {
		page := loginPage()
		creds := testConfig().Credentials
		creds.Username = "bob"
		err := NewSite(page, testConfig(), nil).Login(context.Background(), creds)
		assert.ErrorIs(t, err, ErrLoginFailed)
	})

	t.Run("form never appears", func(t *testing.T) {
		page := mocks.NewFakePage(homeURL, homeHTML)
		err := NewSite(page, testConfig(), nil).Login(context.Background(), testConfig().Credentials)
		assert.ErrorIs(t, err, mocks.ErrNotVisible)
		assert.ErrorContains(t, err, "wait for login form")
	})
}

func TestSite_OpenSubreddit(t *testing.T) {
	t.Run("search", func(t *testing.T) {
		listing := loadFixture(t, "listing.html")
		page := mocks.NewFakePage(homeURL, welcomeHTML)
		page.OnClick[SearchSubmit] = func(p *mocks.FakePage) { p.SetBody(resultsHTML) }
		page.OnClick[FirstSubredditResult] = func(p *mocks.FakePage) {
			p.SetBody(listing)
			p.SetURL("https://old.reddit.com/r/gaming/")
		}
		site := NewSite(page, testConfig(), nil)

		require.NoError(t, site.OpenSubreddit(context.Background()))
		assert.Equal(t, []mocks.TypeCall{{Selector: SearchInput, Text: "gaming"}}, page.Typed)
		assert.Equal(t, []string{SearchSubmit, FirstSubredditResult}, page.Clicks)

		current, ok, err := site.VerifyLocation(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "https://old.reddit.com/r/gaming/", current)
	})

	t.Run("direct", func(t *testing.T) {
		cfg := testConfig()
		cfg.Target.Navigation = config.NavigateDirect
		cfg.Target.Subreddit = "nintendo"
		page := mocks.NewFakePage(homeURL, homeHTML)
		page.Routes["https://old.reddit.com/r/nintendo/"] = loadFixture(t, "listing.html")

		require.NoError(t, NewSite(page, cfg, nil).OpenSubreddit(context.Background()))
		assert.Equal(t, []string{"https://old.reddit.com/r/nintendo/"}, page.Navigations)
		assert.Empty(t, page.Clicks)
	})

	t.Run("no results", func(t *testing.T) {
		page := mocks.NewFakePage(homeURL, welcomeHTML)
		err := NewSite(page, testConfig(), nil).OpenSubreddit(context.Background())
		assert.ErrorContains(t, err, "find first subreddit result")
	})
}

func TestSite_VerifyLocationMismatch(t *testing.T) {
	page := mocks.NewFakePage("https://old.reddit.com/r/gamingcirclejerk/", homeHTML)
	current, ok, err := NewSite(page, testConfig(), nil).VerifyLocation(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "https://old.reddit.com/r/gamingcirclejerk/", current)
}

func TestSite_Logout(t *testing.T) {
	page := mocks.NewFakePage(homeURL, welcomeHTML)
	page.OnClick[LogoutLink] = func(p *mocks.FakePage) { p.SetBody(loggedOutHTML) }

	require.NoError(t, NewSite(page, testConfig(), nil).Logout(context.Background()))
	assert.Equal(t, []string{LogoutLink}, page.Clicks)

	t.Run("login link never returns", func(t *testing.T) {
		page := mocks.NewFakePage(homeURL, welcomeHTML)
		err := NewSite(page, testConfig(), nil).Logout(context.Background())
		assert.ErrorContains(t, err, "login link did not reappear")
	})
}

func TestSite_PacerGatesClicks(t *testing.T) {
	cfg := testConfig()
	cfg.Pacing.ActionsPerSecond = 0.01
	cfg.Pacing.Burst = 1
	page := mocks.NewFakePage(homeURL, loadFixture(t, "listing.html"))
	site := NewSite(page, cfg, nil)

	require.NoError(t, site.Activate(context.Background(), "t3_first", vote.AssertPositive))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := site.Activate(ctx, "t3_second", vote.AssertPositive)
	assert.Error(t, err, "a second click inside the pacing window must wait past the deadline")
	assert.Equal(t, 1, len(page.Clicks))
}
