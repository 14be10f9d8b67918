package cmd

import (
	"os"
	"path/filepath"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/redvote/internal/vote"
)

var listingFixture = filepath.Join("testdata", "listing.html")

func TestPickCmd_SavedListingJSON(t *testing.T) {
	isolateEnv(t)
	out := filepath.Join(t.TempDir(), "pick.json")

	_, err := executeCommand(t, NewRootCommand(), "pick", "--html", listingFixture, "-f", "json", "-o", out)
	require.NoError(t, err)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, jsoniter.Get(b, "dry_run").ToBool())
	assert.Equal(t, "t3_second", jsoniter.Get(b, "decision", "candidate", "stable_id").ToString())
	assert.Equal(t, "ASSERT_POSITIVE", jsoniter.Get(b, "decision", "action").ToString())
	assert.Equal(t, "nintendo", jsoniter.Get(b, "decision", "keyword").ToString())
	assert.Equal(t, "https://old.reddit.com/r/gaming/comments/second/switch_sales/", jsoniter.Get(b, "permalink_url").ToString())
	assert.Nil(t, jsoniter.Get(b, "decision", "outcome").GetInterface(), "pick never reconciles")
}

func TestPickCmd_FlagsChangeSelection(t *testing.T) {
	isolateEnv(t)
	stdout, err := executeCommand(t, NewRootCommand(), "pick", "--html", listingFixture, "-n", "1", "-k", "elden")
	require.NoError(t, err)
	assert.Contains(t, stdout, `candidate #1 "Patch notes for Elden Ring 1.12" -> ASSERT_POSITIVE`)
}

func TestPickCmd_NotEnoughEligiblePosts(t *testing.T) {
	isolateEnv(t)
	stdout, err := executeCommand(t, NewRootCommand(), "pick", "--html", listingFixture, "-n", "9")
	require.ErrorIs(t, err, vote.ErrCandidateNotFound)
	assert.Contains(t, stdout, "error: ")
}

func TestPickCmd_MissingFile(t *testing.T) {
	isolateEnv(t)
	_, err := executeCommand(t, NewRootCommand(), "pick", "--html", filepath.Join(t.TempDir(), "nope.html"))
	assert.ErrorContains(t, err, "failed to read listing")
}
