// File: cmd/root_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/redvote/internal/config"
)

// isolateEnv clears every variable the config layer reads so the host
// environment cannot leak into a test. Originals are restored on cleanup.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"EMAIL", "USERNAME", "PASSWORD", "DATABASE_URL",
		"REDVOTE_CREDENTIALS_EMAIL", "REDVOTE_CREDENTIALS_USERNAME", "REDVOTE_CREDENTIALS_PASSWORD",
		"REDVOTE_SELECTION_TARGET_INDEX", "REDVOTE_TARGET_SUBREDDIT", "REDVOTE_HISTORY_SQLITE_PATH",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("REDVOTE_HISTORY_DRIVER", config.HistoryNone)
	t.Setenv("REDVOTE_ARTIFACTS_ENABLED", "false")
}

func executeCommand(t *testing.T, root *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// captureConfig swaps the RunE of the named subcommand for one that records
// the loaded config.
func captureConfig(t *testing.T, root *cobra.Command, name string) **config.Config {
	t.Helper()
	var got *config.Config
	for _, c := range root.Commands() {
		if c.Name() == name {
			c.RunE = func(c *cobra.Command, _ []string) error {
				cfg, err := configFromContext(c.Context())
				got = cfg
				return err
			}
			return &got
		}
	}
	t.Fatalf("no %q subcommand", name)
	return nil
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := executeCommand(t, NewRootCommand(), "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestVersionCmd(t *testing.T) {
	out, err := executeCommand(t, NewRootCommand(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "redvote "+Version)
}

func TestRootCmd_NoArgsPrintsHelp(t *testing.T) {
	out, err := executeCommand(t, NewRootCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "old.reddit.com")
	assert.Contains(t, out, "vote")
	assert.Contains(t, out, "history")
}

func TestVoteCmd_FlagOverrides(t *testing.T) {
	isolateEnv(t)
	root := NewRootCommand()
	got := captureConfig(t, root, "vote")

	_, err := executeCommand(t, root, "vote", "-n", "3", "-k", "switch", "-k", "zelda", "--subreddit", "nintendo", "--headless")
	require.NoError(t, err)

	cfg := *got
	require.NotNil(t, cfg)
	assert.Equal(t, 3, cfg.Selection.TargetIndex)
	assert.Equal(t, []string{"switch", "zelda"}, cfg.Selection.Keywords)
	assert.Equal(t, "nintendo", cfg.Target.Subreddit)
	assert.True(t, cfg.Browser.Headless)
}

func TestVoteCmd_Precedence(t *testing.T) {
	isolateEnv(t)
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("target:\n  subreddit: retrogaming\nselection:\n  target_index: 4\n"), 0o600))

	t.Run("file beats defaults", func(t *testing.T) {
		root := NewRootCommand()
		got := captureConfig(t, root, "vote")
		_, err := executeCommand(t, root, "vote", "-c", cfgFile)
		require.NoError(t, err)
		assert.Equal(t, "retrogaming", (*got).Target.Subreddit)
		assert.Equal(t, 4, (*got).Selection.TargetIndex)
		assert.Equal(t, []string{"nintendo"}, (*got).Selection.Keywords, "unset flag keeps the default")
	})

	t.Run("env beats file", func(t *testing.T) {
		t.Setenv("REDVOTE_SELECTION_TARGET_INDEX", "5")
		root := NewRootCommand()
		got := captureConfig(t, root, "vote")
		_, err := executeCommand(t, root, "vote", "-c", cfgFile)
		require.NoError(t, err)
		assert.Equal(t, 5, (*got).Selection.TargetIndex)
	})

	t.Run("flag beats env", func(t *testing.T) {
		t.Setenv("REDVOTE_SELECTION_TARGET_INDEX", "5")
		root := NewRootCommand()
		got := captureConfig(t, root, "vote")
		_, err := executeCommand(t, root, "vote", "-c", cfgFile, "--index", "7")
		require.NoError(t, err)
		assert.Equal(t, 7, (*got).Selection.TargetIndex)
	})
}

func TestRootCmd_EnvFile(t *testing.T) {
	isolateEnv(t)
	envFile := filepath.Join(t.TempDir(), "creds.env")
	require.NoError(t, os.WriteFile(envFile, []byte("EMAIL=alice@example.com\nUSERNAME=alice\nPASSWORD=hunter2\n"), 0o600))

	root := NewRootCommand()
	got := captureConfig(t, root, "vote")
	_, err := executeCommand(t, root, "vote", "--env-file", envFile)
	require.NoError(t, err)

	assert.Equal(t, config.CredentialsConfig{Email: "alice@example.com", Username: "alice", Password: "hunter2"}, (*got).Credentials)
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	isolateEnv(t)
	_, err := executeCommand(t, NewRootCommand(), "vote", "-n", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load or validate config")
}

func TestRootCmd_BadConfigFile(t *testing.T) {
	isolateEnv(t)
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("target: [unclosed"), 0o600))

	_, err := executeCommand(t, NewRootCommand(), "vote", "-c", cfgFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestVoteCmd_RequiresCredentials(t *testing.T) {
	isolateEnv(t)
	_, err := executeCommand(t, NewRootCommand(), "vote")
	assert.ErrorIs(t, err, config.ErrMissingCredentials)
}

func TestConfigFromContext_Missing(t *testing.T) {
	_, err := configFromContext(context.Background())
	assert.Error(t, err)
}
