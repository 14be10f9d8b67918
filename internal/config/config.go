// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	Browser     BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	Network     NetworkConfig     `mapstructure:"network" yaml:"network"`
	Target      TargetConfig      `mapstructure:"target" yaml:"target"`
	Selection   SelectionConfig   `mapstructure:"selection" yaml:"selection"`
	Credentials CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`
	Artifacts   ArtifactsConfig   `mapstructure:"artifacts" yaml:"artifacts"`
	Pacing      PacingConfig      `mapstructure:"pacing" yaml:"pacing"`
	History     HistoryConfig     `mapstructure:"history" yaml:"history"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the Chromium instance.
type BrowserConfig struct {
	Headless       bool           `mapstructure:"headless" yaml:"headless"`
	Incognito      bool           `mapstructure:"incognito" yaml:"incognito"`
	StartMaximized bool           `mapstructure:"start_maximized" yaml:"start_maximized"`
	ExecPath       string         `mapstructure:"exec_path" yaml:"exec_path"`
	Args           []string       `mapstructure:"args" yaml:"args"`
	Viewport       map[string]int `mapstructure:"viewport" yaml:"viewport"`
	Humanoid       HumanoidConfig `mapstructure:"humanoid" yaml:"humanoid"`
	Stealth        StealthConfig  `mapstructure:"stealth" yaml:"stealth"`
}

// StealthConfig is the browser persona presented to the site. Empty fields
// keep the browser's own values.
type StealthConfig struct {
	Enabled   bool     `mapstructure:"enabled" yaml:"enabled"`
	UserAgent string   `mapstructure:"user_agent" yaml:"user_agent"`
	Platform  string   `mapstructure:"platform" yaml:"platform"`
	Languages []string `mapstructure:"languages" yaml:"languages"`
	Timezone  string   `mapstructure:"timezone" yaml:"timezone"`
	Locale    string   `mapstructure:"locale" yaml:"locale"`
}

// NetworkConfig tunes waits and timeouts for page operations.
type NetworkConfig struct {
	NavigationTimeout time.Duration     `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ElementTimeout    time.Duration     `mapstructure:"element_timeout" yaml:"element_timeout"`
	CookieTimeout     time.Duration     `mapstructure:"cookie_timeout" yaml:"cookie_timeout"`
	PostLoadWait      time.Duration     `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	Headers           map[string]string `mapstructure:"headers" yaml:"headers"`
}

// TargetConfig says where the listing lives and how to reach it.
type TargetConfig struct {
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
	Subreddit string `mapstructure:"subreddit" yaml:"subreddit"`
	// Navigation is "search" (type the name into the search box) or "direct".
	Navigation string `mapstructure:"navigation" yaml:"navigation"`
}

// SelectionConfig drives the candidate pipeline.
type SelectionConfig struct {
	// TargetIndex is which eligible item to act on, 1-based.
	TargetIndex int `mapstructure:"target_index" yaml:"target_index"`
	// Keywords trigger the positive action when found in the title.
	Keywords []string `mapstructure:"keywords" yaml:"keywords"`
}

// CredentialsConfig holds the account used to log in.
type CredentialsConfig struct {
	Email    string `mapstructure:"email" yaml:"email"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"-"`
}

// ArtifactsConfig controls step screenshots and diagnostic snippets.
type ArtifactsConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	ScreenshotDir string `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
	SnippetLength int    `mapstructure:"snippet_length" yaml:"snippet_length"`
}

// PacingConfig bounds how fast mutating page actions are issued.
type PacingConfig struct {
	ActionsPerSecond float64 `mapstructure:"actions_per_second" yaml:"actions_per_second"`
	Burst            int     `mapstructure:"burst" yaml:"burst"`
}

// HistoryConfig selects where run records are kept.
type HistoryConfig struct {
	Driver      string `mapstructure:"driver" yaml:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	PostgresURL string `mapstructure:"postgres_url" yaml:"-"`
	RecentLimit int    `mapstructure:"recent_limit" yaml:"recent_limit"`
}

// History drivers.
const (
	HistoryNone     = "none"
	HistorySQLite   = "sqlite"
	HistoryPostgres = "postgres"
)

// Navigation modes.
const (
	NavigateSearch = "search"
	NavigateDirect = "direct"
)

// ErrMissingCredentials is returned when a login is required but the account is incomplete.
var ErrMissingCredentials = errors.New("missing credentials")

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "redvote")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.incognito", true)
	v.SetDefault("browser.start_maximized", true)
	v.SetDefault("browser.viewport.width", 1920)
	v.SetDefault("browser.viewport.height", 1080)
	setHumanoidDefaults(v)
	v.SetDefault("browser.stealth.enabled", false)
	v.SetDefault("browser.stealth.languages", []string{"en-US", "en"})
	v.SetDefault("browser.stealth.locale", "en-US")

	// -- Network --
	v.SetDefault("network.navigation_timeout", "60s")
	v.SetDefault("network.element_timeout", "30s")
	v.SetDefault("network.cookie_timeout", "5s")
	v.SetDefault("network.post_load_wait", "2s")

	// -- Target --
	v.SetDefault("target.base_url", "https://old.reddit.com")
	v.SetDefault("target.subreddit", "gaming")
	v.SetDefault("target.navigation", NavigateSearch)

	// -- Selection --
	v.SetDefault("selection.target_index", 2)
	v.SetDefault("selection.keywords", []string{"nintendo"})

	// -- Artifacts --
	v.SetDefault("artifacts.enabled", true)
	v.SetDefault("artifacts.screenshot_dir", "./screenshots")
	v.SetDefault("artifacts.snippet_length", 500)

	// -- Pacing --
	v.SetDefault("pacing.actions_per_second", 2.0)
	v.SetDefault("pacing.burst", 1)

	// -- History --
	v.SetDefault("history.driver", HistorySQLite)
	v.SetDefault("history.sqlite_path", "~/.redvote/history.db")
	v.SetDefault("history.recent_limit", 20)
}

// BindEnv maps the bare variable names used by .env files onto config keys.
// REDVOTE_-prefixed variables still win through AutomaticEnv.
func BindEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"credentials.email":    {"REDVOTE_CREDENTIALS_EMAIL", "EMAIL"},
		"credentials.username": {"REDVOTE_CREDENTIALS_USERNAME", "USERNAME"},
		"credentials.password": {"REDVOTE_CREDENTIALS_PASSWORD", "PASSWORD"},
		"history.postgres_url": {"REDVOTE_HISTORY_POSTGRES_URL", "DATABASE_URL"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}

// LoadEnvFile loads a dotenv file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("could not resolve env file path '%s': %w", path, err)
	}
	if _, err := os.Stat(expanded); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(expanded); err != nil {
		return fmt.Errorf("failed to load env file '%s': %w", expanded, err)
	}
	return nil
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	if err := BindEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Logger.LogFile, &c.Artifacts.ScreenshotDir, &c.History.SQLitePath} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("could not expand path '%s': %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Selection.TargetIndex < 1 {
		return fmt.Errorf("selection.target_index must be a positive integer")
	}
	if err := c.Target.Validate(); err != nil {
		return fmt.Errorf("target configuration invalid: %w", err)
	}
	if c.Network.NavigationTimeout <= 0 {
		return fmt.Errorf("network.navigation_timeout must be a positive duration")
	}
	if c.Network.ElementTimeout <= 0 {
		return fmt.Errorf("network.element_timeout must be a positive duration")
	}
	if c.Pacing.ActionsPerSecond < 0 {
		return fmt.Errorf("pacing.actions_per_second must not be negative")
	}
	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history configuration invalid: %w", err)
	}
	if err := c.Browser.Humanoid.Validate(); err != nil {
		return fmt.Errorf("browser.humanoid configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the target settings.
func (t *TargetConfig) Validate() error {
	u, err := url.Parse(t.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute URL, got %q", t.BaseURL)
	}
	if strings.TrimSpace(t.Subreddit) == "" {
		return fmt.Errorf("subreddit is required")
	}
	switch t.Navigation {
	case NavigateSearch, NavigateDirect:
	default:
		return fmt.Errorf("navigation must be %q or %q, got %q", NavigateSearch, NavigateDirect, t.Navigation)
	}
	return nil
}

// Validate checks the history backend settings.
func (h *HistoryConfig) Validate() error {
	switch h.Driver {
	case "", HistoryNone:
		return nil
	case HistorySQLite:
		if h.SQLitePath == "" {
			return fmt.Errorf("sqlite_path is required for the sqlite driver")
		}
	case HistoryPostgres:
		if h.PostgresURL == "" {
			return fmt.Errorf("postgres_url is required for the postgres driver (REDVOTE_HISTORY_POSTGRES_URL)")
		}
	default:
		return fmt.Errorf("unknown driver %q", h.Driver)
	}
	return nil
}

// Validate checks that a login can be attempted. Only commands that log in call it.
func (c *CredentialsConfig) Validate() error {
	var missing []string
	if c.Email == "" {
		missing = append(missing, "EMAIL")
	}
	if c.Password == "" {
		missing = append(missing, "PASSWORD")
	}
	if c.Username == "" {
		missing = append(missing, "USERNAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s not set (check that the .env file exists and defines them)", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}
