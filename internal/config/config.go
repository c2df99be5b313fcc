// Package config loads fixdeck configuration from a JSON file or,
// when no file is given, from FIXDECK_* environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the top-level configuration shared by the dashboard
// (fixdeck) and the control-plane daemon (fixdeckd). Each binary
// reads only the sections it needs.
type Config struct {
	Dashboard DashboardConfig `json:"dashboard"`
	Server    ServerConfig    `json:"server"`
	Auth      AuthConfig      `json:"auth"`
	Sim       SimConfig       `json:"sim"`
	Notify    NotifyConfig    `json:"notify"`
}

// DashboardConfig holds settings for the operator TUI.
type DashboardConfig struct {
	APIURL       string `json:"api_url"`
	StateDir     string `json:"state_dir"`               // session token lives here
	PollInterval int    `json:"poll_interval,omitempty"` // seconds, default 5
}

// ServerConfig holds REST API server settings for fixdeckd.
type ServerConfig struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	DataDir string `json:"data_dir"`
}

// AuthConfig holds token signing settings for fixdeckd.
type AuthConfig struct {
	Secret     string `json:"secret"`
	TokenTTL   int    `json:"token_ttl,omitempty"`   // hours, default 24
	BcryptCost int    `json:"bcrypt_cost,omitempty"` // default bcrypt.DefaultCost
}

// SimConfig controls the built-in pipeline simulator.
type SimConfig struct {
	Enabled         bool `json:"enabled"`
	AdvanceInterval int  `json:"advance_interval,omitempty"` // seconds, default 3
	FailurePercent  int  `json:"failure_percent,omitempty"`  // chance a pipeline fails, default 15
	Seed            bool `json:"seed,omitempty"`             // load demo tickets/agents on first start
}

// NotifyConfig holds optional Slack notification settings.
type NotifyConfig struct {
	SlackToken   string `json:"slack_token,omitempty"`
	SlackChannel string `json:"slack_channel,omitempty"`
}

// PollIntervalDuration returns the poll interval as a duration,
// defaulting to 5 seconds.
func (d DashboardConfig) PollIntervalDuration() time.Duration {
	if d.PollInterval <= 0 {
		return 5 * time.Second
	}
	return time.Duration(d.PollInterval) * time.Second
}

// TokenTTLDuration returns the token lifetime, defaulting to 24h.
func (a AuthConfig) TokenTTLDuration() time.Duration {
	if a.TokenTTL <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(a.TokenTTL) * time.Hour
}

// Load reads configuration from a JSON file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds a config from FIXDECK_* environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Dashboard: DashboardConfig{
			APIURL:       getenv("FIXDECK_API_URL", "http://localhost:8080"),
			StateDir:     getenv("FIXDECK_STATE_DIR", defaultStateDir()),
			PollInterval: getenvInt("FIXDECK_POLL_INTERVAL", 5),
		},
		Server: ServerConfig{
			Host:    getenv("FIXDECK_API_HOST", "0.0.0.0"),
			Port:    getenvInt("FIXDECK_API_PORT", 8080),
			DataDir: getenv("FIXDECK_DATA_DIR", "/data"),
		},
		Auth: AuthConfig{
			Secret:   os.Getenv("FIXDECK_AUTH_SECRET"),
			TokenTTL: getenvInt("FIXDECK_TOKEN_TTL", 24),
		},
		Sim: SimConfig{
			Enabled:         getenvBool("FIXDECK_SIM", true),
			AdvanceInterval: getenvInt("FIXDECK_SIM_INTERVAL", 3),
			FailurePercent:  getenvInt("FIXDECK_SIM_FAILURE_PERCENT", 15),
			Seed:            getenvBool("FIXDECK_SIM_SEED", true),
		},
		Notify: NotifyConfig{
			SlackToken:   os.Getenv("FIXDECK_SLACK_TOKEN"),
			SlackChannel: os.Getenv("FIXDECK_SLACK_CHANNEL"),
		},
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Dashboard.APIURL == "" {
		cfg.Dashboard.APIURL = "http://localhost:8080"
	}
	if cfg.Dashboard.StateDir == "" {
		cfg.Dashboard.StateDir = defaultStateDir()
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Sim.AdvanceInterval <= 0 {
		cfg.Sim.AdvanceInterval = 3
	}
	if cfg.Sim.FailurePercent < 0 || cfg.Sim.FailurePercent > 100 {
		cfg.Sim.FailurePercent = 15
	}
}

// Validate checks for required and inconsistent fields.
func (c *Config) Validate() error {
	var errs []string

	if c.Dashboard.APIURL != "" && !strings.HasPrefix(c.Dashboard.APIURL, "http://") &&
		!strings.HasPrefix(c.Dashboard.APIURL, "https://") {
		errs = append(errs, "dashboard.api_url must be an http(s) URL")
	}
	if c.Server.DataDir == "" {
		errs = append(errs, "server.data_dir is required")
	}
	if c.Notify.SlackToken != "" && c.Notify.SlackChannel == "" {
		errs = append(errs, "notify.slack_channel is required when notify.slack_token is set")
	}
	if c.Notify.SlackChannel != "" && c.Notify.SlackToken == "" {
		errs = append(errs, "notify.slack_token is required when notify.slack_channel is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// defaultStateDir follows XDG conventions with a dotdir fallback.
func defaultStateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return xdg + "/fixdeck"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fixdeck"
	}
	return home + "/.local/state/fixdeck"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
