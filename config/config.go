// Package config resolves the agent's configuration from a JSON file, a
// local .env file, and environment variable overrides, in that order of
// increasing precedence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the resolved agent configuration. A missing API key is not an
// error anywhere in the pipeline: the provider factory degrades to its
// placeholder adapter.
type Config struct {
	// Vendor selects the LLM backend: anthropic, openai, or gemini.
	Vendor string `json:"vendor"`

	// Model overrides the vendor's default model.
	Model string `json:"model,omitempty"`

	// APIKeys maps vendor name to credential.
	APIKeys map[string]string `json:"api_keys,omitempty"`

	// MarketplaceURL is the task marketplace root.
	MarketplaceURL string `json:"marketplace_url,omitempty"`

	// MarketplaceToken authenticates the agent to the marketplace.
	MarketplaceToken string `json:"marketplace_token,omitempty"`

	// SkillsDir holds skill markdown files.
	SkillsDir string `json:"skills_dir,omitempty"`

	// WorkspaceDir confines tool side effects.
	WorkspaceDir string `json:"workspace_dir,omitempty"`

	// Identity is optional persona text prepended to skill blocks.
	Identity string `json:"identity,omitempty"`

	// MaxTurns bounds each agent loop. 0 means the loop default.
	MaxTurns int `json:"max_turns,omitempty"`

	// PollIntervalSeconds is the worker's marketplace polling cadence.
	PollIntervalSeconds int `json:"poll_interval_seconds,omitempty"`
}

// APIKey returns the credential for a vendor, or "" when none is set.
func (c Config) APIKey(vendor string) string {
	return c.APIKeys[vendor]
}

// DefaultPath returns the default config file location,
// ~/.fieldagent/config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: %w", err)
	}
	return filepath.Join(home, ".fieldagent", "config.json"), nil
}

// Load reads the config file at path (or the default path when empty),
// loads a .env file from the working directory if present, and applies
// environment overrides. A missing config file yields the zero config plus
// overrides, not an error.
func Load(path string) (Config, error) {
	var cfg Config

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run: everything comes from the environment.
	case err != nil:
		return cfg, fmt.Errorf("config: %w", err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	// .env values become process env vars without clobbering existing ones.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	if cfg.Vendor == "" {
		cfg.Vendor = "anthropic"
	}
	return cfg, nil
}

// Save writes the config file, creating its directory.
func Save(path string, cfg Config) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	// 0600: the file holds credentials.
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&cfg.Vendor, "FIELDAGENT_VENDOR")
	setString(&cfg.Model, "FIELDAGENT_MODEL")
	setString(&cfg.MarketplaceURL, "FIELDAGENT_MARKETPLACE_URL")
	setString(&cfg.MarketplaceToken, "FIELDAGENT_MARKETPLACE_TOKEN")
	setString(&cfg.SkillsDir, "FIELDAGENT_SKILLS_DIR")
	setString(&cfg.WorkspaceDir, "FIELDAGENT_WORKSPACE_DIR")
	setString(&cfg.Identity, "FIELDAGENT_IDENTITY")

	if v := os.Getenv("FIELDAGENT_MAX_TURNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxTurns = n
		}
	}
	if v := os.Getenv("FIELDAGENT_POLL_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PollIntervalSeconds = n
		}
	}

	// Vendor credentials use each vendor's conventional variable.
	keys := map[string]string{
		"anthropic": "ANTHROPIC_API_KEY",
		"openai":    "OPENAI_API_KEY",
		"gemini":    "GEMINI_API_KEY",
	}
	for vendor, envKey := range keys {
		if v := os.Getenv(envKey); v != "" {
			if cfg.APIKeys == nil {
				cfg.APIKeys = make(map[string]string)
			}
			cfg.APIKeys[vendor] = v
		}
	}
}
