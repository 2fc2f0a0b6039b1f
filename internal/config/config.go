// Package config defines the clawbot configuration schema, loaded from a
// single YAML file (default ~/.clawbot/config.yaml).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// AgentConfig tunes the orchestration core.
type AgentConfig struct {
	Workspace string `yaml:"workspace"`
	// Persona is the system prompt; empty selects the built-in default.
	Persona string `yaml:"persona"`
	// MaxTurns is the maximum number of model consultations per inbound
	// message. Tools are withheld on the final permitted turn.
	MaxTurns int `yaml:"maxTurns" validate:"min=1,max=10"`
	// HistoryLimit caps stored messages per chat; older entries are dropped
	// from the front.
	HistoryLimit int `yaml:"historyLimit" validate:"min=2"`
	// HistoryTTLDays is the sliding inactivity window after which a chat's
	// history expires.
	HistoryTTLDays int `yaml:"historyTtlDays" validate:"min=1"`
}

// ModelConfig holds the completion backend settings.
type ModelConfig struct {
	APIKey         string  `yaml:"apiKey"`
	APIBase        string  `yaml:"apiBase"`
	Model          string  `yaml:"model" validate:"required"`
	MaxTokens      int     `yaml:"maxTokens" validate:"min=1"`
	Temperature    float64 `yaml:"temperature" validate:"min=0,max=2"`
	TimeoutSeconds int     `yaml:"timeoutSeconds" validate:"min=1"`
}

// TelegramConfig configures the Telegram channel.
type TelegramConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Token     string   `yaml:"token"`
	AllowFrom []string `yaml:"allowFrom"`
}

// SlackConfig configures the optional Slack channel (socket mode).
type SlackConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"botToken"`
	AppToken string `yaml:"appToken"`
}

// GitHubConfig holds credentials for the github skill.
type GitHubConfig struct {
	Token string `yaml:"token"`
	Owner string `yaml:"owner"`
}

// WebSearchConfig configures the Brave web-search tool.
type WebSearchConfig struct {
	APIKey     string `yaml:"apiKey"`
	MaxResults int    `yaml:"maxResults" validate:"min=1,max=10"`
}

// JobsConfig configures the remote-job search tool.
type JobsConfig struct {
	APIBase string `yaml:"apiBase"`
}

// SkillsConfig groups per-skill settings.
type SkillsConfig struct {
	GitHub GitHubConfig    `yaml:"github"`
	Search WebSearchConfig `yaml:"search"`
	Jobs   JobsConfig      `yaml:"jobs"`
	// RestrictToWorkspace confines the files skill to the workspace directory.
	RestrictToWorkspace bool `yaml:"restrictToWorkspace"`
}

// Config is the root configuration object.
type Config struct {
	Agent    AgentConfig    `yaml:"agent"`
	Model    ModelConfig    `yaml:"model"`
	Telegram TelegramConfig `yaml:"telegram"`
	Slack    SlackConfig    `yaml:"slack"`
	Skills   SkillsConfig   `yaml:"skills"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Agent: AgentConfig{
			Workspace:      "~/.clawbot/workspace",
			MaxTurns:       3,
			HistoryLimit:   10,
			HistoryTTLDays: 7,
		},
		Model: ModelConfig{
			APIBase:        "https://api.openai.com/v1",
			Model:          "gpt-4o",
			MaxTokens:      4096,
			Temperature:    0.7,
			TimeoutSeconds: 120,
		},
		Telegram: TelegramConfig{AllowFrom: []string{}},
		Skills: SkillsConfig{
			Search:              WebSearchConfig{MaxResults: 5},
			Jobs:                JobsConfig{APIBase: "https://remotive.com/api"},
			RestrictToWorkspace: true,
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clawbot/config.yaml"
	}
	return filepath.Join(home, ".clawbot", "config.yaml")
}

// DataDir returns the clawbot data directory.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clawbot"
	}
	return filepath.Join(home, ".clawbot")
}

var validate = validator.New()

// Load reads, parses, and validates the config file at path.
// If path is empty, ConfigPath() is used. A missing file yields defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories as needed.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// WorkspacePath returns the expanded absolute path to the agent workspace.
func (c *Config) WorkspacePath() string {
	ws := c.Agent.Workspace
	if ws == "" {
		ws = "~/.clawbot/workspace"
	}
	if len(ws) >= 2 && ws[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			ws = filepath.Join(home, ws[2:])
		}
	}
	return ws
}
