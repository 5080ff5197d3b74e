package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Limits for user-configurable intervals, in seconds.
const (
	MinUpdateIntervalSec      = 60
	MaxUpdateIntervalSec      = 3600
	MinConversationTimeoutSec = 30
	MaxConversationTimeoutSec = 600

	DefaultUpdateIntervalSec      = 300
	DefaultConversationTimeoutSec = 300
)

// DefaultProjectName is used when a task is created without naming a project.
const DefaultProjectName = "Inbox"

// TodoistConfig holds settings for the Todoist connection.
type TodoistConfig struct {
	// BaseURL overrides the API root, mainly for tests.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// UpdateIntervalSec is how often (in seconds) projects and tasks
	// are re-fetched.
	UpdateIntervalSec int `mapstructure:"update_interval_sec" yaml:"update_interval_sec"`
}

// ConversationConfig holds settings for the dialogue engine.
type ConversationConfig struct {
	// TimeoutSec is how long an idle conversation stays alive.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// DefaultProject receives tasks when no project is specified.
	DefaultProject string `mapstructure:"default_project" yaml:"default_project"`

	// Labels are attached to every created task.
	Labels []string `mapstructure:"labels" yaml:"labels"`
}

// StateConfig holds settings for the helper-state database.
type StateConfig struct {
	// DBPath is the SQLite file backing the helper-state cells.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Todoist      TodoistConfig      `mapstructure:"todoist" yaml:"todoist"`
	Conversation ConversationConfig `mapstructure:"conversation" yaml:"conversation"`
	State        StateConfig        `mapstructure:"state" yaml:"state"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/voicetask/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "voicetask", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	home, _ := os.UserHomeDir()
	return &AppConfig{
		Todoist: TodoistConfig{
			UpdateIntervalSec: DefaultUpdateIntervalSec,
		},
		Conversation: ConversationConfig{
			TimeoutSec:     DefaultConversationTimeoutSec,
			DefaultProject: DefaultProjectName,
			Labels:         append([]string(nil), DefaultLabels...),
		},
		State: StateConfig{
			DBPath: filepath.Join(home, ".config", "voicetask", "state.db"),
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	defaults := defaultAppConfig()
	v.SetDefault("todoist.update_interval_sec", defaults.Todoist.UpdateIntervalSec)
	v.SetDefault("conversation.timeout_sec", defaults.Conversation.TimeoutSec)
	v.SetDefault("conversation.default_project", defaults.Conversation.DefaultProject)
	v.SetDefault("conversation.labels", defaults.Conversation.Labels)
	v.SetDefault("state.db_path", defaults.State.DBPath)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaults, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Todoist.UpdateIntervalSec = clampInt(
		cfg.Todoist.UpdateIntervalSec,
		MinUpdateIntervalSec, MaxUpdateIntervalSec,
	)
	cfg.Conversation.TimeoutSec = clampInt(
		cfg.Conversation.TimeoutSec,
		MinConversationTimeoutSec, MaxConversationTimeoutSec,
	)

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("todoist", cfg.Todoist)
	v.Set("conversation", cfg.Conversation)
	v.Set("state", cfg.State)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
