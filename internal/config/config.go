package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the meta engine configuration.
// It is loaded once at process start and passed explicitly to components;
// nothing reads paths from package-level state.
type Config struct {
	Data    DataConfig    `mapstructure:"data"`
	History HistoryConfig `mapstructure:"history"`
	Tests   TestsConfig   `mapstructure:"tests"`
	Runner  RunnerConfig  `mapstructure:"runner"`
	Agent   AgentConfig   `mapstructure:"agent"`

	// RootDir is the project root that ticket safe paths are resolved
	// against. Set from the working directory at load time.
	RootDir string `mapstructure:"-"`
}

// DataConfig contains data directory settings
type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

// HistoryConfig contains history log rotation settings
type HistoryConfig struct {
	MaxRecords    int `mapstructure:"max_records"`
	RetentionDays int `mapstructure:"retention_days"`
}

// TestsConfig contains test oracle settings
type TestsConfig struct {
	Command     []string `mapstructure:"command"`
	TimeoutSecs int      `mapstructure:"timeout_secs"`
}

// RunnerConfig contains mutation runner settings
type RunnerConfig struct {
	DefaultRetries   int      `mapstructure:"default_retries"`
	DedupWindowHours int      `mapstructure:"dedup_window_hours"`
	SafeSelfPaths    []string `mapstructure:"safe_self_paths"`
}

// AgentConfig contains planner/executor subprocess settings
type AgentConfig struct {
	Binary string `mapstructure:"binary"`
}

// Load reads the config from <rootDir>/.meta/config.yaml, falling back to
// defaults when the file is absent. META_DATA_ROOT overrides the data
// directory regardless of what the file says.
func Load(rootDir string) (*Config, error) {
	configPath := filepath.Join(rootDir, ".meta", "config.yaml")

	cfg := DefaultConfig(rootDir)

	if _, err := os.Stat(configPath); err == nil {
		v := viper.New()
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		cfg.RootDir = rootDir
		applyDefaults(cfg, rootDir)
	}

	if env := os.Getenv("META_DATA_ROOT"); env != "" {
		cfg.Data.Dir = env
	}

	return cfg, nil
}

// DefaultConfig returns a config with default values
func DefaultConfig(rootDir string) *Config {
	return &Config{
		Data: DataConfig{
			Dir: filepath.Join(rootDir, "data"),
		},
		History: HistoryConfig{
			MaxRecords:    1000,
			RetentionDays: 30,
		},
		Tests: TestsConfig{
			Command:     []string{"go", "test", "./..."},
			TimeoutSecs: 300,
		},
		Runner: RunnerConfig{
			DefaultRetries:   2,
			DedupWindowHours: 24,
			SafeSelfPaths: []string{
				"prompts/",
				"rules/",
				".meta/config.yaml",
			},
		},
		Agent: AgentConfig{
			Binary: "gfagent",
		},
		RootDir: rootDir,
	}
}

func applyDefaults(cfg *Config, rootDir string) {
	defaults := DefaultConfig(rootDir)

	if cfg.Data.Dir == "" {
		cfg.Data.Dir = defaults.Data.Dir
	}
	if cfg.History.MaxRecords == 0 {
		cfg.History.MaxRecords = defaults.History.MaxRecords
	}
	if cfg.History.RetentionDays == 0 {
		cfg.History.RetentionDays = defaults.History.RetentionDays
	}
	if len(cfg.Tests.Command) == 0 {
		cfg.Tests.Command = defaults.Tests.Command
	}
	if cfg.Tests.TimeoutSecs == 0 {
		cfg.Tests.TimeoutSecs = defaults.Tests.TimeoutSecs
	}
	if cfg.Runner.DefaultRetries == 0 {
		cfg.Runner.DefaultRetries = defaults.Runner.DefaultRetries
	}
	if cfg.Runner.DedupWindowHours == 0 {
		cfg.Runner.DedupWindowHours = defaults.Runner.DedupWindowHours
	}
	if len(cfg.Runner.SafeSelfPaths) == 0 {
		cfg.Runner.SafeSelfPaths = defaults.Runner.SafeSelfPaths
	}
	if cfg.Agent.Binary == "" {
		cfg.Agent.Binary = defaults.Agent.Binary
	}
}

// MetaDir returns the directory holding engine state (history, tickets).
func (c *Config) MetaDir() string {
	return filepath.Join(c.Data.Dir, "meta")
}

// HistoryFile returns the path of the active history log.
func (c *Config) HistoryFile() string {
	return filepath.Join(c.MetaDir(), "history.jsonl")
}

// TicketsDir returns the ticket file store directory.
func (c *Config) TicketsDir() string {
	return filepath.Join(c.MetaDir(), "tickets")
}

// TicketHistoryFile returns the path of the ticket fingerprint ledger.
func (c *Config) TicketHistoryFile() string {
	return filepath.Join(c.MetaDir(), "tickets_history.jsonl")
}

// QueueDir returns the durable work queue directory.
func (c *Config) QueueDir() string {
	return filepath.Join(c.Data.Dir, "queue")
}
