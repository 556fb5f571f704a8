// Package config loads the TOML configuration file.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

type RulesConfig struct {
	DeleteOlderThanDays int      `toml:"delete_older_than_days"`
	PriorityKeywords    []string `toml:"priority_keywords"`
	PrioritySenders     []string `toml:"priority_senders"`
}

type AutomationConfig struct {
	MaxTrashPerRun int    `toml:"max_trash_per_run"`
	Schedule       string `toml:"schedule"` // "daily" or "weekly"
}

type DuplicatesConfig struct {
	StrictDates bool `toml:"strict_dates"`
}

type Config struct {
	Rules      RulesConfig      `toml:"rules"`
	Automation AutomationConfig `toml:"automation"`
	Duplicates DuplicatesConfig `toml:"duplicates"`
}

// Load reads the config at path. A missing file is fatal at startup: the
// error carries remediation text.
func Load(path string) (*Config, error) {
	var cfg Config
	cfg.Rules.DeleteOlderThanDays = 90
	cfg.Automation.MaxTrashPerRun = 100
	cfg.Automation.Schedule = "daily"

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config not found at %s\n"+
			"Create it with at least:\n\n"+
			"  [rules]\n"+
			"  delete_older_than_days = 90\n\n"+
			"  [automation]\n"+
			"  max_trash_per_run = 100\n", path)
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Automation.Schedule != "daily" && cfg.Automation.Schedule != "weekly" {
		return nil, fmt.Errorf("config %s: schedule must be \"daily\" or \"weekly\", got %q", path, cfg.Automation.Schedule)
	}
	return &cfg, nil
}
