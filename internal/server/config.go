package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config represents the complete server configuration
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Redis  *RedisSettings `hcl:"redis,block"`
	Tables []TableConfig  `hcl:"table,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// RedisSettings configures the optional Redis-backed ledger. When absent
// the server runs on the in-memory ledger.
type RedisSettings struct {
	Addr string `hcl:"addr"`
	DB   int    `hcl:"db,optional"`
}

// TableConfig defines one blackjack table
type TableConfig struct {
	Name               string `hcl:"name,label"`
	MaxPlayers         int    `hcl:"max_players,optional"`
	Decks              int    `hcl:"decks,optional"`
	MinBet             int    `hcl:"min_bet,optional"`
	MaxBet             int    `hcl:"max_bet,optional"`
	StartingChips      int    `hcl:"starting_chips,optional"`
	TurnTimeoutSeconds int    `hcl:"turn_timeout_seconds,optional"`
	ActionPhaseSeconds int    `hcl:"action_phase_seconds,optional"`
	BettingSeconds     int    `hcl:"betting_seconds,optional"`
}

// TurnTimeout returns the per-player countdown as a duration
func (tc TableConfig) TurnTimeout() time.Duration {
	return time.Duration(tc.TurnTimeoutSeconds) * time.Second
}

// ActionPhase returns the global action-phase limit as a duration
func (tc TableConfig) ActionPhase() time.Duration {
	return time.Duration(tc.ActionPhaseSeconds) * time.Second
}

// BettingWindow returns how long the table collects bets before dealing
func (tc TableConfig) BettingWindow() time.Duration {
	return time.Duration(tc.BettingSeconds) * time.Second
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Tables: []TableConfig{
			{
				Name:               "main",
				MaxPlayers:         5,
				Decks:              4,
				MinBet:             10,
				MaxBet:             1000,
				StartingChips:      1000,
				TurnTimeoutSeconds: 30,
				ActionPhaseSeconds: 180,
				BettingSeconds:     15,
			},
		},
	}
}

// LoadConfig loads server configuration from an HCL file. A missing file
// yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}

	for i := range config.Tables {
		applyTableDefaults(&config.Tables[i])
	}

	return &config, nil
}

func applyTableDefaults(tc *TableConfig) {
	if tc.MaxPlayers == 0 {
		tc.MaxPlayers = 5
	}
	if tc.Decks == 0 {
		tc.Decks = 4
	}
	if tc.MinBet == 0 {
		tc.MinBet = 10
	}
	if tc.MaxBet == 0 {
		tc.MaxBet = tc.MinBet * 100
	}
	if tc.StartingChips == 0 {
		tc.StartingChips = 1000
	}
	if tc.TurnTimeoutSeconds == 0 {
		tc.TurnTimeoutSeconds = 30
	}
	if tc.ActionPhaseSeconds == 0 {
		tc.ActionPhaseSeconds = 180
	}
	if tc.BettingSeconds == 0 {
		tc.BettingSeconds = 15
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one table must be configured")
	}

	seen := make(map[string]bool)
	for _, table := range c.Tables {
		if table.Name == "" {
			return fmt.Errorf("table name cannot be empty")
		}
		if seen[table.Name] {
			return fmt.Errorf("duplicate table name: %s", table.Name)
		}
		seen[table.Name] = true

		if table.MinBet <= 0 {
			return fmt.Errorf("table %s: min_bet must be positive", table.Name)
		}
		if table.MaxBet < table.MinBet {
			return fmt.Errorf("table %s: max_bet must be >= min_bet", table.Name)
		}
		if table.MaxPlayers <= 0 {
			return fmt.Errorf("table %s: max_players must be positive", table.Name)
		}
	}
	return nil
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
