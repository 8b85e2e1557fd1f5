// Package config loads detective configuration from YAML, merging file
// values over built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ModelConfig configures the LLM backend tiers.
type ModelConfig struct {
	// HaikuCost is the estimated USD cost of one haiku analysis.
	HaikuCost float64 `yaml:"haiku_cost"`

	// SonnetCost is the estimated USD cost of one sonnet analysis.
	SonnetCost float64 `yaml:"sonnet_cost"`

	// ClaudePath is the CLI binary used to invoke the models.
	ClaudePath string `yaml:"claude_path"`

	// Timeout is the maximum duration of one model invocation.
	Timeout time.Duration `yaml:"timeout"`
}

// BudgetConfig configures spend limits.
type BudgetConfig struct {
	// DailyLimit is the USD spend ceiling per calendar day.
	DailyLimit float64 `yaml:"daily_limit"`

	// MonthlyLimit is the USD spend ceiling per calendar month.
	MonthlyLimit float64 `yaml:"monthly_limit"`

	// PerOperationLimit caps the cost of any single analysis.
	PerOperationLimit float64 `yaml:"per_operation_limit"`

	// StatePath is where spend accounting is persisted.
	StatePath string `yaml:"state_path"`
}

// AnalysisConfig tunes the analysis pipeline.
type AnalysisConfig struct {
	// ShortCircuitConfidence is the pattern-match confidence at or above
	// which the LLM is skipped.
	ShortCircuitConfidence int `yaml:"short_circuit_confidence"`

	// MaxLogTokens bounds the compressed log excerpt per failure.
	MaxLogTokens int `yaml:"max_log_tokens"`

	// CacheWindow bounds how old a cached solution may be before it is
	// recomputed.
	CacheWindow time.Duration `yaml:"cache_window"`

	// EscalationConfidence is the confidence at or below which a result
	// that failed validation is re-run on the stronger tier.
	EscalationConfidence int `yaml:"escalation_confidence"`
}

// Config represents detective configuration options.
type Config struct {
	// LogLevel sets the logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// DBPath is the path to the issue database
	DBPath string `yaml:"db_path"`

	// ReportDir is the directory where reports are written
	ReportDir string `yaml:"report_dir"`

	Models   ModelConfig    `yaml:"models"`
	Budget   BudgetConfig   `yaml:"budget"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		DBPath:    ".detective/issues.db",
		ReportDir: ".detective/reports",
		Models: ModelConfig{
			HaikuCost:  0.02,
			SonnetCost: 0.15,
			ClaudePath: "claude",
			Timeout:    2 * time.Minute,
		},
		Budget: BudgetConfig{
			DailyLimit:        10.0,
			MonthlyLimit:      200.0,
			PerOperationLimit: 1.0,
			StatePath:         ".detective/budget.json",
		},
		Analysis: AnalysisConfig{
			ShortCircuitConfidence: 8,
			MaxLogTokens:           800,
			CacheWindow:            24 * time.Hour,
			EscalationConfidence:   3,
		},
	}
}

// LoadConfig loads configuration from the specified file path. A missing
// file returns the defaults without error; a malformed file is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Durations are parsed from strings like "90s" or "2m".
	type yamlModels struct {
		HaikuCost  float64 `yaml:"haiku_cost"`
		SonnetCost float64 `yaml:"sonnet_cost"`
		ClaudePath string  `yaml:"claude_path"`
		Timeout    string  `yaml:"timeout"`
	}
	type yamlAnalysis struct {
		ShortCircuitConfidence int    `yaml:"short_circuit_confidence"`
		MaxLogTokens           int    `yaml:"max_log_tokens"`
		CacheWindow            string `yaml:"cache_window"`
		EscalationConfidence   int    `yaml:"escalation_confidence"`
	}
	type yamlConfig struct {
		LogLevel  string       `yaml:"log_level"`
		DBPath    string       `yaml:"db_path"`
		ReportDir string       `yaml:"report_dir"`
		Models    yamlModels   `yaml:"models"`
		Budget    BudgetConfig `yaml:"budget"`
		Analysis  yamlAnalysis `yaml:"analysis"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.DBPath != "" {
		cfg.DBPath = yamlCfg.DBPath
	}
	if yamlCfg.ReportDir != "" {
		cfg.ReportDir = yamlCfg.ReportDir
	}

	if yamlCfg.Models.HaikuCost != 0 {
		cfg.Models.HaikuCost = yamlCfg.Models.HaikuCost
	}
	if yamlCfg.Models.SonnetCost != 0 {
		cfg.Models.SonnetCost = yamlCfg.Models.SonnetCost
	}
	if yamlCfg.Models.ClaudePath != "" {
		cfg.Models.ClaudePath = yamlCfg.Models.ClaudePath
	}
	if yamlCfg.Models.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Models.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid models.timeout %q: %w", yamlCfg.Models.Timeout, err)
		}
		cfg.Models.Timeout = timeout
	}

	if yamlCfg.Budget.DailyLimit != 0 {
		cfg.Budget.DailyLimit = yamlCfg.Budget.DailyLimit
	}
	if yamlCfg.Budget.MonthlyLimit != 0 {
		cfg.Budget.MonthlyLimit = yamlCfg.Budget.MonthlyLimit
	}
	if yamlCfg.Budget.PerOperationLimit != 0 {
		cfg.Budget.PerOperationLimit = yamlCfg.Budget.PerOperationLimit
	}
	if yamlCfg.Budget.StatePath != "" {
		cfg.Budget.StatePath = yamlCfg.Budget.StatePath
	}

	if yamlCfg.Analysis.ShortCircuitConfidence != 0 {
		cfg.Analysis.ShortCircuitConfidence = yamlCfg.Analysis.ShortCircuitConfidence
	}
	if yamlCfg.Analysis.MaxLogTokens != 0 {
		cfg.Analysis.MaxLogTokens = yamlCfg.Analysis.MaxLogTokens
	}
	if yamlCfg.Analysis.CacheWindow != "" {
		window, err := time.ParseDuration(yamlCfg.Analysis.CacheWindow)
		if err != nil {
			return nil, fmt.Errorf("invalid analysis.cache_window %q: %w", yamlCfg.Analysis.CacheWindow, err)
		}
		cfg.Analysis.CacheWindow = window
	}
	if yamlCfg.Analysis.EscalationConfidence != 0 {
		cfg.Analysis.EscalationConfidence = yamlCfg.Analysis.EscalationConfidence
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .detective/config.yaml in the
// specified directory, falling back to defaults when absent.
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".detective", "config.yaml"))
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}

	if c.DBPath == "" {
		return fmt.Errorf("db_path cannot be empty")
	}

	if c.Models.HaikuCost <= 0 || c.Models.SonnetCost <= 0 {
		return fmt.Errorf("model costs must be > 0, got haiku %v sonnet %v", c.Models.HaikuCost, c.Models.SonnetCost)
	}
	if c.Models.SonnetCost < c.Models.HaikuCost {
		return fmt.Errorf("sonnet_cost %v must be >= haiku_cost %v", c.Models.SonnetCost, c.Models.HaikuCost)
	}
	if c.Models.Timeout <= 0 {
		return fmt.Errorf("models.timeout must be > 0, got %v", c.Models.Timeout)
	}

	if c.Budget.DailyLimit <= 0 {
		return fmt.Errorf("budget.daily_limit must be > 0, got %v", c.Budget.DailyLimit)
	}
	if c.Budget.MonthlyLimit < c.Budget.DailyLimit {
		return fmt.Errorf("budget.monthly_limit %v must be >= daily_limit %v", c.Budget.MonthlyLimit, c.Budget.DailyLimit)
	}
	if c.Budget.PerOperationLimit <= 0 {
		return fmt.Errorf("budget.per_operation_limit must be > 0, got %v", c.Budget.PerOperationLimit)
	}
	if c.Budget.StatePath == "" {
		return fmt.Errorf("budget.state_path cannot be empty")
	}

	if c.Analysis.ShortCircuitConfidence < 1 || c.Analysis.ShortCircuitConfidence > 10 {
		return fmt.Errorf("analysis.short_circuit_confidence must be 1-10, got %d", c.Analysis.ShortCircuitConfidence)
	}
	if c.Analysis.MaxLogTokens <= 0 {
		return fmt.Errorf("analysis.max_log_tokens must be > 0, got %d", c.Analysis.MaxLogTokens)
	}
	if c.Analysis.CacheWindow < 0 {
		return fmt.Errorf("analysis.cache_window must be >= 0, got %v", c.Analysis.CacheWindow)
	}
	if c.Analysis.EscalationConfidence < 1 || c.Analysis.EscalationConfidence > 10 {
		return fmt.Errorf("analysis.escalation_confidence must be 1-10, got %d", c.Analysis.EscalationConfidence)
	}

	return nil
}
