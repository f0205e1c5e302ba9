// Package config loads and validates the channel configuration from a
// JSON or YAML file, with environment variable substitution.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Charles311/openclaw-channel-dingtalk/internal/domain"
)

// Config is the root configuration.
type Config struct {
	General    GeneralConfig            `json:"general" yaml:"general"`
	Accounts   map[string]AccountConfig `json:"accounts" yaml:"accounts"`
	Dispatcher DispatcherConfig         `json:"dispatcher" yaml:"dispatcher"`
	API        APIConfig                `json:"api" yaml:"api"`
	History    HistoryConfig            `json:"history" yaml:"history"`
	Metrics    MetricsConfig            `json:"metrics" yaml:"metrics"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel" yaml:"logLevel"`
}

// AccountConfig holds one account's credentials. Completeness is not
// validated here: an incomplete enabled account fails at start time,
// not at load time.
type AccountConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	ClientID     string `json:"clientId" yaml:"clientId"`
	ClientSecret string `json:"clientSecret" yaml:"clientSecret"`
	RobotCode    string `json:"robotCode,omitempty" yaml:"robotCode,omitempty"`
}

// DispatcherConfig selects the built-in dispatcher for standalone runs.
type DispatcherConfig struct {
	Mode           string `json:"mode" yaml:"mode"` // "http" | "echo"
	URL            string `json:"url,omitempty" yaml:"url,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty" yaml:"timeoutSeconds,omitempty"`
}

// APIConfig overrides the platform OpenAPI base URL (tests, private
// deployments). Empty means production.
type APIConfig struct {
	Base string `json:"base,omitempty" yaml:"base,omitempty"`
}

type HistoryConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	DBPath        string `json:"dbPath" yaml:"dbPath"`
	RetentionDays int    `json:"retentionDays" yaml:"retentionDays"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// DefaultConfigDir returns the default config directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dingtalk-channel"
	}
	return filepath.Join(home, ".dingtalk-channel")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads, expands, parses, and validates the config at path. The
// file format follows the extension: .yaml/.yml is YAML, anything else
// JSON.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.History.DBPath = ExpandPath(cfg.History.DBPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

// Save writes the config as indented JSON.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	switch cfg.Dispatcher.Mode {
	case "http":
		if cfg.Dispatcher.URL == "" {
			errs = append(errs, "dispatcher.url is required for http mode")
		}
	case "echo":
		// valid
	default:
		errs = append(errs, "dispatcher.mode must be one of: http, echo")
	}

	if cfg.History.Enabled {
		if cfg.History.DBPath == "" {
			errs = append(errs, "history.dbPath is required when history is enabled")
		}
		if cfg.History.RetentionDays < 1 {
			errs = append(errs, "history.retentionDays must be >= 1")
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr is required when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Credentials converts the account map into domain credentials keyed
// by account id, including disabled accounts (start-time validation
// decides what runs).
func (c *Config) Credentials() map[string]domain.AccountCredential {
	out := make(map[string]domain.AccountCredential, len(c.Accounts))
	for id, acct := range c.Accounts {
		out[id] = domain.AccountCredential{
			AccountID:    id,
			ClientID:     acct.ClientID,
			ClientSecret: acct.ClientSecret,
			RobotCode:    acct.RobotCode,
		}
	}
	return out
}

// EnabledAccounts returns the ids of enabled accounts, sorted order
// not guaranteed.
func (c *Config) EnabledAccounts() []string {
	var out []string
	for id, acct := range c.Accounts {
		if acct.Enabled {
			out = append(out, id)
		}
	}
	return out
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
