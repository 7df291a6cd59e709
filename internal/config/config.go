package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRedmineURL = "https://tickets.vivino.com"
	DefaultClickUpURL = "https://api.clickup.com/api/v2"
)

// Config holds Redmine and ClickUp connection settings.
type Config struct {
	RedmineURL    string `yaml:"redmine_url,omitempty"     mapstructure:"redmine_url"`
	RedmineAPIKey string `yaml:"redmine_api_key"           mapstructure:"redmine_api_key"`
	ClickUpURL    string `yaml:"clickup_url,omitempty"     mapstructure:"clickup_url"`
	ClickUpAPIKey string `yaml:"clickup_api_key"           mapstructure:"clickup_api_key"`
	ClickUpTeamID string `yaml:"clickup_team_id"           mapstructure:"clickup_team_id"`
	MappingFile   string `yaml:"mapping_file,omitempty"    mapstructure:"mapping_file"`
	LedgerPath    string `yaml:"ledger_path,omitempty"     mapstructure:"ledger_path"`
	SentryDSN     string `yaml:"sentry_dsn,omitempty"      mapstructure:"sentry_dsn"`
}

// Key names a required setting that can be prompted for.
type Key struct {
	Name   string
	Secret bool
	field  func(*Config) *string
}

// RequiredKeys lists the settings every migration needs, in prompt order.
var RequiredKeys = []Key{
	{Name: "redmine_api_key", Secret: true, field: func(c *Config) *string { return &c.RedmineAPIKey }},
	{Name: "clickup_api_key", Secret: true, field: func(c *Config) *string { return &c.ClickUpAPIKey }},
	{Name: "clickup_team_id", field: func(c *Config) *string { return &c.ClickUpTeamID }},
}

// Get returns the current value of the key in c.
func (k Key) Get(c *Config) string { return *k.field(c) }

// Set stores v under the key in c.
func (k Key) Set(c *Config, v string) { *k.field(c) = v }

// DefaultPath returns the default config file path (~/.r2c.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".r2c.yaml"
	}
	return filepath.Join(home, ".r2c.yaml")
}

// DefaultLedgerPath returns the default migration ledger path (~/.r2c/ledger.db).
func DefaultLedgerPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".r2c", "ledger.db")
	}
	return filepath.Join(home, ".r2c", "ledger.db")
}

// Load reads config from the YAML file and applies env var overrides.
// configPath may be empty to use the default path.
func Load(configPath string) (Config, error) {
	v := viper.New()

	if configPath == "" {
		configPath = DefaultPath()
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault("redmine_url", DefaultRedmineURL)
	v.SetDefault("clickup_url", DefaultClickUpURL)
	v.SetDefault("ledger_path", DefaultLedgerPath())

	v.BindEnv("redmine_url", "R2C_REDMINE_URL")
	v.BindEnv("redmine_api_key", "R2C_REDMINE_API_KEY")
	v.BindEnv("clickup_url", "R2C_CLICKUP_URL")
	v.BindEnv("clickup_api_key", "R2C_CLICKUP_API_KEY")
	v.BindEnv("clickup_team_id", "R2C_CLICKUP_TEAM_ID")
	v.BindEnv("mapping_file", "R2C_MAPPING_FILE")
	v.BindEnv("ledger_path", "R2C_LEDGER_PATH")
	v.BindEnv("sentry_dsn", "R2C_SENTRY_DSN")

	// A missing file is fine; env vars or prompts fill the gaps.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Missing returns the required keys that have no value.
func (c Config) Missing() []Key {
	var missing []Key
	for _, k := range RequiredKeys {
		if k.Get(&c) == "" {
			missing = append(missing, k)
		}
	}
	return missing
}

// Validate checks that required fields are present.
func (c Config) Validate() error {
	if missing := c.Missing(); len(missing) > 0 {
		return fmt.Errorf("%s is required (set in config file or R2C_* env var)", missing[0].Name)
	}
	if c.RedmineURL == "" {
		return fmt.Errorf("redmine_url is required")
	}
	if c.ClickUpURL == "" {
		return fmt.Errorf("clickup_url is required")
	}
	return nil
}

// Save writes the config to the given path (or default path if empty).
func Save(cfg Config, configPath string) error {
	if configPath == "" {
		configPath = DefaultPath()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Persist applies update to the settings stored in the config file and writes
// them back. Only the file's own contents are read, so values coming from
// environment variables or defaults are not copied into it.
func Persist(configPath string, update func(*Config)) error {
	if configPath == "" {
		configPath = DefaultPath()
	}

	var cfg Config
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("reading config: %w", err)
	}

	update(&cfg)
	return Save(cfg, configPath)
}
