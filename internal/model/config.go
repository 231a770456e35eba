package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// CHECKLIST_DATABASE_PATH.
const EnvPrefix = "CHECKLIST"

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	// Path is the database file, or ":memory:".
	Path string `mapstructure:"path" yaml:"path"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level"`

	// Format is "text" or "json".
	Format string `mapstructure:"format" yaml:"format"`

	// File receives log output in addition to stderr when set. Relative
	// paths resolve against the database directory.
	File string `mapstructure:"file" yaml:"file"`
}

// ViewConfig holds presentation defaults.
type ViewConfig struct {
	// Limit caps the rows shown per date-ordered column in overviews.
	Limit int `mapstructure:"limit" yaml:"limit"`
}

// AuditConfig schedules the background ranking check of the server.
type AuditConfig struct {
	// IntervalSec is the time between checks; 0 disables them.
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	View     ViewConfig     `mapstructure:"view" yaml:"view"`
	Audit    AuditConfig    `mapstructure:"audit" yaml:"audit"`
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"database":   "database.path",
	"addr":       "server.addr",
	"log-level":  "log.level",
	"log-format": "log.format",
	"log-file":   "log.file",
	"limit":      "view.limit",
	"audit":      "audit.interval_sec",
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/checklist/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "checklist", "config.yaml")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{Path: "list.db"},
		Server:   ServerConfig{Addr: ":8080"},
		Log:      LogConfig{Level: "info", Format: "text"},
		View:     ViewConfig{Limit: 10},
		Audit:    AuditConfig{IntervalSec: 3600},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper,
// then applies CHECKLIST_* environment variables and any flags that were
// set explicitly. A missing file is not an error.
func LoadConfig(path string, flags *pflag.FlagSet) (*AppConfig, error) {
	def := DefaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("log.file", def.Log.File)
	v.SetDefault("view.limit", def.View.Limit)
	v.SetDefault("audit.interval_sec", def.Audit.IntervalSec)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the application cannot run with.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database.path must not be empty")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.View.Limit < 0 {
		return fmt.Errorf("view.limit must not be negative, got %d", c.View.Limit)
	}
	if c.Audit.IntervalSec < 0 {
		return fmt.Errorf("audit.interval_sec must not be negative, got %d", c.Audit.IntervalSec)
	}
	return nil
}

// LogFilePath resolves Log.File against the database directory.
func (c *AppConfig) LogFilePath() string {
	if c.Log.File == "" || filepath.IsAbs(c.Log.File) {
		return c.Log.File
	}
	return filepath.Join(filepath.Dir(c.Database.Path), c.Log.File)
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

	v.Set("database", cfg.Database)
	v.Set("server", cfg.Server)
	v.Set("log", cfg.Log)
	v.Set("view", cfg.View)
	v.Set("audit", cfg.Audit)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
