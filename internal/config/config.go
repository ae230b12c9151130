// Package config loads the application configuration from defaults, an
// optional config file, SYSDASH_* environment variables and command flags.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"sysdash/internal/monitoring"
	"sysdash/internal/present"
)

// EnvPrefix prefixes every environment override, e.g. SYSDASH_SERVER_PORT.
const EnvPrefix = "SYSDASH"

// ServerConfig is the HTTP listener.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig locates the history database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// MonitoringConfig controls collection.
type MonitoringConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	GroupTimeout time.Duration `mapstructure:"group_timeout"`
	LoadSample   time.Duration `mapstructure:"load_sample"`
	Groups       []string      `mapstructure:"groups"`
}

// FormatConfig controls display formatting.
type FormatConfig struct {
	Precision  int    `mapstructure:"precision"`
	ZeroPolicy string `mapstructure:"zero_policy"`
}

// HistoryConfig controls sample persistence.
type HistoryConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Retention time.Duration `mapstructure:"retention"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Config is the complete application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Format     FormatConfig     `mapstructure:"format"`
	History    HistoryConfig    `mapstructure:"history"`
	Log        LogConfig        `mapstructure:"log"`
}

// Address is the host:port the server listens on.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Groups returns the configured metric groups; none means all of them.
func (c *Config) Groups() []monitoring.Group {
	groups, err := monitoring.ParseGroups(c.Monitoring.Groups)
	if err != nil {
		return monitoring.AllGroups
	}
	return groups
}

// Normalizer returns the display formatter described by the format section.
func (c *Config) Normalizer() present.Normalizer {
	policy, _ := present.ParseZeroPolicy(c.Format.ZeroPolicy)
	return present.Normalizer{Precision: c.Format.Precision, ZeroPolicy: policy}
}

// defaults are stored in the same shape a config file uses.
var defaults = map[string]any{
	"server.host":              "localhost",
	"server.port":              8080,
	"database.path":            "data/sysdash.db",
	"monitoring.interval":      "5s",
	"monitoring.group_timeout": "3s",
	"monitoring.load_sample":   "200ms",
	"monitoring.groups":        []string{},
	"format.precision":         present.DefaultPrecision,
	"format.zero_policy":       "absent",
	"history.enabled":          true,
	"history.retention":        "24h",
	"log.level":                "info",
	"log.format":               "json",
	"log.file":                 "",
}

// Keys lists every configuration key.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	return keys
}

func setDefaults(v *viper.Viper) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// Default returns the configuration with no file, env or flag overrides.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// Load reads the configuration into v. When path is set and the file does not
// exist, a file holding the defaults is written there first. Flags bound to v
// before Load take precedence over everything else.
func Load(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if err := writeDefaultConfig(path); err != nil {
				return nil, err
			}
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	validateAndFillDefaults(cfg)
	return cfg, nil
}

// writeDefaultConfig saves the defaults to path, in the format implied by the
// file extension.
func writeDefaultConfig(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	d := viper.New()
	setDefaults(d)
	if err := d.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to save default config: %w", err)
	}
	return nil
}

// validateAndFillDefaults replaces invalid values with their defaults.
func validateAndFillDefaults(cfg *Config) {
	def := Default()

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = def.Server.Host
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = def.Database.Path
	}

	if cfg.Monitoring.Interval <= 0 {
		cfg.Monitoring.Interval = def.Monitoring.Interval
	}
	if cfg.Monitoring.GroupTimeout <= 0 {
		cfg.Monitoring.GroupTimeout = def.Monitoring.GroupTimeout
	}
	if cfg.Monitoring.LoadSample <= 0 || cfg.Monitoring.LoadSample >= cfg.Monitoring.GroupTimeout {
		cfg.Monitoring.LoadSample = def.Monitoring.LoadSample
	}
	if _, err := monitoring.ParseGroups(cfg.Monitoring.Groups); err != nil {
		cfg.Monitoring.Groups = nil
	}

	if cfg.Format.Precision < 0 || cfg.Format.Precision > 6 {
		cfg.Format.Precision = def.Format.Precision
	}
	if _, err := present.ParseZeroPolicy(cfg.Format.ZeroPolicy); err != nil {
		cfg.Format.ZeroPolicy = def.Format.ZeroPolicy
	}

	if cfg.History.Retention < 0 {
		cfg.History.Retention = def.History.Retention
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		cfg.Log.Level = def.Log.Level
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "json", "console":
	default:
		cfg.Log.Format = def.Log.Format
	}
}
