// Package config loads studio host settings from the data directory and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"terrastudio/storage"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "TERRASTUDIO"

// Defaults for every setting. The data directory itself is only
// overridable through TERRASTUDIO_DATA_DIR since the config file lives
// inside it.
const (
	DefaultListen        = "127.0.0.1:8088"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultScriptTimeout = 5 * time.Second
	DefaultStatsInterval = 10 * time.Second
)

// Config holds the studio host settings.
type Config struct {
	Listen        string        `mapstructure:"listen"`
	LogLevel      string        `mapstructure:"log_level"`
	LogFormat     string        `mapstructure:"log_format"`
	LibraryDir    string        `mapstructure:"library_dir"`
	ScriptTimeout time.Duration `mapstructure:"script_timeout"`
	StatsInterval time.Duration `mapstructure:"stats_interval"`
}

// DefaultPath returns the config file location inside the data directory.
func DefaultPath() string {
	return storage.DataFile("terrastudio.json")
}

// Load reads the config file at path and merges TERRASTUDIO_* environment
// overrides. An empty path selects DefaultPath(); a missing file is not an
// error, the defaults stand.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the host cannot run with.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("config: listen address is empty")
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("config: unknown log_format %q", c.LogFormat)
	}
	if c.ScriptTimeout <= 0 {
		return fmt.Errorf("config: script_timeout must be positive, got %s", c.ScriptTimeout)
	}
	if c.StatsInterval <= 0 {
		return fmt.Errorf("config: stats_interval must be positive, got %s", c.StatsInterval)
	}
	return nil
}

// Watch re-reads the file whenever it changes and calls onChange with the
// parsed config. Unparseable or invalid updates are dropped. The watcher
// goroutine is owned by viper and never stops, so call Watch at most once
// per process.
func Watch(path string, log *zap.Logger, onChange func(*Config)) {
	if path == "" {
		path = DefaultPath()
	}
	if log == nil {
		log = zap.NewNop()
	}
	v := newViper(path)
	_ = v.ReadInConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg := &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Warn("config change ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		if err := cfg.Validate(); err != nil {
			log.Warn("config change ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

// newViper builds a viper with the studio's conventions: JSON config,
// TERRASTUDIO_ env prefix, every key defaulted so env-only overrides
// resolve.
func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("listen", DefaultListen)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_format", DefaultLogFormat)
	v.SetDefault("library_dir", "")
	v.SetDefault("script_timeout", DefaultScriptTimeout)
	v.SetDefault("stats_interval", DefaultStatsInterval)
	return v
}
