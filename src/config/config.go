package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Config holds the daemon configuration. The settle delays are policy
// constants, empirically tuned workarounds for display-stack timing,
// not derived from any documented contract.
type Config struct {
	// Logging
	LogLevel LogLevel `mapstructure:"log_level"`

	// Monitoring
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// Settle delays between sequential display-configuration calls
	SettleCreate  time.Duration `mapstructure:"settle_create"`
	SettleMirror  time.Duration `mapstructure:"settle_mirror"`
	SettleRestore time.Duration `mapstructure:"settle_restore"`

	// Recovery policy
	AutoRestoreOnCrash   bool `mapstructure:"auto_restore_on_crash"`
	AutoApplyOnReconnect bool `mapstructure:"auto_apply_on_reconnect"`

	// ManualRefreshRate pins the virtual display refresh rate.
	// 0 means auto-detect from the target monitor.
	ManualRefreshRate float64 `mapstructure:"manual_refresh_rate"`

	// StatePath is the sqlite session-state database file
	StatePath string `mapstructure:"state_path"`

	mu sync.RWMutex
}

// Load reads configuration from the config file and environment
// variables. An empty path uses ~/.config/hidpid/config.yaml. The
// manual refresh-rate override is re-read live when the file changes.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = defaultConfigPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
		// Missing config file is fine; defaults and env apply.
	}

	v.SetEnvPrefix("HIDPID")
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Pick up refresh-rate override edits while the daemon runs. The
	// rest of the config stays fixed for the process lifetime.
	v.OnConfigChange(func(fsnotify.Event) {
		cfg.setManualRefreshRate(v.GetFloat64("manual_refresh_rate"))
	})
	v.WatchConfig()

	return cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("poll_interval", "3s")
	v.SetDefault("settle_create", "1500ms")
	v.SetDefault("settle_mirror", "3s")
	v.SetDefault("settle_restore", "2500ms")
	v.SetDefault("auto_restore_on_crash", true)
	v.SetDefault("auto_apply_on_reconnect", true)
	v.SetDefault("manual_refresh_rate", 0.0)
	v.SetDefault("state_path", defaultStatePath())
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "hidpid", "config.yaml")
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "state.db"
	}
	return filepath.Join(home, ".local", "state", "hidpid", "state.db")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		// Valid
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("invalid poll interval: %v (must be positive)", c.PollInterval)
	}

	if c.SettleCreate < 0 || c.SettleMirror < 0 || c.SettleRestore < 0 {
		return fmt.Errorf("settle delays must not be negative")
	}

	if c.ManualRefreshRate < 0 {
		return fmt.Errorf("invalid manual refresh rate: %v (0 means auto-detect)", c.ManualRefreshRate)
	}

	if c.StatePath == "" {
		return fmt.Errorf("state_path must not be empty")
	}

	return nil
}

// ManualRefreshRateOverride returns the pinned refresh rate, or 0 when
// the rate should be detected from the target monitor.
func (c *Config) ManualRefreshRateOverride() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ManualRefreshRate
}

func (c *Config) setManualRefreshRate(rate float64) {
	if rate < 0 {
		return
	}
	c.mu.Lock()
	c.ManualRefreshRate = rate
	c.mu.Unlock()
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{LogLevel=%s, PollInterval=%v, ManualRefreshRate=%.1f}",
		c.LogLevel, c.PollInterval, c.ManualRefreshRateOverride())
}
