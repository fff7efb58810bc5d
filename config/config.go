package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds user-configurable defaults. Values come from the TOML file,
// then DISKTRIAGE_* environment variables, then command-line flags.
type Config struct {
	LogPath         string `toml:"log_path" envconfig:"LOG_PATH"`
	RetentionDays   int    `toml:"retention_days" envconfig:"RETENTION_DAYS"`
	SmartDir        string `toml:"smart_dir" envconfig:"SMART_DIR"`
	Smartctl        string `toml:"smartctl" envconfig:"SMARTCTL"`
	LogLevel        string `toml:"log_level" envconfig:"LOG_LEVEL"`
	Verbose         bool   `toml:"verbose" envconfig:"VERBOSE"`
	DBPath          string `toml:"db_path" envconfig:"DB_PATH"`
	MetricsTextfile string `toml:"metrics_textfile" envconfig:"METRICS_TEXTFILE"`
	EventLog        string `toml:"event_log" envconfig:"EVENT_LOG"`
}

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "DISKTRIAGE"

// Default returns a config with sensible defaults.
func Default() Config {
	return Config{
		LogPath:       "/var/log/kern.log",
		RetentionDays: 7,
		SmartDir:      "/var/lib/smartmontools",
		Smartctl:      "smartctl",
		LogLevel:      "info",
	}
}

// Path returns ~/.config/disktriage/config.toml (or XDG_CONFIG_HOME).
// Returns empty string if home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "disktriage", "config.toml")
}

// Load reads the config file at Path (if any) and applies environment
// overrides. A missing file is not an error.
func Load() (Config, error) {
	return LoadFile(Path())
}

// LoadFile is Load with an explicit file path.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("config env: %w", err)
	}
	if cfg.RetentionDays < 0 {
		return cfg, fmt.Errorf("retention_days must be >= 0, got %d", cfg.RetentionDays)
	}
	return cfg, nil
}

// Save writes the config to path as TOML.
func Save(cfg Config, path string) error {
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0600)
}
