package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"showdown-tracker/assets"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileName is the config file name without extension.
const FileName = "showdown-tracker"

// configExtensions are tried in order: YAML first, then TOML.
var configExtensions = []string{"yml", "yaml", "toml"}

type FetchConfig struct {
	RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`
	Burst             int     `mapstructure:"burst"`
	TimeoutSeconds    int     `mapstructure:"timeoutSeconds"`
	MaxRetries        int     `mapstructure:"maxRetries"`
	UserAgent         string  `mapstructure:"userAgent"`
	Concurrency       int     `mapstructure:"concurrency"` // parallel fetches while draining the queue
}

// Timeout returns the per-request timeout as a duration.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

type ImportConfig struct {
	WatchDir       string `mapstructure:"watchDir"`
	WatchUser      string `mapstructure:"watchUser"` // email of the account watched files belong to
	QueueSchedule  string `mapstructure:"queueSchedule"`
	QueueBatchSize int    `mapstructure:"queueBatchSize"`
	MaxAttempts    int    `mapstructure:"maxAttempts"`
	RetentionDays  int    `mapstructure:"retentionDays"` // 0 keeps finished jobs forever
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"maxSizeMB"`
	MaxBackups int    `mapstructure:"maxBackups"` // Number of rotated log files to keep (default: 5)
}

type Config struct {
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Import  ImportConfig  `mapstructure:"import"`
	Logging LoggingConfig `mapstructure:"logging"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("fetch.requestsPerSecond", 2.0)
	v.SetDefault("fetch.burst", 1)
	v.SetDefault("fetch.timeoutSeconds", 15)
	v.SetDefault("fetch.maxRetries", 3)
	v.SetDefault("fetch.userAgent", "showdown-tracker/1.0")
	v.SetDefault("fetch.concurrency", 4)

	v.SetDefault("import.watchDir", "")
	v.SetDefault("import.watchUser", "")
	v.SetDefault("import.queueSchedule", "*/2 * * * *")
	v.SetDefault("import.queueBatchSize", 20)
	v.SetDefault("import.maxAttempts", 3)
	v.SetDefault("import.retentionDays", 30)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "logs/showdown-tracker.log")
	v.SetDefault("logging.maxSizeMB", 10)
	v.SetDefault("logging.maxBackups", 5)
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// defaults only, cannot fail
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads showdown-tracker.{yml,yaml,toml} from the given directories
// (the working directory when none are given), applies TRACKER_* environment
// overrides and validates the result. A missing file is not an error.
func Load(dirs ...string) (*Config, error) {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	// .env is optional; real environment variables win over it
	for _, dir := range dirs {
		_ = godotenv.Load(filepath.Join(dir, ".env"))
	}

	v := viper.New()
	setDefaults(v)

	// TRACKER_FETCH_MAXRETRIES -> fetch.maxRetries
	v.SetEnvPrefix("TRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := Find(dirs...); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks numeric limits and cross-field requirements.
func (c *Config) Validate() error {
	var errs []error

	if c.Fetch.RequestsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("fetch.requestsPerSecond must be positive, got %v", c.Fetch.RequestsPerSecond))
	}
	if c.Fetch.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("fetch.concurrency must be positive, got %d", c.Fetch.Concurrency))
	}
	if c.Fetch.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("fetch.maxRetries cannot be negative, got %d", c.Fetch.MaxRetries))
	}
	if c.Import.QueueBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("import.queueBatchSize must be positive, got %d", c.Import.QueueBatchSize))
	}
	if c.Import.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("import.maxAttempts must be positive, got %d", c.Import.MaxAttempts))
	}
	if c.Import.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("import.retentionDays cannot be negative, got %d", c.Import.RetentionDays))
	}
	if c.Import.WatchDir != "" && c.Import.WatchUser == "" {
		errs = append(errs, errors.New("import.watchUser is required when import.watchDir is set"))
	}
	if !validLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}

	return errors.Join(errs...)
}

func validLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// Find returns the first config file found in dirs, or "" if there is none.
func Find(dirs ...string) string {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	for _, dir := range dirs {
		for _, ext := range configExtensions {
			path := filepath.Join(dir, FileName+"."+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// Exists checks if a config file exists in the current directory
func Exists() bool {
	return Find(".") != ""
}

// GenerateExample writes an example config file to the specified path
// format can be "yml" or "toml"
func GenerateExample(path string, format string) error {
	return assets.WriteExampleConfig(path, format)
}
