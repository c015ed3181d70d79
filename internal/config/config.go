package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	WorkerLimit  int           `mapstructure:"worker_limit"`
	WorkerPath   string        `mapstructure:"worker_path"`
	ControlIn    string        `mapstructure:"control_in"`
	ControlOut   string        `mapstructure:"control_out"`
	QueueLimit   int           `mapstructure:"queue_limit"`
	IgnoreList   []string      `mapstructure:"ignore_list"`
	BatchWindow  time.Duration `mapstructure:"batch_window"`
	LogMaxSizeMB int           `mapstructure:"log_max_size_mb"`
	DBPath       string        `mapstructure:"db_path"`
	HTTPAddr     string        `mapstructure:"http_addr"`
	DaemonURL    string        `mapstructure:"daemon_url"`
}

var Default = Config{
	WorkerLimit:  5,
	ControlIn:    "syncd_in",
	ControlOut:   "syncd_out",
	IgnoreList:   []string{".git", ".DS_Store", "*.tmp", "*.swp"},
	LogMaxSizeMB: 100,
	DBPath:       "syncd.db",
	DaemonURL:    "http://127.0.0.1:9001",
}

// Load reads ~/.syncd/config.yaml if present, then SYNCD_* environment
// variables, then the workers flag from flags when it was set.
func Load(flags *pflag.FlagSet) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home dir: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(home, ".syncd"))

	v.SetDefault("worker_limit", Default.WorkerLimit)
	v.SetDefault("worker_path", Default.WorkerPath)
	v.SetDefault("control_in", Default.ControlIn)
	v.SetDefault("control_out", Default.ControlOut)
	v.SetDefault("queue_limit", Default.QueueLimit)
	v.SetDefault("ignore_list", Default.IgnoreList)
	v.SetDefault("batch_window", Default.BatchWindow)
	v.SetDefault("log_max_size_mb", Default.LogMaxSizeMB)
	v.SetDefault("db_path", Default.DBPath)
	v.SetDefault("http_addr", Default.HTTPAddr)
	v.SetDefault("daemon_url", Default.DaemonURL)

	v.SetEnvPrefix("SYNCD")
	v.AutomaticEnv()

	if flags != nil {
		if f := flags.Lookup("workers"); f != nil {
			if err := v.BindPFlag("worker_limit", f); err != nil {
				return nil, fmt.Errorf("failed to bind workers flag: %w", err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := errors.AsType[viper.ConfigFileNotFoundError](err); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.WorkerLimit <= 0 {
		return nil, fmt.Errorf("worker_limit must be positive, got %d", cfg.WorkerLimit)
	}
	if cfg.QueueLimit < 0 {
		return nil, fmt.Errorf("queue_limit must not be negative, got %d", cfg.QueueLimit)
	}

	return &cfg, nil
}
