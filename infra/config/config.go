package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		Console    bool   `yaml:"console"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	EventLog struct {
		Dir  string `yaml:"dir"`
		Sync bool   `yaml:"sync"`
	} `yaml:"eventlog"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

func defaultConfig() Config {
	var c Config
	c.Log.Level = "info"
	c.Log.File = "logs/levelbook.log"
	c.Log.Console = true
	c.Log.MaxSizeMB = 5
	c.Log.MaxBackups = 10
	c.Log.MaxAgeDays = 14
	c.EventLog.Dir = "./eventlog"
	c.EventLog.Sync = true
	c.Metrics.Addr = ""
	return c
}

// Load builds the config from defaults, then the YAML file named by path
// (or LEVELBOOK_CONFIG when path is empty), then LEVELBOOK_* env vars.
// A .env file in the working directory is read first if present.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	c := defaultConfig()
	if path == "" {
		path = os.Getenv("LEVELBOOK_CONFIG")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if v := os.Getenv("LEVELBOOK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LEVELBOOK_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("LEVELBOOK_EVENTLOG_DIR"); v != "" {
		c.EventLog.Dir = v
	}
	if v := os.Getenv("LEVELBOOK_EVENTLOG_SYNC"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c, fmt.Errorf("config: LEVELBOOK_EVENTLOG_SYNC: %w", err)
		}
		c.EventLog.Sync = b
	}
	if v := os.Getenv("LEVELBOOK_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}

	if c.EventLog.Dir == "" {
		return c, fmt.Errorf("config: eventlog.dir must not be empty")
	}
	return c, nil
}
