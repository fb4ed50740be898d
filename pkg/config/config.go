package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// QueueConfig is the dispatch budget for one enrichment queue: at most Rate
// job starts per Window, matching the external API's published quota.
type QueueConfig struct {
	Rate   int           `yaml:"rate"`
	Window time.Duration `yaml:"window"`
	Buffer int           `yaml:"buffer"`
}

// RetryConfig is the shared retry policy for enrichment jobs.
type RetryConfig struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseDelay   time.Duration `yaml:"baseDelay"`
	Multiplier  float64       `yaml:"multiplier"`
}

type Config struct {
	DatabasePath string      `yaml:"databasePath"`
	LogMode      string      `yaml:"logMode"`
	AnimeQueue   QueueConfig `yaml:"animeQueue"`
	MangaQueue   QueueConfig `yaml:"mangaQueue"`
	StatsQueue   QueueConfig `yaml:"statsQueue"`
	Retry        RetryConfig `yaml:"retry"`
}

// Default mirrors the published quotas of the two catalogs: Jikan allows one
// request per second, MangaDex is given a request every two seconds.
func Default() Config {
	return Config{
		DatabasePath: "otakulog.db",
		LogMode:      "dev",
		AnimeQueue:   QueueConfig{Rate: 1, Window: time.Second, Buffer: 256},
		MangaQueue:   QueueConfig{Rate: 1, Window: 2 * time.Second, Buffer: 256},
		StatsQueue:   QueueConfig{Rate: 1, Window: 2 * time.Second, Buffer: 256},
		Retry:        RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, Multiplier: 2},
	}
}

// Load reads the YAML config at path on top of the defaults. A missing file
// is fine; OTAKULOG_DB and OTAKULOG_LOG_MODE env vars win over both.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if db := os.Getenv("OTAKULOG_DB"); db != "" {
		cfg.DatabasePath = db
	}
	if mode := os.Getenv("OTAKULOG_LOG_MODE"); mode != "" {
		cfg.LogMode = mode
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	for name, q := range map[string]QueueConfig{
		"animeQueue": c.AnimeQueue,
		"mangaQueue": c.MangaQueue,
		"statsQueue": c.StatsQueue,
	} {
		if q.Rate <= 0 || q.Window <= 0 {
			return fmt.Errorf("%s: rate and window must be positive", name)
		}
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.maxAttempts must be positive")
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("retry.multiplier must be >= 1")
	}
	return nil
}
