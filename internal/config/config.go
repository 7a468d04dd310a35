package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken    string `yaml:"bot_token"`
		ChatID      string `yaml:"chat_id"`
		SendRetries int    `yaml:"send_retries"`
	} `yaml:"telegram"`
	Feed struct {
		URLTemplate    string `yaml:"url_template"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		LookbackDays   int    `yaml:"lookback_days"`
	} `yaml:"feed"`
	Cache struct {
		DailyTTLMinutes   int `yaml:"daily_ttl_minutes"`
		DatasetTTLMinutes int `yaml:"dataset_ttl_minutes"`
		MarketCapTTLHours int `yaml:"market_cap_ttl_hours"`
	} `yaml:"cache"`
	Filter struct {
		MinTotalVolume int64 `yaml:"min_total_volume"`
		MinBuyVolume   int64 `yaml:"min_buy_volume"`
	} `yaml:"filter"`
	Alerts struct {
		RelativeVolume float64 `yaml:"relative_volume"`
		DPIndex        float64 `yaml:"dp_index"`
		TopN           int     `yaml:"top_n"`
	} `yaml:"alerts"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Server struct {
		Listen string `yaml:"listen"`
	} `yaml:"server"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("FEED_URL_TEMPLATE"); v != "" {
		cfg.Feed.URLTemplate = v
	}
	if v := os.Getenv("LOOKBACK_DAYS"); v != "" {
		var days int
		if _, err := fmt.Sscanf(v, "%d", &days); err == nil {
			cfg.Feed.LookbackDays = days
		}
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CRON_REFRESH"); v != "" {
		cfg.Schedule.RefreshCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.Listen = v
	}

	// Defaults
	if cfg.Telegram.SendRetries == 0 {
		cfg.Telegram.SendRetries = 3
	}
	if cfg.Feed.URLTemplate == "" {
		cfg.Feed.URLTemplate = "https://cdn.finra.org/equity/regsho/daily/CNMSshvol%s.txt"
	}
	if cfg.Feed.TimeoutSeconds == 0 {
		cfg.Feed.TimeoutSeconds = 10
	}
	if cfg.Feed.LookbackDays == 0 {
		cfg.Feed.LookbackDays = 35
	}
	if cfg.Cache.DailyTTLMinutes == 0 {
		cfg.Cache.DailyTTLMinutes = 60
	}
	if cfg.Cache.DatasetTTLMinutes == 0 {
		cfg.Cache.DatasetTTLMinutes = 60
	}
	if cfg.Cache.MarketCapTTLHours == 0 {
		cfg.Cache.MarketCapTTLHours = 24
	}
	if cfg.Filter.MinTotalVolume == 0 {
		cfg.Filter.MinTotalVolume = 200_000
	}
	if cfg.Filter.MinBuyVolume == 0 {
		cfg.Filter.MinBuyVolume = 100_000
	}
	if cfg.Alerts.RelativeVolume == 0 {
		cfg.Alerts.RelativeVolume = 3.0
	}
	if cfg.Alerts.DPIndex == 0 {
		cfg.Alerts.DPIndex = 50
	}
	if cfg.Alerts.TopN == 0 {
		cfg.Alerts.TopN = 10
	}
	if cfg.Schedule.RefreshCron == "" {
		// FINRA publishes the daily file in the evening US/Eastern.
		cfg.Schedule.RefreshCron = "0 30 18 * * 1-5"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/darkpool_sentinel.db"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if !strings.Contains(c.Feed.URLTemplate, "%s") {
		return fmt.Errorf("feed.url_template must contain a %%s date placeholder")
	}
	if c.Feed.LookbackDays <= 0 {
		return fmt.Errorf("feed.lookback_days must be positive")
	}
	return nil
}

// FeedTimeout returns the per-request feed timeout.
func (c *Config) FeedTimeout() time.Duration {
	return time.Duration(c.Feed.TimeoutSeconds) * time.Second
}

// DailyTTL returns how long a single day's fetch result stays cached.
func (c *Config) DailyTTL() time.Duration {
	return time.Duration(c.Cache.DailyTTLMinutes) * time.Minute
}

// DatasetTTL returns how long an assembled lookback dataset stays cached.
func (c *Config) DatasetTTL() time.Duration {
	return time.Duration(c.Cache.DatasetTTLMinutes) * time.Minute
}

// MarketCapTTL returns how long market-cap lookups stay cached.
func (c *Config) MarketCapTTL() time.Duration {
	return time.Duration(c.Cache.MarketCapTTLHours) * time.Hour
}
