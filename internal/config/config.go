package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"StopHunter/internal/calculator"
	"StopHunter/internal/collector"
	"StopHunter/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	Watchlist  []string `yaml:"watchlist"`
	DataSource struct {
		BaseURL          string        `yaml:"base_url"`
		APIKey           string        `yaml:"api_key"`
		ZonePeriod       string        `yaml:"zone_period"`
		ZoneInterval     string        `yaml:"zone_interval"`
		IntradayPeriod   string        `yaml:"intraday_period"`
		IntradayInterval string        `yaml:"intraday_interval"`
		RatePerSec       float64       `yaml:"rate_per_sec"`
		Burst            int           `yaml:"burst"`
		Timeout          time.Duration `yaml:"timeout"`
	} `yaml:"data_source"`
	Analysis struct {
		VolumeBins       int     `yaml:"volume_bins"`
		ConfidenceCap    float64 `yaml:"confidence_cap"`
		ZoneTolerance    float64 `yaml:"zone_tolerance"`
		StopBuffer       float64 `yaml:"stop_buffer"`
		VolumeMultiplier float64 `yaml:"volume_multiplier"`
	} `yaml:"analysis"`
	Schedule struct {
		ScanCron    string        `yaml:"scan_cron"`
		ScanTimeout time.Duration `yaml:"scan_timeout"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	// Seeded before parsing so an explicit 0 survives and fails Validate.
	p := strategy.DefaultParams()
	cfg.Analysis.ZoneTolerance = p.ZoneTolerance
	cfg.Analysis.StopBuffer = p.StopBuffer

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("WATCHLIST"); v != "" {
		c.Watchlist = splitSymbols(v)
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SCAN_CRON"); v != "" {
		c.Schedule.ScanCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("VOLUME_BINS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Analysis.VolumeBins = n
		}
	}
	if v := os.Getenv("CONFIDENCE_CAP"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Analysis.ConfidenceCap = f
		}
	}
}

func (c *Config) applyDefaults() {
	if len(c.Watchlist) == 0 {
		c.Watchlist = []string{"RELIANCE.NS", "TATASTEEL.NS", "HDFCBANK.NS", "ICICIBANK.NS"}
	}
	w := collector.DefaultWindows
	if c.DataSource.ZonePeriod == "" {
		c.DataSource.ZonePeriod = w.ZonePeriod
	}
	if c.DataSource.ZoneInterval == "" {
		c.DataSource.ZoneInterval = w.ZoneInterval
	}
	if c.DataSource.IntradayPeriod == "" {
		c.DataSource.IntradayPeriod = w.IntradayPeriod
	}
	if c.DataSource.IntradayInterval == "" {
		c.DataSource.IntradayInterval = w.IntradayInterval
	}
	if c.DataSource.RatePerSec == 0 {
		c.DataSource.RatePerSec = 2
	}
	if c.DataSource.Burst == 0 {
		c.DataSource.Burst = 4
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 30 * time.Second
	}

	p := strategy.DefaultParams()
	if c.Analysis.VolumeBins == 0 {
		c.Analysis.VolumeBins = calculator.DefaultVolumeBins
	}
	if c.Analysis.ConfidenceCap == 0 {
		c.Analysis.ConfidenceCap = p.ConfidenceCap
	}
	if c.Analysis.VolumeMultiplier == 0 {
		c.Analysis.VolumeMultiplier = p.VolumeMultiplier
	}

	if c.Schedule.ScanCron == "" {
		c.Schedule.ScanCron = "0 */5 * * * *"
	}
	if c.Schedule.ScanTimeout == 0 {
		c.Schedule.ScanTimeout = 4 * time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	if len(c.Watchlist) == 0 {
		return fmt.Errorf("watchlist must not be empty")
	}
	if c.Analysis.VolumeBins < 1 {
		return fmt.Errorf("analysis.volume_bins must be positive")
	}
	if c.Analysis.ConfidenceCap <= 0 || c.Analysis.ConfidenceCap > 100 {
		return fmt.Errorf("analysis.confidence_cap must be in (0, 100]")
	}
	if c.Analysis.ZoneTolerance <= 0 || c.Analysis.ZoneTolerance >= 1 {
		return fmt.Errorf("analysis.zone_tolerance must be in (0, 1)")
	}
	if c.Analysis.StopBuffer <= 0 || c.Analysis.StopBuffer >= 1 {
		return fmt.Errorf("analysis.stop_buffer must be in (0, 1)")
	}
	if c.Analysis.VolumeMultiplier <= 0 {
		return fmt.Errorf("analysis.volume_multiplier must be positive")
	}
	if c.DataSource.RatePerSec < 0 {
		return fmt.Errorf("data_source.rate_per_sec must not be negative")
	}
	if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(c.Schedule.ScanCron); err != nil {
		return fmt.Errorf("schedule.scan_cron: %w", err)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Windows returns the fetch windows for the collector.
func (c *Config) Windows() collector.Windows {
	return collector.Windows{
		ZonePeriod:       c.DataSource.ZonePeriod,
		ZoneInterval:     c.DataSource.ZoneInterval,
		IntradayPeriod:   c.DataSource.IntradayPeriod,
		IntradayInterval: c.DataSource.IntradayInterval,
	}
}

// StrategyParams returns the detector thresholds.
func (c *Config) StrategyParams() strategy.Params {
	return strategy.Params{
		ZoneTolerance:    c.Analysis.ZoneTolerance,
		StopBuffer:       c.Analysis.StopBuffer,
		VolumeMultiplier: c.Analysis.VolumeMultiplier,
		ConfidenceCap:    c.Analysis.ConfidenceCap,
	}
}

// TelegramEnabled reports whether push notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func splitSymbols(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToUpper(s))
		}
	}
	return out
}
