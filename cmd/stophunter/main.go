package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"StopHunter/internal/collector"
	"StopHunter/internal/config"
	"StopHunter/internal/liquidity"
	"StopHunter/internal/metrics"
	"StopHunter/internal/scanner"
	"StopHunter/internal/strategy"
)

var (
	configPath string
	useMock    bool
	mockPrice  float64
)

var rootCmd = &cobra.Command{
	Use:   "stophunter",
	Short: "Liquidity zone and stop hunt detector",
	Long: `StopHunter infers liquidity zones (recent range, VWAP, volume clusters)
from daily bars and flags false breakouts on the latest intraday bar.

Examples:
  stophunter run                       # cron scans, Telegram, metrics
  stophunter scan                      # one scan over the watchlist
  stophunter scan TATASTEEL.NS --mock  # offline dry run
  stophunter zones RELIANCE.NS         # zone report for one symbol`,
	SilenceUsage: true,
}

func init() {
	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultPath, "Path to YAML config")
	rootCmd.PersistentFlags().BoolVar(&useMock, "mock", false, "Use generated bars instead of a live data source")
	rootCmd.PersistentFlags().Float64Var(&mockPrice, "mock-price", 100, "Base price for generated bars")
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads and validates the config and applies the log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	level, _ := zerolog.ParseLevel(cfg.Log.Level)
	zerolog.SetGlobalLevel(level)
	return cfg, nil
}

func newFetcher(cfg *config.Config, m *metrics.Metrics) collector.Fetcher {
	var fetcher collector.Fetcher
	switch {
	case useMock:
		return &collector.MockFetcher{Price: mockPrice}
	case cfg.DataSource.BaseURL != "":
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, cfg.DataSource.Timeout)
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy, cfg.DataSource.Timeout)
	}
	guarded := collector.NewGuardedFetcher(fetcher, cfg.DataSource.RatePerSec, cfg.DataSource.Burst)
	guarded.Observe(m.SetBreakerState)
	return guarded
}

func newScanner(cfg *config.Config, m *metrics.Metrics) *scanner.Scanner {
	fetcher := newFetcher(cfg, m)
	log.Info().Str("source", fetcher.Name()).Strs("watchlist", cfg.Watchlist).Msg("data source ready")
	return scanner.New(
		collector.NewCollector(fetcher, cfg.Windows()),
		liquidity.NewAnalyzer(liquidity.NewZoneCache(), cfg.Analysis.VolumeBins),
		strategy.NewDetector(cfg.StrategyParams()),
		m,
	)
}
