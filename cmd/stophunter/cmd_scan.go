package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"StopHunter/internal/notifier"
)

var scanCmd = &cobra.Command{
	Use:   "scan [symbols...]",
	Short: "Run one stop hunt scan",
	Long: `Scan the given symbols, or the configured watchlist when none are given,
and print detected stop runs to the console.`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	symbols := cfg.Watchlist
	if len(args) > 0 {
		symbols = make([]string, len(args))
		for i, a := range args {
			symbols[i] = strings.ToUpper(a)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Schedule.ScanTimeout)
	defer cancel()

	report := newScanner(cfg, nil).ScanReport(ctx, symbols)
	return notifier.NewConsole(cmd.OutOrStdout()).PrintScan(report)
}
