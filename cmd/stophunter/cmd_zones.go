package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"StopHunter/internal/notifier"
)

var zonesCmd = &cobra.Command{
	Use:   "zones <symbol>",
	Short: "Print the liquidity zone report for a symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runZones,
}

func init() {
	rootCmd.AddCommand(zonesCmd)
}

func runZones(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	symbol := strings.ToUpper(args[0])

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DataSource.Timeout)
	defer cancel()

	zone, window, err := newScanner(cfg, nil).Zone(ctx, symbol)
	if err != nil {
		return fmt.Errorf("zones %s: %w", symbol, err)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), notifier.FormatZoneReport(zone, window, notifier.Plain))
	return err
}
