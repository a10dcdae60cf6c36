package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"StopHunter/internal/metrics"
	"StopHunter/internal/notifier"
	"StopHunter/internal/recorder"
	"StopHunter/internal/scheduler"
)

var runOnStart bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan the watchlist on a cron schedule",
	Long: `Run the scheduled scanner. Results go to the console, to Telegram when a
bot token is configured, and to the SQLite journal when a path is set.
Prometheus metrics are served on metrics.addr.`,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().BoolVar(&runOnStart, "now", os.Getenv("RUN_ON_START") == "true", "Scan once immediately on start")
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log.Info().Msg("StopHunter starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	sc := newScanner(cfg, m)

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
		}
	}
	defer rec.Close()

	var tn *notifier.TelegramNotifier
	var sender scheduler.Sender
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	}

	sched := scheduler.NewScheduler(ctx, sc, sender, rec, notifier.NewConsole(cmd.OutOrStdout()), cfg.Watchlist, cfg.Schedule.ScanTimeout)
	if err := sched.Register(cfg.Schedule.ScanCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics endpoint listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if runOnStart {
		go sched.RunScanNow()
	}

	log.Info().Str("cron", cfg.Schedule.ScanCron).Msg("StopHunter is running, press Ctrl+C to stop")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")
	return nil
}
