package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loops-hq/loops-backend/config"
	"github.com/loops-hq/loops-backend/internal/bootstrap"
	"github.com/loops-hq/loops-backend/internal/logging"
	cronjob "github.com/loops-hq/loops-backend/internal/loops/cron"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "worker",
	Short: "Background jobs for loops",
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Flag open loops that have been idle too long, once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScheduler(cmd, func(ctx context.Context, s *cronjob.Scheduler) error {
			n, err := s.RunOnce(ctx)
			if err != nil {
				return err
			}
			slog.Info("stale sweep completed", "flagged", n)
			return nil
		})
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the stale sweep on its cron schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScheduler(cmd, func(ctx context.Context, s *cronjob.Scheduler) error {
			if err := s.Start(); err != nil {
				return err
			}
			<-ctx.Done()
			<-s.Stop().Done()
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(scheduleCmd)

	rootCmd.PersistentFlags().Duration("after", 0, "idle threshold (default LOOPS_STALE_AFTER)")
	scheduleCmd.Flags().String("cron", "", "six-field cron spec (default LOOPS_STALE_CRON)")
}

func withScheduler(cmd *cobra.Command, fn func(context.Context, *cronjob.Scheduler) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.App.Environment, cfg.App.LogLevel)

	after := cfg.Loops.StaleAfter
	if d, _ := cmd.Flags().GetDuration("after"); d > 0 {
		after = d
	}
	spec := cfg.Loops.StaleCron
	if f := cmd.Flags().Lookup("cron"); f != nil && f.Value.String() != "" {
		spec = f.Value.String()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	start := time.Now()
	defer func() { slog.Info("worker finished", "command", cmd.Name(), "took", time.Since(start)) }()

	return fn(ctx, cronjob.NewScheduler(app.Loops, spec, after))
}
