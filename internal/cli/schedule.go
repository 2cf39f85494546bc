package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/forensia/internal/scheduler"
	"github.com/ppiankov/forensia/internal/telemetry"
	"github.com/ppiankov/forensia/internal/worker"
)

var (
	scheduleMetricsAddr string
	scheduleRunNow      bool
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run analyzer passes on cron schedules until interrupted",
	Long: `Schedule keeps the analyzers running in the background using the cron
specs under schedule.* in the configuration. Prometheus metrics for every
pass are served on schedule.metrics_addr at /metrics.

Triggers that exceed concurrency.passes_per_second are skipped.

Example:
  forensia schedule
  forensia schedule --metrics-addr :9100 --now`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(&scheduleMetricsAddr, "metrics-addr", "", "metrics listen address (default: schedule.metrics_addr; \"off\" disables)")
	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "now", false, "trigger every scheduled pass once at startup")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the scheduler throttles triggers; the runner itself is unthrottled
	limiter := worker.NewLimiter(a.cfg.Concurrency.PassesPerSec, a.cfg.Concurrency.PassBurst)
	svc := scheduler.NewService(a.runner(nil), limiter, a.logger)
	if err := svc.ScheduleConfig(a.cfg.Schedule); err != nil {
		return err
	}

	addr := a.cfg.Schedule.MetricsAddr
	if scheduleMetricsAddr != "" {
		addr = scheduleMetricsAddr
	}
	var srv *http.Server
	if addr != "" && addr != "off" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.MetricsHandler())
		srv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", slog.Any("error", err))
			}
		}()
	}

	banner("Forensia Scheduler")
	for _, p := range worker.AllPasses {
		if next, ok := svc.Next(p); ok {
			fmt.Fprintf(os.Stderr, "  %-13s next %s\n", p, next.Format(time.RFC3339))
		} else {
			fmt.Fprintf(os.Stderr, "  %-13s disabled\n", p)
		}
	}
	if srv != nil {
		fmt.Fprintf(os.Stderr, "  Metrics:      http://%s/metrics\n", addr)
	}
	fmt.Fprintf(os.Stderr, "\n")

	svc.Start(ctx)

	if scheduleRunNow {
		for _, p := range worker.AllPasses {
			if _, ok := svc.Next(p); !ok {
				continue
			}
			if _, err := svc.Trigger(ctx, p); err != nil {
				a.logger.Warn("startup trigger failed", slog.String("pass", string(p)), slog.Any("error", err))
			}
		}
	}

	<-ctx.Done()
	a.logger.Info("shutting down scheduler")
	svc.Stop()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("stop metrics server: %w", err)
		}
	}
	return nil
}
