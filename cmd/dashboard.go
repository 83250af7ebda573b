package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/noctivagous/todotracker/internal/config"
	"github.com/noctivagous/todotracker/internal/dashboard"
	"github.com/noctivagous/todotracker/internal/registry"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Run the multi-project dashboard",
	Long:  "Dashboard serves a live overview of every registered tracker server across projects, refreshing as instances start and stop.",
	RunE:  runDashboard,
}

func init() {
	dashboardCmd.Flags().Int("port", 0, "port to listen on (default 8069)")
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()
	logger := newLogger(cfg.Verbose)

	port := cfg.Dashboard.Port
	if p, _ := cmd.Flags().GetInt("port"); p != 0 {
		port = p
	}

	regDir, err := registry.DefaultDir()
	if err != nil {
		return err
	}
	reg, err := registry.New(regDir)
	if err != nil {
		return err
	}
	if _, err := reg.CleanupStale(); err != nil {
		logger.Warn("failed to clean up stale registry entries", "error", err)
	}

	srv, err := dashboard.New(reg, logger)
	if err != nil {
		return err
	}
	if err := srv.Start(ctx, port); err != nil {
		return err
	}
	logger.Info("dashboard listening", "addr", srv.Addr().String())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
