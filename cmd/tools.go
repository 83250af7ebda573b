package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/noctivagous/todotracker/internal/agenttools"
	"github.com/noctivagous/todotracker/internal/config"
	"github.com/noctivagous/todotracker/internal/registry"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Run the MCP tool server for the current project",
	Long:  "Tools starts an MCP server over SSE exposing the task, queue, dependency, and note operations so agents can drive the tracker directly.",
	RunE:  runTools,
}

func init() {
	toolsCmd.Flags().Int("port", 0, "port to listen on (0 picks the next free port)")
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()
	if p, _ := cmd.Flags().GetInt("port"); p != 0 {
		cfg.ToolsPort = p
	}
	logger := newLogger(cfg.Verbose)

	eng, st, cleanup, err := openEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	port := cfg.ToolsPort
	if port == 0 {
		regDir, err := registry.DefaultDir()
		if err != nil {
			return err
		}
		reg, err := registry.New(regDir)
		if err != nil {
			return err
		}
		port, err = reg.FindAvailablePort(registry.DefaultStartPort, 100)
		if err != nil {
			return err
		}
	}

	srv := agenttools.NewServer(eng, port)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	logger.Info("tool server listening", "addr", srv.Addr().String(), "db", st.Path())

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
