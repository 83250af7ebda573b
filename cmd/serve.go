package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/noctivagous/todotracker/internal/config"
	"github.com/noctivagous/todotracker/internal/project"
	"github.com/noctivagous/todotracker/internal/registry"
	"github.com/noctivagous/todotracker/internal/webapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web API server for the current project",
	Long:  "Serve starts the HTTP API on this project's database, registers the instance in the shared server registry, and runs until interrupted.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "port to listen on (0 picks the next free port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()
	if p, _ := cmd.Flags().GetInt("port"); p != 0 {
		cfg.WebPort = p
	}
	logger := newLogger(cfg.Verbose)

	eng, st, cleanup, err := openEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	regDir, err := registry.DefaultDir()
	if err != nil {
		return err
	}
	reg, err := registry.New(regDir)
	if err != nil {
		return err
	}

	port := cfg.WebPort
	if port == 0 {
		port, err = reg.FindAvailablePort(registry.DefaultStartPort, 100)
		if err != nil {
			return err
		}
	}

	projectName := filepath.Base(project.Root(st.Path()))
	if pcfg, err := project.LoadConfig(filepath.Join(project.Root(st.Path()), project.TodosDir, project.ConfigFileName)); err == nil && pcfg != nil && pcfg.ProjectName != "" {
		projectName = pcfg.ProjectName
	}

	if err := reg.Register(registry.Server{
		ProjectName: projectName,
		DBPath:      st.Path(),
		Port:        port,
		PID:         os.Getpid(),
	}); err != nil {
		logger.Warn("failed to register server", "error", err)
	}
	defer func() {
		if err := reg.Unregister(port); err != nil {
			logger.Warn("failed to unregister server", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: webapi.NewRouter(eng, logger),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("web server listening", "port", port, "db", st.Path(), "project", projectName)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
