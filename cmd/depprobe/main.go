package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hazz-dev/depprobe/internal/checker"
	"github.com/hazz-dev/depprobe/internal/config"
	"github.com/hazz-dev/depprobe/internal/health"
	"github.com/hazz-dev/depprobe/internal/logger"
	"github.com/hazz-dev/depprobe/internal/metrics"
	"github.com/hazz-dev/depprobe/internal/scheduler"
	"github.com/hazz-dev/depprobe/internal/server"
	"github.com/hazz-dev/depprobe/internal/version"
)

var (
	cfgFile string
	envFile string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "depprobe",
		Short:             "Health probes for service dependencies",
		SilenceUsage:      true,
		PersistentPreRunE: loadEnv,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "config.yml", "config file path")
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file loaded before the config (default .env if present)")

	root.AddCommand(versionCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(statusCmd())

	return root
}

// loadEnv populates the environment used for ${VAR} expansion in the config.
func loadEnv(_ *cobra.Command, _ []string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "depprobe "+version.String())
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run checks on their intervals and serve the results",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// 1. Load config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// 2. Logger
	log, logCloser, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	slog.SetDefault(log)
	log.Info("config loaded", "checks", len(cfg.Checks))

	// 3. Registry, with metrics when enabled
	var (
		regOpts []health.RegistryOption
		srvOpts []server.Option
	)
	if cfg.Metrics.Enabled {
		collector := metrics.New()
		regOpts = append(regOpts, health.WithObserver(collector.Observe))
		srvOpts = append(srvOpts, server.WithMetrics(cfg.Metrics.Path, collector.Handler()))
	}
	reg := health.NewRegistry(log, regOpts...)
	defer func() {
		if err := reg.Close(); err != nil {
			log.Warn("closing checks", "error", err)
		}
	}()

	registered := make([]config.Check, 0, len(cfg.Checks))
	for _, c := range cfg.Checks {
		if err := checker.Register(reg, c, log); err != nil {
			log.Error("registering check", "check", c.Name, "error", err)
			continue
		}
		registered = append(registered, c)
	}

	// 4. Scheduler and API server
	sched := scheduler.New(scheduler.JobsFromConfig(registered), reg, log)
	apiServer := server.New(reg, registered, log, srvOpts...)

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 5. Signal context for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	sched.Start(ctx)
	log.Info("scheduler started", "checks", len(registered))

	serverErr := make(chan error, 1)
	go func() {
		log.Info("listening", "address", cfg.Server.Address)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		stop()
		sched.Wait()
		return fmt.Errorf("HTTP server: %w", err)
	}

	// 6. Graceful shutdown
	sched.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown", "error", err)
	}

	log.Info("shutdown complete")
	return nil
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run every configured check once and print the results",
		RunE:  runCheck,
	}
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log, logCloser, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	return executeCheck(cmd, cfg, log)
}

func statusCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current report of a running depprobe server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeStatus(cmd, http.DefaultClient, url)
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:8080", "base URL of the depprobe server")
	return cmd
}
