// Package main provides the entry point for the ceres CLI tool.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/ceres-project/ceres/cmd/ceres/commands"
	"github.com/ceres-project/ceres/internal/config"
	"github.com/ceres-project/ceres/internal/observability"
	"github.com/ceres-project/ceres/pkg/ceres"
	"github.com/ceres-project/ceres/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	var (
		configPath  string
		metricsAddr string
		metricsSrv  *http.Server
	)

	rootCmd := &cobra.Command{
		Use:   "ceres",
		Short: "Ceres time-series storage engine",
		Long: `Ceres stores fixed-step numeric time series as binary slice files
under a filesystem tree, one directory per metric.

Commands:
  create-tree   Materialise a new tree root
  create-node   Create a metric node within a tree
  write         Append datapoints to a node
  read          Read a time range from a node
  find          Glob-match node names within a tree
  render        Render a time range as an HTML line chart
  tree-info     Summarise a tree's nodes and slice layout
  version       Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			behavior, _ := ceres.ParseCacheBehavior(cfg.Tree.DefaultCachingBehavior)
			ceres.SetDefaultSliceCachingBehavior(behavior)

			configureLogging(cfg.Observability.LogLevel)

			if metricsAddr != "" {
				cfg.Observability.MetricsAddr = metricsAddr
			}

			if cfg.Observability.MetricsAddr != "" {
				srv, err := startMetricsServer(cfg.Observability.MetricsAddr)
				if err != nil {
					return err
				}

				metricsSrv = srv
			}

			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if metricsSrv != nil {
				_ = metricsSrv.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a ceres config file")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics, /healthz and /readyz on this address")

	rootCmd.AddCommand(commands.NewCreateTreeCommand())
	rootCmd.AddCommand(commands.NewCreateNodeCommand())
	rootCmd.AddCommand(commands.NewWriteCommand())
	rootCmd.AddCommand(commands.NewReadCommand())
	rootCmd.AddCommand(commands.NewFindCommand())
	rootCmd.AddCommand(commands.NewRenderCommand())
	rootCmd.AddCommand(commands.NewTreeInfoCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func configureLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func startMetricsServer(addr string) (*http.Server, error) {
	red, handler, err := observability.NewPrometheusMetrics("ceres")
	if err != nil {
		return nil, fmt.Errorf("build metrics handler: %w", err)
	}

	commands.SetMetrics(red)

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	mux.Handle("/healthz", observability.HealthHandler())
	mux.Handle("/readyz", observability.ReadyHandler())

	srv := &http.Server{Addr: addr, Handler: mux}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "error", err)
		}
	}()

	return srv, nil
}
