package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/sawpanic/backtestlab/internal/api"
	"github.com/sawpanic/backtestlab/internal/config"
	"github.com/sawpanic/backtestlab/internal/log"
	"github.com/sawpanic/backtestlab/internal/metrics"
	"github.com/sawpanic/backtestlab/internal/repository/postgres"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API over the stored backtest run repository",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "path to an engine config YAML file")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := log.Console("serve")

	engineCfg := config.Default()
	if serveConfigPath != "" {
		loaded, err := config.LoadEngineConfig(serveConfigPath)
		if err != nil {
			return fmt.Errorf("load engine config: %w", err)
		}
		engineCfg = *loaded
	}

	db, err := sqlx.Connect("postgres", engineCfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(engineCfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(engineCfg.Database.MaxIdleConns)

	repo := postgres.New(db, engineCfg.Database.QueryTimeout)
	registry := metrics.New()

	server := api.NewServer(api.ServerConfig{
		Addr:            engineCfg.Server.Addr,
		ReadTimeout:     engineCfg.Server.ReadTimeout,
		WriteTimeout:    engineCfg.Server.WriteTimeout,
		ShutdownTimeout: engineCfg.Server.ShutdownTimeout,
	}, repo, registry, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), engineCfg.Server.ShutdownTimeout+time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
