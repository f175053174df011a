package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sawpanic/backtestlab/internal/log"
)

const (
	appName = "backtestlab"
	version = "v0.1.0"
)

var rootCmd = &cobra.Command{
	Use:     appName,
	Short:   "Equity strategy backtesting and walk-forward evaluation engine",
	Version: version,
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339

	if err := rootCmd.Execute(); err != nil {
		log.Console(appName).Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
