package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const appName = "hadron"

var configPath string

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Hadron ingests, normalizes, evaluates, and records market data",
		Long: `Hadron is a real-time market-data ingestion and decision engine:
venue adapters stream raw frames, the normalizer resolves them to stable
instrument ids, a priority router shards the tick stream into per-instrument
engines running pluggable strategies, a coordinator resolves same-instrument
conflicts into order intents, a simulation gateway fills them against the
last observed price, and a recorder persists everything durably.`,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "hadron.yaml", "path to the YAML configuration file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(healthCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
