package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/supervm/txcore/pkg/log"
)

var (
	// Version information (set via ldflags during build).
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "txcore",
	Short: "txcore - execution core benches and demos",
	Long: `txcore drives the MVCC store, fast path executor, adaptive
router, batch executor, and cross-shard coordinator through
self-contained benchmark and demo scenarios, without any external
storage, ZK, or network dependency.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("txcore version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(metricsCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run a benchmark or demo scenario",
}

func init() {
	benchCmd.AddCommand(benchFastPathCmd)
	benchCmd.AddCommand(benchCongestionCmd)
	benchCmd.AddCommand(benchCrossShardCmd)
	benchCmd.AddCommand(benchTwoPCCmd)
}
