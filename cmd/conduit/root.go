package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "conduit",
	Short: "Conduit runs flow-based pipelines of concurrent blocks",
	Long: `Conduit wires independent blocks together through typed ports and runs them
concurrently. Channels live in memory or in Redis.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to a YAML configuration file")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.Int("capacity", 1, "Queue bound of every channel (0 means unbounded)")
	flags.String("backend", "memory", "Channel backend: memory or redis")
	flags.String("redis-addr", "localhost:6379", "Redis address for the redis backend")
	flags.String("redis-prefix", "conduit:channel:", "Key prefix for the redis backend")
	flags.String("codec", "json", "Message codec for the redis backend: json, msgpack, json+zstd or msgpack+zstd")
	flags.String("metrics-addr", "", "Serve diagnostics and Prometheus metrics on this address while running")
}
