package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "presenced",
	Short: "A distributed presence tracker",
	Long: `presenced tracks which (topic, key) presences are online across a
cluster of replicas, replicating via CRDT merge over best-effort
heartbeats rather than through a leader or quorum read.`,
}

// Execute runs the root command, exiting non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
