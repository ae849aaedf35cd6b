package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "syncstream",
	Short: "SyncStream: shared video playback synchronization server",
	Long:  `HTTP + WebSocket API for watch-together sessions. Commands: api, watch.`,
	RunE:  runAPI, // default: run API (same as "syncstream api")
}

func init() {
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(watchCmd)
}

// Execute runs the root command and returns the error (for main to log.Fatal).
func Execute() error {
	return rootCmd.Execute()
}
