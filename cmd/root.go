// Package cmd implements the clawbot CLI using cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"
const logo = "🦞"

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "clawbot",
	Short: logo + " clawbot — Telegram AI assistant",
	Long:  logo + " clawbot — a tool-calling AI assistant for Telegram and Slack",
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(scheduleCmd)
}
