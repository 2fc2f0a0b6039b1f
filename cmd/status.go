package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Codesait/clawbot-telegram/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show clawbot status",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	fmt.Printf("%s clawbot Status\n\n", logo)

	fmt.Printf("Config:    %s %s\n", cfgPath, statMark(cfgPath))

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	ws := cfg.WorkspacePath()
	fmt.Printf("Workspace: %s %s\n", ws, statMark(ws))
	fmt.Printf("Model:     %s %s\n\n", cfg.Model.Model, setMark(cfg.Model.APIKey))

	fmt.Println("Channels:")
	fmt.Printf("  %-10s %s\n", "telegram", enabledMark(cfg.Telegram.Enabled, cfg.Telegram.Token != ""))
	fmt.Printf("  %-10s %s\n\n", "slack", enabledMark(cfg.Slack.Enabled, cfg.Slack.BotToken != "" && cfg.Slack.AppToken != ""))

	fmt.Println("Skills:")
	fmt.Printf("  %-10s token %s\n", "github", setMark(cfg.Skills.GitHub.Token))
	fmt.Printf("  %-10s key %s\n", "search", setMark(cfg.Skills.Search.APIKey))
	fmt.Printf("  %-10s %s\n", "jobs", cfg.Skills.Jobs.APIBase)
	return nil
}

func statMark(path string) string {
	if _, err := os.Stat(path); err == nil {
		return "✓"
	}
	return "✗"
}

func setMark(value string) string {
	if value != "" {
		return "✓"
	}
	return "(not set)"
}

func enabledMark(enabled, configured bool) string {
	switch {
	case enabled && configured:
		return "enabled ✓"
	case enabled:
		return "enabled (token missing)"
	default:
		return "disabled"
	}
}
