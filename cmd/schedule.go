package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Codesait/clawbot-telegram/internal/config"
	"github.com/Codesait/clawbot-telegram/internal/cron"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage scheduled messages",
}

func init() {
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleAddCmd)
	scheduleCmd.AddCommand(scheduleRemoveCmd)
}

// ---- list ------------------------------------------------------------------

var scheduleListAll bool

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled messages",
	RunE: func(_ *cobra.Command, _ []string) error {
		svc := cron.NewService(scheduleStorePath())
		jobs := svc.AllJobs(scheduleListAll)
		if len(jobs) == 0 {
			fmt.Println("No scheduled messages.")
			return nil
		}
		fmt.Printf("%-10s %-20s %-25s %-12s %-20s\n", "ID", "Name", "Schedule", "Chat", "Next Run")
		for _, j := range jobs {
			nextRun := ""
			if j.NextRunAtMs != nil {
				nextRun = time.UnixMilli(*j.NextRunAtMs).Format("2006-01-02 15:04")
			}
			fmt.Printf("%-10s %-20s %-25s %-12s %-20s\n",
				j.ID, truncStr(j.Name, 19), truncStr(formatSchedule(j), 24), truncStr(j.ChatID, 11), nextRun)
		}
		return nil
	},
}

func init() {
	scheduleListCmd.Flags().BoolVarP(&scheduleListAll, "all", "a", false, "Include disabled jobs")
}

// ---- add -------------------------------------------------------------------

var (
	scheduleAddName  string
	scheduleAddMsg   string
	scheduleAddChat  string
	scheduleAddEvery int64
	scheduleAddCron  string
	scheduleAddTZ    string
	scheduleAddAt    string
)

var scheduleAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a scheduled message",
	RunE: func(_ *cobra.Command, _ []string) error {
		if scheduleAddTZ != "" && scheduleAddCron == "" {
			return fmt.Errorf("--tz can only be used with --cron")
		}

		var kind string
		var at time.Time
		switch {
		case scheduleAddEvery > 0:
			kind = "every"
		case scheduleAddCron != "":
			kind = "cron"
		case scheduleAddAt != "":
			kind = "at"
			dt, err := time.ParseInLocation("2006-01-02T15:04:05", scheduleAddAt, time.Local)
			if err != nil {
				dt, err = time.Parse(time.RFC3339, scheduleAddAt)
				if err != nil {
					return fmt.Errorf("invalid --at value %q: %w", scheduleAddAt, err)
				}
			}
			at = dt
		default:
			return fmt.Errorf("must specify --every, --cron, or --at")
		}

		svc := cron.NewService(scheduleStorePath())
		id, err := svc.AddJob(
			scheduleAddName, scheduleAddMsg, kind,
			scheduleAddEvery, scheduleAddCron, scheduleAddTZ, at,
			scheduleAddChat, kind == "at",
		)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Added job '%s' (%s)\n", scheduleAddName, id)
		return nil
	},
}

func init() {
	scheduleAddCmd.Flags().StringVarP(&scheduleAddName, "name", "n", "", "Job name (required)")
	scheduleAddCmd.Flags().StringVarP(&scheduleAddMsg, "message", "m", "", "Message for the bot (required)")
	scheduleAddCmd.Flags().StringVar(&scheduleAddChat, "chat", "", "Chat ID the reply is delivered to (required)")
	scheduleAddCmd.Flags().Int64VarP(&scheduleAddEvery, "every", "e", 0, "Run every N seconds")
	scheduleAddCmd.Flags().StringVarP(&scheduleAddCron, "cron", "c", "", "Cron expression (e.g. '0 9 * * *')")
	scheduleAddCmd.Flags().StringVar(&scheduleAddTZ, "tz", "", "IANA timezone for --cron")
	scheduleAddCmd.Flags().StringVar(&scheduleAddAt, "at", "", "Run once at ISO datetime")

	_ = scheduleAddCmd.MarkFlagRequired("name")
	_ = scheduleAddCmd.MarkFlagRequired("message")
	_ = scheduleAddCmd.MarkFlagRequired("chat")
}

// ---- remove ----------------------------------------------------------------

var scheduleRemoveCmd = &cobra.Command{
	Use:   "remove <job-id>",
	Short: "Remove a scheduled message",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		svc := cron.NewService(scheduleStorePath())
		if svc.RemoveJob(args[0]) {
			fmt.Printf("✓ Removed job %s\n", args[0])
		} else {
			fmt.Printf("Job %s not found\n", args[0])
		}
		return nil
	},
}

// ---- helpers ---------------------------------------------------------------

func scheduleStorePath() string {
	return filepath.Join(config.DataDir(), "cron", "jobs.json")
}

func formatSchedule(j cron.Job) string {
	switch j.Kind {
	case "every":
		if j.EveryMs != nil {
			return fmt.Sprintf("every %ds", *j.EveryMs/1000)
		}
	case "cron":
		if j.Expr != nil {
			if j.TZ != nil {
				return *j.Expr + " (" + *j.TZ + ")"
			}
			return *j.Expr
		}
	case "at":
		return "one-time"
	}
	return j.Kind
}

func truncStr(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
