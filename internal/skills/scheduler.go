package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Codesait/clawbot-telegram/internal/schema"
)

// JobSummary is the scheduler-facing view of a scheduled job.
type JobSummary struct {
	ID   string
	Name string
	Kind string
}

// Scheduler is the surface the scheduler skill needs from the cron service.
// Implemented by cron.Service.
type Scheduler interface {
	AddJob(name, message, kind string, everySeconds int64, cronExpr, tz string, at time.Time, chatID string, deleteAfterRun bool) (string, error)
	ListJobs(chatID string) []JobSummary
	RemoveJob(id string) bool
}

// SchedulerSkill lets the model schedule messages back to the chat that
// asked for them.
type SchedulerSkill struct {
	svc Scheduler
}

func NewSchedulerSkill(svc Scheduler) *SchedulerSkill {
	return &SchedulerSkill{svc: svc}
}

func (s *SchedulerSkill) Name() string        { return "scheduler" }
func (s *SchedulerSkill) Description() string { return "Scheduled and recurring messages" }

func (s *SchedulerSkill) Tools() []schema.Tool {
	return []schema.Tool{
		&scheduleMessageTool{skill: s},
		&listScheduledTool{skill: s},
		&cancelScheduledTool{skill: s},
	}
}

// ---------------------------------------------------------------------------
// schedule_message
// ---------------------------------------------------------------------------

type scheduleMessageParams struct {
	Message      string `json:"message" jsonschema:"description=Text to send when the schedule fires" validate:"required"`
	EverySeconds int64  `json:"every_seconds,omitempty" jsonschema:"description=Recurring interval in seconds" validate:"omitempty,min=1"`
	Cron         string `json:"cron,omitempty" jsonschema:"description=Cron expression like '0 9 * * *'"`
	TZ           string `json:"tz,omitempty" jsonschema:"description=IANA timezone for the cron expression"`
	At           string `json:"at,omitempty" jsonschema:"description=One-time ISO datetime like '2026-09-01T10:30:00'"`
}

type scheduleMessageTool struct {
	skill *SchedulerSkill
}

func (t *scheduleMessageTool) Name() string { return "schedule_message" }
func (t *scheduleMessageTool) Description() string {
	return "Schedule a message to this chat. Provide exactly one of every_seconds, cron, or at."
}
func (t *scheduleMessageTool) Parameters() json.RawMessage {
	return paramsSchema(&scheduleMessageParams{})
}

func (t *scheduleMessageTool) Execute(_ context.Context, params map[string]any, call schema.CallContext) (string, error) {
	var p scheduleMessageParams
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}
	if call.ChatID == "" {
		return "", fmt.Errorf("no chat to deliver to")
	}

	var (
		kind           string
		at             time.Time
		deleteAfterRun bool
	)
	switch {
	case p.EverySeconds > 0:
		kind = "every"
	case p.Cron != "":
		kind = "cron"
	case p.At != "":
		dt, err := time.Parse(time.RFC3339, p.At)
		if err != nil {
			dt, err = time.ParseInLocation("2006-01-02T15:04:05", p.At, time.Local)
			if err != nil {
				return "", fmt.Errorf("invalid 'at' datetime %q: %w", p.At, err)
			}
		}
		kind = "at"
		at = dt
		deleteAfterRun = true
	default:
		return "", fmt.Errorf("one of every_seconds, cron, or at is required")
	}

	name := p.Message
	if len(name) > 30 {
		name = name[:30]
	}
	id, err := t.skill.svc.AddJob(name, p.Message, kind, p.EverySeconds, p.Cron, p.TZ, at, call.ChatID, deleteAfterRun)
	if err != nil {
		return "", fmt.Errorf("schedule message: %w", err)
	}
	return fmt.Sprintf("Scheduled '%s' (id: %s)", name, id), nil
}

// ---------------------------------------------------------------------------
// list_scheduled
// ---------------------------------------------------------------------------

type listScheduledParams struct{}

type listScheduledTool struct {
	skill *SchedulerSkill
}

func (t *listScheduledTool) Name() string { return "list_scheduled" }
func (t *listScheduledTool) Description() string {
	return "List the messages scheduled for this chat."
}
func (t *listScheduledTool) Parameters() json.RawMessage { return paramsSchema(&listScheduledParams{}) }

func (t *listScheduledTool) Execute(_ context.Context, _ map[string]any, call schema.CallContext) (string, error) {
	jobs := t.skill.svc.ListJobs(call.ChatID)
	if len(jobs) == 0 {
		return "No scheduled messages.", nil
	}
	var sb strings.Builder
	sb.WriteString("Scheduled messages:\n")
	for _, j := range jobs {
		fmt.Fprintf(&sb, "- %s (id: %s, %s)\n", j.Name, j.ID, j.Kind)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// ---------------------------------------------------------------------------
// cancel_scheduled
// ---------------------------------------------------------------------------

type cancelScheduledParams struct {
	JobID string `json:"job_id" jsonschema:"description=ID of the scheduled message to cancel" validate:"required"`
}

type cancelScheduledTool struct {
	skill *SchedulerSkill
}

func (t *cancelScheduledTool) Name() string { return "cancel_scheduled" }
func (t *cancelScheduledTool) Description() string {
	return "Cancel a scheduled message by its job ID."
}
func (t *cancelScheduledTool) Parameters() json.RawMessage {
	return paramsSchema(&cancelScheduledParams{})
}

func (t *cancelScheduledTool) Execute(_ context.Context, params map[string]any, _ schema.CallContext) (string, error) {
	var p cancelScheduledParams
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}
	if t.skill.svc.RemoveJob(p.JobID) {
		return fmt.Sprintf("Cancelled job %s", p.JobID), nil
	}
	return "", fmt.Errorf("job %s not found", p.JobID)
}
