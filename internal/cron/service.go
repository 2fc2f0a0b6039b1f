// Package cron manages scheduled messages: one-time reminders, fixed
// intervals, and cron-expression schedules, persisted to a JSON file so they
// survive restarts.
package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	robfigcron "github.com/robfig/cron/v3"

	"github.com/Codesait/clawbot-telegram/internal/skills"
)

// Job is one scheduled message.
type Job struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Message string `json:"message"`
	ChatID  string `json:"chatId"`
	Enabled bool   `json:"enabled"`

	Kind    string  `json:"kind"`              // "every" | "cron" | "at"
	EveryMs *int64  `json:"everyMs,omitempty"` // interval
	Expr    *string `json:"expr,omitempty"`    // cron expression
	TZ      *string `json:"tz,omitempty"`      // IANA timezone
	AtMs    *int64  `json:"atMs,omitempty"`    // one-time

	NextRunAtMs *int64  `json:"nextRunAtMs,omitempty"`
	LastRunAtMs *int64  `json:"lastRunAtMs,omitempty"`
	LastStatus  *string `json:"lastStatus,omitempty"`
	LastError   *string `json:"lastError,omitempty"`

	CreatedAtMs    int64 `json:"createdAtMs"`
	UpdatedAtMs    int64 `json:"updatedAtMs"`
	DeleteAfterRun bool  `json:"deleteAfterRun"`
}

type jobStore struct {
	Version int   `json:"version"`
	Jobs    []Job `json:"jobs"`
}

// OnFireFunc is called when a job fires. The callback runs the message
// through the orchestrator and delivers the reply to the job's chat.
type OnFireFunc func(ctx context.Context, job Job) error

// Service manages scheduled jobs. It implements skills.Scheduler.
type Service struct {
	storePath string
	onFire    OnFireFunc

	mu    sync.Mutex
	store jobStore

	timers    map[string]*time.Timer
	robfig    *robfigcron.Cron
	robfigIDs map[string]robfigcron.EntryID
}

// NewService creates a Service persisting to storePath (e.g.
// ~/.clawbot/jobs.json).
func NewService(storePath string) *Service {
	return &Service{
		storePath: storePath,
		timers:    make(map[string]*time.Timer),
		robfig:    robfigcron.New(),
		robfigIDs: make(map[string]robfigcron.EntryID),
	}
}

// SetOnFire registers the fire callback. Must be set before Start.
func (s *Service) SetOnFire(fn OnFireFunc) { s.onFire = fn }

// Start loads jobs from disk, recomputes next-run times, and arms all
// timers. Blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if err := s.loadLocked(); err != nil {
		slog.Warn("cron: load failed, starting empty", "err", err)
	}
	now := nowMs()
	for i := range s.store.Jobs {
		if s.store.Jobs[i].Enabled {
			s.store.Jobs[i].NextRunAtMs = nextRun(s.store.Jobs[i], now)
		}
	}
	s.saveLocked()
	for _, j := range s.store.Jobs {
		if j.Enabled {
			s.armLocked(ctx, j)
		}
	}
	s.mu.Unlock()

	s.robfig.Start()
	slog.Info("cron: started", "jobs", len(s.store.Jobs))

	<-ctx.Done()

	<-s.robfig.Stop().Done()
	s.mu.Lock()
	for _, t := range s.timers {
		t.Stop()
	}
	s.mu.Unlock()
	return ctx.Err()
}

// AddJob implements skills.Scheduler. kind is "every", "cron", or "at".
func (s *Service) AddJob(name, message, kind string, everySeconds int64, cronExpr, tz string, at time.Time, chatID string, deleteAfterRun bool) (string, error) {
	now := nowMs()
	job := Job{
		ID:             shortID(),
		Name:           name,
		Message:        message,
		ChatID:         chatID,
		Enabled:        true,
		Kind:           kind,
		CreatedAtMs:    now,
		UpdatedAtMs:    now,
		DeleteAfterRun: deleteAfterRun,
	}
	switch kind {
	case "every":
		if everySeconds <= 0 {
			return "", fmt.Errorf("interval must be positive")
		}
		ms := everySeconds * 1000
		job.EveryMs = &ms
	case "cron":
		if _, err := cronParser().Parse(cronExpr); err != nil {
			return "", fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
		}
		job.Expr = &cronExpr
		if tz != "" {
			job.TZ = &tz
		}
	case "at":
		if !at.After(time.Now()) {
			return "", fmt.Errorf("one-time schedule must be in the future")
		}
		ms := at.UnixMilli()
		job.AtMs = &ms
	default:
		return "", fmt.Errorf("unknown schedule kind %q", kind)
	}
	job.NextRunAtMs = nextRun(job, now)

	s.mu.Lock()
	s.store.Jobs = append(s.store.Jobs, job)
	s.saveLocked()
	s.armLocked(context.Background(), job)
	s.mu.Unlock()

	slog.Info("cron: added job", "name", name, "id", job.ID, "kind", kind, "chat", chatID)
	return job.ID, nil
}

// ListJobs implements skills.Scheduler. Returns enabled jobs for chatID;
// chatID empty lists all enabled jobs.
func (s *Service) ListJobs(chatID string) []skills.JobSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []skills.JobSummary
	for _, j := range s.store.Jobs {
		if !j.Enabled {
			continue
		}
		if chatID != "" && j.ChatID != chatID {
			continue
		}
		out = append(out, skills.JobSummary{ID: j.ID, Name: j.Name, Kind: j.Kind})
	}
	return out
}

// RemoveJob implements skills.Scheduler. Returns true if the job existed.
func (s *Service) RemoveJob(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.store.Jobs)
	kept := s.store.Jobs[:0]
	for _, j := range s.store.Jobs {
		if j.ID != id {
			kept = append(kept, j)
		}
	}
	s.store.Jobs = kept
	if len(kept) < before {
		s.disarmLocked(id)
		s.saveLocked()
		return true
	}
	return false
}

// AllJobs returns every job, soonest first. Used by the CLI.
func (s *Service) AllJobs(includeDisabled bool) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.loadLocked()
	var jobs []Job
	for _, j := range s.store.Jobs {
		if includeDisabled || j.Enabled {
			jobs = append(jobs, j)
		}
	}
	sort.Slice(jobs, func(i, k int) bool {
		a := int64(^uint64(0) >> 1)
		b := a
		if jobs[i].NextRunAtMs != nil {
			a = *jobs[i].NextRunAtMs
		}
		if jobs[k].NextRunAtMs != nil {
			b = *jobs[k].NextRunAtMs
		}
		return a < b
	})
	return jobs
}

// --------------------------------------------------------------------------
// Scheduling internals
// --------------------------------------------------------------------------

func (s *Service) armLocked(ctx context.Context, job Job) {
	s.disarmLocked(job.ID)

	switch job.Kind {
	case "every":
		if job.EveryMs == nil || *job.EveryMs <= 0 {
			return
		}
		d := time.Duration(*job.EveryMs) * time.Millisecond
		s.timers[job.ID] = time.AfterFunc(d, func() {
			s.fire(ctx, job)
			s.mu.Lock()
			for _, j := range s.store.Jobs {
				if j.ID == job.ID && j.Enabled {
					s.armLocked(ctx, j)
					break
				}
			}
			s.mu.Unlock()
		})

	case "at":
		if job.AtMs == nil {
			return
		}
		delay := time.Until(time.UnixMilli(*job.AtMs))
		if delay < 0 {
			return
		}
		s.timers[job.ID] = time.AfterFunc(delay, func() {
			s.fire(ctx, job)
		})

	case "cron":
		if job.Expr == nil {
			return
		}
		sched, err := cronParser().Parse(*job.Expr)
		if err != nil {
			slog.Warn("cron: invalid expression", "job", job.ID, "expr", *job.Expr, "err", err)
			return
		}
		loc := jobLocation(job)
		jobCopy := job
		s.robfigIDs[job.ID] = s.robfig.Schedule(
			withLocation(sched, loc),
			robfigcron.FuncJob(func() { s.fire(ctx, jobCopy) }),
		)
	}
}

func (s *Service) disarmLocked(id string) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	if eid, ok := s.robfigIDs[id]; ok {
		s.robfig.Remove(eid)
		delete(s.robfigIDs, id)
	}
}

func (s *Service) fire(ctx context.Context, job Job) {
	startMs := nowMs()
	slog.Info("cron: firing job", "name", job.Name, "id", job.ID, "chat", job.ChatID)

	status := "ok"
	var lastErr *string
	if s.onFire != nil {
		if err := s.onFire(ctx, job); err != nil {
			status = "error"
			e := err.Error()
			lastErr = &e
			slog.Error("cron: job failed", "name", job.Name, "err", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.store.Jobs {
		if s.store.Jobs[i].ID != job.ID {
			continue
		}
		now := nowMs()
		s.store.Jobs[i].LastRunAtMs = &startMs
		s.store.Jobs[i].LastStatus = &status
		s.store.Jobs[i].LastError = lastErr
		s.store.Jobs[i].UpdatedAtMs = now

		if job.Kind == "at" {
			if job.DeleteAfterRun {
				kept := s.store.Jobs[:0]
				for _, j := range s.store.Jobs {
					if j.ID != job.ID {
						kept = append(kept, j)
					}
				}
				s.store.Jobs = kept
			} else {
				s.store.Jobs[i].Enabled = false
				s.store.Jobs[i].NextRunAtMs = nil
			}
		} else {
			s.store.Jobs[i].NextRunAtMs = nextRun(job, now)
		}
		break
	}
	s.saveLocked()
}

// --------------------------------------------------------------------------
// Persistence
// --------------------------------------------------------------------------

func (s *Service) loadLocked() error {
	if len(s.store.Jobs) > 0 {
		return nil
	}
	data, err := os.ReadFile(s.storePath)
	if os.IsNotExist(err) {
		s.store = jobStore{Version: 1}
		return nil
	}
	if err != nil {
		return err
	}
	var st jobStore
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	if st.Version == 0 {
		st.Version = 1
	}
	s.store = st
	return nil
}

func (s *Service) saveLocked() {
	if err := os.MkdirAll(filepath.Dir(s.storePath), 0o755); err != nil {
		slog.Warn("cron: mkdir failed", "err", err)
		return
	}
	data, err := json.MarshalIndent(s.store, "", "  ")
	if err != nil {
		slog.Warn("cron: marshal failed", "err", err)
		return
	}
	if err := os.WriteFile(s.storePath, data, 0o644); err != nil {
		slog.Warn("cron: write failed", "err", err)
	}
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func nowMs() int64 { return time.Now().UnixMilli() }

func shortID() string {
	return fmt.Sprintf("%08x", time.Now().UnixNano()&0xFFFFFFFF)
}

func cronParser() robfigcron.Parser {
	return robfigcron.NewParser(
		robfigcron.Minute | robfigcron.Hour | robfigcron.Dom | robfigcron.Month | robfigcron.Dow,
	)
}

func jobLocation(job Job) *time.Location {
	loc := time.Local
	if job.TZ != nil && *job.TZ != "" {
		if l, err := time.LoadLocation(*job.TZ); err == nil {
			loc = l
		}
	}
	return loc
}

func nextRun(job Job, nowMs int64) *int64 {
	switch job.Kind {
	case "at":
		if job.AtMs != nil && *job.AtMs > nowMs {
			v := *job.AtMs
			return &v
		}
	case "every":
		if job.EveryMs != nil && *job.EveryMs > 0 {
			v := nowMs + *job.EveryMs
			return &v
		}
	case "cron":
		if job.Expr != nil {
			if sched, err := cronParser().Parse(*job.Expr); err == nil {
				next := sched.Next(time.UnixMilli(nowMs).In(jobLocation(job)))
				v := next.UnixMilli()
				return &v
			}
		}
	}
	return nil
}

// locSchedule wraps a Schedule to evaluate in a fixed location.
type locSchedule struct {
	inner robfigcron.Schedule
	loc   *time.Location
}

func (l locSchedule) Next(t time.Time) time.Time {
	return l.inner.Next(t.In(l.loc))
}

func withLocation(s robfigcron.Schedule, loc *time.Location) robfigcron.Schedule {
	return locSchedule{inner: s, loc: loc}
}
