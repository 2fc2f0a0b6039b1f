// Package dependency wires core clawbot services using go.uber.org/dig.
package dependency

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/dig"

	"github.com/Codesait/clawbot-telegram/internal/bus"
	"github.com/Codesait/clawbot-telegram/internal/channels"
	"github.com/Codesait/clawbot-telegram/internal/config"
	"github.com/Codesait/clawbot-telegram/internal/cron"
	"github.com/Codesait/clawbot-telegram/internal/gateway"
	"github.com/Codesait/clawbot-telegram/internal/orchestrator"
	"github.com/Codesait/clawbot-telegram/internal/schema"
	"github.com/Codesait/clawbot-telegram/internal/skills"
	"github.com/Codesait/clawbot-telegram/internal/store"
)

// Container holds the resolved core service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	msgBus   *bus.MessageBus
	loop     *orchestrator.Loop
	cronSvc  *cron.Service
	channels *channels.Manager
}

func (c *Container) MessageBus() *bus.MessageBus       { return c.msgBus }
func (c *Container) Loop() *orchestrator.Loop          { return c.loop }
func (c *Container) CronService() *cron.Service        { return c.cronSvc }
func (c *Container) ChannelManager() *channels.Manager { return c.channels }

// New builds and wires all core services from cfg.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	for _, provide := range []any{
		func() *config.Config { return cfg },
		newMessageBus,
		newGateway,
		newStore,
		newCronService,
		newRegistry,
		newExecutor,
		newRunner,
		newLoop,
		newChannelManager,
	} {
		if err := d.Provide(provide); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(
		msgBus *bus.MessageBus,
		loop *orchestrator.Loop,
		cronSvc *cron.Service,
		mgr *channels.Manager,
	) {
		result = &Container{
			msgBus:   msgBus,
			loop:     loop,
			cronSvc:  cronSvc,
			channels: mgr,
		}
	})
	if err != nil {
		return nil, err
	}

	// The scheduler skill depends on the cron service and the cron service
	// fires back into the loop, so the callback is attached after resolution.
	result.cronSvc.SetOnFire(func(ctx context.Context, job cron.Job) error {
		reply := result.loop.ProcessDirect(ctx, bus.ChannelCron, job.ChatID, job.Message)
		out := bus.NewOutboundMessage(bus.ChannelTelegram, job.ChatID, reply)
		result.msgBus.PublishOutbound(out)
		return nil
	})

	return result, nil
}

func newMessageBus() *bus.MessageBus {
	return bus.NewMessageBus(100)
}

func newGateway(cfg *config.Config) (schema.Gateway, error) {
	if cfg.Model.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for model %q — edit %s", cfg.Model.Model, config.ConfigPath())
	}
	return gateway.NewOpenAIGateway(cfg.Model), nil
}

func newStore(cfg *config.Config) (schema.Store, error) {
	dir := filepath.Join(config.DataDir(), "history")
	ttl := time.Duration(cfg.Agent.HistoryTTLDays) * 24 * time.Hour
	return store.NewFileStore(dir, cfg.Agent.HistoryLimit, ttl)
}

func newCronService() *cron.Service {
	return cron.NewService(filepath.Join(config.DataDir(), "cron", "jobs.json"))
}

func newRegistry(cfg *config.Config, cronSvc *cron.Service) (*skills.Registry, error) {
	return skills.NewRegistry(
		skills.NewGitHubSkill(cfg.Skills.GitHub.Token, cfg.Skills.GitHub.Owner),
		skills.NewWebSkill(cfg.Skills.Search.APIKey, cfg.Skills.Search.MaxResults),
		skills.NewArticleSkill(0),
		skills.NewJobsSkill(cfg.Skills.Jobs.APIBase),
		skills.NewFilesSkill(cfg.WorkspacePath(), cfg.Skills.RestrictToWorkspace),
		skills.NewSchedulerSkill(cronSvc),
	)
}

func newExecutor(registry *skills.Registry) *orchestrator.Executor {
	return orchestrator.NewExecutor(registry)
}

func newRunner(cfg *config.Config, gw schema.Gateway, exec *orchestrator.Executor, registry *skills.Registry) *orchestrator.Runner {
	return orchestrator.NewRunner(
		gw,
		exec,
		registry.Descriptors(),
		cfg.Agent.Persona,
		cfg.Agent.MaxTurns,
		cfg.WorkspacePath(),
	)
}

func newLoop(b *bus.MessageBus, runner *orchestrator.Runner, st schema.Store) *orchestrator.Loop {
	return orchestrator.NewLoop(b, runner, st)
}

func newChannelManager(cfg *config.Config, b *bus.MessageBus) *channels.Manager {
	return channels.NewManager(cfg, b)
}
