package channels

import (
	"context"
	"log/slog"
	"sort"

	"github.com/Codesait/clawbot-telegram/internal/bus"
	"github.com/Codesait/clawbot-telegram/internal/config"
)

// Manager owns all enabled channels and routes outbound messages.
type Manager struct {
	channels map[bus.ChannelType]Channel
	b        bus.Bus
}

// NewManager creates a Manager with every channel the config enables.
func NewManager(cfg *config.Config, b bus.Bus) *Manager {
	m := &Manager{
		channels: make(map[bus.ChannelType]Channel),
		b:        b,
	}

	if cfg.Telegram.Enabled {
		m.channels[bus.ChannelTelegram] = NewTelegramChannel(&cfg.Telegram, b)
		slog.Info("channel enabled", "name", "telegram")
	}
	if cfg.Slack.Enabled {
		m.channels[bus.ChannelSlack] = NewSlackChannel(&cfg.Slack, b)
		slog.Info("channel enabled", "name", "slack")
	}

	return m
}

// EnabledChannels returns the names of all enabled channels, sorted.
func (m *Manager) EnabledChannels() []string {
	names := make([]string, 0, len(m.channels))
	for n := range m.channels {
		names = append(names, string(n))
	}
	sort.Strings(names)
	return names
}

// StartAll starts all channels concurrently and dispatches outbound messages.
// Blocks until ctx is cancelled.
func (m *Manager) StartAll(ctx context.Context) error {
	go m.dispatchOutbound(ctx)

	for name, ch := range m.channels {
		go func(n bus.ChannelType, c Channel) {
			slog.Info("starting channel", "name", n)
			if err := c.Start(ctx); err != nil && ctx.Err() == nil {
				slog.Error("channel exited with error", "name", n, "err", err)
			}
		}(name, ch)
	}

	<-ctx.Done()
	return ctx.Err()
}

// dispatchOutbound routes each outbound message to its channel's Send.
func (m *Manager) dispatchOutbound(ctx context.Context) {
	for {
		select {
		case msg := <-m.b.OutboundChan():
			ch, ok := m.channels[msg.Channel()]
			if !ok {
				slog.Debug("no channel for outbound message", "channel", msg.Channel())
				continue
			}
			if err := ch.Send(ctx, msg); err != nil {
				slog.Error("send error", "channel", msg.Channel(), "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
