// Package channels provides chat-platform channel implementations behind the
// message bus.
package channels

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Codesait/clawbot-telegram/internal/bus"
)

// Channel is one chat transport.
type Channel interface {
	Name() string
	// Start connects and blocks until ctx is cancelled.
	Start(ctx context.Context) error
	// Send delivers one outbound message.
	Send(ctx context.Context, msg bus.OutboundMessage) error
}

// Base holds common state and helpers shared by all channels.
type Base struct {
	channelName bus.ChannelType
	b           bus.Bus
	allowFrom   []string // empty = allow all
}

func NewBase(name bus.ChannelType, b bus.Bus, allowFrom []string) Base {
	return Base{channelName: name, b: b, allowFrom: allowFrom}
}

// IsAllowed checks whether senderID is on the allowlist.
// senderID may be "id|username" or a plain string.
func (b *Base) IsAllowed(senderID string) bool {
	if len(b.allowFrom) == 0 {
		return true
	}
	for _, allowed := range b.allowFrom {
		if allowed == senderID {
			return true
		}
	}
	if strings.Contains(senderID, "|") {
		for _, part := range strings.Split(senderID, "|") {
			if part == "" {
				continue
			}
			for _, allowed := range b.allowFrom {
				if allowed == part {
					return true
				}
			}
		}
	}
	return false
}

// HandleMessage verifies the sender is allowed, then pushes an
// InboundMessage to the bus.
func (b *Base) HandleMessage(senderID, chatID, content string, att *bus.Attachment, metadata map[string]any) {
	if !b.IsAllowed(senderID) {
		slog.Warn("access denied", "channel", b.channelName, "sender", senderID)
		return
	}

	msg := bus.NewInboundMessage(b.channelName, senderID, chatID, content)
	msg.SetAttachment(att)
	msg.SetMetadata(metadata)
	b.b.PublishInbound(msg)
}
