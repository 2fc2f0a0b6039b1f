package channels

import (
	"testing"

	"github.com/Codesait/clawbot-telegram/internal/bus"
)

func TestIsAllowed(t *testing.T) {
	tests := []struct {
		name      string
		allowFrom []string
		senderID  string
		want      bool
	}{
		{"empty allowlist allows all", nil, "anyone", true},
		{"exact match", []string{"123"}, "123", true},
		{"no match", []string{"123"}, "456", false},
		{"id part of composite", []string{"123"}, "123|alice", true},
		{"username part of composite", []string{"alice"}, "123|alice", true},
		{"composite no match", []string{"bob"}, "123|alice", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBase(bus.ChannelTelegram, bus.NewMessageBus(1), tt.allowFrom)
			if got := b.IsAllowed(tt.senderID); got != tt.want {
				t.Errorf("IsAllowed(%q) = %v, want %v", tt.senderID, got, tt.want)
			}
		})
	}
}

func TestHandleMessage_PublishesToBus(t *testing.T) {
	mb := bus.NewMessageBus(1)
	b := NewBase(bus.ChannelTelegram, mb, nil)

	att := &bus.Attachment{Kind: "voice", Locator: "/tmp/v.ogg"}
	b.HandleMessage("42", "chat-7", "hello", att, map[string]any{"message_id": 9})

	select {
	case msg := <-mb.InboundChan():
		if msg.Channel() != bus.ChannelTelegram || msg.ChatID() != "chat-7" || msg.Content() != "hello" {
			t.Errorf("msg = %+v", msg)
		}
		if msg.Attachment() == nil || msg.Attachment().Kind != "voice" {
			t.Errorf("attachment = %+v", msg.Attachment())
		}
	default:
		t.Fatal("no inbound message published")
	}
}

func TestHandleMessage_DeniedSenderDropped(t *testing.T) {
	mb := bus.NewMessageBus(1)
	b := NewBase(bus.ChannelTelegram, mb, []string{"allowed-only"})

	b.HandleMessage("stranger", "chat-7", "hello", nil, nil)

	select {
	case msg := <-mb.InboundChan():
		t.Fatalf("denied sender's message was published: %+v", msg)
	default:
	}
}
