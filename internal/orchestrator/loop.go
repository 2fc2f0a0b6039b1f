package orchestrator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Codesait/clawbot-telegram/internal/bus"
	"github.com/Codesait/clawbot-telegram/internal/schema"
)

const (
	// genericFailureReply covers uncaught failures in the handling path. The
	// user always gets an acknowledgment, never silence.
	genericFailureReply = "Something went wrong while handling that message. Please try again."
	emptyReply          = "I finished processing but have nothing to add."

	helpText = "clawbot commands:\n/reset — Start a new conversation\n/help — Show available commands"
)

// Loop consumes inbound messages from the bus, runs each through the runner,
// persists the net exchange, and publishes the reply.
type Loop struct {
	bus    bus.Bus
	runner *Runner
	store  schema.Store
}

func NewLoop(b bus.Bus, runner *Runner, store schema.Store) *Loop {
	return &Loop{bus: b, runner: runner, store: store}
}

// Run reads from the inbound bus and processes each message in its own
// goroutine. Chats are independent; two concurrent messages from the same
// chat race on the history read-modify-write and the last writer wins.
// Blocks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	slog.Info("orchestrator loop started")
	for {
		select {
		case msg := <-l.bus.InboundChan():
			go l.handleMessage(ctx, msg)
		case <-ctx.Done():
			slog.Info("orchestrator loop stopping")
			return ctx.Err()
		}
	}
}

// ProcessDirect handles a message outside the bus (CLI one-shots, fired cron
// jobs) and returns the final reply text.
func (l *Loop) ProcessDirect(ctx context.Context, channel bus.ChannelType, chatID, content string) string {
	msg := bus.NewInboundMessage(channel, "user", chatID, content)
	return l.process(ctx, msg)
}

func (l *Loop) handleMessage(ctx context.Context, msg bus.InboundMessage) {
	reply := l.process(ctx, msg)
	out := bus.NewOutboundMessage(msg.Channel(), msg.ChatID(), reply)
	out.SetMetadata(msg.Metadata())
	l.bus.PublishOutbound(out)
}

// process runs the full pipeline for one message: commands, history read,
// orchestration, history append, persist. Whatever reply is produced, the
// exchange is appended as one user message and one assistant message; the
// error texts count as the assistant turn.
func (l *Loop) process(ctx context.Context, msg bus.InboundMessage) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("message handling panicked", "chat", msg.ChatID(), "panic", r)
			reply = genericFailureReply
		}
	}()

	slog.Info("processing message",
		"channel", msg.Channel(),
		"sender", msg.SenderID(),
		"content", msg.Preview(),
	)

	if cmd := l.handleCommand(msg); cmd != "" {
		return cmd
	}

	history := l.store.Get(msg.ChatID())

	reply = l.runner.Run(ctx, msg.Content(), initialContext(msg), history, msg.ChatID())
	if strings.TrimSpace(reply) == "" {
		reply = emptyReply
	}

	history = append(history,
		schema.NewUserMessage(msg.Content()),
		schema.NewAssistantMessage(reply),
	)
	if err := l.store.Put(msg.ChatID(), history); err != nil {
		slog.Warn("history save failed", "chat", msg.ChatID(), "err", err)
	}

	slog.Info("reply ready", "channel", msg.Channel(), "chat", msg.ChatID(), "length", len(reply))
	return reply
}

// handleCommand handles slash commands without consulting the model.
// Returns empty when the message is not a command.
func (l *Loop) handleCommand(msg bus.InboundMessage) string {
	switch strings.TrimSpace(strings.ToLower(msg.Content())) {
	case "/reset", "/new":
		if err := l.store.Reset(msg.ChatID()); err != nil {
			slog.Warn("history reset failed", "chat", msg.ChatID(), "err", err)
			return "Couldn't clear the conversation, please try again."
		}
		return "Conversation cleared. What's next?"
	case "/help", "/start":
		return helpText
	}
	return ""
}
