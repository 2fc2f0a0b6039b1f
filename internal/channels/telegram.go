package channels

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Codesait/clawbot-telegram/internal/bus"
	"github.com/Codesait/clawbot-telegram/internal/config"
	"github.com/Codesait/clawbot-telegram/internal/shared/textutils"
)

const telegramMaxMessageLen = 4000

// TelegramChannel implements the Telegram bot via long polling.
type TelegramChannel struct {
	Base
	cfg *config.TelegramConfig
	bot *tgbotapi.BotAPI
}

// NewTelegramChannel creates a TelegramChannel.
func NewTelegramChannel(cfg *config.TelegramConfig, b bus.Bus) *TelegramChannel {
	return &TelegramChannel{
		Base: NewBase(bus.ChannelTelegram, b, cfg.AllowFrom),
		cfg:  cfg,
	}
}

func (t *TelegramChannel) Name() string { return string(bus.ChannelTelegram) }

func (t *TelegramChannel) Start(ctx context.Context) error {
	if t.cfg.Token == "" {
		return fmt.Errorf("telegram: bot token not configured")
	}
	bot, err := tgbotapi.NewBotAPI(t.cfg.Token)
	if err != nil {
		return fmt.Errorf("telegram: create bot: %w", err)
	}
	t.bot = bot
	slog.Info("telegram: connected", "username", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go t.handleUpdate(ctx, update)
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

func (t *TelegramChannel) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	senderID := fmt.Sprintf("%d", msg.From.ID)
	if msg.From.UserName != "" {
		senderID = senderID + "|" + msg.From.UserName
	}
	chatID := fmt.Sprintf("%d", msg.Chat.ID)

	content := msg.Text
	if msg.Caption != "" {
		content = msg.Caption
	}

	att := t.extractAttachment(msg)
	if content == "" && att == nil {
		return
	}

	// Keep the typing indicator alive while the agent works on the message.
	typingCtx, cancelTyping := context.WithCancel(ctx)
	defer cancelTyping()
	go t.sendTypingLoop(typingCtx, msg.Chat.ID)

	metadata := map[string]any{
		"message_id": msg.MessageID,
		"user_id":    msg.From.ID,
		"username":   msg.From.UserName,
		"first_name": msg.From.FirstName,
		"is_group":   msg.Chat.Type != "private",
	}

	t.HandleMessage(senderID, chatID, content, att, metadata)
}

// extractAttachment maps Telegram media to a typed attachment. Photos pick
// the largest size; files are downloaded so skills can read them locally.
func (t *TelegramChannel) extractAttachment(msg *tgbotapi.Message) *bus.Attachment {
	switch {
	case msg.Voice != nil:
		path, err := t.downloadFile(msg.Voice.FileID, ".ogg")
		if err != nil {
			slog.Warn("telegram: voice download failed", "err", err)
			return nil
		}
		return &bus.Attachment{Kind: "voice", Locator: path, Caption: msg.Caption}
	case msg.Photo != nil:
		photo := msg.Photo[len(msg.Photo)-1]
		path, err := t.downloadFile(photo.FileID, ".jpg")
		if err != nil {
			slog.Warn("telegram: photo download failed", "err", err)
			return nil
		}
		return &bus.Attachment{Kind: "image", Locator: path, Caption: msg.Caption}
	case msg.Document != nil:
		path, err := t.downloadFile(msg.Document.FileID, "")
		if err != nil {
			slog.Warn("telegram: document download failed", "err", err)
			return nil
		}
		return &bus.Attachment{Kind: "document", Locator: path, Caption: msg.Caption}
	}
	return nil
}

func (t *TelegramChannel) downloadFile(fileID, ext string) (string, error) {
	if t.bot == nil {
		return "", fmt.Errorf("bot not running")
	}
	file, err := t.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", err
	}
	mediaDir := filepath.Join(config.DataDir(), "media")
	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		return "", err
	}
	if ext == "" {
		ext = filepath.Ext(file.FilePath)
	}
	dest := filepath.Join(mediaDir, fileID[:min(16, len(fileID))]+ext)
	if err := downloadToFile(file.Link(t.cfg.Token), dest); err != nil {
		return "", err
	}
	return dest, nil
}

func downloadToFile(url, dest string) error {
	resp, err := http.Get(url) //nolint:noctx
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

func (t *TelegramChannel) sendTypingLoop(ctx context.Context, chatID int64) {
	for {
		if t.bot != nil {
			action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
			_, _ = t.bot.Send(action)
		}
		select {
		case <-time.After(4 * time.Second):
		case <-ctx.Done():
			return
		}
	}
}

func (t *TelegramChannel) Send(_ context.Context, msg bus.OutboundMessage) error {
	if t.bot == nil {
		return fmt.Errorf("telegram: bot not running")
	}
	chatID, err := parseChatID(msg.ChatID())
	if err != nil {
		return err
	}
	if msg.Content() == "" {
		return nil
	}

	var replyMsgID int
	if mid, ok := msg.Metadata()["message_id"]; ok {
		switch v := mid.(type) {
		case int:
			replyMsgID = v
		case float64:
			replyMsgID = int(v)
		}
	}

	for _, chunk := range textutils.Split(msg.Content(), telegramMaxMessageLen) {
		m := tgbotapi.NewMessage(chatID, chunk)
		m.ParseMode = tgbotapi.ModeMarkdown
		if replyMsgID != 0 {
			m.ReplyToMessageID = replyMsgID
		}
		if _, err := t.bot.Send(m); err != nil {
			// Telegram rejects chunks with unbalanced markup; retry without
			// formatting so the user still gets the text.
			m2 := tgbotapi.NewMessage(chatID, chunk)
			if replyMsgID != 0 {
				m2.ReplyToMessageID = replyMsgID
			}
			if _, err2 := t.bot.Send(m2); err2 != nil {
				return fmt.Errorf("telegram: send: %w", err2)
			}
		}
	}
	return nil
}

func parseChatID(s string) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(s, "%d", &id); err != nil {
		return 0, fmt.Errorf("invalid chat_id: %s", s)
	}
	return id, nil
}
