package bus

import "time"

// Attachment describes structured attachment metadata on an inbound message:
// the kind of content and a locator the skills can act on (a file path or URL).
type Attachment struct {
	Kind    string // "voice" | "image" | "document"
	Locator string
	Caption string
}

// InboundMessage is a message received from a chat channel.
type InboundMessage struct {
	channel    ChannelType
	senderID   string
	chatID     string
	content    string
	timestamp  time.Time
	attachment *Attachment
	metadata   map[string]any
}

// NewInboundMessage creates an InboundMessage with the timestamp set to now.
// Use SetAttachment and SetMetadata to attach optional fields.
func NewInboundMessage(channel ChannelType, senderID, chatID, content string) InboundMessage {
	return InboundMessage{
		channel:   channel,
		senderID:  senderID,
		chatID:    chatID,
		content:   content,
		timestamp: time.Now(),
	}
}

func (m InboundMessage) Channel() ChannelType     { return m.channel }
func (m InboundMessage) SenderID() string         { return m.senderID }
func (m InboundMessage) ChatID() string           { return m.chatID }
func (m InboundMessage) Content() string          { return m.content }
func (m InboundMessage) Timestamp() time.Time     { return m.timestamp }
func (m InboundMessage) Attachment() *Attachment  { return m.attachment }
func (m InboundMessage) Metadata() map[string]any { return m.metadata }

func (m *InboundMessage) SetAttachment(a *Attachment)   { m.attachment = a }
func (m *InboundMessage) SetMetadata(md map[string]any) { m.metadata = md }

// Preview returns a short snippet of the message content for logging.
func (m InboundMessage) Preview() string {
	preview := m.content
	if len(preview) > 80 {
		preview = preview[:80] + "..."
	}
	return preview
}
