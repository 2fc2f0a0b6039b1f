package orchestrator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Codesait/clawbot-telegram/internal/bus"
	"github.com/Codesait/clawbot-telegram/internal/schema"
)

// defaultPersona is used when the config does not provide one.
const defaultPersona = `You are clawbot, a concise personal assistant reachable over chat.
You can call tools to look things up or act on the user's behalf.
Call tools when they help; answer directly when they don't.
Keep replies short and plain.`

var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// initialContext derives the optional attached-content context for the first
// round from the inbound message: attachment metadata wins, otherwise the
// first URL found in the text.
func initialContext(msg bus.InboundMessage) *schema.TurnContext {
	if att := msg.Attachment(); att != nil {
		body := att.Locator
		if att.Caption != "" {
			body += "\n" + att.Caption
		}
		return &schema.TurnContext{Kind: att.Kind, Body: body}
	}
	if u := urlPattern.FindString(msg.Content()); u != "" {
		return &schema.TurnContext{Kind: schema.ContextURL, Body: u}
	}
	return nil
}

// composeUser folds the turn context into the user text sent to the model.
func composeUser(text string, tc *schema.TurnContext) string {
	if tc == nil || tc.Body == "" {
		return text
	}
	switch tc.Kind {
	case schema.ContextToolResult:
		return fmt.Sprintf("%s\n\nTool results:\n%s", text, tc.Body)
	case schema.ContextURL:
		return fmt.Sprintf("%s\n\n[Linked URL: %s]", text, tc.Body)
	case schema.ContextCaption:
		return fmt.Sprintf("%s\n\n[Caption: %s]", text, tc.Body)
	case schema.ContextDocument:
		return fmt.Sprintf("%s\n\n[Document content]\n%s", text, tc.Body)
	case schema.ContextVoice, schema.ContextImage:
		return fmt.Sprintf("%s\n\n[Attached %s: %s]", text, tc.Kind, tc.Body)
	default:
		return fmt.Sprintf("%s\n\n%s", text, tc.Body)
	}
}

// regroundPrompt restates the original request for the next round. Restating
// it verbatim keeps the model anchored to the user's goal across rounds; the
// tool results travel in the turn context.
func regroundPrompt(original string) string {
	return fmt.Sprintf(
		"The user originally asked: %s\n\nTool results from your previous step are attached. Decide whether to call more tools or answer the user now.",
		strings.TrimSpace(original),
	)
}
