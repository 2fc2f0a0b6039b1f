package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Codesait/clawbot-telegram/internal/schema"
)

func newTestStore(t *testing.T, limit int, ttl time.Duration) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), limit, ttl)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}

func TestGet_MissingChatIsEmpty(t *testing.T) {
	s := newTestStore(t, 10, time.Hour)
	if got := s.Get("nobody"); len(got) != 0 {
		t.Errorf("Get = %v, want empty", got)
	}
}

func TestPutGet_RoundTrip(t *testing.T) {
	s := newTestStore(t, 10, time.Hour)
	msgs := []schema.Message{
		schema.NewUserMessage("hello"),
		schema.NewAssistantMessage("hi there"),
	}
	if err := s.Put("chat-1", msgs); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got := s.Get("chat-1")
	if len(got) != 2 {
		t.Fatalf("Get len = %d, want 2", len(got))
	}
	if got[0].Role != schema.RoleUser || got[0].Content != "hello" {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].Role != schema.RoleAssistant || got[1].Content != "hi there" {
		t.Errorf("got[1] = %+v", got[1])
	}
}

func TestPut_AppliesCapKeepingMostRecent(t *testing.T) {
	s := newTestStore(t, 10, time.Hour)

	// Simulate successive exchanges well past the cap.
	var history []schema.Message
	for i := 0; i < 8; i++ {
		history = append(history,
			schema.NewUserMessage(fmt.Sprintf("q%d", i)),
			schema.NewAssistantMessage(fmt.Sprintf("a%d", i)),
		)
		if err := s.Put("chat-1", history); err != nil {
			t.Fatalf("Put: %v", err)
		}
		history = s.Get("chat-1")
		if len(history) > 10 {
			t.Fatalf("history length %d exceeds cap after save %d", len(history), i)
		}
	}

	if len(history) != 10 {
		t.Fatalf("final history length = %d, want exactly 10", len(history))
	}
	// Most recent entries, original order.
	if history[8].Content != "q7" || history[9].Content != "a7" {
		t.Errorf("tail = %q, %q", history[8].Content, history[9].Content)
	}
	if history[0].Content != "q3" {
		t.Errorf("head = %q, oldest entries should be evicted from the front", history[0].Content)
	}
}

func TestGet_ExpiredHistoryIsEmpty(t *testing.T) {
	s := newTestStore(t, 10, time.Hour)
	if err := s.Put("chat-1", []schema.Message{schema.NewUserMessage("old")}); err != nil {
		t.Fatal(err)
	}

	// Rewrite the metadata line with a stale timestamp.
	path := s.chatPath("chat-1")
	stale := time.Now().Add(-2 * time.Hour).UTC().Format(time.RFC3339)
	content := fmt.Sprintf("{\"_type\":\"metadata\",\"chat_id\":\"chat-1\",\"updated_at\":%q}\n{\"role\":\"user\",\"content\":\"old\"}\n", stale)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := s.Get("chat-1"); len(got) != 0 {
		t.Errorf("expired history should read as empty, got %v", got)
	}
}

func TestGet_SlidingTTLRefreshedOnPut(t *testing.T) {
	s := newTestStore(t, 10, time.Hour)
	if err := s.Put("chat-1", []schema.Message{schema.NewUserMessage("hi")}); err != nil {
		t.Fatal(err)
	}
	if got := s.Get("chat-1"); len(got) != 1 {
		t.Errorf("freshly saved history should be readable, got %v", got)
	}
}

func TestGet_CorruptFileIsEmpty(t *testing.T) {
	s := newTestStore(t, 10, time.Hour)
	if err := os.WriteFile(s.chatPath("chat-1"), []byte("not json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := s.Get("chat-1"); len(got) != 0 {
		t.Errorf("corrupt history should read as empty, got %v", got)
	}
}

func TestReset(t *testing.T) {
	s := newTestStore(t, 10, time.Hour)
	if err := s.Put("chat-1", []schema.Message{schema.NewUserMessage("hi")}); err != nil {
		t.Fatal(err)
	}
	if err := s.Reset("chat-1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got := s.Get("chat-1"); len(got) != 0 {
		t.Errorf("history after reset = %v, want empty", got)
	}
	// Resetting an absent chat is not an error.
	if err := s.Reset("chat-1"); err != nil {
		t.Errorf("Reset absent chat: %v", err)
	}
}

func TestSafeFilename(t *testing.T) {
	got := safeFilename(`tele:12/34|ab`)
	if got != "tele_12_34_ab" {
		t.Errorf("safeFilename = %q", got)
	}
	p := filepath.Join("x", got+".jsonl")
	if filepath.Dir(p) != "x" {
		t.Errorf("unsafe path %q", p)
	}
}
