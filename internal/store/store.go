// Package store persists per-chat conversation history as JSONL files.
//
// File format:
//
//	Line 1:  {"_type":"metadata","chat_id":"…","updated_at":"…"}
//	Line 2+: one JSON message object per line
//
// A history is bounded (FIFO eviction from the front on save) and expires
// after a sliding TTL of inactivity. Anything unreadable is treated as an
// empty history, never an error.
package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Codesait/clawbot-telegram/internal/schema"
)

type metadata struct {
	Type      string `json:"_type"`
	ChatID    string `json:"chat_id"`
	UpdatedAt string `json:"updated_at"`
}

// FileStore is a file-backed schema.Store, one JSONL file per chat.
type FileStore struct {
	dir   string
	limit int
	ttl   time.Duration

	mu sync.Mutex // serializes writes; same-chat races are last-writer-wins
}

// NewFileStore creates a FileStore rooted at dir. limit is the history cap
// applied on every Put; ttl is the sliding expiration window.
func NewFileStore(dir string, limit int, ttl time.Duration) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir, limit: limit, ttl: ttl}, nil
}

// Get returns the stored history for chatID, or empty on miss, expiry, or
// any read/parse failure.
func (s *FileStore) Get(chatID string) []schema.Message {
	f, err := os.Open(s.chatPath(chatID))
	if err != nil {
		return nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil
	}
	var meta metadata
	if err := json.Unmarshal(scanner.Bytes(), &meta); err != nil || meta.Type != "metadata" {
		slog.Warn("history metadata unreadable, treating as empty", "chat", chatID, "err", err)
		return nil
	}
	updatedAt, err := time.Parse(time.RFC3339, meta.UpdatedAt)
	if err != nil {
		slog.Warn("history timestamp unreadable, treating as empty", "chat", chatID, "err", err)
		return nil
	}
	if s.ttl > 0 && time.Since(updatedAt) > s.ttl {
		slog.Info("history expired", "chat", chatID, "updatedAt", meta.UpdatedAt)
		return nil
	}

	var msgs []schema.Message
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var m schema.Message
		if err := json.Unmarshal(line, &m); err != nil {
			slog.Warn("history entry unreadable, treating as empty", "chat", chatID, "err", err)
			return nil
		}
		msgs = append(msgs, m)
	}
	return msgs
}

// Put saves the history for chatID, evicting the oldest entries beyond the
// cap and stamping updated-at for the sliding TTL.
func (s *FileStore) Put(chatID string, msgs []schema.Message) error {
	if s.limit > 0 && len(msgs) > s.limit {
		msgs = msgs[len(msgs)-s.limit:]
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	meta := metadata{
		Type:      "metadata",
		ChatID:    chatID,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	for _, m := range msgs {
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.chatPath(chatID), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write history for %s: %w", chatID, err)
	}
	return nil
}

// Reset removes the stored history for chatID.
func (s *FileStore) Reset(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.chatPath(chatID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove history for %s: %w", chatID, err)
	}
	return nil
}

func (s *FileStore) chatPath(chatID string) string {
	return filepath.Join(s.dir, safeFilename(chatID)+".jsonl")
}

// safeFilename replaces filesystem-unsafe characters with underscores.
func safeFilename(name string) string {
	const unsafe = `<>:"/\|?*`
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(unsafe, r) {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
