package skills

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Codesait/clawbot-telegram/internal/schema"
)

func TestReadFile(t *testing.T) {
	ws := t.TempDir()
	if err := os.WriteFile(filepath.Join(ws, "note.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	skill := NewFilesSkill(ws, true)
	tool := findTool(t, skill, "read_file")

	out, err := tool.Execute(context.Background(), map[string]any{"path": "note.txt"}, schema.CallContext{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "hello" {
		t.Errorf("out = %q, want hello", out)
	}
}

func TestReadFile_OutsideWorkspaceRejected(t *testing.T) {
	ws := t.TempDir()
	outside := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	skill := NewFilesSkill(ws, true)
	tool := findTool(t, skill, "read_file")

	_, err := tool.Execute(context.Background(), map[string]any{"path": outside}, schema.CallContext{})
	if err == nil {
		t.Fatal("expected workspace restriction error")
	}
	if !strings.Contains(err.Error(), "outside the workspace") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestReadFile_MissingPathRejected(t *testing.T) {
	skill := NewFilesSkill(t.TempDir(), true)
	tool := findTool(t, skill, "read_file")
	_, err := tool.Execute(context.Background(), map[string]any{}, schema.CallContext{})
	if err == nil {
		t.Fatal("expected validation error for missing path")
	}
}

func TestEditFile(t *testing.T) {
	ws := t.TempDir()
	fp := filepath.Join(ws, "config.txt")
	if err := os.WriteFile(fp, []byte("mode: slow\nretries: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	skill := NewFilesSkill(ws, true)
	tool := findTool(t, skill, "edit_file")

	out, err := tool.Execute(context.Background(), map[string]any{
		"path":     "config.txt",
		"old_text": "mode: slow",
		"new_text": "mode: fast",
	}, schema.CallContext{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "Edited") {
		t.Errorf("out = %q", out)
	}
	data, _ := os.ReadFile(fp)
	if string(data) != "mode: fast\nretries: 2\n" {
		t.Errorf("file content = %q", data)
	}
}

func TestEditFile_AmbiguousOldText(t *testing.T) {
	ws := t.TempDir()
	if err := os.WriteFile(filepath.Join(ws, "f.txt"), []byte("x\nx\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	skill := NewFilesSkill(ws, true)
	tool := findTool(t, skill, "edit_file")

	_, err := tool.Execute(context.Background(), map[string]any{
		"path": "f.txt", "old_text": "x", "new_text": "y",
	}, schema.CallContext{})
	if err == nil || !strings.Contains(err.Error(), "appears") {
		t.Fatalf("expected ambiguity error, got %v", err)
	}
}

func TestEditFile_NotFoundSuggestsClosestMatch(t *testing.T) {
	ws := t.TempDir()
	if err := os.WriteFile(filepath.Join(ws, "f.txt"), []byte("greeting = \"hello world\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	skill := NewFilesSkill(ws, true)
	tool := findTool(t, skill, "edit_file")

	_, err := tool.Execute(context.Background(), map[string]any{
		"path": "f.txt", "old_text": "greeting = \"hello wrld\"", "new_text": "x",
	}, schema.CallContext{})
	if err == nil {
		t.Fatal("expected not-found error")
	}
	if !strings.Contains(err.Error(), "Closest match") {
		t.Errorf("error should include the closest match hint: %v", err)
	}
}

func findTool(t *testing.T, sk Skill, name string) schema.Tool {
	t.Helper()
	for _, tool := range sk.Tools() {
		if tool.Name() == name {
			return tool
		}
	}
	t.Fatalf("skill %s has no tool %s", sk.Name(), name)
	return nil
}
