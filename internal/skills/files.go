package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Codesait/clawbot-telegram/internal/schema"
)

// FilesSkill exposes read and edit access to files under the bot's workspace.
// When restrict is true, paths resolving outside the workspace are rejected.
type FilesSkill struct {
	workspace string
	restrict  bool
}

func NewFilesSkill(workspace string, restrict bool) *FilesSkill {
	return &FilesSkill{workspace: workspace, restrict: restrict}
}

func (s *FilesSkill) Name() string        { return "files" }
func (s *FilesSkill) Description() string { return "Workspace file access" }

func (s *FilesSkill) Tools() []schema.Tool {
	return []schema.Tool{
		&readFileTool{skill: s},
		&editFileTool{skill: s},
	}
}

// resolvePath resolves path against the workspace and enforces the
// restriction boundary. Symlinks are resolved first so a link cannot
// escape the workspace.
func (s *FilesSkill) resolvePath(path string) (string, error) {
	p := path
	if !filepath.IsAbs(p) && s.workspace != "" {
		p = filepath.Join(s.workspace, p)
	}
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		resolved = filepath.Clean(p)
	}
	if s.restrict && s.workspace != "" {
		root := filepath.Clean(s.workspace)
		if resolved != root && !strings.HasPrefix(resolved, root+string(filepath.Separator)) {
			return "", fmt.Errorf("path %s is outside the workspace", path)
		}
	}
	return resolved, nil
}

// ---------------------------------------------------------------------------
// read_file
// ---------------------------------------------------------------------------

type readFileParams struct {
	Path string `json:"path" jsonschema:"description=File path, relative paths resolve against the workspace" validate:"required"`
}

type readFileTool struct {
	skill *FilesSkill
}

func (t *readFileTool) Name() string { return "read_file" }
func (t *readFileTool) Description() string {
	return "Read the contents of a file at the given path."
}
func (t *readFileTool) Parameters() json.RawMessage { return paramsSchema(&readFileParams{}) }

func (t *readFileTool) Execute(_ context.Context, params map[string]any, _ schema.CallContext) (string, error) {
	var p readFileParams
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}
	fp, err := t.skill.resolvePath(p.Path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(fp)
	if err != nil {
		return "", fmt.Errorf("file not found: %s", p.Path)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("not a file: %s", p.Path)
	}
	data, err := os.ReadFile(fp)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", p.Path, err)
	}
	return string(data), nil
}

// ---------------------------------------------------------------------------
// edit_file
// ---------------------------------------------------------------------------

type editFileParams struct {
	Path    string `json:"path" jsonschema:"description=File path to edit" validate:"required"`
	OldText string `json:"old_text" jsonschema:"description=Exact text to find and replace" validate:"required"`
	NewText string `json:"new_text" jsonschema:"description=Replacement text"`
}

type editFileTool struct {
	skill *FilesSkill
}

func (t *editFileTool) Name() string { return "edit_file" }
func (t *editFileTool) Description() string {
	return "Edit a file by replacing old_text with new_text. The old_text must occur exactly once."
}
func (t *editFileTool) Parameters() json.RawMessage { return paramsSchema(&editFileParams{}) }

func (t *editFileTool) Execute(_ context.Context, params map[string]any, _ schema.CallContext) (string, error) {
	var p editFileParams
	if err := decodeParams(params, &p); err != nil {
		return "", err
	}
	fp, err := t.skill.resolvePath(p.Path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(fp)
	if err != nil {
		return "", fmt.Errorf("file not found: %s", p.Path)
	}
	content := string(data)

	if !strings.Contains(content, p.OldText) {
		return "", fmt.Errorf("%s", editNotFoundMessage(p.OldText, content, p.Path))
	}
	if n := strings.Count(content, p.OldText); n > 1 {
		return "", fmt.Errorf("old_text appears %d times in %s, provide more context to make it unique", n, p.Path)
	}

	updated := strings.Replace(content, p.OldText, p.NewText, 1)
	if err := os.WriteFile(fp, []byte(updated), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", p.Path, err)
	}
	return fmt.Sprintf("Edited %s", fp), nil
}

// editNotFoundMessage points the caller at the closest match so a retry
// can supply the text actually in the file.
func editNotFoundMessage(oldText, content, path string) string {
	oldLines := strings.Split(oldText, "\n")
	contentLines := strings.Split(content, "\n")
	window := len(oldLines)

	bestRatio := 0.0
	bestStart := 0
	end := len(contentLines) - window + 1
	if end < 1 {
		end = 1
	}
	for i := 0; i < end; i++ {
		hi := i + window
		if hi > len(contentLines) {
			hi = len(contentLines)
		}
		if r := similarityRatio(oldLines, contentLines[i:hi]); r > bestRatio {
			bestRatio, bestStart = r, i
		}
	}

	if bestRatio > 0.5 {
		hi := bestStart + window
		if hi > len(contentLines) {
			hi = len(contentLines)
		}
		return fmt.Sprintf(
			"old_text not found in %s. Closest match (%.0f%% similar) at line %d:\n%s",
			path, bestRatio*100, bestStart+1,
			strings.Join(contentLines[bestStart:hi], "\n"),
		)
	}
	return fmt.Sprintf("old_text not found in %s and no similar text exists, verify the file content", path)
}

// similarityRatio is a character-frequency overlap ratio, cheap enough to
// slide over every window of the file.
func similarityRatio(a, b []string) float64 {
	sa := strings.Join(a, "\n")
	sb := strings.Join(b, "\n")
	if len(sa)+len(sb) == 0 {
		return 1.0
	}
	freq := make(map[byte]int)
	for i := 0; i < len(sa); i++ {
		freq[sa[i]]++
	}
	common := 0
	for i := 0; i < len(sb); i++ {
		if freq[sb[i]] > 0 {
			common++
			freq[sb[i]]--
		}
	}
	return 2.0 * float64(common) / float64(len(sa)+len(sb))
}
