// Package textutils holds small text helpers shared across packages.
package textutils

import "strings"

// Truncate shortens a string to at most n characters, adding "..." if it was
// truncated.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// StringOrDefault returns s if it's not empty, or def otherwise.
func StringOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Split splits content into chunks that fit within maxLen, preferring
// newline breaks, then space breaks, then a hard cut.
func Split(content string, maxLen int) []string {
	if len(content) <= maxLen {
		return []string{content}
	}
	var chunks []string
	for len(content) > 0 {
		if len(content) <= maxLen {
			chunks = append(chunks, content)
			break
		}
		cut := content[:maxLen]
		pos := strings.LastIndex(cut, "\n")
		if pos <= 0 {
			pos = strings.LastIndex(cut, " ")
		}
		if pos <= 0 {
			pos = maxLen
		}
		chunks = append(chunks, content[:pos])
		content = strings.TrimLeft(content[pos:], " \t")
	}
	return chunks
}
