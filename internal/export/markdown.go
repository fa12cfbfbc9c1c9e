// internal/export/markdown.go
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pitcharena/internal/providers"
)

// PitchExport is one provider's finished pitch
type PitchExport struct {
	Provider string
	Content  string
	Fallback bool
}

// VerdictExport is the judgment section, nil when the round was never judged
type VerdictExport struct {
	Scores    map[string]int
	Reasoning map[string]string
	Winner    string
	Overall   string
	Fallback  bool
}

// RoundExport contains the data needed to export a round
type RoundExport struct {
	ID        string
	TopicA    string
	TopicB    string
	CreatedAt time.Time
	Pitches   []PitchExport
	Verdict   *VerdictExport
}

// ExportRound generates a formatted markdown string from a round
func ExportRound(round *RoundExport) string {
	var sb strings.Builder

	// Title header
	sb.WriteString("# Pitch Battle: ")
	sb.WriteString(round.TopicA)
	sb.WriteString(" vs ")
	sb.WriteString(round.TopicB)
	sb.WriteString("\n\n")

	// Metadata section
	sb.WriteString("---\n\n")
	sb.WriteString(fmt.Sprintf("**Round ID:** `%s`\n\n", round.ID))
	sb.WriteString(fmt.Sprintf("**Created:** %s\n\n", round.CreatedAt.Format("2006-01-02 15:04:05")))
	if round.Verdict != nil {
		sb.WriteString(fmt.Sprintf("**Winner:** %s\n\n", providers.DisplayName(round.Verdict.Winner)))
	}
	sb.WriteString("---\n\n")

	// Pitches section
	sb.WriteString("## Pitches\n\n")

	for i, pitch := range round.Pitches {
		sb.WriteString("### ")
		sb.WriteString(providers.DisplayName(pitch.Provider))
		if pitch.Fallback {
			sb.WriteString(" *(locally generated)*")
		}
		sb.WriteString("\n\n")

		content := strings.TrimSpace(pitch.Content)
		if containsCodeBlock(content) {
			// Content already has code blocks, render as-is
			sb.WriteString(content)
			sb.WriteString("\n")
		} else {
			// Wrap in blockquote for visual distinction
			for _, line := range strings.Split(content, "\n") {
				sb.WriteString("> ")
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		}
		sb.WriteString("\n")

		if i < len(round.Pitches)-1 {
			sb.WriteString("---\n\n")
		}
	}

	// Verdict section
	if v := round.Verdict; v != nil {
		sb.WriteString("---\n\n## Verdict\n\n")
		if v.Fallback {
			sb.WriteString("*The judge was unreachable, scores below are a local estimate.*\n\n")
		}

		sb.WriteString("| Provider | Score | Reasoning |\n")
		sb.WriteString("|----------|-------|----------|\n")
		for _, pitch := range round.Pitches {
			id := pitch.Provider
			sb.WriteString(fmt.Sprintf("| %s | %d/10 | %s |\n",
				providers.DisplayName(id), v.Scores[id], escapeCell(v.Reasoning[id])))
		}
		sb.WriteString("\n")
		sb.WriteString(v.Overall)
		sb.WriteString("\n")
	}

	// Footer
	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from Pitch Arena on %s*\n", time.Now().Format("2006-01-02 15:04:05")))

	return sb.String()
}

// WriteRound exports a round to a markdown file in the rounds directory
func WriteRound(round *RoundExport, baseDir string) (string, error) {
	// Generate filename: YYYY-MM-DD-topica-vs-topicb.md
	datePart := round.CreatedAt.Format("2006-01-02")
	namePart := sanitizeFilename(round.TopicA + " vs " + round.TopicB)
	filename := fmt.Sprintf("%s-%s.md", datePart, namePart)

	roundsDir := filepath.Join(baseDir, "rounds")
	if err := os.MkdirAll(roundsDir, 0755); err != nil {
		return "", fmt.Errorf("create rounds directory: %w", err)
	}

	path := filepath.Join(roundsDir, filename)

	content := ExportRound(round)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return path, nil
}

// escapeCell keeps table rows on one line
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

// sanitizeFilename removes/replaces characters unsuitable for filenames
func sanitizeFilename(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "-")

	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			sb.WriteRune(r)
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '-' || r == '_':
			sb.WriteRune(r)
		default:
			// Skip other characters
		}
	}

	result := sb.String()

	// Collapse multiple hyphens
	for strings.Contains(result, "--") {
		result = strings.ReplaceAll(result, "--", "-")
	}

	result = strings.Trim(result, "-")

	if result == "" {
		result = "round"
	}

	if len(result) > 50 {
		result = result[:50]
	}

	return result
}

// containsCodeBlock checks if content already has markdown code blocks
func containsCodeBlock(content string) bool {
	return strings.Contains(content, "```")
}
