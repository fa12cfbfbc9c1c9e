// internal/ui/verdict.go
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"pitcharena/internal/judge"
	"pitcharena/internal/providers"
)

// VerdictView renders the judgment panel: score bars per provider plus the
// judge's prose rendered as markdown
type VerdictView struct {
	bars     map[string]progress.Model
	renderer *glamour.TermRenderer
	width    int
}

func NewVerdictView(registry *providers.Registry, width int) *VerdictView {
	bars := make(map[string]progress.Model)
	for _, info := range registry.All() {
		bar := progress.New(
			progress.WithSolidFill(info.Color),
			progress.WithoutPercentage(),
		)
		bar.Width = 20
		bars[info.ID] = bar
	}

	v := &VerdictView{bars: bars}
	v.SetWidth(width)
	return v
}

// SetWidth rebuilds the markdown renderer for the new wrap width
func (v *VerdictView) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	v.width = width
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err == nil {
		v.renderer = renderer
	}
}

// Render draws the verdict panel
func (v *VerdictView) Render(verdict *judge.Verdict, registry *providers.Registry) string {
	if verdict == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(TitleStyle.Render("VERDICT"))
	if verdict.Fallback {
		sb.WriteString("  " + ErrorStyle.Render("(judge unreachable, local estimate)"))
	}
	sb.WriteString("\n\n")

	for _, info := range registry.All() {
		score := verdict.Scores[info.ID]
		bar := v.bars[info.ID]

		name := ProviderStyle(info.ID).Width(8).Render(info.Name)
		line := fmt.Sprintf("%s %s %2d/10", name, bar.ViewAs(float64(score)/10), score)
		if info.ID == verdict.Winner {
			line += " " + WinnerStyle.Render("★")
		}
		sb.WriteString(line)
		sb.WriteString("\n")

		if reason := verdict.Reasoning[info.ID]; reason != "" {
			sb.WriteString(DimStyle.Render("         " + truncateLine(reason, v.width-12)))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(v.renderMarkdown(verdict.Overall))

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Yellow).
		Padding(0, 1).
		Width(v.width)

	return panel.Render(strings.TrimRight(sb.String(), "\n"))
}

func (v *VerdictView) renderMarkdown(md string) string {
	if v.renderer == nil {
		return md
	}
	out, err := v.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

// truncateLine limits a one-line string to maxLen characters
func truncateLine(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if maxLen < 4 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
