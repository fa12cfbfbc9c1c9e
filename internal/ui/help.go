// internal/ui/help.go
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Help overlay content and rendering

var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Cyan).
			MarginBottom(1)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Yellow).
				MarginTop(1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(Green).
			Bold(true)

	helpCmdStyle = lipgloss.NewStyle().
			Foreground(Magenta)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(White)

	helpDimStyle = lipgloss.NewStyle().
			Foreground(Dim)

	helpStatusOK   = lipgloss.NewStyle().Foreground(Green).Bold(true)
	helpStatusWarn = lipgloss.NewStyle().Foreground(Orange).Bold(true)
	helpStatusDim  = lipgloss.NewStyle().Foreground(Dim)
	helpStatusErr  = lipgloss.NewStyle().Foreground(Red).Bold(true)
)

// HelpContent returns the formatted help overlay content
func HelpContent(width, height int) string {
	var content strings.Builder

	title := helpTitleStyle.Render("PITCH ARENA HELP")
	content.WriteString(title)
	content.WriteString("\n\n")

	// Keybindings section
	content.WriteString(helpSectionStyle.Render("KEYBINDINGS"))
	content.WriteString("\n\n")

	keybindings := []struct {
		key  string
		desc string
	}{
		{"Enter", "Run the typed command, or start a battle from 'A vs B'"},
		{"F1 / ?", "Toggle this help overlay"},
		{"Esc", "Close overlay / stop in-flight streams"},
		{"Up/Down", "Navigate history when the browser is open"},
		{"Ctrl+C", "Quit Pitch Arena"},
	}

	for _, kb := range keybindings {
		key := helpKeyStyle.Width(14).Render(kb.key)
		desc := helpDescStyle.Render(kb.desc)
		content.WriteString("  " + key + "  " + desc + "\n")
	}

	// Slash commands section
	content.WriteString("\n")
	content.WriteString(helpSectionStyle.Render("SLASH COMMANDS"))
	content.WriteString("\n\n")

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help", "Show this help overlay"},
		{"/battle <A> vs <B>", "Start a new pitch battle between two topics"},
		{"/retry <provider>", "Re-run one provider with a fresh retry budget"},
		{"/judge", "Score the finished round"},
		{"/stop", "Abort all in-flight streams"},
		{"/history", "Browse past rounds"},
		{"/export", "Export the current round to markdown"},
		{"/health", "Check gateway and provider status"},
		{"/quit", "Exit"},
	}

	for _, cmd := range commands {
		cmdStr := helpCmdStyle.Width(22).Render(cmd.cmd)
		desc := helpDescStyle.Render(cmd.desc)
		content.WriteString("  " + cmdStr + "  " + desc + "\n")
	}

	// Pane status indicators section
	content.WriteString("\n")
	content.WriteString(helpSectionStyle.Render("PANE STATUS INDICATORS"))
	content.WriteString("\n\n")

	indicators := []struct {
		symbol string
		style  lipgloss.Style
		desc   string
	}{
		{"○", helpStatusDim, "Waiting - Provider has not started streaming yet"},
		{"●", helpStatusWarn, "Streaming - Pitch text is arriving"},
		{"↻", helpStatusWarn, "Retrying - Transient failure, attempt restarting"},
		{"✓", helpStatusOK, "Done - Pitch finished streaming"},
		{"✗", helpStatusErr, "Fallback - Retries exhausted, showing local placeholder"},
	}

	for _, ind := range indicators {
		symbol := ind.style.Width(3).Render(ind.symbol)
		desc := helpDescStyle.Render(ind.desc)
		content.WriteString("  " + symbol + "  " + desc + "\n")
	}

	// Round flow section
	content.WriteString("\n")
	content.WriteString(helpSectionStyle.Render("ROUND FLOW"))
	content.WriteString("\n\n")

	flow := []string{
		"Pitch Arena pits three AI providers against each other on a matchup.",
		"",
		"1. Enter two topics: /battle coffee vs tea",
		"2. All three providers stream their pitch concurrently",
		"3. Failed streams retry with backoff, then fall back to local text",
		"4. When every pane settles, the round completes",
		"5. /judge scores all three pitches and names a winner",
		"",
		"Use /retry <provider> to give one pane a fresh start at any time.",
	}

	for _, line := range flow {
		if line == "" {
			content.WriteString("\n")
		} else {
			content.WriteString("  " + helpDimStyle.Render(line) + "\n")
		}
	}

	// Footer
	content.WriteString("\n")
	footer := helpDimStyle.Render("Press F1 or Esc to close this help")
	content.WriteString(lipgloss.PlaceHorizontal(width-8, lipgloss.Center, footer))

	overlayStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Cyan).
		Padding(1, 3).
		MaxWidth(width - 10).
		MaxHeight(height - 4)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlayStyle.Render(content.String()),
	)
}

// renderHelp renders the help overlay (called from app.go)
func (m Model) renderHelp() string {
	return HelpContent(m.width, m.height)
}
