// internal/ui/styles.go
package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Cyan     = lipgloss.Color("#00FFFF")
	Green    = lipgloss.Color("#00FF00")
	Yellow   = lipgloss.Color("#FFD700")
	Orange   = lipgloss.Color("#FFA500")
	Red      = lipgloss.Color("#FF6B6B")
	Magenta  = lipgloss.Color("#FF00FF")
	SkyBlue  = lipgloss.Color("#87CEEB")
	Dim      = lipgloss.Color("#555555")
	White    = lipgloss.Color("#FFFFFF")
	DarkGray = lipgloss.Color("#333333")

	// Provider colors
	ClaudeColor = Cyan
	GPTColor    = Green
	GeminiColor = Magenta

	// Box styles
	ActiveBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Cyan)

	InactiveBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Dim)

	// Text styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Cyan)

	SystemStyle = lipgloss.NewStyle().
			Foreground(Yellow)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(Dim)

	WinnerStyle = lipgloss.NewStyle().
			Foreground(Yellow).
			Bold(true)

	// Status indicators
	StatusOK   = lipgloss.NewStyle().Foreground(Green).Bold(true)
	StatusWarn = lipgloss.NewStyle().Foreground(Orange).Bold(true)
	StatusCrit = lipgloss.NewStyle().Foreground(Red).Bold(true)
)

// ProviderStyle returns the style for a given provider ID
func ProviderStyle(providerID string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ProviderColor(providerID)).Bold(true)
}

// ProviderColor returns the color for a given provider ID
func ProviderColor(providerID string) lipgloss.Color {
	switch providerID {
	case "claude":
		return ClaudeColor
	case "gpt":
		return GPTColor
	case "gemini":
		return GeminiColor
	case "system":
		return Yellow
	default:
		return White
	}
}
