// internal/ui/panes.go
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"pitcharena/internal/arena"
	"pitcharena/internal/faults"
	"pitcharena/internal/providers"
)

// PaneStatus is the display state of one provider pane
type PaneStatus int

const (
	PaneIdle PaneStatus = iota
	PaneStreaming
	PaneRetrying
	PaneDone
	PaneFallback
)

// Pane is one provider's column: a scrolling viewport plus status chrome
type Pane struct {
	Info     providers.Info
	Viewport viewport.Model
	Status   PaneStatus
	Attempt  int
	Fault    *faults.Fault
	Score    int // 0 until judged

	content   string
	startedAt time.Time
}

func NewPane(info providers.Info, width, height int) *Pane {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle()
	vp.MouseWheelEnabled = true

	return &Pane{
		Info:     info,
		Viewport: vp,
	}
}

// Reset clears the pane for a new round
func (p *Pane) Reset() {
	p.Status = PaneIdle
	p.Attempt = 0
	p.Fault = nil
	p.Score = 0
	p.content = ""
	p.startedAt = time.Time{}
	p.Viewport.SetContent("")
	p.Viewport.GotoTop()
}

// Apply folds one slot snapshot into the pane
func (p *Pane) Apply(slot arena.Slot) {
	if p.Status == PaneIdle && !slot.Terminal && slot.Content != "" {
		p.startedAt = time.Now()
	}

	switch {
	case slot.Terminal && slot.Fallback:
		p.Status = PaneFallback
	case slot.Terminal:
		p.Status = PaneDone
	case slot.Retrying:
		p.Status = PaneRetrying
	default:
		p.Status = PaneStreaming
	}
	p.Attempt = slot.Attempt
	p.Fault = slot.Errored

	if slot.Content != p.content {
		p.content = slot.Content
		p.Viewport.SetContent(wrapText(p.content, p.Viewport.Width))
		p.Viewport.GotoBottom()
	}
}

// Resize adjusts the viewport and rewraps content
func (p *Pane) Resize(width, height int) {
	p.Viewport.Width = width
	p.Viewport.Height = height
	p.Viewport.SetContent(wrapText(p.content, width))
	p.Viewport.GotoBottom()
}

// Content returns the raw pitch text
func (p *Pane) Content() string {
	return p.content
}

// statusLine builds the pane footer: indicator, state text, elapsed time
func (p *Pane) statusLine(spin string) string {
	style := ProviderStyle(p.Info.ID)

	switch p.Status {
	case PaneIdle:
		return DimStyle.Render("○ waiting")
	case PaneStreaming:
		elapsed := ""
		if !p.startedAt.IsZero() {
			elapsed = DimStyle.Render(fmt.Sprintf(" (%s)", formatElapsedTime(time.Since(p.startedAt))))
		}
		return StatusWarn.Render("●") + " " + style.Render("streaming "+spin) + elapsed
	case PaneRetrying:
		msg := fmt.Sprintf("retrying, attempt %d", p.Attempt+1)
		if p.Fault != nil {
			msg += " " + string(p.Fault.Code)
		}
		return StatusWarn.Render("↻ ") + SystemStyle.Render(msg)
	case PaneFallback:
		msg := "local fallback"
		if p.Fault != nil {
			msg = fmt.Sprintf("local fallback (%s)", p.Fault.Code)
		}
		return StatusCrit.Render("✗ ") + ErrorStyle.Render(msg)
	default: // PaneDone
		if p.Score > 0 {
			return StatusOK.Render("✓ done ") + WinnerStyle.Render(fmt.Sprintf("%d/10", p.Score))
		}
		return StatusOK.Render("✓ done")
	}
}

// Render draws the full pane with border, title, body and status footer
func (p *Pane) Render(width, height int, spin string, winner bool) string {
	title := ProviderStyle(p.Info.ID).Render(p.Info.Name)
	if winner {
		title += " " + WinnerStyle.Render("★ WINNER")
	}

	var body strings.Builder
	body.WriteString(title)
	body.WriteString("\n")
	body.WriteString(DimStyle.Render(strings.Repeat("─", max(1, width-2))))
	body.WriteString("\n")
	body.WriteString(p.Viewport.View())
	body.WriteString("\n")
	body.WriteString(p.statusLine(spin))

	box := InactiveBox
	if p.Status == PaneStreaming || p.Status == PaneRetrying {
		box = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ProviderColor(p.Info.ID))
	}

	return box.Width(width).Height(height).Render(body.String())
}

// formatElapsedTime formats duration in a human-readable way
func formatElapsedTime(elapsed time.Duration) string {
	if elapsed < time.Second {
		return "<1s"
	}
	if elapsed < time.Minute {
		return fmt.Sprintf("%ds", int(elapsed.Seconds()))
	}
	mins := int(elapsed.Minutes())
	secs := int(elapsed.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", mins, secs)
}

// wrapText hard-wraps long lines to the given width so the viewport never
// scrolls horizontally
func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	var sb strings.Builder
	for _, line := range strings.Split(s, "\n") {
		for len(line) > width {
			cut := strings.LastIndex(line[:width], " ")
			if cut <= 0 {
				cut = width
			}
			sb.WriteString(line[:cut])
			sb.WriteString("\n")
			line = strings.TrimLeft(line[cut:], " ")
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
