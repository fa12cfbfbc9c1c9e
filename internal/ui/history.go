// internal/ui/history.go
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"pitcharena/internal/db"
)

// ViewMode represents the current view state
type ViewMode int

const (
	ViewNormal ViewMode = iota
	ViewHistory
	ViewHelp
)

// HistoryState holds the state for the round history browser
type HistoryState struct {
	rounds    []db.Round
	cursor    int
	scrollTop int
	maxHeight int
}

// NewHistoryState creates a new history state
func NewHistoryState() *HistoryState {
	return &HistoryState{
		maxHeight: 20, // default, will be updated based on terminal size
	}
}

// Up moves the cursor up
func (h *HistoryState) Up() {
	if h.cursor > 0 {
		h.cursor--
		if h.cursor < h.scrollTop {
			h.scrollTop = h.cursor
		}
	}
}

// Down moves the cursor down
func (h *HistoryState) Down() {
	if h.cursor < len(h.rounds)-1 {
		h.cursor++
		if h.cursor >= h.scrollTop+h.maxHeight {
			h.scrollTop = h.cursor - h.maxHeight + 1
		}
	}
}

// Selected returns the currently selected round, or nil if none
func (h *HistoryState) Selected() *db.Round {
	if h.cursor >= 0 && h.cursor < len(h.rounds) {
		return &h.rounds[h.cursor]
	}
	return nil
}

// LoadRounds loads past rounds from the database
func (h *HistoryState) LoadRounds(store *db.Store) error {
	if store == nil {
		return fmt.Errorf("database not available")
	}
	rounds, err := store.ListRounds()
	if err != nil {
		return err
	}
	h.rounds = rounds
	h.cursor = 0
	h.scrollTop = 0
	return nil
}

// SetMaxHeight updates the max visible height
func (h *HistoryState) SetMaxHeight(height int) {
	h.maxHeight = height - 10 // Leave room for header/footer
	if h.maxHeight < 5 {
		h.maxHeight = 5
	}
}

// Render renders the history browser overlay
func (h *HistoryState) Render(width, height int) string {
	var content strings.Builder

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Render("ROUND HISTORY")
	content.WriteString(title)
	content.WriteString("\n")
	content.WriteString(DimStyle.Render("Past pitch battles"))
	content.WriteString("\n\n")

	if len(h.rounds) == 0 {
		content.WriteString(DimStyle.Render("No past rounds found."))
		content.WriteString("\n\n")
		content.WriteString(DimStyle.Render("Run /battle <topic A> vs <topic B> and it will appear here."))
	} else {
		visibleEnd := h.scrollTop + h.maxHeight
		if visibleEnd > len(h.rounds) {
			visibleEnd = len(h.rounds)
		}

		header := fmt.Sprintf("  %-8s  %-30s  %-10s  %-8s  %s",
			"ID", "Matchup", "Status", "Winner", "When")
		content.WriteString(DimStyle.Render(header))
		content.WriteString("\n")
		content.WriteString(DimStyle.Render(strings.Repeat("-", 78)))
		content.WriteString("\n")

		for i := h.scrollTop; i < visibleEnd; i++ {
			r := h.rounds[i]

			matchup := r.TopicA + " vs " + r.TopicB
			if len(matchup) > 28 {
				matchup = matchup[:28] + ".."
			}

			timeStr := r.CreatedAt.Format("2006-01-02 15:04")
			if time.Since(r.CreatedAt) < 24*time.Hour {
				timeStr = r.CreatedAt.Format("Today 15:04")
			}

			var statusStyle lipgloss.Style
			switch r.Status {
			case "judged":
				statusStyle = StatusOK
			case "complete":
				statusStyle = lipgloss.NewStyle().Foreground(Green)
			case "aborted":
				statusStyle = DimStyle
			default:
				statusStyle = StatusWarn
			}

			cursor := "  "
			lineStyle := DimStyle
			if i == h.cursor {
				cursor = "> "
				lineStyle = lipgloss.NewStyle().Foreground(Cyan)
			}

			statusStr := statusStyle.Width(10).Render(r.Status)
			line := fmt.Sprintf("%-8s  %-30s  %s  %-8s  %s",
				r.ID[:8], matchup, statusStr, r.Winner, timeStr)

			content.WriteString(cursor)
			content.WriteString(lineStyle.Render(line))
			content.WriteString("\n")
		}

		if len(h.rounds) > h.maxHeight {
			scrollInfo := fmt.Sprintf("Showing %d-%d of %d",
				h.scrollTop+1, visibleEnd, len(h.rounds))
			content.WriteString("\n")
			content.WriteString(DimStyle.Render(scrollInfo))
		}
	}

	content.WriteString("\n\n")
	footer := DimStyle.Render("Up/Down: Navigate | Enter: View round | Esc: Close")
	content.WriteString(footer)

	overlayStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Cyan).
		Padding(1, 2).
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
