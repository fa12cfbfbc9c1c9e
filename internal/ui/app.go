// internal/ui/app.go
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pitcharena/internal/arena"
	"pitcharena/internal/commands"
	"pitcharena/internal/db"
	"pitcharena/internal/export"
	"pitcharena/internal/health"
	"pitcharena/internal/judge"
	"pitcharena/internal/providers"
)

// Options wires the app model to its collaborators. Store may be nil when
// the database could not be opened; history and export degrade gracefully.
type Options struct {
	Arena     *arena.Arena
	Judge     *judge.Invoker
	Health    *health.Client
	Store     *db.Store
	Registry  *providers.Registry
	ExportDir string
}

type Model struct {
	width, height int
	ready         bool

	registry  *providers.Registry
	arena     *arena.Arena
	judge     *judge.Invoker
	health    *health.Client
	store     *db.Store
	exportDir string

	panes       map[string]*Pane
	paneOrder   []string
	verdictView *VerdictView
	verdict     *judge.Verdict

	round         *arena.Round
	roundComplete bool
	judging       bool
	viewingStored bool

	input   textinput.Model
	spin    spinner.Model
	mode    ViewMode
	history *HistoryState
	status  string
}

// Messages
type arenaUpdateMsg arena.Update

type verdictMsg struct {
	roundID string
	verdict judge.Verdict
}

type healthMsg health.Report

type statusMsg string

func New(opts Options) Model {
	input := textinput.New()
	input.Placeholder = "/battle coffee vs tea  (or just: coffee vs tea)"
	input.Prompt = "> "
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(Cyan)

	panes := make(map[string]*Pane)
	var order []string
	for _, info := range opts.Registry.All() {
		panes[info.ID] = NewPane(info, 30, 10)
		order = append(order, info.ID)
	}

	return Model{
		registry:    opts.Registry,
		arena:       opts.Arena,
		judge:       opts.Judge,
		health:      opts.Health,
		store:       opts.Store,
		exportDir:   opts.ExportDir,
		panes:       panes,
		paneOrder:   order,
		verdictView: NewVerdictView(opts.Registry, 80),
		input:       input,
		spin:        spin,
		history:     NewHistoryState(),
		status:      "Enter a matchup to start. /help for commands.",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick, m.waitForUpdate())
}

// waitForUpdate re-arms after every received arena event
func (m Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		return arenaUpdateMsg(<-m.arena.Events())
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case arenaUpdateMsg:
		return m.handleArenaUpdate(arena.Update(msg))

	case verdictMsg:
		return m.handleVerdict(msg), nil

	case healthMsg:
		m.status = formatHealth(health.Report(msg))
		return m, nil

	case statusMsg:
		m.judging = false
		m.status = string(msg)
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.mode {
	case ViewHelp:
		if key == "esc" || key == "f1" || key == "?" {
			m.mode = ViewNormal
		}
		return m, nil

	case ViewHistory:
		switch key {
		case "up", "k":
			m.history.Up()
		case "down", "j":
			m.history.Down()
		case "enter":
			if r := m.history.Selected(); r != nil {
				m.status = m.viewStoredRound(r.ID)
			}
			m.mode = ViewNormal
		case "esc", "q":
			m.mode = ViewNormal
		}
		return m, nil
	}

	switch key {
	case "f1":
		m.mode = ViewHelp
		return m, nil
	case "?":
		if m.input.Value() == "" {
			m.mode = ViewHelp
			return m, nil
		}
	case "esc":
		m.arena.StopAll()
		m.status = "Streams stopped."
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		if value == "" {
			return m, nil
		}
		return m.handleInput(value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleInput runs a slash command, treating bare "A vs B" input as a
// battle shortcut.
func (m Model) handleInput(value string) (tea.Model, tea.Cmd) {
	cmd := commands.Parse(value)
	if cmd == nil {
		cmd = commands.Parse("/battle " + value)
	}

	switch c := cmd.(type) {
	case commands.Battle:
		return m.startBattle(c.TopicA, c.TopicB)

	case commands.Retry:
		if m.arena.RetryNow(c.Provider) {
			m.roundComplete = false
			m.verdict = nil
			m.status = fmt.Sprintf("Retrying %s with a fresh budget.", providers.DisplayName(c.Provider))
		} else {
			m.status = fmt.Sprintf("Cannot retry %s: no settled pitch to retry.", c.Provider)
		}
		return m, nil

	case commands.Judge:
		return m.startJudging()

	case commands.Stop:
		m.arena.StopAll()
		if m.round != nil && m.store != nil && !m.viewingStored && !m.roundComplete {
			m.store.UpdateRoundStatus(m.round.ID, "aborted")
		}
		m.status = "Streams stopped."
		return m, nil

	case commands.ShowHistory:
		if err := m.history.LoadRounds(m.store); err != nil {
			m.status = "History unavailable: " + err.Error()
			return m, nil
		}
		m.mode = ViewHistory
		return m, nil

	case commands.Export:
		m.status = m.exportCurrentRound()
		return m, nil

	case commands.Health:
		m.status = "Checking gateway..."
		return m, m.healthCmd()

	case commands.Help:
		m.mode = ViewHelp
		return m, nil

	case commands.Quit:
		return m, tea.Quit

	case commands.ParseError:
		m.status = c.Message
		return m, nil
	}

	return m, nil
}

func (m Model) startBattle(topicA, topicB string) (tea.Model, tea.Cmd) {
	round := m.arena.StartRound(topicA, topicB)
	m.round = &round
	m.roundComplete = false
	m.judging = false
	m.viewingStored = false
	m.verdict = nil
	for _, p := range m.panes {
		p.Reset()
	}
	if m.store != nil {
		m.store.CreateRound(round.ID, topicA, topicB)
	}
	m.status = fmt.Sprintf("Battle started: %s vs %s", topicA, topicB)
	return m, nil
}

func (m Model) startJudging() (tea.Model, tea.Cmd) {
	if m.viewingStored {
		m.status = "Past rounds are read-only. Start a new /battle to judge."
		return m, nil
	}
	if m.round == nil || !m.roundComplete {
		m.status = "Nothing to judge yet: wait for all three pitches to settle."
		return m, nil
	}
	if m.judging {
		m.status = "Judging is already in flight."
		return m, nil
	}
	m.judging = true
	m.status = "Judging..."
	return m, m.judgeCmd(*m.round, m.arena.Pitches())
}

func (m Model) judgeCmd(round arena.Round, pitches map[string]string) tea.Cmd {
	return func() tea.Msg {
		v, err := m.judge.Invoke(context.Background(), round.TopicA, round.TopicB, pitches)
		if err != nil {
			return statusMsg("Judging cancelled: " + err.Error())
		}
		return verdictMsg{roundID: round.ID, verdict: v}
	}
}

func (m Model) healthCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return healthMsg(m.health.Check(ctx))
	}
}

func (m Model) handleArenaUpdate(update arena.Update) (tea.Model, tea.Cmd) {
	// Always re-arm the listener, even for stale rounds.
	next := m.waitForUpdate()

	if m.round == nil || update.RoundID != m.round.ID {
		return m, next
	}

	if update.Kind == arena.KindComplete {
		m.roundComplete = true
		m.status = "All pitches settled. /judge to score the round."
		m.persistPitches()
		return m, next
	}

	if pane, ok := m.panes[update.Provider]; ok {
		pane.Apply(update.Slot)
	}

	// The arena's completion event fires once per round, so a manual retry
	// that settles again is detected here from the pane states.
	if update.Kind == arena.KindTerminal && !m.roundComplete && m.allSettled() {
		m.roundComplete = true
		m.status = "All pitches settled. /judge to score the round."
	}
	return m, next
}

// allSettled reports whether every pane holds a terminal pitch above the
// arena's minimum content threshold.
func (m Model) allSettled() bool {
	if len(m.panes) == 0 {
		return false
	}
	for _, pane := range m.panes {
		if pane.Status != PaneDone && pane.Status != PaneFallback {
			return false
		}
		if len(strings.TrimSpace(pane.Content())) < arena.MinContent {
			return false
		}
	}
	return true
}

func (m Model) handleVerdict(msg verdictMsg) Model {
	m.judging = false
	if m.round == nil || msg.roundID != m.round.ID {
		return m
	}

	v := msg.verdict
	m.verdict = &v
	for id, pane := range m.panes {
		pane.Score = v.Scores[id]
	}
	if v.Fallback {
		m.status = "Judge unreachable; showing a local estimate."
	} else {
		m.status = fmt.Sprintf("%s wins!", providers.DisplayName(v.Winner))
	}

	if m.store != nil {
		m.store.SaveVerdict(m.round.ID, v.Winner, v.Overall, v.Fallback, v.Scores, v.Reasoning)
	}
	m.resize() // verdict panel changes pane height
	return m
}

// persistPitches saves all settled slots once the round completes
func (m Model) persistPitches() {
	if m.store == nil || m.round == nil {
		return
	}
	for id, slot := range m.arena.Slots() {
		faultCode := ""
		if slot.Errored != nil {
			faultCode = string(slot.Errored.Code)
		}
		m.store.SavePitch(m.round.ID, id, slot.Content, slot.Fallback, faultCode)
	}
	m.store.UpdateRoundStatus(m.round.ID, "complete")
}

// exportCurrentRound writes the active round to markdown and returns a
// status line.
func (m Model) exportCurrentRound() string {
	if m.round == nil {
		return "No round to export."
	}

	re := &export.RoundExport{
		ID:        m.round.ID,
		TopicA:    m.round.TopicA,
		TopicB:    m.round.TopicB,
		CreatedAt: m.round.StartedAt,
	}
	for _, id := range m.paneOrder {
		pane := m.panes[id]
		re.Pitches = append(re.Pitches, export.PitchExport{
			Provider: id,
			Content:  pane.Content(),
			Fallback: pane.Status == PaneFallback,
		})
	}
	if m.verdict != nil {
		re.Verdict = &export.VerdictExport{
			Scores:    m.verdict.Scores,
			Reasoning: m.verdict.Reasoning,
			Winner:    m.verdict.Winner,
			Overall:   m.verdict.Overall,
			Fallback:  m.verdict.Fallback,
		}
	}

	path, err := export.WriteRound(re, m.exportDir)
	if err != nil {
		return "Export failed: " + err.Error()
	}
	return "Exported to " + path
}

// viewStoredRound loads a past round into the panes, read-only, and
// returns a status line.
func (m *Model) viewStoredRound(roundID string) string {
	if m.store == nil {
		return "History unavailable: no database."
	}
	round, err := m.store.GetRound(roundID)
	if err != nil {
		return "Load failed: " + err.Error()
	}
	pitches, err := m.store.GetPitches(roundID)
	if err != nil {
		return "Load failed: " + err.Error()
	}

	m.arena.StopAll()
	m.round = &arena.Round{
		ID:        round.ID,
		TopicA:    round.TopicA,
		TopicB:    round.TopicB,
		StartedAt: round.CreatedAt,
	}
	m.roundComplete = true
	m.judging = false
	m.viewingStored = true
	m.verdict = nil

	for _, pane := range m.panes {
		pane.Reset()
	}
	for _, p := range pitches {
		if pane, ok := m.panes[p.Provider]; ok {
			pane.Apply(arena.Slot{
				Provider: p.Provider,
				Content:  p.Content,
				Terminal: true,
				Fallback: p.Fallback,
			})
		}
	}

	if verdict, err := m.store.GetVerdict(roundID); err == nil && verdict != nil {
		m.verdict = &judge.Verdict{
			Scores:    verdict.Scores,
			Reasoning: verdict.Reasoning,
			Winner:    verdict.Winner,
			Overall:   verdict.Overall,
			Fallback:  verdict.Fallback,
		}
		for id, pane := range m.panes {
			pane.Score = verdict.Scores[id]
		}
	}
	m.resize()

	return fmt.Sprintf("Viewing past round: %s vs %s (read-only)", round.TopicA, round.TopicB)
}

// resize recomputes pane and input dimensions for the current terminal
func (m *Model) resize() {
	if !m.ready {
		return
	}

	n := len(m.paneOrder)
	if n == 0 {
		n = 1
	}
	paneWidth := (m.width - 2*n) / n
	if paneWidth < 20 {
		paneWidth = 20
	}

	// header(1) + status(1) + input(1) + pane chrome(5)
	paneHeight := m.height - 8
	if m.verdict != nil {
		paneHeight -= verdictHeight
	}
	if paneHeight < 5 {
		paneHeight = 5
	}

	for _, pane := range m.panes {
		pane.Resize(paneWidth-2, paneHeight)
	}
	m.verdictView.SetWidth(m.width - 4)
	m.input.Width = m.width - 6
	m.history.SetMaxHeight(m.height)
}

// verdictHeight is the vertical budget reserved for the verdict panel
const verdictHeight = 14

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	switch m.mode {
	case ViewHelp:
		return m.renderHelp()
	case ViewHistory:
		return m.history.Render(m.width, m.height)
	}

	var sb strings.Builder

	// Header
	header := TitleStyle.Render("PITCH ARENA")
	if m.round != nil {
		header += DimStyle.Render("  ") +
			SystemStyle.Render(m.round.TopicA) +
			DimStyle.Render(" vs ") +
			SystemStyle.Render(m.round.TopicB)
	}
	sb.WriteString(header)
	sb.WriteString("\n")

	// Panes
	winner := ""
	if m.verdict != nil {
		winner = m.verdict.Winner
	}
	spin := m.spin.View()
	n := len(m.paneOrder)
	paneWidth := (m.width - 2*n) / n
	if paneWidth < 20 {
		paneWidth = 20
	}

	rendered := make([]string, 0, n)
	for _, id := range m.paneOrder {
		pane := m.panes[id]
		rendered = append(rendered, pane.Render(paneWidth, pane.Viewport.Height+3, spin, id == winner))
	}
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	sb.WriteString("\n")

	// Verdict panel
	if m.verdict != nil {
		sb.WriteString(m.verdictView.Render(m.verdict, m.registry))
		sb.WriteString("\n")
	}

	// Status line
	status := m.status
	if m.judging {
		status = spin + " " + status
	}
	sb.WriteString(DimStyle.Render(status))
	sb.WriteString("\n")

	// Input
	sb.WriteString(m.input.View())

	return sb.String()
}

// formatHealth renders a health report as a one-line status
func formatHealth(report health.Report) string {
	if report.Err != nil {
		return "Gateway unreachable: " + report.Err.Error()
	}
	if !report.Reachable {
		return "Gateway unreachable."
	}

	var parts []string
	for _, s := range report.Statuses {
		mark := "✓"
		if !s.Configured {
			mark = "✗"
		}
		parts = append(parts, fmt.Sprintf("%s %s", mark, providers.DisplayName(s.Provider)))
	}
	if len(parts) == 0 {
		return "Gateway up."
	}
	return "Gateway up: " + strings.Join(parts, "  ")
}
