// Package ui implements the terminal playback view.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/listenlater/listenlater/tts"
)

const tickInterval = 200 * time.Millisecond

// wordWindow is how many words of context to render around the spoken
// word.
const wordWindow = 40

type tickMsg time.Time

// GenerationErrorMsg reports that chunk generation stopped with an error.
// The session owner sends it into the running program so the failure shows
// up while playback of the already generated chunks continues.
type GenerationErrorMsg struct {
	Err error
}

// PlayerModel renders playback state for one article and translates
// key presses into sequencer calls. All playback state lives in the
// sequencer; the model only reads snapshots on a tick.
type PlayerModel struct {
	seq   *tts.Sequencer
	title string

	bar    progress.Model
	status tts.Status
	width  int

	err    error
	genErr error
	done   bool
}

// NewPlayer builds the playback view for a started sequencer.
func NewPlayer(seq *tts.Sequencer, title string) PlayerModel {
	bar := progress.New(progress.WithDefaultGradient())
	bar.ShowPercentage = false

	return PlayerModel{
		seq:   seq,
		title: title,
		bar:   bar,
		width: 80,
	}
}

func (m PlayerModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m PlayerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 4
		return m, nil

	case tickMsg:
		m.status = m.seq.Snapshot()
		m.err = m.seq.LastError()
		return m, tick()

	case GenerationErrorMsg:
		m.genErr = msg.Err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m PlayerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.done = true
		return m, tea.Quit

	case " ", "p":
		if m.status.IsPlaying {
			m.err = m.seq.Pause()
		} else {
			m.err = m.seq.Play()
		}

	case "right", "l":
		m.err = m.seq.SkipForward()

	case "left", "h":
		m.err = m.seq.SkipBackward()

	case "s":
		m.seq.CyclePlaybackRate()

	case "r":
		m.err = m.seq.RetryChunk()
	}

	m.status = m.seq.Snapshot()
	return m, nil
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	spokenStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (m PlayerModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	b.WriteString(m.renderTranscript())
	b.WriteString("\n\n")

	if m.status.DurationMs > 0 {
		b.WriteString("  ")
		b.WriteString(m.bar.ViewAs(
			float64(m.status.PositionMs) / float64(m.status.DurationMs)))
		b.WriteString("\n")
	}

	b.WriteString("  ")
	b.WriteString(m.renderStatusLine())
	b.WriteString("\n")

	if m.genErr != nil {
		b.WriteString("  ")
		b.WriteString(errorStyle.Render("generation stopped: " + m.genErr.Error()))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString("  ")
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(
		"  space play/pause · ←/→ skip 10s · s speed · r retry · q quit"))
	b.WriteString("\n")

	return b.String()
}

// renderTranscript shows the words around the playback position with
// the spoken word highlighted.
func (m PlayerModel) renderTranscript() string {
	words := m.seq.Words()
	if len(words) == 0 {
		return dimStyle.Render("  generating audio...")
	}

	current := m.status.CurrentWordIndex

	start := 0
	if current > wordWindow/2 {
		start = current - wordWindow/2
	}
	end := start + wordWindow
	if end > len(words) {
		end = len(words)
	}

	parts := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		switch {
		case i == current:
			parts = append(parts, highlightStyle.Render(words[i].Word))
		case current >= 0 && i < current:
			parts = append(parts, spokenStyle.Render(words[i].Word))
		default:
			parts = append(parts, words[i].Word)
		}
	}

	text := "  " + strings.Join(parts, " ")
	return lipgloss.NewStyle().Width(m.width - 2).Render(text)
}

func (m PlayerModel) renderStatusLine() string {
	icon := stateIcon(m.status)

	pos := formatMs(m.status.PositionMs)
	dur := formatMs(m.status.DurationMs)

	line := fmt.Sprintf("%s %s / %s", icon, pos, dur)

	if m.status.PlaybackRate != 1.0 {
		line += fmt.Sprintf("  %.1fx", m.status.PlaybackRate)
	}

	if m.status.TotalChunks > 0 {
		line += dimStyle.Render(fmt.Sprintf("  chunks %d/%d",
			m.status.ChunksLoaded, m.status.TotalChunks))
	}

	if m.status.IsWaiting {
		line += dimStyle.Render("  buffering...")
	}

	return line
}

func stateIcon(status tts.Status) string {
	switch status.State {
	case tts.StatePlaying:
		return "▶"
	case tts.StatePaused:
		return "⏸"
	case tts.StateWaiting, tts.StatePriming:
		return "⟳"
	case tts.StateComplete:
		return "✓"
	default:
		return "■"
	}
}

func formatMs(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
