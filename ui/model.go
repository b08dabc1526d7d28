// Package ui renders synthesis and playback progress for a listening
// session as a small Bubble Tea program.
package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/termenv"
)

// Phase names the pipeline stage the display is reporting.
type Phase int

const (
	PhasePreparing Phase = iota
	PhaseSynthesizing
	PhasePlaying
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhasePreparing:
		return "preparing"
	case PhaseSynthesizing:
		return "synthesizing"
	case PhasePlaying:
		return "playing"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

type chunkMark int

const (
	markPending chunkMark = iota
	markDone
	markFailed
	markPlaying
)

// The pipeline goroutine feeds these through Program.Send.

// StartMsg sets the chunk count once splitting is done.
type StartMsg struct {
	Total int
}

// ChunkDoneMsg reports one synthesized chunk.
type ChunkDoneMsg struct {
	Index     int
	Completed int
	Total     int
	Err       error
}

// PlayingMsg reports the chunk now being spoken.
type PlayingMsg struct {
	Index int
}

// DoneMsg ends the session. Err carries the pipeline failure, if any.
type DoneMsg struct {
	Err error
}

// Model is the Bubble Tea model for a listening session.
type Model struct {
	cfg Config

	phase     Phase
	spinner   spinner.Model
	progress  progress.Model
	marks     []chunkMark
	completed int
	failed    int
	playing   int
	width     int
	err       error
	cancelled bool
	copied    bool

	// cancel stops the pipeline when the user quits.
	cancel func()
}

// NewModel builds the session display. cancel is invoked when the
// user asks to quit; the program itself exits on DoneMsg.
func NewModel(cfg Config, cancel func()) Model {
	s := spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(spinnerStyle))
	p := progress.New(progress.WithDefaultGradient())
	p.Width = 30

	return Model{
		cfg:      cfg,
		spinner:  s,
		progress: p,
		playing:  -1,
		cancel:   cancel,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			m.cancelled = true

		case "c":
			if m.cfg.Text != "" {
				// Copy using OSC 52
				termenv.Copy(m.cfg.Text)
				// Copy using native system clipboard
				_ = clipboard.WriteAll(m.cfg.Text)
				m.copied = true
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		w := msg.Width - 30
		if w > 50 {
			w = 50
		}
		if w < 10 {
			w = 10
		}
		m.progress.Width = w
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StartMsg:
		m.marks = make([]chunkMark, msg.Total)
		m.phase = PhaseSynthesizing
		return m, nil

	case ChunkDoneMsg:
		m.completed = msg.Completed
		if msg.Index >= 0 && msg.Index < len(m.marks) {
			if msg.Err != nil {
				m.marks[msg.Index] = markFailed
			} else if m.marks[msg.Index] == markPending {
				m.marks[msg.Index] = markDone
			}
		}
		if msg.Err != nil {
			m.failed++
		}
		return m, nil

	case PlayingMsg:
		m.phase = PhasePlaying
		if m.playing >= 0 && m.playing < len(m.marks) && m.marks[m.playing] == markPlaying {
			m.marks[m.playing] = markDone
		}
		m.playing = msg.Index
		if msg.Index >= 0 && msg.Index < len(m.marks) {
			m.marks[msg.Index] = markPlaying
		}
		return m, nil

	case DoneMsg:
		m.phase = PhaseDone
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString("\n  ")
	b.WriteString(titleStyle.Render(m.cfg.Title))
	if m.cfg.Voice != "" {
		b.WriteString("  ")
		b.WriteString(subtleStyle.Render(fmt.Sprintf("%s @ %gx", m.cfg.Voice, m.cfg.Speed)))
	}
	b.WriteString("\n\n")

	if m.phase == PhaseDone {
		switch {
		case m.err != nil:
			b.WriteString("  " + errorStyle.Render("✗ "+m.err.Error()) + "\n")
		case m.cancelled:
			b.WriteString("  " + subtleStyle.Render("cancelled") + "\n")
		default:
			b.WriteString("  " + okStyle.Render("✓ done") + "\n")
		}
		return b.String()
	}

	pct := 0.0
	if len(m.marks) > 0 {
		pct = float64(m.completed) / float64(len(m.marks))
	}
	b.WriteString(fmt.Sprintf("  %s %s %s %s\n",
		m.spinner.View(),
		phaseStyle.Render(m.phase.String()),
		m.progress.ViewAs(pct),
		subtleStyle.Render(fmt.Sprintf("%d/%d chunks", m.completed, len(m.marks)))))

	if len(m.marks) > 0 {
		b.WriteString("  " + m.viewMarks() + "\n")
	}
	switch {
	case m.cancelled:
		b.WriteString("\n  " + subtleStyle.Render("cancelling, waiting for in-flight chunks") + "\n")
	case m.copied:
		b.WriteString("\n  " + subtleStyle.Render("copied text · q to cancel") + "\n")
	default:
		b.WriteString("\n  " + subtleStyle.Render("c to copy text · q to cancel") + "\n")
	}
	return b.String()
}

func (m Model) viewMarks() string {
	var b strings.Builder
	for _, mark := range m.marks {
		switch mark {
		case markDone:
			b.WriteString(markDoneStyle.Render("●"))
		case markFailed:
			b.WriteString(markFailStyle.Render("✗"))
		case markPlaying:
			b.WriteString(markPlayStyle.Render("▶"))
		default:
			b.WriteString(markPendingStyle.Render("○"))
		}
	}
	s := b.String()
	if m.width > 4 {
		s = truncate.StringWithTail(s, uint(m.width-4), "…")
	}
	return s
}

// Err exposes the terminal failure after the program finishes.
func (m Model) Err() error {
	return m.err
}

// Cancelled reports whether the user asked to stop.
func (m Model) Cancelled() bool {
	return m.cancelled
}
