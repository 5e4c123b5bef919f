package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/mbody/internal/engine"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// JointRef names one joint mobility to display.
type JointRef struct {
	Model string
	Joint string
	Axis  int
}

type liveModel struct {
	eng    *engine.Engine
	world  string
	rows   []JointRef
	paused bool
	err    error

	stepsPerTick int
	width        int
	height       int
}

// NewLive builds an interactive stepping view over the given joint
// mobilities.
func NewLive(e *engine.Engine, world string, rows []JointRef) *liveModel {
	return &liveModel{
		eng: e, world: world, rows: rows,
		stepsPerTick: 16, width: 80, height: 24,
	}
}

// Run starts the program and blocks until it quits.
func Run(m *liveModel) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(16*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *liveModel) Init() tea.Cmd { return tick() }

func (m *liveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ", "p":
			m.paused = !m.paused
		case "r":
			m.err = m.eng.Reset()
		case "+":
			m.stepsPerTick *= 2
		case "-":
			if m.stepsPerTick > 1 {
				m.stepsPerTick /= 2
			}
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if !m.paused {
			for i := 0; i < m.stepsPerTick; i++ {
				if err := m.eng.Step(); err != nil {
					m.err = err
					m.paused = true
					break
				}
			}
			m.eng.DrainDirtyPoses()
		}
		return m, tick()
	}
	return m, nil
}

func (m *liveModel) View() string {
	var b strings.Builder
	b.WriteString(cyan.Render("mbody") + " " + dim.Render(m.world) + "\n")
	b.WriteString(white.Render(fmt.Sprintf("t = %8.3f s", m.eng.SimTime())))
	if m.paused {
		b.WriteString("  " + yellow.Render("paused"))
	} else {
		b.WriteString("  " + green.Render("running"))
	}
	b.WriteString(dim.Render(fmt.Sprintf("  %d steps/frame", m.stepsPerTick)))
	b.WriteString("\n\n")

	for _, r := range m.rows {
		q, errQ := m.eng.JointPosition(r.Model, r.Joint, r.Axis)
		u, errU := m.eng.JointVelocity(r.Model, r.Joint, r.Axis)
		if errQ != nil || errU != nil {
			b.WriteString(dim.Render(fmt.Sprintf("  %-24s  --", r.Joint)) + "\n")
			continue
		}
		label := fmt.Sprintf("%s/%s[%d]", r.Model, r.Joint, r.Axis)
		b.WriteString(fmt.Sprintf("  %-32s %s %s\n",
			white.Render(label),
			cyan.Render(fmt.Sprintf("q=%+9.4f", q)),
			dim.Render(fmt.Sprintf("u=%+9.4f", u))))
	}

	if m.err != nil {
		b.WriteString("\n" + red.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n" + dim.Render("space pause  r reset  +/- speed  q quit") + "\n")
	return b.String()
}
