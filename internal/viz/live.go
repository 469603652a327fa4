package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mcalder42/vicsek/internal/flock"
)

const (
	fieldWidth    = 60
	fieldHeight   = 24
	traceCapacity = 600
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(42)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
)

type TickMsg time.Time

// LiveModel is the bubbletea model for the live flock view. It owns the
// simulation for the lifetime of the program; each tick advances the
// simulation a fixed number of steps and redraws.
type LiveModel struct {
	flk      *flock.Model
	field    *FieldRenderer
	recorder *flock.TrajectoryRecorder
	annealer *flock.NoiseAnnealer

	stepsPerFrame int
	running       bool
	title         string
}

// NewLiveModel wraps a flock model for interactive viewing. A nil annealer
// leaves the noise profile alone.
func NewLiveModel(flk *flock.Model, annealer *flock.NoiseAnnealer, stepsPerFrame int, title string) LiveModel {
	if stepsPerFrame < 1 {
		stepsPerFrame = 1
	}
	recorder := &flock.TrajectoryRecorder{}
	flk.AddObserver(recorder)
	if annealer != nil {
		flk.AddObserver(annealer)
	}
	return LiveModel{
		flk:           flk,
		field:         NewFieldRenderer(fieldWidth, fieldHeight, 0),
		recorder:      recorder,
		annealer:      annealer,
		stepsPerFrame: stepsPerFrame,
		running:       true,
		title:         title,
	}
}

// WithLeaders marks the first count agents with a heavier marker.
func (m LiveModel) WithLeaders(count int) LiveModel {
	m.field = NewFieldRenderer(fieldWidth, fieldHeight, count)
	return m
}

func (m LiveModel) Init() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Update handles input events and steps the simulation.
func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.flk.Reset(time.Now().UnixNano())
			m.recorder.Steps = m.recorder.Steps[:0]
			m.recorder.Values = m.recorder.Values[:0]
		case "+", "=":
			m.stepsPerFrame++
		case "-", "_":
			if m.stepsPerFrame > 1 {
				m.stepsPerFrame--
			}
		}
	case TickMsg:
		if m.running {
			for i := 0; i < m.stepsPerFrame; i++ {
				m.flk.Step()
			}
		}
		return m, tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

// View renders the field beside the live statistics.
func (m LiveModel) View() string {
	canvasView := canvasStyle.Render(m.field.Render(m.flk))

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.title)) + "\n")
	if m.running {
		s.WriteString("RUNNING\n\n")
	} else {
		s.WriteString("PAUSED\n\n")
	}

	if chart := OrderTrace(m.recorder.Values, 30, 4, traceCapacity, "Order parameter"); chart != "" {
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(labelStyle.Render("Step") + valueStyle.Render(fmt.Sprintf("%d", m.flk.CurrentStep())) + "\n")
	s.WriteString(labelStyle.Render("V") + valueStyle.Render(fmt.Sprintf("%.3f", m.flk.OrderParameter())) + "\n")
	s.WriteString(labelStyle.Render("N") + valueStyle.Render(fmt.Sprintf("%d", m.flk.N())) + "\n")
	s.WriteString(labelStyle.Render("L") + valueStyle.Render(fmt.Sprintf("%.2f", m.flk.Length())) + "\n")
	s.WriteString(labelStyle.Render("Noise") + valueStyle.Render(fmt.Sprintf("%.3f", m.flk.Noise().Mean())) + "\n")
	s.WriteString(labelStyle.Render("Steps/frame") + valueStyle.Render(fmt.Sprintf("%d", m.stepsPerFrame)) + "\n")
	if m.annealer != nil {
		s.WriteString(labelStyle.Render("Anneal") + valueStyle.Render(
			fmt.Sprintf("%.2f -> %.2f", m.annealer.Start, m.annealer.Finish)) + "\n")
	}

	s.WriteString(helpStyle.Render("\nSP:Pause R:Reset Q:Quit +/-:Speed"))
	statsView := statsStyle.Render(s.String())

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
}
