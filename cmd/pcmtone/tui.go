package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gen2brain/pcmout"
)

// semitone is the frequency ratio between two neighbouring keys.
var semitone = math.Pow(2, 1.0/12)

const (
	minFrequency = 20.0
	maxFrequency = 8000.0
)

// model is the bubbletea model of the interactive tone player.
type model struct {
	device  *pcmout.Device
	note    *pcmout.Note
	backend string

	melodyStep int // Index of the next melody note, -1 when no melody is playing.
	quitting   bool
}

type tickMsg time.Time

// melodyMsg advances the melody to note step; gap is set for the pause after a note.
type melodyMsg struct {
	step int
	gap  bool
}

func newModel(d *pcmout.Device, note *pcmout.Note, backend string) model {
	return model{device: d, note: note, backend: backend, melodyStep: -1}
}

func (m model) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m, tickEvery()

	case melodyMsg:
		return m.advanceMelody(msg)
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		m.device.Stop()

		return m, tea.Quit
	case " ":
		if m.device.IsPlaying() {
			m.device.Pause()
		} else {
			m.device.Play()
		}
	case "r":
		m.device.Reset()
	case "s":
		m.melodyStep = -1
		m.device.Stop()
	case "w":
		m.note.SetWaveform(m.note.Waveform().Next())
	case "+", "=", "up":
		m.note.SetFrequency(math.Min(m.note.Frequency()*semitone, maxFrequency))
	case "-", "down":
		m.note.SetFrequency(math.Max(m.note.Frequency()/semitone, minFrequency))
	case "m":
		if m.melodyStep < 0 {
			return m.advanceMelody(melodyMsg{step: 0})
		}
	}

	return m, nil
}

// advanceMelody plays one step of the melody and schedules the next one.
func (m model) advanceMelody(msg melodyMsg) (tea.Model, tea.Cmd) {
	if msg.step == 0 && !msg.gap {
		m.melodyStep = 0
	}

	// Cancelled with "s" or restarted meanwhile.
	if m.melodyStep != msg.step {
		return m, nil
	}

	if msg.gap {
		m.device.Stop()
		m.melodyStep++

		if m.melodyStep >= len(melody) {
			m.melodyStep = -1

			return m, nil
		}

		return m, tea.Tick(noteGap, func(time.Time) tea.Msg { return melodyMsg{step: msg.step + 1} })
	}

	t := melody[msg.step]
	m.note.SetFrequency(t.frequency)
	m.device.Play()

	return m, tea.Tick(t.duration, func(time.Time) tea.Msg { return melodyMsg{step: msg.step, gap: true} })
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	faultStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)

func (m model) View() string {
	if m.quitting {
		return "Closing audio device...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("pcmtone"))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-10s", label)))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}

	state := "paused"
	if m.device.IsPlaying() {
		state = "playing"
	}

	if m.melodyStep >= 0 {
		state += fmt.Sprintf(" (melody %d/%d)", m.melodyStep+1, len(melody))
	}

	row("Backend", m.backend)
	row("Stream", m.device.Properties().String())
	row("State", state)
	row("Waveform", m.note.Waveform().String())
	row("Frequency", fmt.Sprintf("%.2f Hz", m.note.Frequency()))

	if m.device.Faulted() {
		b.WriteString(faultStyle.Render(fmt.Sprintf("Device failed: %v", m.device.Err())))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("space play/pause · r reset · s stop · w waveform · +/- pitch · m melody · q quit"))
	b.WriteString("\n")

	return b.String()
}
