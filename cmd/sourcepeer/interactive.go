package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/wippyai/source-peer/peer"
	"github.com/wippyai/source-peer/source"
	"github.com/wippyai/source-peer/style"
)

const maxLog = 8

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	idStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	stateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type entry struct {
	handle *peer.Handle
	id     string
}

type modelState int

const (
	stateBrowse modelState = iota
	stateNewID
)

type interactiveModel struct {
	err      error
	style    *style.Style
	events   chan peer.Event
	status   string
	entries  []entry
	log      []string
	input    textinput.Model
	selected int
	state    modelState
}

type peerEventMsg peer.Event

func newInteractiveModel() *interactiveModel {
	return &interactiveModel{
		style:  style.New(style.WithName("interactive")),
		events: make(chan peer.Event, 64),
		state:  stateBrowse,
	}
}

func runInteractive() error {
	m := newInteractiveModel()
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	m.style.Close()
	return err
}

// waitForEvent delivers peer events to the UI goroutine. Host cleanups
// report from the runtime's cleanup goroutine.
func (m *interactiveModel) waitForEvent() tea.Msg {
	return peerEventMsg(<-m.events)
}

func (m *interactiveModel) observe(e peer.Event) {
	select {
	case m.events <- e:
	default:
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.waitForEvent
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case peerEventMsg:
		e := peer.Event(msg)
		m.log = append(m.log, fmt.Sprintf("%-15s %s (%s, %s)", e.Type, e.SourceID, e.State, e.Ref))
		if len(m.log) > maxLog {
			m.log = m.log[len(m.log)-maxLog:]
		}
		return m, m.waitForEvent

	case tea.KeyMsg:
		if m.state == stateNewID {
			return m.updateInput(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m *interactiveModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.state = stateBrowse
		return m, nil
	case "enter":
		id := strings.TrimSpace(m.input.Value())
		if id == "" {
			id = m.input.Placeholder
		}
		m.state = stateBrowse
		m.create(id)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	m.status = ""

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.selected < len(m.entries)-1 {
			m.selected++
		}

	case "n":
		ti := textinput.New()
		ti.Placeholder = uuid.NewString()
		ti.Prompt = "source id: "
		ti.Width = 40
		ti.Focus()
		m.input = ti
		m.state = stateNewID
		return m, textinput.Blink

	case "a":
		if e, ok := m.current(); ok {
			m.err = e.handle.AddTo(m.style)
		}

	case "d":
		if e, ok := m.current(); ok {
			m.err = e.handle.RemoveFrom(m.style)
		}

	case "x":
		if e, ok := m.current(); ok {
			m.err = m.style.Destroy(e.id)
		}

	case "c":
		m.err = m.style.Close()
		if m.err == nil {
			m.status = "style closed"
		}

	case "g":
		m.collect()
	}
	return m, nil
}

func (m *interactiveModel) current() (entry, bool) {
	if m.selected < 0 || m.selected >= len(m.entries) {
		return entry{}, false
	}
	return m.entries[m.selected], true
}

func (m *interactiveModel) create(id string) {
	src, err := source.New(id, source.KindGeoJSON)
	if err != nil {
		m.err = err
		return
	}
	h, err := peer.NewHandle(src, peer.WithObserver(m.observe))
	if err != nil {
		m.err = err
		return
	}
	m.entries = append(m.entries, entry{id: id, handle: h})
	m.selected = len(m.entries) - 1
}

// collect forgets every handle whose peer owns its source and runs the
// collector, so those sources are dropped by their host cleanups.
func (m *interactiveModel) collect() {
	kept := m.entries[:0]
	forgotten := 0
	for _, e := range m.entries {
		if p, err := e.handle.Peer(); err == nil && p.State() == peer.StatePeerOwned {
			forgotten++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(m.entries); i++ {
		m.entries[i] = entry{}
	}
	m.entries = kept
	if m.selected >= len(m.entries) {
		m.selected = max(len(m.entries)-1, 0)
	}

	runtime.GC()
	m.status = fmt.Sprintf("forgot %d handle(s), ran GC", forgotten)
}

func describe(h *peer.Handle) string {
	p, err := h.Peer()
	if err != nil {
		return "sentinel"
	}
	return fmt.Sprintf("%s, host ref %s", p.State(), p.HostRefState())
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Source Peers"))
	b.WriteString(fmt.Sprintf(" style holds %d source(s)\n\n", m.style.Len()))

	if m.state == stateNewID {
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter create • esc cancel"))
		return b.String()
	}

	if len(m.entries) == 0 {
		b.WriteString("No sources. Press n to create one.\n")
	}
	for i, e := range m.entries {
		line := idStyle.Render(e.id) + "  " + stateStyle.Render(describe(e.handle))
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> ") + line)
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	for _, l := range m.log {
		b.WriteString(helpStyle.Render(l))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	} else if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.status)
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("n new • a attach • d detach • x destroy • c close style • g gc • q quit"))
	return b.String()
}
