// Package tui is the terminal chat front end of the questionnaire.
package tui

import (
	"QuestionnaireBot/loader"
	"QuestionnaireBot/session"
	"QuestionnaireBot/view"
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
)

// LoadFunc fetches the questionnaire data.
type LoadFunc func(ctx context.Context) (*loader.Dataset, error)

type loadedMsg struct {
	dataset *loader.Dataset
	err     error
}

type changedMsg struct{}

// Model is the bubbletea model driving one questionnaire.
type Model struct {
	ctx     context.Context
	machine *session.Machine
	load    LoadFunc

	screen view.Screen
	input  textinput.Model
	cursor int
	run    uint64
	index  int

	width  int
	height int
}

func New(ctx context.Context, machine *session.Machine, load LoadFunc) Model {
	ti := textinput.New()
	ti.Placeholder = view.TextPlaceholder
	ti.CharLimit = 500
	ti.Width = 60
	ti.Focus()

	return Model{
		ctx:     ctx,
		machine: machine,
		load:    load,
		screen:  view.Loading(),
		input:   ti,
	}
}

// Notify returns a machine listener that wakes p up on every state change.
// Send runs on its own goroutine because the listener may be invoked from
// inside Update.
func Notify(p *tea.Program) func() {
	return func() {
		go p.Send(changedMsg{})
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadCmd())
}

func (m Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ds, err := m.load(m.ctx)
		return loadedMsg{dataset: ds, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 0)
		m.height = max(msg.Height, 0)
		if m.width > 8 {
			m.input.Width = m.width - 8
		}
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.screen = view.Failure(msg.err)
			return m, nil
		}
		if err := m.machine.Initialize(msg.dataset.Questions, msg.dataset.Fillers); err != nil {
			log.Error().Err(err).Msg("error starting questionnaire")
			m.screen = view.Failure(err)
			return m, nil
		}
		m.refresh()
		return m, nil

	case changedMsg:
		if m.screen.Kind == view.ScreenError {
			return m, nil
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	}

	switch m.screen.Kind {
	case view.ScreenLoading, view.ScreenError:
		if msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil

	case view.ScreenSummary:
		switch msg.String() {
		case "enter", "r":
			if err := m.machine.Reset(); err != nil {
				log.Error().Err(err).Msg("error restarting questionnaire")
			}
			m.refresh()
		case "q":
			return m, tea.Quit
		}
		return m, nil
	}

	switch in := m.screen.Input.(type) {
	case view.TextInput:
		if msg.Type == tea.KeyEnter {
			m.submit(m.input.Value())
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case view.ChoiceInput:
		if msg.Type == tea.KeyRunes {
			if c, ok := shortcut(in.Choices, msg.String()); ok {
				m.submit(c.Value)
				return m, nil
			}
		}
		switch msg.String() {
		case "left", "h", "up", "k", "shift+tab":
			if m.cursor > 0 {
				m.cursor--
			}
		case "right", "l", "down", "j", "tab":
			if m.cursor < len(in.Choices)-1 {
				m.cursor++
			}
		case "enter", " ":
			if m.cursor < len(in.Choices) {
				m.submit(in.Choices[m.cursor].Value)
			}
		}
	}
	return m, nil
}

// shortcut finds the choice a single key press selects: the one whose label
// is exactly key, provided no other label starts with key. On a 0..10 rating
// "1" selects nothing, since it could be the start of "10".
func shortcut(choices []view.Choice, key string) (view.Choice, bool) {
	var match view.Choice
	found := false
	for _, c := range choices {
		switch {
		case c.Label == key:
			match, found = c, true
		case strings.HasPrefix(c.Label, key):
			return view.Choice{}, false
		}
	}
	return match, found
}

func (m *Model) submit(text string) {
	if m.machine.SubmitAt(m.screen.Run, m.screen.QuestionIndex, text) {
		m.input.Reset()
	}
	m.refresh()
}

// refresh re-renders from the machine. A new question or run clears the
// text field and the choice cursor.
func (m *Model) refresh() {
	snap := m.machine.Snapshot()
	if snap.Run != m.run || snap.QuestionIndex != m.index {
		m.run = snap.Run
		m.index = snap.QuestionIndex
		m.cursor = 0
		m.input.Reset()
	}
	m.screen = view.Render(snap)
}

// Screen exposes the current frame for tests.
func (m Model) Screen() view.Screen {
	return m.screen
}
