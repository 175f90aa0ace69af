// Package tui is the terminal front-end: a transcript viewport, a text
// input and a status bar over an assistant.Assistant.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/antoniostano/aria/internal/assistant"
	"github.com/antoniostano/aria/internal/brain"
	"github.com/antoniostano/aria/internal/persona"
	"github.com/antoniostano/aria/internal/speech"
	"github.com/antoniostano/aria/internal/transcript"
)

const (
	headerHeight = 2
	footerHeight = 6
)

type Options struct {
	Assistant assistant.Assistant
	// Speaker voices each reply. Nil keeps the terminal silent.
	Speaker speech.Speaker
	Phrases *speech.PhraseSource
}

// Model is the bubbletea model of the terminal shell.
type Model struct {
	assistant assistant.Assistant
	speaker   speech.Speaker
	phrases   *speech.PhraseSource

	width  int
	height int
	ready  bool

	viewport   viewport.Model
	input      textinput.Model
	credential textinput.Model
	spinner    spinner.Model

	busy      bool
	enterKey  bool
	turns     []transcript.Turn
	status    assistant.Status
	notice    string
	noticeErr bool
}

func New(opts Options) Model {
	in := textinput.New()
	in.Placeholder = "Say something to ARIA..."
	in.CharLimit = 2000
	in.Prompt = "› "
	in.Focus()

	key := textinput.New()
	key.Placeholder = "OpenAI API key"
	key.Prompt = "key › "
	key.EchoMode = textinput.EchoPassword
	key.EchoCharacter = '•'

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = titleStyle

	phrases := opts.Phrases
	if phrases == nil {
		phrases = speech.NewPhraseSource()
	}

	m := Model{
		assistant:  opts.Assistant,
		speaker:    opts.Speaker,
		phrases:    phrases,
		input:      in,
		credential: key,
		spinner:    sp,
		viewport:   viewport.New(80, 12),
	}
	m.refresh()
	return m
}

// Run starts the terminal shell and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = max(msg.Width-2, 10)
		m.viewport.Height = max(msg.Height-headerHeight-footerHeight, 3)
		m.input.Width = max(msg.Width-8, 10)
		m.credential.Width = max(msg.Width-12, 10)
		m.ready = true
		m.renderTranscript()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case replyMsg:
		m.busy = false
		if msg.err != nil {
			m.setNotice(turnErrorNotice(msg.err), !errors.Is(msg.err, assistant.ErrEmptyInput))
			m.refresh()
			return m, nil
		}
		m.clearNotice()
		if f := msg.reply.Failure; f != nil {
			m.setNotice(fmt.Sprintf("Live reply failed (%s), answered from demo rules.", f.Kind), true)
		}
		m.refresh()
		return m, m.speak(msg.reply)

	case spokenMsg:
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.setNotice("Speech unavailable: "+msg.err.Error(), true)
		}
		return m, nil

	case heardMsg:
		m.setNotice("Heard: "+msg.text, false)
		return m.submit(msg.text)

	case resetMsg:
		m.setNotice("Conversation cleared.", false)
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	if m.enterKey {
		m.credential, cmd = m.credential.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.enterKey {
		return m.handleCredentialKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "enter":
		text := m.input.Value()
		m.input.Reset()
		return m.submit(text)

	case "tab":
		next := persona.Next(m.assistant.Status().Persona)
		if err := m.assistant.SetPersona(next); err != nil {
			m.setNotice(err.Error(), true)
		} else {
			voice, _ := persona.Resolve(next)
			m.setNotice("Voice: "+voice.Label, false)
		}
		m.refresh()
		return m, nil

	case "ctrl+k":
		m.enterKey = true
		m.input.Blur()
		m.credential.Reset()
		return m, m.credential.Focus()

	case "ctrl+d":
		m.assistant.ClearCredential()
		m.setNotice("API key removed, demo mode.", false)
		m.refresh()
		return m, nil

	case "ctrl+e":
		if m.assistant.Status().Mode == brain.ModeLive {
			m.assistant.DisableLive()
			m.setNotice("Demo mode.", false)
		} else if err := m.assistant.EnableLive(); err != nil {
			m.setNotice("Enter an API key first (ctrl+k).", true)
		} else {
			m.setNotice("Live mode.", false)
		}
		m.refresh()
		return m, nil

	case "ctrl+l":
		if m.busy {
			return m, nil
		}
		phrases := m.phrases
		m.setNotice("Listening...", false)
		return m, func() tea.Msg { return heardMsg{text: phrases.Listen()} }

	case "ctrl+r":
		a := m.assistant
		return m, func() tea.Msg {
			a.Reset()
			return resetMsg{}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleCredentialKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.leaveCredentialEntry()
		m.setNotice("API key entry cancelled.", false)
		return m, nil
	case "enter":
		value := m.credential.Value()
		m.leaveCredentialEntry()
		if err := m.assistant.SetCredential(value); err != nil {
			m.setNotice("API key not set: "+err.Error(), true)
		} else {
			m.setNotice("API key set, live mode.", false)
		}
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.credential, cmd = m.credential.Update(msg)
	return m, cmd
}

func (m *Model) leaveCredentialEntry() {
	m.enterKey = false
	m.credential.Reset()
	m.credential.Blur()
	m.input.Focus()
}

// submit starts a turn unless one is already running.
func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	if m.busy {
		m.setNotice("Still thinking about the last message.", false)
		return m, nil
	}
	if strings.TrimSpace(text) == "" {
		m.setNotice(turnErrorNotice(assistant.ErrEmptyInput), false)
		return m, nil
	}
	m.busy = true
	a := m.assistant
	turn := func() tea.Msg {
		reply, err := a.HandleTurn(context.Background(), text)
		return replyMsg{reply: reply, err: err}
	}
	return m, tea.Batch(turn, m.spinner.Tick)
}

func (m *Model) speak(reply assistant.Reply) tea.Cmd {
	if m.speaker == nil || reply.Text == "" {
		return nil
	}
	s := m.speaker
	return func() tea.Msg {
		return spokenMsg{err: s.Speak(context.Background(), reply.Text, reply.Speech)}
	}
}

func (m *Model) refresh() {
	m.status = m.assistant.Status()
	m.turns = m.assistant.Transcript()
	m.renderTranscript()
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func (m *Model) clearNotice() {
	m.notice = ""
	m.noticeErr = false
}

func turnErrorNotice(err error) string {
	if errors.Is(err, assistant.ErrEmptyInput) {
		return "Please type a message first."
	}
	return "Turn failed: " + err.Error()
}

func (m *Model) renderTranscript() {
	width := max(m.viewport.Width-4, 20)
	var b strings.Builder
	if len(m.turns) == 0 {
		b.WriteString(subtitleStyle.Render("Type a message and press enter. ctrl+l simulates the microphone."))
	}
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString("\n")
		}
		if t.Speaker == transcript.SpeakerUser {
			b.WriteString(userLabelStyle.Render("You"))
		} else {
			b.WriteString(assistantLabelStyle.Render("ARIA"))
		}
		b.WriteString("\n")
		b.WriteString(messageStyle.Width(width).Render(t.Text))
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ARIA"))
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("futuristic voice assistant"))
	b.WriteString("\n")

	b.WriteString(chatPanelStyle.Render(m.viewport.View()))
	b.WriteString("\n")

	if m.enterKey {
		b.WriteString(credentialInputStyle.Render(m.credential.View()))
	} else {
		b.WriteString(inputStyle.Render(m.input.View()))
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	if m.notice != "" {
		if m.noticeErr {
			b.WriteString(errorStyle.Render(m.notice))
		} else {
			b.WriteString(noticeStyle.Render(m.notice))
		}
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("enter send • tab voice • ctrl+k key • ctrl+d forget key • ctrl+e live/demo • ctrl+l listen • ctrl+r reset • esc quit"))
	return b.String()
}

func (m Model) renderStatusBar() string {
	mode := demoStyle.Render("DEMO")
	if m.status.Mode == brain.ModeLive {
		mode = liveStyle.Render("LIVE")
	}
	voice, _ := persona.Resolve(m.status.Persona)
	key := "key: none"
	if m.status.HasCredential {
		key = "key: set"
	}
	parts := []string{
		mode,
		"voice: " + voice.Label,
		key,
		fmt.Sprintf("turns: %d", m.status.Turns),
	}
	if m.busy {
		parts = append(parts, m.spinner.View()+" thinking")
	}
	bar := strings.Join(parts, "  │  ")
	if m.width > 0 {
		return statusBarStyle.Width(m.width).Render(bar)
	}
	return statusBarStyle.Render(bar)
}

var _ tea.Model = Model{}
