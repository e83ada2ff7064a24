package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/roach88/eigen/internal/hostlib"
)

var (
	accentColor    = lipgloss.Color("#3B82F6")
	successColor   = lipgloss.Color("#10B981")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#F59E0B")

	promptStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	headerStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true).
			Padding(0, 1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(highlightColor)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
)

type historyEntry struct {
	input  string
	output string
	isErr  bool
}

type replModel struct {
	textInput   textinput.Model
	session     *Session
	bundle      string
	history     []historyEntry
	cmdHistory  []string
	historyIdx  int
	width       int
	height      int
	showHelp    bool
	quitting    bool
	initialized bool
}

type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	CtrlC key.Binding
	CtrlD key.Binding
	CtrlL key.Binding
	CtrlK key.Binding
	Tab   key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "previous line"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "next line"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "evaluate"),
	),
	CtrlC: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	CtrlD: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "quit"),
	),
	CtrlL: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "clear"),
	),
	CtrlK: key.NewBinding(
		key.WithKeys("ctrl+k"),
		key.WithHelp("ctrl+k", "toggle help"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "complete"),
	),
}

var replCommands = [][2]string{
	{"x = A.new(args)", "construct an instance and bind it"},
	{"x.msg(args)", "send msg with JSON arguments"},
	{":extend x M", "mix M into one object"},
	{":unextend x M", "remove an extension"},
	{":include A M", "include M into a module or class"},
	{":uninclude A M", "remove an include"},
	{":ancestors x", "show the lookup chain"},
	{":methods A", "list instance methods"},
	{":vars", "list bindings"},
	{":trace", "toggle dispatch tracing"},
	{":clear", "clear the screen"},
	{":quit", "exit"},
}

// NewReplCommand creates the repl command.
func NewReplCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl <bundle-dir>",
		Short: "Explore an installed bundle interactively",
		Long: `Install a bundle and open an interactive session over it.

Construct instances, send messages, extend single objects and watch how
dispatch resolves them. Type :help inside the session for the syntax.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			e, _, err := InstallBundle(args[0], hostlib.Default(), rootOpts.Logger())
			if err != nil {
				return reportLoadError(f, err)
			}

			p := tea.NewProgram(newReplModel(NewSession(e), args[0]),
				tea.WithAltScreen(),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()))
			if _, err := p.Run(); err != nil {
				return WrapExitError(ExitCommandError, "repl failed", err)
			}
			return nil
		},
	}
}

func newReplModel(session *Session, bundle string) replModel {
	ti := textinput.New()
	ti.Placeholder = "b = B.new()"
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60
	ti.PromptStyle = promptStyle
	ti.Prompt = "eigen> "

	return replModel{
		textInput:  ti,
		session:    session,
		bundle:     bundle,
		historyIdx: -1,
	}
}

func (m replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 10
		m.initialized = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.CtrlC), key.Matches(msg, keys.CtrlD):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.CtrlL):
			m.history = nil
			return m, nil

		case key.Matches(msg, keys.CtrlK):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, keys.Up):
			if len(m.cmdHistory) > 0 {
				if m.historyIdx == -1 {
					m.historyIdx = len(m.cmdHistory) - 1
				} else if m.historyIdx > 0 {
					m.historyIdx--
				}
				m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Down):
			if m.historyIdx != -1 {
				if m.historyIdx < len(m.cmdHistory)-1 {
					m.historyIdx++
					m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				} else {
					m.historyIdx = -1
					m.textInput.SetValue("")
				}
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Tab):
			return m.complete(), nil

		case key.Matches(msg, keys.Enter):
			input := strings.TrimSpace(m.textInput.Value())
			m.textInput.SetValue("")
			m.historyIdx = -1
			if input == "" {
				return m, nil
			}
			m.cmdHistory = append(m.cmdHistory, input)
			return m.submit(input)
		}
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// submit handles the screen commands itself and hands everything else to
// the session.
func (m replModel) submit(input string) (replModel, tea.Cmd) {
	switch input {
	case ":quit", ":q":
		m.quitting = true
		return m, tea.Quit
	case ":help", ":h":
		m.showHelp = !m.showHelp
		return m, nil
	case ":clear", ":c":
		m.history = nil
		return m, nil
	}

	output, err := m.session.Eval(input)
	entry := historyEntry{input: input, output: output}
	if err != nil {
		entry.output = strings.TrimRight(output+err.Error(), "\n")
		entry.isErr = true
	}
	m.history = append(m.history, entry)
	return m, nil
}

// complete extends the last word to a unique candidate, or lists the
// candidates when several match.
func (m replModel) complete() replModel {
	input := m.textInput.Value()
	start := strings.LastIndexAny(input, " .(=,") + 1
	word := input[start:]
	if word == "" {
		return m
	}

	var matches []string
	seen := make(map[string]bool)
	for _, name := range m.session.Completions() {
		if strings.HasPrefix(name, word) && !seen[name] {
			seen[name] = true
			matches = append(matches, name)
		}
	}

	switch {
	case len(matches) == 1:
		m.textInput.SetValue(input[:start] + matches[0])
		m.textInput.CursorEnd()
	case len(matches) > 1:
		m.history = append(m.history, historyEntry{
			output: "completions: " + strings.Join(matches, ", "),
		})
	}
	return m
}

func (m replModel) View() string {
	if !m.initialized {
		return "Loading..."
	}
	if m.quitting {
		return mutedStyle.Render("bye\n")
	}

	var b strings.Builder

	header := headerStyle.Render("eigen repl")
	b.WriteString(header + " " + mutedStyle.Render(m.bundle))
	if m.session.Tracing() {
		b.WriteString(" " + helpKeyStyle.Render("[trace]"))
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", max(min(m.width-2, 60), 0))) + "\n\n")

	reserved := 8
	if m.showHelp {
		reserved += len(replCommands) + 4
	}
	available := max(m.height-reserved, 1)

	var lines []string
	for _, entry := range m.history {
		if entry.input != "" {
			lines = append(lines, promptStyle.Render("› ")+entry.input)
		}
		style, mark := resultStyle, "→ "
		if entry.isErr {
			style, mark = errorStyle, "✗ "
		}
		for _, line := range strings.Split(entry.output, "\n") {
			if line == "" {
				continue
			}
			lines = append(lines, style.Render(mark)+line)
			mark = "  "
		}
	}
	if len(lines) > available {
		lines = lines[len(lines)-available:]
	}
	for _, line := range lines {
		b.WriteString(line + "\n")
	}
	if len(lines) > 0 {
		b.WriteString("\n")
	}

	b.WriteString(m.textInput.View() + "\n")

	if m.showHelp {
		b.WriteString("\n" + m.helpView())
	} else {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("%s %s • %s %s",
			keys.CtrlK.Help().Key, "help", keys.CtrlC.Help().Key, "quit")))
	}
	return b.String()
}

func (m replModel) helpView() string {
	var b strings.Builder
	for i, c := range replCommands {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(helpKeyStyle.Render(fmt.Sprintf("%-16s", c[0])) + " " + helpDescStyle.Render(c[1]))
	}
	return borderStyle.Render(b.String())
}
