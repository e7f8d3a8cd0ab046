// Package explore is an interactive terminal explorer: type a pragma and
// watch its tree, or its diagnostics, update with every key stroke.
package explore

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dhamidi/accparse/format"
	"github.com/dhamidi/accparse/openacc/scanner"
)

// Formats are the encoders Tab cycles through.
var Formats = []string{"tree", "line", "json", "yaml", "source"}

const (
	headerHeight = 5 // logo, input panel, format bar
	footerHeight = 3 // status bar, help
)

type Model struct {
	width  int
	height int
	ready  bool

	input    textinput.Model
	viewport viewport.Model
	format   string

	// parsed is the input the viewport was last rendered for.
	parsed  string
	pragma  *scanner.Pragma
	diags   []scanner.Diagnostic
	history []string
	histPos int
	lastErr error
}

// New returns an explorer showing src in the given output format.
func New(src, formatName string) Model {
	ti := textinput.New()
	ti.Placeholder = "#pragma acc parallel loop gang copyin(a[0:n])"
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.Width = 76
	ti.SetValue(src)
	ti.Focus()

	if !slices.Contains(Formats, formatName) {
		formatName = Formats[0]
	}
	m := Model{
		input:  ti,
		format: formatName,
	}
	m.parse()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab:
			m.cycleFormat(1)
			return m, nil
		case tea.KeyShiftTab:
			m.cycleFormat(-1)
			return m, nil
		case tea.KeyEnter:
			m.remember()
			return m, nil
		case tea.KeyUp:
			m.recall(-1)
			return m, nil
		case tea.KeyDown:
			m.recall(1)
			return m, nil
		case tea.KeyPgUp:
			m.viewport.ViewUp()
			return m, nil
		case tea.KeyPgDown:
			m.viewport.ViewDown()
			return m, nil
		}
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		if m.input.Value() != m.parsed {
			m.parse()
		}
		return m, tea.Batch(cmds...)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-8, 10)

		height := max(msg.Height-headerHeight-footerHeight-2, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, height)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = height
		}
		m.updateViewportContent()
	}

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) cycleFormat(step int) {
	i := slices.Index(Formats, m.format)
	m.format = Formats[(i+step+len(Formats))%len(Formats)]
	m.updateViewportContent()
}

// remember appends the current input to the history.
func (m *Model) remember() {
	v := strings.TrimSpace(m.input.Value())
	if v != "" && (len(m.history) == 0 || m.history[len(m.history)-1] != v) {
		m.history = append(m.history, v)
	}
	m.histPos = len(m.history)
}

// recall moves through the history, step -1 being older.
func (m *Model) recall(step int) {
	if len(m.history) == 0 {
		return
	}
	m.histPos = min(max(m.histPos+step, 0), len(m.history))
	if m.histPos == len(m.history) {
		m.input.SetValue("")
	} else {
		m.input.SetValue(m.history[m.histPos])
	}
	m.input.CursorEnd()
	m.parse()
}

// parse parses the input and rerenders the viewport.
func (m *Model) parse() {
	m.parsed = m.input.Value()
	m.pragma, m.diags, m.lastErr = nil, nil, nil

	pragmas, err := scanner.ParseSource("input", []byte(m.parsed))
	switch {
	case err != nil:
		m.lastErr = err
	case len(pragmas) > 0:
		m.pragma = pragmas[0]
		m.diags = m.pragma.Diagnostics()
	}
	m.updateViewportContent()
}

func (m *Model) updateViewportContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.content())
	m.viewport.GotoTop()
}

// content is the text shown in the viewport: the tree in the selected
// format followed by any diagnostics.
func (m *Model) content() string {
	var b bytes.Buffer
	switch {
	case m.lastErr != nil:
		return m.lastErr.Error()
	case m.pragma == nil:
		return helpDescStyle.Render("Type a line starting with #pragma acc.")
	case m.pragma.Root != nil:
		enc, err := format.New(m.format, &b)
		if err != nil {
			return err.Error()
		}
		if err := enc.Encode(m.pragma.Root); err != nil {
			return err.Error()
		}
	}
	if len(m.diags) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		enc := format.NewDiagnosticEncoder(&b)
		for _, d := range m.diags {
			enc.Encode(d)
		}
	}
	return b.String()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(logoStyle.Render(logo))
	b.WriteString("\n")
	b.WriteString(inputPanelStyle.Width(m.width - 2).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderFormatBar())
	b.WriteString("\n")
	b.WriteString(treePanelStyle.Width(m.width - 2).Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.renderHelpBar())
	return b.String()
}

func (m Model) renderFormatBar() string {
	var parts []string
	for _, name := range Formats {
		if name == m.format {
			parts = append(parts, formatActiveStyle.Render(name))
		} else {
			parts = append(parts, formatInactiveStyle.Render(name))
		}
	}
	return " " + strings.Join(parts, "  ")
}

// status summarizes the parse in one line.
func (m Model) status() string {
	switch {
	case m.lastErr != nil:
		return statusErrorStyle.Render("error")
	case m.pragma == nil:
		return helpDescStyle.Render("no pragma")
	case m.pragma.Err != nil:
		return statusErrorStyle.Render("syntax error")
	case len(m.diags) > 0:
		return statusWarningStyle.Render(fmt.Sprintf("%s, %d %s recovered", m.pragma.Directive(), len(m.diags), plural(len(m.diags), "clause")))
	default:
		return statusOKStyle.Render(m.pragma.Directive().String())
	}
}

func (m Model) renderStatusBar() string {
	left := m.status()
	right := helpDescStyle.Render(fmt.Sprintf("%d in history", len(m.history)))
	pad := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-4, 1)
	return statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", pad) + right)
}

func (m Model) renderHelpBar() string {
	hints := []string{
		renderKeyHint("tab", "format"),
		renderKeyHint("enter", "remember"),
		renderKeyHint("↑/↓", "history"),
		renderKeyHint("pgup/pgdn", "scroll"),
		renderKeyHint("esc", "quit"),
	}
	return " " + strings.Join(hints, "  ")
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// Run starts the explorer on the terminal.
func Run(src, formatName string) error {
	p := tea.NewProgram(New(src, formatName), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
