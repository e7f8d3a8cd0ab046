package explore

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func press(m Model, msg tea.KeyMsg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func typeText(m Model, text string) Model {
	for _, r := range text {
		m = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestNewParsesInitialInput(t *testing.T) {
	m := sized(New("#pragma acc wait", "tree"))
	if m.pragma == nil || m.pragma.Root == nil {
		t.Fatal("initial input was not parsed")
	}
	if got := m.content(); !strings.HasPrefix(got, "WaitDirective") {
		t.Errorf("content() = %q, want the tree of a wait directive", got)
	}
	if got := m.View(); !strings.Contains(got, "WaitDirective") || !strings.Contains(got, logo) {
		t.Errorf("View() = %q", got)
	}
}

func TestViewBeforeSize(t *testing.T) {
	if got := New("", "tree").View(); got != "Loading..." {
		t.Errorf("View() = %q, want Loading...", got)
	}
}

func TestTypingReparses(t *testing.T) {
	m := sized(New("", "source"))
	if m.pragma != nil {
		t.Fatalf("pragma = %v, want none for empty input", m.pragma)
	}
	if got := m.status(); !strings.Contains(got, "no pragma") {
		t.Errorf("status() = %q", got)
	}

	m = typeText(m, "#pragma acc loop gang")
	if m.parsed != "#pragma acc loop gang" {
		t.Fatalf("parsed = %q", m.parsed)
	}
	if got := m.content(); got != "#pragma acc loop gang\n" {
		t.Errorf("content() = %q", got)
	}
	if got := m.status(); !strings.Contains(got, "LoopConstruct") {
		t.Errorf("status() = %q, want LoopConstruct", got)
	}
}

func TestDiagnosticsShown(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		status string
		text   string
	}{
		{"syntax error", "#pragma acc frobnicate", "syntax error", "input:1:13: error:"},
		{"recovered", "#pragma acc parallel num_gangs(n copyin(a) async", "1 clause recovered", "input:1:22: warning:"},
		{"lexical error", "#pragma acc parallel if(a @ b)", "syntax error", "input:1:27: error:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sized(New(tt.src, "tree"))
			if got := m.status(); !strings.Contains(got, tt.status) {
				t.Errorf("status() = %q, want %q", got, tt.status)
			}
			if got := m.content(); !strings.Contains(got, tt.text) {
				t.Errorf("content() = %q, want it to contain %q", got, tt.text)
			}
		})
	}
}

func TestCycleFormat(t *testing.T) {
	m := sized(New("#pragma acc wait", "tree"))
	var seen []string
	for range Formats {
		seen = append(seen, m.format)
		m = press(m, tea.KeyMsg{Type: tea.KeyTab})
	}
	if got := strings.Join(seen, ","); got != strings.Join(Formats, ",") {
		t.Errorf("formats = %s, want %s", got, strings.Join(Formats, ","))
	}
	if m.format != "tree" {
		t.Errorf("format after a full cycle = %q, want tree", m.format)
	}
	m = press(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.format != "source" {
		t.Errorf("format after shift+tab = %q, want source", m.format)
	}
	if got := m.content(); got != "#pragma acc wait\n" {
		t.Errorf("content() = %q", got)
	}

	if m := New("#pragma acc wait", "xml"); m.format != "tree" {
		t.Errorf("unknown format = %q, want tree", m.format)
	}
}

func TestHistory(t *testing.T) {
	m := sized(New("#pragma acc wait", "source"))
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m.input.SetValue("#pragma acc loop")
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.history) != 2 {
		t.Fatalf("history = %v, want 2 entries", m.history)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyUp})
	m = press(m, tea.KeyMsg{Type: tea.KeyUp})
	if got := m.input.Value(); got != "#pragma acc wait" {
		t.Errorf("input after two ups = %q", got)
	}
	if m.parsed != "#pragma acc wait" {
		t.Errorf("recalled input was not parsed: %q", m.parsed)
	}
	m = press(m, tea.KeyMsg{Type: tea.KeyUp})
	if got := m.input.Value(); got != "#pragma acc wait" {
		t.Errorf("input past the oldest entry = %q", got)
	}
	m = press(m, tea.KeyMsg{Type: tea.KeyDown})
	m = press(m, tea.KeyMsg{Type: tea.KeyDown})
	if got := m.input.Value(); got != "" {
		t.Errorf("input past the newest entry = %q, want empty", got)
	}
}

func TestQuit(t *testing.T) {
	m := sized(New("", "tree"))
	for _, key := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		_, cmd := m.Update(tea.KeyMsg{Type: key})
		if cmd == nil {
			t.Fatalf("%v: no command", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%v: command does not quit", key)
		}
	}
}
