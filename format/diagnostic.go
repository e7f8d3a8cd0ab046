package format

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dhamidi/accparse/openacc/scanner"
)

var (
	colorError   = lipgloss.Color("#EF4444")
	colorWarning = lipgloss.Color("#F59E0B")
	colorCaret   = lipgloss.Color("#10B981")
	colorMuted   = lipgloss.Color("#6B7280")
)

type diagnosticStyles struct {
	location lipgloss.Style
	error    lipgloss.Style
	warning  lipgloss.Style
	message  lipgloss.Style
	gutter   lipgloss.Style
	caret    lipgloss.Style
}

func newDiagnosticStyles(r *lipgloss.Renderer) diagnosticStyles {
	return diagnosticStyles{
		location: r.NewStyle().Bold(true),
		error:    r.NewStyle().Foreground(colorError).Bold(true),
		warning:  r.NewStyle().Foreground(colorWarning).Bold(true),
		message:  r.NewStyle().Bold(true),
		gutter:   r.NewStyle().Foreground(colorMuted),
		caret:    r.NewStyle().Foreground(colorCaret).Bold(true).TabWidth(lipgloss.NoTabConversion),
	}
}

// DiagnosticEncoder prints diagnostics the way C compilers do: a location
// line, the offending source line, and a caret under the offending span.
// Colors are used only when w is a terminal.
type DiagnosticEncoder struct {
	w      io.Writer
	styles diagnosticStyles
	diag   scanner.Diagnostic

	Errors   int
	Warnings int
}

func NewDiagnosticEncoder(w io.Writer) *DiagnosticEncoder {
	return &DiagnosticEncoder{w: w, styles: newDiagnosticStyles(lipgloss.NewRenderer(w))}
}

func (e *DiagnosticEncoder) Encode(d scanner.Diagnostic) error {
	e.diag = d
	if d.Severity == scanner.SeverityError {
		e.Errors++
	} else {
		e.Warnings++
	}
	return writeText(e.w, e)
}

func (e *DiagnosticEncoder) MarshalText() ([]byte, error) {
	var sb strings.Builder
	d := e.diag
	s := e.styles

	severity := s.warning.Render(d.Severity.String() + ":")
	if d.Severity == scanner.SeverityError {
		severity = s.error.Render(d.Severity.String() + ":")
	}
	loc := fmt.Sprintf("%s:%d:%d:", d.File, d.Line, d.Column)
	fmt.Fprintf(&sb, "%s %s %s\n", s.location.Render(loc), severity, s.message.Render(d.Message))

	if d.Source == "" {
		return []byte(sb.String()), nil
	}
	num := strconv.Itoa(d.Line)
	pad := strings.Repeat(" ", len(num))
	fmt.Fprintf(&sb, " %s %s %s\n", s.gutter.Render(num), s.gutter.Render("|"), d.Source)
	fmt.Fprintf(&sb, " %s %s %s\n", pad, s.gutter.Render("|"), s.caret.Render(caretLine(d)))
	return []byte(sb.String()), nil
}

// caretLine underlines columns [Column, EndColumn) of d.Source, or up to
// the end of the line when the span continues past it. Tabs before the
// span are kept so that the caret lines up.
func caretLine(d scanner.Diagnostic) string {
	src := d.Source
	start := min(max(d.Column-1, 0), len(src))
	end := len(src)
	if d.EndLine == d.Line && d.EndColumn > d.Column {
		end = min(d.EndColumn-1, len(src))
	}

	var sb strings.Builder
	for _, c := range []byte(src[:start]) {
		if c == '\t' {
			sb.WriteByte('\t')
		} else {
			sb.WriteByte(' ')
		}
	}
	sb.WriteByte('^')
	if end > start+1 {
		sb.WriteString(strings.Repeat("~", end-start-1))
	}
	return sb.String()
}

// Summary is the closing line of a check run.
func (e *DiagnosticEncoder) Summary(pragmas int) string {
	return fmt.Sprintf("%d %s checked, %d %s, %d %s\n",
		pragmas, plural(pragmas, "pragma"),
		e.Errors, plural(e.Errors, "error"),
		e.Warnings, plural(e.Warnings, "warning"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
