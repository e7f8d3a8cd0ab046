package scanner

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dhamidi/accparse/lalr"
	"github.com/dhamidi/accparse/openacc/parser"
)

// Pragma is one `#pragma acc` line of a source file, with its parse.
type Pragma struct {
	File string
	Line int
	// Text is the pragma as it appears in the file, including any
	// backslash-newline continuations.
	Text string
	Root parser.Node
	Err  error
}

// Recovered returns the error clauses in the pragma's tree.
func (p *Pragma) Recovered() []*parser.Branch {
	if p.Root == nil {
		return nil
	}
	var out []*parser.Branch
	for _, n := range parser.FindAll(p.Root, parser.IsKind(parser.KindErrorClause)) {
		out = append(out, n.(*parser.Branch))
	}
	return out
}

// Directive returns the kind of the pragma's construct, or
// parser.KindNoConstruct if it did not parse.
func (p *Pragma) Directive() parser.NodeKind {
	if p.Root == nil {
		return parser.KindNoConstruct
	}
	return p.Root.Kind()
}

// Extract returns the OpenACC pragmas in a C or C++ source, unparsed.
func Extract(r io.Reader, file string) ([]*Pragma, error) {
	var pragmas []*Pragma
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if !isPragmaAcc(text) {
			continue
		}
		p := &Pragma{File: file, Line: line, Text: text}
		for continues(text) && sc.Scan() {
			line++
			text = sc.Text()
			p.Text += "\n" + text
		}
		pragmas = append(pragmas, p)
	}
	if err := sc.Err(); err != nil {
		return pragmas, fmt.Errorf("read %s: %w", file, err)
	}
	return pragmas, nil
}

func continues(line string) bool {
	return strings.HasSuffix(strings.TrimSuffix(line, "\r"), "\\")
}

// isPragmaAcc matches lines of the form [ \t]* '#' [ \t]* "pragma" [ \t]+ "acc".
func isPragmaAcc(line string) bool {
	s := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(s, "#") {
		return false
	}
	s = strings.TrimLeft(s[1:], " \t")
	if !strings.HasPrefix(s, "pragma") {
		return false
	}
	s = s[len("pragma"):]
	rest := strings.TrimLeft(s, " \t")
	if len(rest) == len(s) || !strings.HasPrefix(rest, "acc") {
		return false
	}
	rest = rest[len("acc"):]
	return rest == "" || !isIdentByte(rest[0])
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// Parse parses every pragma in place.
func Parse(pragmas []*Pragma) {
	for _, p := range pragmas {
		p.Root, p.Err = parser.ParseString(p.Text, parser.WithFile(p.File), parser.WithStartLine(p.Line))
		if p.Err != nil {
			log.Debugf("%s:%d: %v", p.File, p.Line, p.Err)
		}
	}
}

// ParseSource extracts and parses the pragmas of one source file.
func ParseSource(file string, src []byte) ([]*Pragma, error) {
	pragmas, err := Extract(bytes.NewReader(src), file)
	if err != nil {
		return nil, err
	}
	Parse(pragmas)
	return pragmas, nil
}

// sourceLine returns line n of the file, which must lie within p.
func (p *Pragma) sourceLine(n int) string {
	lines := strings.Split(p.Text, "\n")
	if i := n - p.Line; i >= 0 && i < len(lines) {
		return strings.TrimSuffix(lines[i], "\r")
	}
	return ""
}

type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is a problem found in a pragma. Lines and columns are
// 1-based; End is exclusive.
type Diagnostic struct {
	File      string
	Line      int
	Column    int
	EndLine   int
	EndColumn int
	Severity  Severity
	Message   string
	// Source is the line of the pragma that Line refers to.
	Source string
}

// Diagnostics reports the syntax or lexical error of p, or one warning per
// clause that was skipped by error recovery.
func (p *Pragma) Diagnostics() []Diagnostic {
	d := Diagnostic{File: p.File, Line: p.Line, Column: 1, Severity: SeverityError}
	if p.Err != nil {
		var se *lalr.SyntaxError
		var le *parser.LexicalError
		switch {
		case errors.As(p.Err, &se):
			if tok, ok := se.Token.(*parser.Token); ok {
				d.Line, d.Column = tok.Span.Start.Line, tok.Span.Start.Column
				d.EndLine, d.EndColumn = tok.Span.End.Line, tok.Span.End.Column
			}
			d.Message = fmt.Sprintf("unexpected %s; expected one of: %s", se.Token.Text(), se.ExpectedDescription)
		case errors.As(p.Err, &le):
			d.Line, d.Column = le.Pos.Line, le.Pos.Column
			d.Message = le.Msg
		default:
			d.Message = p.Err.Error()
		}
		if d.EndLine == 0 {
			d.EndLine, d.EndColumn = d.Line, d.Column+1
		}
		d.Source = p.sourceLine(d.Line)
		return []Diagnostic{d}
	}

	var out []Diagnostic
	for _, b := range p.Recovered() {
		w := d
		w.Severity = SeverityWarning
		w.Message = "clause skipped"
		if info := b.ErrorInfo(); info != nil {
			w.Message = fmt.Sprintf("clause skipped: unexpected %s; expected one of: %s", info.Text, info.ExpectedDescription())
		}
		if first := parser.FindFirstToken(b); first != nil {
			w.Line, w.Column = first.Span.Start.Line, first.Span.Start.Column
		}
		if last := parser.FindLastToken(b); last != nil {
			w.EndLine, w.EndColumn = last.Span.End.Line, last.Span.End.Column
		}
		w.Source = p.sourceLine(w.Line)
		out = append(out, w)
	}
	return out
}
