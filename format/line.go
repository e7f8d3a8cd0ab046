package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/dhamidi/accparse/openacc/parser"
)

// LineEncoder prints one tab-separated line per branch of a tree:
// kind, start, end, capabilities and source text. Empty fields are "-".
type LineEncoder struct {
	w    io.Writer
	node parser.Node
}

func NewLineEncoder(w io.Writer) *LineEncoder {
	return &LineEncoder{w: w}
}

func (e *LineEncoder) Encode(node parser.Node) error {
	e.node = node
	return writeText(e.w, e)
}

func (e *LineEncoder) MarshalText() ([]byte, error) {
	var sb strings.Builder
	if e.node == nil {
		return nil, nil
	}
	parser.Inspect(e.node, func(n parser.Node) bool {
		b, ok := n.(*parser.Branch)
		if !ok {
			return true
		}
		fmt.Fprintf(&sb, "%s\t%s\t%s\t%s\t%s\n",
			b.Kind(),
			startStr(b),
			endStr(b),
			capsStr(b.Caps()),
			textStr(b),
		)
		return true
	})
	return []byte(sb.String()), nil
}

func startStr(n parser.Node) string {
	tok := parser.FindFirstToken(n)
	if tok == nil || tok.Type == parser.TokenEOF {
		return "-"
	}
	return fmt.Sprintf("%d:%d", tok.Span.Start.Line, tok.Span.Start.Column)
}

func endStr(n parser.Node) string {
	tok := parser.FindLastToken(n)
	if tok == nil || tok.Type == parser.TokenEOF {
		return "-"
	}
	return fmt.Sprintf("%d:%d", tok.Span.End.Line, tok.Span.End.Column)
}

func capsStr(c parser.Capability) string {
	names := c.Names()
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

func textStr(n parser.Node) string {
	text := strings.Join(strings.Fields(n.String()), " ")
	if text == "" {
		return "-"
	}
	return text
}
