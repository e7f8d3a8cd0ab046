package format

import (
	"io"

	"github.com/dhamidi/accparse/openacc/parser"
)

// TreeEncoder prints the indented outline of parser.Dump.
type TreeEncoder struct {
	w    io.Writer
	node parser.Node
}

func NewTreeEncoder(w io.Writer) *TreeEncoder {
	return &TreeEncoder{w: w}
}

func (e *TreeEncoder) Encode(node parser.Node) error {
	e.node = node
	return writeText(e.w, e)
}

func (e *TreeEncoder) MarshalText() ([]byte, error) {
	if e.node == nil {
		return []byte("nil\n"), nil
	}
	return []byte(parser.Dump(e.node)), nil
}

// SourceEncoder writes the text a tree was parsed from, whitespace and
// comments included.
type SourceEncoder struct {
	w    io.Writer
	node parser.Node
}

func NewSourceEncoder(w io.Writer) *SourceEncoder {
	return &SourceEncoder{w: w}
}

func (e *SourceEncoder) Encode(node parser.Node) error {
	e.node = node
	return writeText(e.w, e)
}

func (e *SourceEncoder) MarshalText() ([]byte, error) {
	if e.node == nil {
		return []byte("\n"), nil
	}
	return []byte(e.node.String() + "\n"), nil
}
