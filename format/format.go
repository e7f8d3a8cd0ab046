// Package format renders parse results for people and programs.
package format

import (
	"encoding"
	"fmt"
	"io"
	"slices"

	"github.com/dhamidi/accparse/openacc/parser"
)

// Encoder writes one syntax tree at a time. MarshalText returns the
// rendering of the most recently encoded tree.
type Encoder interface {
	encoding.TextMarshaler
	Encode(node parser.Node) error
}

var encoders = map[string]func(io.Writer) Encoder{
	"json":   func(w io.Writer) Encoder { return NewJSONEncoder(w) },
	"yaml":   func(w io.Writer) Encoder { return NewYAMLEncoder(w) },
	"tree":   func(w io.Writer) Encoder { return NewTreeEncoder(w) },
	"line":   func(w io.Writer) Encoder { return NewLineEncoder(w) },
	"source": func(w io.Writer) Encoder { return NewSourceEncoder(w) },
}

// New returns the encoder registered under name.
func New(name string, w io.Writer) (Encoder, error) {
	mk, ok := encoders[name]
	if !ok {
		return nil, fmt.Errorf("unknown format %q (want one of %v)", name, Names())
	}
	return mk(w), nil
}

// Names lists the registered formats, sorted.
func Names() []string {
	names := make([]string, 0, len(encoders))
	for name := range encoders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// writeText is the Encode half shared by all encoders.
func writeText(w io.Writer, m encoding.TextMarshaler) error {
	text, err := m.MarshalText()
	if err != nil {
		return err
	}
	_, err = w.Write(text)
	return err
}
