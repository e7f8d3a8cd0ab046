package format

import (
	"encoding/json"
	"io"

	"github.com/dhamidi/accparse/openacc/parser"
)

type JSONEncoder struct {
	w    io.Writer
	node parser.Node
}

func NewJSONEncoder(w io.Writer) *JSONEncoder {
	return &JSONEncoder{w: w}
}

func (e *JSONEncoder) Encode(node parser.Node) error {
	e.node = node
	return writeText(e.w, e)
}

func (e *JSONEncoder) MarshalText() ([]byte, error) {
	data, err := json.MarshalIndent(e.node, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
