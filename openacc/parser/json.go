package parser

import "encoding/json"

type jsonNode struct {
	Kind     string      `json:"kind" yaml:"kind"`
	Field    string      `json:"field,omitempty" yaml:"field,omitempty"`
	Caps     []string    `json:"caps,omitempty" yaml:"caps,omitempty"`
	Span     *jsonSpan   `json:"span,omitempty" yaml:"span,omitempty"`
	Token    string      `json:"token,omitempty" yaml:"token,omitempty"`
	Type     string      `json:"type,omitempty" yaml:"type,omitempty"`
	Error    *jsonError  `json:"error,omitempty" yaml:"error,omitempty"`
	Children []*jsonNode `json:"children,omitempty" yaml:"children,omitempty"`
}

type jsonSpan struct {
	Start jsonPosition `json:"start" yaml:"start"`
	End   jsonPosition `json:"end" yaml:"end"`
}

type jsonPosition struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

type jsonError struct {
	Message  string   `json:"message" yaml:"message"`
	Expected []string `json:"expected,omitempty" yaml:"expected,omitempty"`
	Got      string   `json:"got,omitempty" yaml:"got,omitempty"`
}

func (t *Token) MarshalJSON() ([]byte, error)         { return json.Marshal(toJSON(t, "")) }
func (b *Branch) MarshalJSON() ([]byte, error)        { return json.Marshal(toJSON(b, "")) }
func (l *List) MarshalJSON() ([]byte, error)          { return json.Marshal(toJSON(l, "")) }
func (l *SeparatedList) MarshalJSON() ([]byte, error) { return json.Marshal(toJSON(l, "")) }

// MarshalYAML implements yaml.Marshaler.
func (t *Token) MarshalYAML() (any, error)         { return toJSON(t, ""), nil }
func (b *Branch) MarshalYAML() (any, error)        { return toJSON(b, ""), nil }
func (l *List) MarshalYAML() (any, error)          { return toJSON(l, ""), nil }
func (l *SeparatedList) MarshalYAML() (any, error) { return toJSON(l, ""), nil }

func toJSON(n Node, field string) *jsonNode {
	jn := &jsonNode{
		Kind:  n.Kind().String(),
		Field: field,
		Caps:  n.Caps().Names(),
	}

	switch n := n.(type) {
	case *Token:
		jn.Token = n.Literal
		jn.Type = n.Type.String()
		if n.Span.Start.Line != 0 || n.Span.End.Line != 0 {
			jn.Span = &jsonSpan{
				Start: jsonPosition{Line: n.Span.Start.Line, Column: n.Span.Start.Column},
				End:   jsonPosition{Line: n.Span.End.Line, Column: n.Span.End.Column},
			}
		}
		return jn
	case *Branch:
		if e := n.errInfo; e != nil {
			jn.Error = &jsonError{Message: e.Message(), Got: e.Text}
			for _, k := range e.Expected {
				jn.Error.Expected = append(jn.Error.Expected, k.Description())
			}
		}
		for i, f := range n.layout.Fields {
			if child := n.children[i]; child != nil {
				jn.Children = append(jn.Children, toJSON(child, f))
			}
		}
		return jn
	}

	for child := range n.Children() {
		jn.Children = append(jn.Children, toJSON(child, ""))
	}
	return jn
}
