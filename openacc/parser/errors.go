package parser

import "fmt"

// LexicalError is returned by the lexer for input it cannot split into
// tokens.
type LexicalError struct {
	Pos Position
	Msg string
}

func (e *LexicalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

// StructuralError reports misuse of the tree: a child index out of range,
// or an edit on a node that is not where the caller says it is. ChildAt and
// SetChildAt panic with it; the editing functions return it.
type StructuralError struct {
	Op  string
	Msg string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("parser: %s: %s", e.Op, e.Msg)
}
