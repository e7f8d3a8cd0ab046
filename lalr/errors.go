package lalr

import (
	"fmt"
	"strings"
)

// FailureReason says why error recovery gave up.
type FailureReason int

const (
	// StackExhausted means every state was discarded without finding an
	// error production.
	StackExhausted FailureReason = iota + 1
	// EndOfInput means recovery reached end of input before a
	// synchronizing terminal.
	EndOfInput
)

func (r FailureReason) String() string {
	switch r {
	case StackExhausted:
		return "stack exhausted"
	case EndOfInput:
		return "end of input"
	default:
		return "unknown"
	}
}

// SyntaxError is returned by Parse when the automaton fails. Token is the
// lookahead at which the error was first detected and Expected lists the
// terminals that state would have accepted.
type SyntaxError struct {
	Token               Token
	Position            string
	Expected            []Terminal
	ExpectedDescription string
	Reason              FailureReason
	StoppedAt           Token
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error: unexpected %s%s; expected one of: %s", e.Token.Text(), e.Position, e.ExpectedDescription)
}

// RecoveryExhausted reports whether recovery ran out of stack or input.
func (e *SyntaxError) RecoveryExhausted() bool {
	return e.Reason == StackExhausted || e.Reason == EndOfInput
}

// DescribeTerminals joins terminal descriptions with ", ", or returns
// "(none)" when ts is empty.
func DescribeTerminals(g *Grammar, ts []Terminal) string {
	if len(ts) == 0 {
		return "(none)"
	}
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = g.TerminalName(t)
	}
	return strings.Join(names, ", ")
}

// StructuralError reports a table or dispatcher defect rather than bad
// input: stack underflow, a missing GOTO entry, an unknown production.
type StructuralError struct {
	Op  string
	Msg string
	Err error
}

func (e *StructuralError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lalr: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("lalr: %s: %s", e.Op, e.Msg)
}

func (e *StructuralError) Unwrap() error { return e.Err }
