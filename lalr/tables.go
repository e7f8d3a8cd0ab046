package lalr

import (
	"fmt"
	"slices"
)

const (
	kindShift = 30
	valueMask = 1<<kindShift - 1
)

// ActionKind is the tag of an Action.
type ActionKind uint8

const (
	ActionError ActionKind = iota
	ActionShift
	ActionReduce
	ActionAccept
)

func (k ActionKind) String() string {
	switch k {
	case ActionShift:
		return "shift"
	case ActionReduce:
		return "reduce"
	case ActionAccept:
		return "accept"
	default:
		return "error"
	}
}

// Action is a packed ACTION table entry: the kind lives in the two high
// bits, the target state or production index in the low 30 bits.
type Action uint32

// ErrorAction is the empty ACTION cell.
const ErrorAction Action = 0

var AcceptAction = Action(uint32(ActionAccept) << kindShift)

// Shift moves to state after consuming the lookahead.
func Shift(state int) Action { return Action(uint32(ActionShift)<<kindShift | uint32(state)&valueMask) }

// Reduce applies production prod.
func Reduce(prod int) Action { return Action(uint32(ActionReduce)<<kindShift | uint32(prod)&valueMask) }

func (a Action) Kind() ActionKind { return ActionKind(a >> kindShift) }
func (a Action) Value() int       { return int(a & valueMask) }

func (a Action) String() string {
	switch a.Kind() {
	case ActionShift:
		return fmt.Sprintf("shift %d", a.Value())
	case ActionReduce:
		return fmt.Sprintf("reduce %d", a.Value())
	default:
		return a.Kind().String()
	}
}

// RecoveryKind is the tag of a Recovery: pop a state, skip the lookahead,
// or reduce an error production.
type RecoveryKind uint8

const (
	DiscardState RecoveryKind = iota
	DiscardTerminal
	RecoverProduction
)

func (k RecoveryKind) String() string {
	switch k {
	case DiscardTerminal:
		return "discard-terminal"
	case RecoverProduction:
		return "recover"
	default:
		return "discard-state"
	}
}

// Recovery is a packed RECOVERY table entry, laid out like Action.
type Recovery uint32

// Recover reduces error production prod over the discarded symbols.
func Recover(prod int) Recovery {
	return Recovery(uint32(RecoverProduction)<<kindShift | uint32(prod)&valueMask)
}

// DiscardTerminalCode skips the lookahead.
var DiscardTerminalCode = Recovery(uint32(DiscardTerminal) << kindShift)

func (r Recovery) Kind() RecoveryKind { return RecoveryKind(r >> kindShift) }
func (r Recovery) Value() int         { return int(r & valueMask) }

func (r Recovery) String() string {
	if r.Kind() == RecoverProduction {
		return fmt.Sprintf("recover %d", r.Value())
	}
	return r.Kind().String()
}

// Tables holds the ACTION, GOTO and RECOVERY tables for one grammar. A
// Tables value is never mutated after Build or LoadTables returns, so it can
// be shared by concurrent parses.
type Tables struct {
	grammar   *Grammar
	numStates int
	actions   []Action   // numStates * numTerminals
	gotos     []int32    // numStates * numNonterminals, -1 when absent
	recovery  []Recovery // numStates * numTerminals
	conflicts []Conflict
}

// Conflict records an ACTION cell that had more than one candidate. Chosen
// is what the table holds; shifts win over reduces and lower production
// indices win between reduces.
type Conflict struct {
	State    int
	Terminal Terminal
	Chosen   Action
	Rejected Action
}

func (c Conflict) Describe(g *Grammar) string {
	return fmt.Sprintf("state %d on %s: %s over %s", c.State, g.TerminalName(c.Terminal), describeAction(g, c.Chosen), describeAction(g, c.Rejected))
}

func describeAction(g *Grammar, a Action) string {
	if a.Kind() == ActionReduce {
		return fmt.Sprintf("reduce %s", g.Production(a.Value()).Description)
	}
	return a.String()
}

func (t *Tables) Grammar() *Grammar { return t.grammar }
func (t *Tables) NumStates() int    { return t.numStates }

// Action returns ACTION(state, term). Out-of-range keys are errors.
func (t *Tables) Action(state int, term Terminal) Action {
	if !t.validTerminalKey(state, term) {
		return ErrorAction
	}
	return t.actions[state*t.grammar.NumTerminals()+int(term)]
}

// Goto returns GOTO(state, nt), or -1 when the cell is empty.
func (t *Tables) Goto(state int, nt Nonterminal) int {
	n := t.grammar.NumNonterminals()
	if state < 0 || state >= t.numStates || int(nt) < 0 || int(nt) >= n {
		return -1
	}
	return int(t.gotos[state*n+int(nt)])
}

// Recovery returns RECOVERY(state, term).
func (t *Tables) Recovery(state int, term Terminal) Recovery {
	if !t.validTerminalKey(state, term) {
		return Recovery(0)
	}
	return t.recovery[state*t.grammar.NumTerminals()+int(term)]
}

func (t *Tables) validTerminalKey(state int, term Terminal) bool {
	return state >= 0 && state < t.numStates && int(term) >= 0 && int(term) < t.grammar.NumTerminals()
}

// Expected returns, in index order, every terminal with a non-error ACTION
// entry in state.
func (t *Tables) Expected(state int) []Terminal {
	var expected []Terminal
	for term := 0; term < t.grammar.NumTerminals(); term++ {
		if t.Action(state, Terminal(term)) != ErrorAction {
			expected = append(expected, Terminal(term))
		}
	}
	return expected
}

// Conflicts returns the ACTION cells that had more than one candidate, in
// the order they were resolved.
func (t *Tables) Conflicts() []Conflict {
	return slices.Clone(t.conflicts)
}

// Stats summarizes table occupancy.
type Stats struct {
	States       int
	Terminals    int
	Nonterminals int
	Productions  int
	Shifts       int
	Reduces      int
	Gotos        int
	Recoveries   int
	Conflicts    int
}

func (t *Tables) Stats() Stats {
	s := Stats{
		States:       t.numStates,
		Terminals:    t.grammar.NumTerminals(),
		Nonterminals: t.grammar.NumNonterminals(),
		Productions:  t.grammar.NumProductions(),
		Conflicts:    len(t.conflicts),
	}
	for _, a := range t.actions {
		switch a.Kind() {
		case ActionShift:
			s.Shifts++
		case ActionReduce:
			s.Reduces++
		}
	}
	for _, g := range t.gotos {
		if g >= 0 {
			s.Gotos++
		}
	}
	for _, r := range t.recovery {
		if r.Kind() == RecoverProduction {
			s.Recoveries++
		}
	}
	return s
}
