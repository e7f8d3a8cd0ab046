package lalr

import (
	"fmt"

	"github.com/tliron/commonlog"
)

// Value is anything the dispatcher produces or the lexer yields.
type Value = any

// Token is a terminal occurrence yielded by a Lexer. Text returns the
// lexeme for diagnostics.
type Token interface {
	Terminal() Terminal
	Text() string
}

// Lexer is the token source consumed by the driver. The last token it
// returns must carry the grammar's end-of-input terminal.
type Lexer interface {
	Next() (Token, error)
	// DescribePosition describes where the last returned token starts.
	DescribePosition() string
}

// Dispatcher builds the value of a reduction from the popped values.
// info is nil except for error productions reduced by recovery.
type Dispatcher interface {
	Dispatch(prod int, values []Value, info *RecoveryInfo) (Value, error)
}

// DispatchFunc adapts a function to the Dispatcher interface.
type DispatchFunc func(prod int, values []Value, info *RecoveryInfo) (Value, error)

func (f DispatchFunc) Dispatch(prod int, values []Value, info *RecoveryInfo) (Value, error) {
	return f(prod, values, info)
}

// Status is the state of one parse: Running until the automaton accepts
// or recovery gives up.
type Status int

const (
	Running Status = iota
	Accepted
	Failed
)

func (s Status) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case Failed:
		return "failed"
	default:
		return "running"
	}
}

// Step describes one driver iteration or one recovery decision, with the
// stack sizes observed before it was carried out.
type Step struct {
	State     int
	Lookahead Token
	Action    Action
	Recovery  Recovery
	Recover   bool
	States    int
	Values    int
}

// Option configures a Parser.
type Option func(*Parser)

// WithStepHook registers f to observe every step of every parse.
func WithStepHook(f func(Step)) Option {
	return func(p *Parser) {
		p.onStep = f
	}
}

// Parser runs the automaton described by a Tables value. It holds no
// per-parse state, so one Parser may serve concurrent calls to Parse.
type Parser struct {
	tables     *Tables
	dispatcher Dispatcher
	onStep     func(Step)
}

// NewParser returns a parser that drives t and builds values with d.
func NewParser(t *Tables, d Dispatcher, opts ...Option) *Parser {
	p := &Parser{tables: t, dispatcher: d}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Tables returns the tables p was built with.
func (p *Parser) Tables() *Tables { return p.tables }

type run struct {
	*Parser
	lex       Lexer
	stack     *stack
	lookahead Token
	status    Status
	result    Value
	err       error
}

// Parse consumes lex until the automaton accepts or fails. It returns the
// root value, a *SyntaxError, a *StructuralError, or an error from lex.
func (p *Parser) Parse(lex Lexer) (Value, error) {
	r := &run{Parser: p, lex: lex, stack: newStack(), status: Running}
	if err := r.advance(); err != nil {
		return nil, err
	}
	for r.status == Running {
		if err := r.step(); err != nil {
			return nil, err
		}
	}
	if r.status == Failed {
		return nil, r.err
	}
	return r.result, nil
}

func (r *run) advance() error {
	tok, err := r.lex.Next()
	if err != nil {
		return err
	}
	if tok == nil {
		return &StructuralError{Op: "lexer", Msg: "nil token"}
	}
	r.lookahead = tok
	return nil
}

func (r *run) observe(s Step) {
	s.States, s.Values = len(r.stack.states), len(r.stack.values)
	if log.AllowLevel(commonlog.Debug) {
		if s.Recover {
			log.Debugf("state %d on %q: %s", s.State, r.lookahead.Text(), s.Recovery)
		} else {
			log.Debugf("state %d on %q: %s", s.State, r.lookahead.Text(), s.Action)
		}
	}
	if r.onStep != nil {
		r.onStep(s)
	}
}

func (r *run) step() error {
	if err := r.stack.check(); err != nil {
		return err
	}
	state := r.stack.top()
	act := r.tables.Action(state, r.lookahead.Terminal())
	r.observe(Step{State: state, Lookahead: r.lookahead, Action: act})
	switch act.Kind() {
	case ActionShift:
		r.stack.push(act.Value(), r.lookahead)
		return r.advance()
	case ActionReduce:
		return r.reduce(act.Value(), nil)
	case ActionAccept:
		if len(r.stack.values) != 1 {
			return &StructuralError{Op: "accept", Msg: fmt.Sprintf("%d values on stack", len(r.stack.values))}
		}
		r.result = r.stack.values[0]
		r.status = Accepted
		return nil
	default:
		return r.recoverFrom()
	}
}

// reduce pops the right-hand side of prod, dispatches, and pushes the
// result with the GOTO state.
func (r *run) reduce(prod int, info *RecoveryInfo) error {
	g := r.tables.grammar
	if prod <= 0 || prod >= g.NumProductions() {
		return &StructuralError{Op: "reduce", Msg: fmt.Sprintf("unknown production %d", prod)}
	}
	p := g.Production(prod)
	values, err := r.stack.topValues(p.Len())
	if err != nil {
		return err
	}
	result, err := r.dispatcher.Dispatch(prod, values, info)
	if err != nil {
		return &StructuralError{Op: "dispatch", Msg: p.Description, Err: err}
	}
	if err := r.stack.pop(p.Len()); err != nil {
		return err
	}
	next := r.tables.Goto(r.stack.top(), p.LHS)
	if next < 0 {
		return &StructuralError{Op: "goto", Msg: fmt.Sprintf("no transition from state %d on %s", r.stack.top(), g.NonterminalName(p.LHS))}
	}
	r.stack.push(next, result)
	return nil
}
