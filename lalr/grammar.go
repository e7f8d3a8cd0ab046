package lalr

import (
	"fmt"
	"strings"
)

// Terminal indexes a lexical category, 0..T-1.
type Terminal int

// Nonterminal indexes a grammar symbol that appears on a left-hand side, 0..N-1.
type Nonterminal int

// Symbol is either a terminal or a nonterminal. Terminals are stored as
// themselves, nonterminals as their bitwise complement, so both fit in one
// int without a tag field.
type Symbol int

func T(t Terminal) Symbol    { return Symbol(t) }
func N(n Nonterminal) Symbol { return Symbol(^int(n)) }

func (s Symbol) IsTerminal() bool         { return s >= 0 }
func (s Symbol) Terminal() Terminal       { return Terminal(s) }
func (s Symbol) Nonterminal() Nonterminal { return Nonterminal(^int(s)) }

// Production is one grammar rule.
//
// For error-recovery productions (Recovery == true) RHS holds only the
// symbols left of the error marker; the rule reads
//
//	LHS ::= RHS... (error) Sync
//
// and len(RHS) is what the driver pops when it recovers.
type Production struct {
	LHS         Nonterminal
	RHS         []Symbol
	Recovery    bool
	Sync        Terminal
	Description string
}

func (p *Production) Len() int { return len(p.RHS) }

// Grammar is a context-free grammar over numbered terminals and
// nonterminals. Production 0 is the augmented start rule
// $accept ::= Start and is created by NewGrammar.
type Grammar struct {
	terminals    []string
	nonterminals []string
	productions  []Production
	start        Nonterminal
	eof          Terminal
}

// NewGrammar creates a grammar whose terminal and nonterminal descriptions
// are given by index. One extra nonterminal named "$accept" is appended to
// serve as the left-hand side of production 0.
func NewGrammar(terminals, nonterminals []string, start Nonterminal, eof Terminal) *Grammar {
	g := &Grammar{
		terminals:    append([]string(nil), terminals...),
		nonterminals: append(append([]string(nil), nonterminals...), "$accept"),
		start:        start,
		eof:          eof,
	}
	accept := Nonterminal(len(g.nonterminals) - 1)
	g.productions = append(g.productions, Production{
		LHS:         accept,
		RHS:         []Symbol{N(start)},
		Description: "$accept ::= " + g.nonterminals[start],
	})
	return g
}

// Add appends the production lhs ::= rhs and returns its index.
func (g *Grammar) Add(lhs Nonterminal, rhs ...Symbol) int {
	p := Production{LHS: lhs, RHS: append([]Symbol(nil), rhs...)}
	p.Description = g.describe(&p)
	g.productions = append(g.productions, p)
	return len(g.productions) - 1
}

// AddRecovery appends the error production lhs ::= alpha (error) sync and
// returns its index.
func (g *Grammar) AddRecovery(lhs Nonterminal, sync Terminal, alpha ...Symbol) int {
	p := Production{LHS: lhs, RHS: append([]Symbol(nil), alpha...), Recovery: true, Sync: sync}
	p.Description = g.describe(&p)
	g.productions = append(g.productions, p)
	return len(g.productions) - 1
}

func (g *Grammar) describe(p *Production) string {
	var b strings.Builder
	b.WriteString(g.nonterminals[p.LHS])
	b.WriteString(" ::=")
	for _, s := range p.RHS {
		b.WriteByte(' ')
		b.WriteString(g.SymbolName(s))
	}
	if p.Recovery {
		b.WriteString(" (error) ")
		b.WriteString(g.TerminalName(p.Sync))
	}
	return b.String()
}

func (g *Grammar) NumTerminals() int    { return len(g.terminals) }
func (g *Grammar) NumNonterminals() int { return len(g.nonterminals) }
func (g *Grammar) NumProductions() int  { return len(g.productions) }
func (g *Grammar) Start() Nonterminal   { return g.start }
func (g *Grammar) EOF() Terminal        { return g.eof }

// Accept is the synthetic nonterminal on the left of production 0.
func (g *Grammar) Accept() Nonterminal { return Nonterminal(len(g.nonterminals) - 1) }

func (g *Grammar) Production(i int) *Production {
	if i < 0 || i >= len(g.productions) {
		panic(&StructuralError{Op: "production", Msg: fmt.Sprintf("index %d out of range [0, %d)", i, len(g.productions))})
	}
	return &g.productions[i]
}

func (g *Grammar) TerminalName(t Terminal) string {
	if int(t) < 0 || int(t) >= len(g.terminals) {
		return fmt.Sprintf("terminal(%d)", int(t))
	}
	return g.terminals[t]
}

func (g *Grammar) NonterminalName(n Nonterminal) string {
	if int(n) < 0 || int(n) >= len(g.nonterminals) {
		return fmt.Sprintf("nonterminal(%d)", int(n))
	}
	return g.nonterminals[n]
}

func (g *Grammar) SymbolName(s Symbol) string {
	if s.IsTerminal() {
		return g.TerminalName(s.Terminal())
	}
	return g.NonterminalName(s.Nonterminal())
}

// Validate reports symbols out of range and nonterminals that are used but
// never defined.
func (g *Grammar) Validate() error {
	defined := make([]bool, len(g.nonterminals))
	for _, p := range g.productions {
		defined[p.LHS] = true
	}
	var problems []string
	for i, p := range g.productions {
		if int(p.LHS) < 0 || int(p.LHS) >= len(g.nonterminals) {
			problems = append(problems, fmt.Sprintf("production %d: left-hand side %d out of range", i, p.LHS))
			continue
		}
		if p.Recovery && (int(p.Sync) < 0 || int(p.Sync) >= len(g.terminals)) {
			problems = append(problems, fmt.Sprintf("production %d: sync terminal %d out of range", i, p.Sync))
		}
		for _, s := range p.RHS {
			switch {
			case s.IsTerminal() && int(s) >= len(g.terminals):
				problems = append(problems, fmt.Sprintf("production %d: terminal %d out of range", i, s.Terminal()))
			case !s.IsTerminal() && int(s.Nonterminal()) >= len(g.nonterminals):
				problems = append(problems, fmt.Sprintf("production %d: nonterminal %d out of range", i, s.Nonterminal()))
			case !s.IsTerminal() && !defined[s.Nonterminal()]:
				problems = append(problems, fmt.Sprintf("production %d: %s has no productions", i, g.nonterminals[s.Nonterminal()]))
			}
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid grammar: %s", strings.Join(problems, "; "))
	}
	return nil
}
