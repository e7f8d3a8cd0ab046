package lalr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

const (
	tEOF Terminal = iota
	tID
	tPlus
	tStar
	tLParen
	tRParen
	tSemi
)

const (
	nProg Nonterminal = iota
	nStmts
	nStmt
	nExpr
	nTerm
	nFactor
)

var testTerminals = []string{"end of input", "id", "'+'", "'*'", "'('", "')'", "';'"}

var testNonterminals = []string{"Prog", "Stmts", "Stmt", "Expr", "Term", "Factor"}

// statementGrammar is a list of ';'-terminated expression statements. With
// recovery, a broken statement resynchronizes at the next ';'.
func statementGrammar(recovery bool) *Grammar {
	g := NewGrammar(testTerminals, testNonterminals, nProg, tEOF)
	g.Add(nProg)
	g.Add(nProg, N(nStmts))
	g.Add(nStmts, N(nStmt))
	g.Add(nStmts, N(nStmts), N(nStmt))
	g.Add(nStmt, N(nExpr), T(tSemi))
	if recovery {
		g.AddRecovery(nStmt, tSemi)
	}
	g.Add(nExpr, N(nExpr), T(tPlus), N(nTerm))
	g.Add(nExpr, N(nTerm))
	g.Add(nTerm, N(nTerm), T(tStar), N(nFactor))
	g.Add(nTerm, N(nFactor))
	g.Add(nFactor, T(tLParen), N(nExpr), T(tRParen))
	g.Add(nFactor, T(tID))
	return g
}

type testToken struct {
	term Terminal
	text string
}

func (t testToken) Terminal() Terminal { return t.term }
func (t testToken) Text() string       { return t.text }

type testLexer struct {
	input string
	pos   int
	last  int
}

func (l *testLexer) Next() (Token, error) {
	for l.pos < len(l.input) && l.input[l.pos] == ' ' {
		l.pos++
	}
	l.last = l.pos
	if l.pos >= len(l.input) {
		return testToken{tEOF, "(end of input)"}, nil
	}
	c := l.input[l.pos]
	l.pos++
	switch c {
	case 'i':
		return testToken{tID, "i"}, nil
	case '+':
		return testToken{tPlus, "+"}, nil
	case '*':
		return testToken{tStar, "*"}, nil
	case '(':
		return testToken{tLParen, "("}, nil
	case ')':
		return testToken{tRParen, ")"}, nil
	case ';':
		return testToken{tSemi, ";"}, nil
	}
	return nil, fmt.Errorf("unexpected %q", c)
}

func (l *testLexer) DescribePosition() string {
	return fmt.Sprintf(" (offset %d)", l.last)
}

type testNode struct {
	prod int
	lhs  string
	kids []Value
	info *RecoveryInfo
}

func treeDispatcher(g *Grammar) Dispatcher {
	return DispatchFunc(func(prod int, values []Value, info *RecoveryInfo) (Value, error) {
		return &testNode{prod: prod, lhs: g.NonterminalName(g.Production(prod).LHS), kids: values, info: info}, nil
	})
}

func render(v Value) string {
	switch v := v.(type) {
	case testToken:
		return v.text
	case *testNode:
		var parts []string
		parts = append(parts, v.lhs)
		if v.info != nil {
			parts = append(parts, "error")
		}
		for _, k := range v.kids {
			parts = append(parts, render(k))
		}
		return "(" + strings.Join(parts, " ") + ")"
	}
	return fmt.Sprintf("%v", v)
}

func mustBuild(t *testing.T, g *Grammar) *Tables {
	t.Helper()
	tables, err := Build(g)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return tables
}

func TestActionPacking(t *testing.T) {
	tests := []struct {
		action Action
		kind   ActionKind
		value  int
	}{
		{ErrorAction, ActionError, 0},
		{Shift(17), ActionShift, 17},
		{Reduce(42), ActionReduce, 42},
		{AcceptAction, ActionAccept, 0},
	}
	for _, tt := range tests {
		t.Run(tt.action.String(), func(t *testing.T) {
			if got := tt.action.Kind(); got != tt.kind {
				t.Errorf("Kind() = %v, want %v", got, tt.kind)
			}
			if got := tt.action.Value(); got != tt.value {
				t.Errorf("Value() = %d, want %d", got, tt.value)
			}
		})
	}
	if r := Recover(9); r.Kind() != RecoverProduction || r.Value() != 9 {
		t.Errorf("Recover(9) = %v", r)
	}
	if DiscardTerminalCode.Kind() != DiscardTerminal {
		t.Errorf("DiscardTerminalCode.Kind() = %v", DiscardTerminalCode.Kind())
	}
}

func TestBuildHasNoConflicts(t *testing.T) {
	for _, recovery := range []bool{false, true} {
		tables := mustBuild(t, statementGrammar(recovery))
		for _, c := range tables.Conflicts() {
			t.Errorf("unexpected conflict: %s", c.Describe(tables.Grammar()))
		}
	}
}

func TestBuildRejectsUndefinedNonterminal(t *testing.T) {
	g := NewGrammar(testTerminals, testNonterminals, nProg, tEOF)
	g.Add(nProg, N(nExpr))
	if _, err := Build(g); err == nil {
		t.Fatal("Build() error = nil, want error for Expr without productions")
	}
}

func TestBuildResolvesConflicts(t *testing.T) {
	// Expr ::= Expr '+' Expr | id is ambiguous; shift must win.
	g := NewGrammar(testTerminals, testNonterminals, nProg, tEOF)
	g.Add(nProg, N(nExpr))
	g.Add(nExpr, N(nExpr), T(tPlus), N(nExpr))
	g.Add(nExpr, T(tID))
	tables := mustBuild(t, g)
	if len(tables.Conflicts()) == 0 {
		t.Fatal("Conflicts is empty, want a shift/reduce conflict on '+'")
	}
	for _, c := range tables.Conflicts() {
		if c.Chosen.Kind() != ActionShift || c.Rejected.Kind() != ActionReduce {
			t.Errorf("conflict %s: chose %v over %v", c.Describe(g), c.Chosen, c.Rejected)
		}
	}

	got := tables.Conflicts()
	got[0].Chosen = ErrorAction
	if tables.Conflicts()[0].Chosen == ErrorAction {
		t.Error("Conflicts() returned the tables' own slice")
	}
}

func TestParse(t *testing.T) {
	g := statementGrammar(true)
	p := NewParser(mustBuild(t, g), treeDispatcher(g))
	tests := []struct {
		input string
		want  string
	}{
		{"", "(Prog)"},
		{"i;", "(Prog (Stmts (Stmt (Expr (Term (Factor i))) ;)))"},
		{"i+i*i;", "(Prog (Stmts (Stmt (Expr (Expr (Term (Factor i))) + (Term (Term (Factor i)) * (Factor i))) ;)))"},
		{"(i);i;", "(Prog (Stmts (Stmts (Stmt (Expr (Term (Factor ( (Expr (Term (Factor i))) )))) ;)) (Stmt (Expr (Term (Factor i))) ;)))"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := p.Parse(&testLexer{input: tt.input})
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := render(v); got != tt.want {
				t.Errorf("Parse() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStackInvariant(t *testing.T) {
	g := statementGrammar(true)
	steps := 0
	hook := func(s Step) {
		steps++
		if s.States != s.Values+1 || s.States < 1 {
			t.Errorf("step %d: %d states, %d values", steps, s.States, s.Values)
		}
	}
	p := NewParser(mustBuild(t, g), treeDispatcher(g), WithStepHook(hook))
	for _, input := range []string{"i+i*(i+i);", "i+;i;", ";;", "i*;(i);"} {
		if _, err := p.Parse(&testLexer{input: input}); err != nil {
			t.Errorf("Parse(%q) error = %v", input, err)
		}
	}
	if steps == 0 {
		t.Fatal("step hook never called")
	}
}

func TestRecovery(t *testing.T) {
	g := statementGrammar(true)
	p := NewParser(mustBuild(t, g), treeDispatcher(g))
	v, err := p.Parse(&testLexer{input: "i+;i;"})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := "(Prog (Stmts (Stmts (Stmt error)) (Stmt (Expr (Term (Factor i))) ;)))"
	if got := render(v); got != want {
		t.Errorf("Parse() = %s, want %s", got, want)
	}
	broken := v.(*testNode).kids[0].(*testNode).kids[0].(*testNode).kids[0].(*testNode)
	if broken.info == nil {
		t.Fatal("recovered statement has no RecoveryInfo")
	}
	var discarded []string
	for _, d := range broken.info.Discarded {
		discarded = append(discarded, render(d))
	}
	if got, want := strings.Join(discarded, " "), "(Expr (Term (Factor i))) + ;"; got != want {
		t.Errorf("Discarded = %s, want %s", got, want)
	}
	if broken.info.Lookahead.Terminal() != tSemi {
		t.Errorf("Lookahead = %q, want ';'", broken.info.Lookahead.Text())
	}
}

func TestRecoveryFailures(t *testing.T) {
	tests := []struct {
		name     string
		recovery bool
		input    string
		token    Terminal
		expected string
		reason   FailureReason
	}{
		{"end of input after operator", true, "i+", tEOF, "id, '('", EndOfInput},
		{"end of input while skipping", true, "i i", tID, "'+', '*', ')', ';'", EndOfInput},
		{"no error productions", false, "i+;", tSemi, "id, '('", StackExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := statementGrammar(tt.recovery)
			p := NewParser(mustBuild(t, g), treeDispatcher(g))
			_, err := p.Parse(&testLexer{input: tt.input})
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("Parse() error = %v, want *SyntaxError", err)
			}
			if se.Token.Terminal() != tt.token {
				t.Errorf("Token = %q, want %s", se.Token.Text(), g.TerminalName(tt.token))
			}
			if se.ExpectedDescription != tt.expected {
				t.Errorf("ExpectedDescription = %q, want %q", se.ExpectedDescription, tt.expected)
			}
			if se.Reason != tt.reason {
				t.Errorf("Reason = %v, want %v", se.Reason, tt.reason)
			}
			if !se.RecoveryExhausted() {
				t.Error("RecoveryExhausted() = false")
			}
		})
	}
}

// tokensLeft counts the lookahead and every token still to come, end of
// input included.
func tokensLeft(l *testLexer, lookahead Token) int {
	if lookahead.Terminal() == tEOF {
		return 1
	}
	rest := *l
	n := 1
	for {
		tok, err := rest.Next()
		n++
		if err != nil || tok.Terminal() == tEOF {
			return n
		}
	}
}

func TestRecoveryTerminates(t *testing.T) {
	inputs := []string{"i+", "i i", "i+;", "i+;i;", "((i;", "(((", ";;;", "i i i i;", "+", ")", "i*)+;i", "(i+;"}
	for _, recovery := range []bool{true, false} {
		g := statementGrammar(recovery)
		tables := mustBuild(t, g)
		for _, input := range inputs {
			t.Run(fmt.Sprintf("%s/recovery=%v", input, recovery), func(t *testing.T) {
				lex := &testLexer{input: input}
				var steps, bound, episodes int
				inRecovery := false
				finish := func() {
					if inRecovery && steps > bound {
						t.Errorf("recovery took %d steps, want at most %d (stack depth plus remaining tokens)", steps, bound)
					}
					inRecovery = false
				}
				hook := func(s Step) {
					if !s.Recover {
						finish()
						return
					}
					if !inRecovery {
						inRecovery = true
						episodes++
						steps = 0
						bound = s.States + tokensLeft(lex, s.Lookahead)
					}
					steps++
				}
				p := NewParser(tables, treeDispatcher(g), WithStepHook(hook))
				if _, err := p.Parse(lex); err != nil {
					var se *SyntaxError
					if !errors.As(err, &se) {
						t.Fatalf("Parse() error = %v, want nil or *SyntaxError", err)
					}
				}
				finish()
				if episodes == 0 {
					t.Errorf("no recovery for %q", input)
				}
			})
		}
	}
}

func TestExpectedMatchesActions(t *testing.T) {
	g := statementGrammar(true)
	tables := mustBuild(t, g)
	for state := 0; state < tables.NumStates(); state++ {
		expected := newBitset(g.NumTerminals())
		for _, term := range tables.Expected(state) {
			expected.add(int(term))
		}
		for term := 0; term < g.NumTerminals(); term++ {
			nonError := tables.Action(state, Terminal(term)) != ErrorAction
			if expected.has(term) != nonError {
				t.Errorf("state %d terminal %s: expected %v, action %v", state, g.TerminalName(Terminal(term)), expected.has(term), tables.Action(state, Terminal(term)))
			}
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	a := mustBuild(t, statementGrammar(true))
	b := mustBuild(t, statementGrammar(true))
	if a.NumStates() != b.NumStates() {
		t.Fatalf("NumStates() = %d and %d", a.NumStates(), b.NumStates())
	}
	assertSameTables(t, a, b)
}

func TestSaveAndLoadTables(t *testing.T) {
	g := statementGrammar(true)
	tables := mustBuild(t, g)
	var buf strings.Builder
	if err := tables.Save(&buf); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := LoadTables(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("LoadTables() error = %v", err)
	}
	assertSameTables(t, tables, loaded)

	p := NewParser(loaded, treeDispatcher(loaded.Grammar()))
	if _, err := p.Parse(&testLexer{input: "i*i;"}); err != nil {
		t.Errorf("Parse() with loaded tables error = %v", err)
	}
}

func assertSameTables(t *testing.T, a, b *Tables) {
	t.Helper()
	g := a.Grammar()
	for state := 0; state < a.NumStates(); state++ {
		for term := 0; term < g.NumTerminals(); term++ {
			if x, y := a.Action(state, Terminal(term)), b.Action(state, Terminal(term)); x != y {
				t.Errorf("Action(%d, %d) = %v and %v", state, term, x, y)
			}
			if x, y := a.Recovery(state, Terminal(term)), b.Recovery(state, Terminal(term)); x != y {
				t.Errorf("Recovery(%d, %d) = %v and %v", state, term, x, y)
			}
		}
		for nt := 0; nt < g.NumNonterminals(); nt++ {
			if x, y := a.Goto(state, Nonterminal(nt)), b.Goto(state, Nonterminal(nt)); x != y {
				t.Errorf("Goto(%d, %d) = %d and %d", state, nt, x, y)
			}
		}
	}
}

func TestDispatchErrorIsStructural(t *testing.T) {
	g := statementGrammar(true)
	boom := errors.New("boom")
	p := NewParser(mustBuild(t, g), DispatchFunc(func(int, []Value, *RecoveryInfo) (Value, error) {
		return nil, boom
	}))
	_, err := p.Parse(&testLexer{input: "i;"})
	var se *StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("Parse() error = %v, want *StructuralError", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("errors.Is(err, boom) = false for %v", err)
	}
}

func TestWriteEBNF(t *testing.T) {
	g := statementGrammar(true)
	var buf strings.Builder
	err := WriteEBNF(&buf, g, EBNFOptions{
		Terminal: func(term Terminal) string {
			if term == tID {
				return "id"
			}
			return fmt.Sprintf("%q", strings.Trim(g.TerminalName(term), "'"))
		},
		Lexical: []LexicalProduction{{Name: "id", Expr: `"a" … "z" { "a" … "z" }`}},
	})
	if err != nil {
		t.Fatalf("WriteEBNF() error = %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "Prog = [ Stmts ] .\n") {
		t.Errorf("WriteEBNF() starts with %q", strings.SplitN(out, "\n", 2)[0])
	}
	if strings.Contains(out, "error") {
		t.Errorf("WriteEBNF() includes the error production:\n%s", out)
	}
	if err := VerifyEBNF("test.ebnf", []byte(out), "Prog"); err != nil {
		t.Errorf("VerifyEBNF() error = %v\n%s", err, out)
	}
}
