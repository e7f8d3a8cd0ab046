// Package lalr builds LALR(1) parsing tables and runs the shift-reduce
// automaton over them, with error productions for resynchronization.
//
// A grammar is built from numbered terminals and nonterminals:
//
//	g := lalr.NewGrammar(terminals, nonterminals, start, eof)
//	g.Add(expr, lalr.N(expr), lalr.T(plus), lalr.N(term))
//	g.AddRecovery(stmt, semicolon) // stmt ::= (error) ';'
//	tables, err := lalr.Build(g)
//
// Tables are immutable once built and may be shared. A Parser pairs them
// with a Dispatcher, which turns each reduction into a value:
//
//	p := lalr.NewParser(tables, dispatcher)
//	root, err := p.Parse(lexer)
//
// # Driver
//
// The driver keeps a state stack and a value stack with one more state
// than values. Each iteration looks up ACTION(top, lookahead):
//
//	shift s    push (s, lookahead), read the next token
//	reduce p   pop |rhs p| pairs, dispatch, push (GOTO(top, lhs p), value)
//	accept     the single value left is the result
//	error      run error recovery
//
// # Error recovery
//
// A state that contains an item A ::= α • (error) t can resynchronize. On an
// error, recovery consults RECOVERY(top, lookahead):
//
//	discard-state     no such item in this state: pop one pair
//	discard-terminal  such items exist but none for the lookahead: skip it
//	recover p         item for p with t == lookahead: reduce p
//
// Everything popped or skipped is collected in a RecoveryInfo and handed
// to the dispatcher for p. Recovery fails with a *SyntaxError when the
// stack runs out or input ends first.
package lalr
