// Package parser parses OpenACC pragmas for C and C++ into syntax trees.
//
// A pragma is parsed with the LALR(1) automaton from package lalr, over
// tables built once from the grammar in this package:
//
//	root, err := parser.ParseString("#pragma acc parallel loop copyin(a[0:n]) gang")
//
// The result is a tree of four shapes: *Token leaves, *Branch nodes with
// named fields (see LayoutOf), *List and *SeparatedList. Tokens keep the
// whitespace and comments around them, so printing a tree with String or
// WriteTo gives back the input text exactly.
//
// Clauses that cannot be parsed are skipped up to the next ')' and kept in
// an ErrorClause node; see Branch.ErrorInfo. Parsing fails with a
// *lalr.SyntaxError only when no such recovery is possible.
//
// # Capabilities
//
// Every node kind carries a set of capability tags. Clause kinds carry one
// tag per directive that accepts them (CapParallelClause, CapLoopClause and
// so on), and the grammar derives each directive's clause list from those
// tags. Visitors receive one VisitCapability call per tag:
//
//	parser.Walk(v, root)
//	clauses := parser.FindAll(root, parser.HasCap(parser.CapClause))
package parser
