package lalr

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/exp/ebnf"
)

// EBNFOptions controls WriteEBNF.
type EBNFOptions struct {
	// Terminal renders a terminal as an EBNF term: a quoted token such as
	// "copyin" or the name of a lexical production such as identifier.
	Terminal func(Terminal) string
	// Lexical productions are appended after the grammar, in order.
	Lexical []LexicalProduction
}

type LexicalProduction struct {
	Name string
	Expr string
}

// WriteEBNF writes the grammar in the notation of golang.org/x/exp/ebnf.
// Error productions are omitted. A nonterminal with an empty alternative
// is written as an option over its other alternatives.
func WriteEBNF(w io.Writer, g *Grammar, opts EBNFOptions) error {
	term := opts.Terminal
	if term == nil {
		term = func(t Terminal) string { return fmt.Sprintf("%q", g.TerminalName(t)) }
	}
	byLHS := make([][]*Production, g.NumNonterminals())
	for i := 1; i < g.NumProductions(); i++ {
		p := g.Production(i)
		if !p.Recovery {
			byLHS[p.LHS] = append(byLHS[p.LHS], p)
		}
	}
	order := append([]Nonterminal{g.start}, nonterminalsExcept(g, g.start)...)
	for _, n := range order {
		prods := byLHS[n]
		if len(prods) == 0 {
			continue
		}
		name := g.NonterminalName(n)
		if !isEBNFName(name) {
			return fmt.Errorf("nonterminal %q is not an EBNF production name", name)
		}
		var alts []string
		empty := false
		for _, p := range prods {
			if len(p.RHS) == 0 {
				empty = true
				continue
			}
			parts := make([]string, len(p.RHS))
			for i, s := range p.RHS {
				if s.IsTerminal() {
					parts[i] = term(s.Terminal())
				} else {
					parts[i] = g.NonterminalName(s.Nonterminal())
				}
			}
			alts = append(alts, strings.Join(parts, " "))
		}
		var err error
		switch {
		case len(alts) == 0:
			_, err = fmt.Fprintf(w, "%s = .\n", name)
		case empty:
			_, err = fmt.Fprintf(w, "%s = [ %s ] .\n", name, strings.Join(alts, " | "))
		case len(alts) == 1:
			_, err = fmt.Fprintf(w, "%s = %s .\n", name, alts[0])
		default:
			_, err = fmt.Fprintf(w, "%s =\n\t  %s .\n", name, strings.Join(alts, "\n\t| "))
		}
		if err != nil {
			return err
		}
	}
	for _, lp := range opts.Lexical {
		if _, err := fmt.Fprintf(w, "%s = %s .\n", lp.Name, lp.Expr); err != nil {
			return err
		}
	}
	return nil
}

func nonterminalsExcept(g *Grammar, skip Nonterminal) []Nonterminal {
	var ns []Nonterminal
	for i := 0; i < g.NumNonterminals(); i++ {
		n := Nonterminal(i)
		if n != skip && n != g.Accept() {
			ns = append(ns, n)
		}
	}
	return ns
}

func isEBNFName(s string) bool {
	for i, r := range s {
		if !(unicode.IsLetter(r) || r == '_' || (i > 0 && unicode.IsDigit(r))) {
			return false
		}
	}
	return s != ""
}

// VerifyEBNF parses src and checks that every production is defined and
// reachable from start.
func VerifyEBNF(filename string, src []byte, start string) error {
	grammar, err := ebnf.Parse(filename, bytes.NewReader(src))
	if err != nil {
		return err
	}
	return ebnf.Verify(grammar, start)
}
