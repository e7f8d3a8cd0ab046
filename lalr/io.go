package lalr

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"io"
)

type tablesFile struct {
	Terminals    []string
	Nonterminals []string
	Productions  []Production
	Start        Nonterminal
	EOF          Terminal
	States       int
	Actions      []Action
	Gotos        []int32
	Recovery     []Recovery
	Conflicts    []Conflict
}

// Save writes t, grammar included, in gob form.
func (t *Tables) Save(w io.Writer) error {
	g := t.grammar
	bw := bufio.NewWriter(w)
	err := gob.NewEncoder(bw).Encode(&tablesFile{
		Terminals:    g.terminals,
		Nonterminals: g.nonterminals,
		Productions:  g.productions,
		Start:        g.start,
		EOF:          g.eof,
		States:       t.numStates,
		Actions:      t.actions,
		Gotos:        t.gotos,
		Recovery:     t.recovery,
		Conflicts:    t.conflicts,
	})
	if err != nil {
		return fmt.Errorf("encode tables: %w", err)
	}
	return bw.Flush()
}

// LoadTables reads tables written by Save.
func LoadTables(r io.Reader) (*Tables, error) {
	var f tablesFile
	if err := gob.NewDecoder(bufio.NewReader(r)).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode tables: %w", err)
	}
	nt, nn := len(f.Terminals), len(f.Nonterminals)
	if len(f.Actions) != f.States*nt || len(f.Recovery) != f.States*nt || len(f.Gotos) != f.States*nn {
		return nil, fmt.Errorf("decode tables: %d states do not match table sizes", f.States)
	}
	g := &Grammar{
		terminals:    f.Terminals,
		nonterminals: f.Nonterminals,
		productions:  f.Productions,
		start:        f.Start,
		eof:          f.EOF,
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("decode tables: %w", err)
	}
	return &Tables{
		grammar:   g,
		numStates: f.States,
		actions:   f.Actions,
		gotos:     f.Gotos,
		recovery:  f.Recovery,
		conflicts: f.Conflicts,
	}, nil
}
